package imaging

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ParseDataURL splits a data URL into its media type and decoded payload.
// Only base64-encoded data URLs are accepted, which is what canvas.toDataURL
// and FileReader.readAsDataURL produce.
func ParseDataURL(dataURL string) (mediaType string, data []byte, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}

	rest := strings.TrimPrefix(dataURL, "data:")
	comma := strings.Index(rest, ",")
	if comma == -1 {
		return "", nil, fmt.Errorf("malformed data URL: missing payload")
	}

	meta := rest[:comma]
	payload := rest[comma+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data URL encoding: expected base64")
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL payload: %w", err)
	}
	return mediaType, data, nil
}

// FormatDataURL encodes raw bytes as a base64 data URL with the given media type.
func FormatDataURL(mediaType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
}
