package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/receiptpal/receiptpal/internal/store"
)

// extractJSONObject strips markdown fences and surrounding prose from an LLM
// reply, leaving just the JSON object
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[startIdx : endIdx+1], nil
}

// receiptData is the extraction result for one receipt image
type receiptData struct {
	Items         []store.Item `json:"items"`
	PurchaseDate  string       `json:"purchase_date"`
	PurchasePlace string       `json:"purchase_place"`
}

// parseReceiptData parses the extraction JSON from the LLM, defaulting the
// purchase date to today when the receipt has none
func parseReceiptData(text string, today time.Time) (*receiptData, error) {
	jsonText, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var data receiptData
	if err := json.Unmarshal([]byte(jsonText), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt data: %w", err)
	}

	if data.PurchaseDate == "" {
		data.PurchaseDate = today.Format("2006-01-02")
	} else if parsed, err := time.Parse("2006-01-02", data.PurchaseDate); err == nil {
		data.PurchaseDate = parsed.Format("2006-01-02")
	} else {
		// Try other common formats before falling back to today
		formats := []string{"2006/01/02", "01/02/2006", "02-01-2006"}
		parsedOK := false
		for _, format := range formats {
			if d, e := time.Parse(format, data.PurchaseDate); e == nil {
				data.PurchaseDate = d.Format("2006-01-02")
				parsedOK = true
				break
			}
		}
		if !parsedOK {
			data.PurchaseDate = today.Format("2006-01-02")
		}
	}

	normalizeItems(data.Items)
	return &data, nil
}

// parsePassData parses the grocery-list JSON from the LLM
func parsePassData(text string) (*PassData, error) {
	jsonText, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var data PassData
	if err := json.Unmarshal([]byte(jsonText), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling grocery pass: %w", err)
	}

	normalizeItems(data.Items)
	return &data, nil
}

// normalizeItems applies the default quantity of 1 and trims item names
func normalizeItems(items []store.Item) {
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		if items[i].Name == "" {
			items[i].Name = "Unknown Item"
		}
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
	}
}
