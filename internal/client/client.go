package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/receiptpal/receiptpal/internal/store"
)

// replyPassBuilder is the response discriminator for structured pass payloads
const replyPassBuilder = "PASS_BUILDER"

// PassData is the structured grocery list returned by a pass-builder chat
// reply and echoed back on pass creation
type PassData struct {
	UserID string       `json:"user_id,omitempty"`
	Items  []store.Item `json:"items"`
}

// Reply is the decoded /chat response: a pass payload when Pass is non-nil,
// otherwise plain answer text
type Reply struct {
	Type string
	Text string
	Pass *PassData
}

// Client is a thin HTTP client for the receipt-assistant backend
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Client for the given backend base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ProcessImage uploads a captured image for extraction and returns the
// session correlation id for the stored receipt
func (c *Client) ProcessImage(ctx context.Context, imageDataURL, userID string) (string, error) {
	resp, err := c.postJSON(ctx, "/process-image", map[string]string{
		"imageData": imageDataURL,
		"userId":    userID,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s", errorMessage(resp))
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return body.SessionID, nil
}

// Chat asks a question, echoing the last session correlation id when present
func (c *Client) Chat(ctx context.Context, question, userID, sessionID string) (*Reply, error) {
	var sid *string
	if sessionID != "" {
		sid = &sessionID
	}
	resp, err := c.postJSON(ctx, "/chat", map[string]interface{}{
		"question":  question,
		"userId":    userID,
		"sessionId": sid,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s", errorMessage(resp))
	}

	var wire struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	reply := &Reply{Type: wire.Type}
	if wire.Type == replyPassBuilder {
		var pass PassData
		if err := json.Unmarshal(wire.Content, &pass); err != nil {
			return nil, fmt.Errorf("decoding pass payload: %w", err)
		}
		reply.Pass = &pass
		return reply, nil
	}

	if err := json.Unmarshal(wire.Content, &reply.Text); err != nil {
		// Some backends send bare text content
		reply.Text = string(wire.Content)
	}
	return reply, nil
}

// CreateWalletPass submits the pass payload and user email, returning the
// wallet save URL to navigate to
func (c *Client) CreateWalletPass(ctx context.Context, email string, pass PassData) (string, error) {
	resp, err := c.postJSON(ctx, "/create-wallet-pass", map[string]interface{}{
		"email":    email,
		"passData": pass,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s", errorMessage(resp))
	}

	var body struct {
		SaveURL string `json:"saveUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return body.SaveURL, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling backend: %w", err)
	}
	return resp, nil
}

// errorMessage extracts the server-provided error message, falling back to a
// generic one when the body has none
func errorMessage(resp *http.Response) string {
	fallback := fmt.Sprintf("request failed with status %d", resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}
