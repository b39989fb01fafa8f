package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const defaultEndpoint = "https://identitytoolkit.googleapis.com"

// Config holds the identity-service project configuration. It mirrors the
// web config handed to the browser page, so the Go client and the embedded
// front-end authenticate against the same project.
type Config struct {
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	StorageBucket     string `json:"storageBucket"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId"`
}

// ConfigFromEnv reads the identity configuration from the environment
func ConfigFromEnv() Config {
	return Config{
		APIKey:            os.Getenv("FIREBASE_API_KEY"),
		AuthDomain:        os.Getenv("FIREBASE_AUTH_DOMAIN"),
		ProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
		StorageBucket:     os.Getenv("FIREBASE_STORAGE_BUCKET"),
		MessagingSenderID: os.Getenv("FIREBASE_MESSAGING_SENDER_ID"),
		AppID:             os.Getenv("FIREBASE_APP_ID"),
	}
}

// User is the signed-in anonymous subject
type User struct {
	ID           string
	IDToken      string
	RefreshToken string
}

// Client performs anonymous sign-in against the identity-toolkit REST API and
// tracks the resulting subject id. It is an explicitly owned object handed to
// the components that need it; there is no package-level auth state.
type Client struct {
	cfg      Config
	endpoint string
	client   *http.Client
	disabled bool

	mu        sync.Mutex
	user      *User
	listeners map[int]func(*User)
	nextID    int
}

// New creates a Client. A missing API key disables sign-in entirely (logged,
// not an error): everything gated on readiness stays unavailable.
func New(cfg Config) *Client {
	return NewWithEndpoint(cfg, defaultEndpoint)
}

// NewWithEndpoint creates a Client against a custom endpoint for testing
func NewWithEndpoint(cfg Config, endpoint string) *Client {
	c := &Client{
		cfg:       cfg,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: 15 * time.Second},
		listeners: make(map[int]func(*User)),
	}
	if cfg.APIKey == "" {
		slog.Warn("Identity API key not configured; sign-in disabled")
		c.disabled = true
	}
	return c
}

// Enabled reports whether the client has the configuration needed to sign in
func (c *Client) Enabled() bool {
	return !c.disabled
}

// signUpResponse is the identity-toolkit anonymous sign-up response
type signUpResponse struct {
	IDToken      string `json:"idToken"`
	LocalID      string `json:"localId"`
	RefreshToken string `json:"refreshToken"`
}

// SignInAnonymously requests an anonymous session and notifies subscribers
func (c *Client) SignInAnonymously(ctx context.Context) error {
	if c.disabled {
		return fmt.Errorf("identity is not configured")
	}

	body, err := json.Marshal(map[string]bool{"returnSecureToken": true})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/accounts:signUp?key=%s", c.endpoint, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity API error: %s", identityErrorMessage(resp))
	}

	var signUp signUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&signUp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if signUp.LocalID == "" {
		return fmt.Errorf("identity API returned no subject id")
	}

	c.setUser(&User{
		ID:           signUp.LocalID,
		IDToken:      signUp.IDToken,
		RefreshToken: signUp.RefreshToken,
	})
	slog.Info("Signed in anonymously", "user_id", signUp.LocalID)
	return nil
}

// SignOut clears the current user and notifies subscribers
func (c *Client) SignOut() {
	c.setUser(nil)
}

// UserID returns the signed-in subject id, and whether one is present
func (c *Client) UserID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return "", false
	}
	return c.user.ID, true
}

// OnAuthStateChanged subscribes to auth-state changes. The callback fires
// immediately with the current state and again on every change; the returned
// function unsubscribes.
func (c *Client) OnAuthStateChanged(fn func(*User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.user
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) setUser(user *User) {
	c.mu.Lock()
	c.user = user
	notify := make([]func(*User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		notify = append(notify, fn)
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn(user)
	}
}

// identityErrorMessage extracts the error message from an identity API response
func identityErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Status
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return resp.Status
	}
	return payload.Error.Message
}
