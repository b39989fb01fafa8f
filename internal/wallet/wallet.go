package wallet

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/google"

	"github.com/receiptpal/receiptpal/internal/store"
)

const (
	walletScope    = "https://www.googleapis.com/auth/wallet_object.issuer"
	defaultBaseURL = "https://walletobjects.googleapis.com/walletobjects/v1"
	saveURLPrefix  = "https://pay.google.com/gp/v/save/"
	classSuffix    = "grocery_list"
)

// Issuer creates Google Wallet passes for grocery lists and signs the
// save-to-wallet JWT that the browser is redirected to
type Issuer struct {
	issuerID            string
	serviceAccountEmail string
	privateKey          *rsa.PrivateKey
	client              *http.Client
	baseURL             string
	origins             []string
	now                 func() time.Time
}

// credentialsFile is the subset of a service-account JSON key we need for signing
type credentialsFile struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// NewIssuer creates an Issuer from a service-account JSON key file. The
// origins list must name the web origins allowed to render the save button.
func NewIssuer(ctx context.Context, issuerID, credentialsPath string, origins []string) (*Issuer, error) {
	if issuerID == "" {
		return nil, fmt.Errorf("wallet issuer id is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading wallet credentials: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing wallet credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("wallet credentials missing client_email or private_key")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing wallet private key: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, walletScope)
	if err != nil {
		return nil, fmt.Errorf("configuring wallet auth: %w", err)
	}

	return &Issuer{
		issuerID:            issuerID,
		serviceAccountEmail: creds.ClientEmail,
		privateKey:          key,
		client:              cfg.Client(ctx),
		baseURL:             defaultBaseURL,
		origins:             origins,
		now:                 time.Now,
	}, nil
}

// NewIssuerWithDeps creates an Issuer with injected collaborators for testing
func NewIssuerWithDeps(issuerID, serviceAccountEmail string, key *rsa.PrivateKey, client *http.Client, baseURL string, origins []string, now func() time.Time) *Issuer {
	return &Issuer{
		issuerID:            issuerID,
		serviceAccountEmail: serviceAccountEmail,
		privateKey:          key,
		client:              client,
		baseURL:             baseURL,
		origins:             origins,
		now:                 now,
	}
}

func (i *Issuer) classID() string {
	return fmt.Sprintf("%s.%s", i.issuerID, classSuffix)
}

// ensureClass creates the pass class on Google's servers if it doesn't exist
func (i *Issuer) ensureClass(ctx context.Context) error {
	url := fmt.Sprintf("%s/genericClass/%s", i.baseURL, i.classID())
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("checking pass class: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil // Class already exists
	}
	if resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("checking pass class (status %d): %s", resp.StatusCode, string(body))
	}

	classPayload := map[string]interface{}{
		"id":                 i.classID(),
		"cardTitle":          localizedString("Grocery List"),
		"header":             localizedString("Your Items"),
		"hexBackgroundColor": "#4285f4",
	}
	payload, err := json.Marshal(classPayload)
	if err != nil {
		return fmt.Errorf("marshaling pass class: %w", err)
	}

	createReq, err := http.NewRequestWithContext(ctx, "POST", i.baseURL+"/genericClass", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	createReq.Header.Set("Content-Type", "application/json")

	createResp, err := i.client.Do(createReq)
	if err != nil {
		return fmt.Errorf("creating pass class: %w", err)
	}
	defer createResp.Body.Close()

	if createResp.StatusCode < 200 || createResp.StatusCode >= 300 {
		body, _ := io.ReadAll(createResp.Body)
		return fmt.Errorf("creating pass class (status %d): %s", createResp.StatusCode, string(body))
	}

	slog.Info("Created wallet pass class", "class_id", i.classID())
	return nil
}

// CreatePass builds a generic wallet object for the grocery list and returns
// the signed save-to-wallet URL the browser should navigate to
func (i *Issuer) CreatePass(ctx context.Context, email string, items []store.Item) (string, error) {
	if err := i.ensureClass(ctx); err != nil {
		return "", err
	}

	objectID := fmt.Sprintf("%s.%s-%d", i.issuerID, strings.ReplaceAll(email, "@", "_at_"), i.now().Unix())

	textModules := make([]map[string]interface{}, 0, len(items))
	for idx, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		textModules = append(textModules, map[string]interface{}{
			"id":     fmt.Sprintf("item_%d", idx),
			"header": item.Name,
			"body":   fmt.Sprintf("Quantity: %d", quantity),
		})
	}

	passObject := map[string]interface{}{
		"id":                 objectID,
		"classId":            i.classID(),
		"genericType":        "GENERIC_TYPE_UNSPECIFIED",
		"hexBackgroundColor": "#fbbc04",
		"cardTitle":          localizedString("Your Grocery List"),
		"header":             localizedString(email),
		"barcode": map[string]string{
			"type":  "QR_CODE",
			"value": objectID,
		},
		"textModulesData": textModules,
	}

	claims := jwt.MapClaims{
		"iss":     i.serviceAccountEmail,
		"aud":     "google",
		"typ":     "savetowallet",
		"iat":     i.now().Unix(),
		"origins": i.origins,
		"payload": map[string]interface{}{
			"genericObjects": []interface{}{passObject},
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing wallet token: %w", err)
	}

	return saveURLPrefix + token, nil
}

// localizedString builds the wallet API's localized string wrapper
func localizedString(value string) map[string]interface{} {
	return map[string]interface{}{
		"defaultValue": map[string]string{
			"language": "en",
			"value":    value,
		},
	}
}
