package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/receiptpal/receiptpal/internal/assistant"
	"github.com/receiptpal/receiptpal/internal/identity"
	"github.com/receiptpal/receiptpal/internal/store"
)

// Assistant is the conversational service behind the API
type Assistant interface {
	ProcessImage(ctx context.Context, imageDataURL, userID string) (*store.Receipt, error)
	Answer(ctx context.Context, question, userID, sessionID string) (*assistant.Reply, error)
	ListReceipts(userID string) ([]*store.Receipt, error)
	ReceiptImage(id string) ([]byte, error)
}

// PassIssuer creates wallet passes and returns the save URL
type PassIssuer interface {
	CreatePass(ctx context.Context, email string, items []store.Item) (string, error)
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the receipt assistant and serves the
// embedded capture/chat front-end
type Server struct {
	service     Assistant
	issuer      PassIssuer
	identityCfg identity.Config
	basicAuth   BasicAuth
	mux         *http.ServeMux
}

// NewServer creates a new Server with default mux. The issuer may be nil,
// which disables wallet-pass creation.
func NewServer(service Assistant, issuer PassIssuer, identityCfg identity.Config, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, issuer, identityCfg, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service Assistant, issuer PassIssuer, identityCfg identity.Config, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:     service,
		issuer:      issuer,
		identityCfg: identityCfg,
		basicAuth:   basicAuth,
		mux:         mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="ReceiptPal"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Static assets and browser config
	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /static/app.js", s.requireAuth(s.handleStaticJS))
	s.mux.HandleFunc("GET /config.js", s.requireAuth(s.handleConfigJS))

	// API endpoints
	s.mux.HandleFunc("POST /process-image", s.requireAuth(s.handleProcessImage))
	s.mux.HandleFunc("POST /chat", s.requireAuth(s.handleChat))
	s.mux.HandleFunc("POST /create-wallet-pass", s.requireAuth(s.handleCreateWalletPass))
	s.mux.HandleFunc("GET /api/receipts/{id}/image", s.requireAuth(s.handleReceiptImage))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
