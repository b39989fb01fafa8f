package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/receiptpal/receiptpal/internal/assistant"
	"github.com/receiptpal/receiptpal/internal/store"
)

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

// handleConfigJS hands the identity web config to the browser page. An empty
// API key leaves the page unauthenticated with its controls disabled.
func (s *Server) handleConfigJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")

	cfg, err := json.Marshal(s.identityCfg)
	if err != nil {
		slog.Error("Error encoding identity config", "error", err)
		cfg = []byte("null")
	}
	fmt.Fprintf(w, "window.RECEIPTPAL_CONFIG = %s;\n", cfg)
}

// handleProcessImage extracts and stores receipt data from an uploaded image
func (s *Server) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageData string `json:"imageData"`
		UserID    string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImageData == "" || req.UserID == "" {
		jsonError(w, "Missing 'imageData' or 'userId'", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ProcessImage(r.Context(), req.ImageData, req.UserID)
	if err != nil {
		slog.Error("Error processing image", "user_id", req.UserID, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"sessionId": receipt.ID,
	})
}

// handleChat answers a question, returning either text or a pass payload
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question  string  `json:"question"`
		UserID    string  `json:"userId"`
		SessionID *string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" || req.UserID == "" {
		jsonError(w, "Missing 'question' or 'userId'", http.StatusBadRequest)
		return
	}

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	reply, err := s.service.Answer(r.Context(), req.Question, req.UserID, sessionID)
	if err != nil {
		slog.Error("Error answering question", "user_id", req.UserID, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var content interface{}
	if reply.Type == assistant.ReplyPassBuilder {
		content = reply.Pass
	} else {
		content = reply.Text
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    reply.Type,
		"content": content,
	})
}

// handleCreateWalletPass issues a wallet pass and returns its save URL
func (s *Server) handleCreateWalletPass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string              `json:"email"`
		PassData *assistant.PassData `json:"passData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.PassData == nil {
		jsonError(w, "Missing 'email' or 'passData' in request", http.StatusBadRequest)
		return
	}
	if s.issuer == nil {
		jsonError(w, "Wallet passes are not configured on this server", http.StatusServiceUnavailable)
		return
	}

	saveURL, err := s.issuer.CreatePass(r.Context(), req.Email, req.PassData.Items)
	if err != nil {
		slog.Error("Error creating wallet pass", "email", req.Email, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"saveUrl": saveURL,
	})
}

// handleListReceipts returns all receipts for a user
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		jsonError(w, "Missing 'userId' query parameter", http.StatusBadRequest)
		return
	}

	receipts, err := s.service.ListReceipts(userID)
	if err != nil {
		slog.Error("Error listing receipts", "user_id", userID, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if receipts == nil {
		receipts = []*store.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleReceiptImage returns the stored PNG for a receipt
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}

	data, err := s.service.ReceiptImage(id)
	if err != nil {
		jsonError(w, "Receipt image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}
