package store

import "time"

// Item is a single line item from a receipt or a grocery list.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
}

// Receipt is one uploaded receipt with its extracted data.
type Receipt struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Items         []Item    `json:"items"`
	PurchaseDate  string    `json:"purchase_date"` // ISO 8601 (YYYY-MM-DD)
	PurchasePlace string    `json:"purchase_place,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChatEntry is one question/answer exchange kept for conversational context.
type ChatEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt saves a receipt to the database
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts belonging to a user
	ListReceipts(userID string) ([]*Receipt, error)

	// DeleteReceipt removes a receipt from the database
	DeleteReceipt(id string) error

	// SaveChat saves a chat exchange to the database
	SaveChat(entry *ChatEntry) error

	// RecentChats returns up to limit chat entries for a user, newest first
	RecentChats(userID string, limit int) ([]*ChatEntry, error)

	// Close closes the database connection
	Close() error
}
