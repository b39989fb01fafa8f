package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptpal/receiptpal/internal/imaging"
	"github.com/receiptpal/receiptpal/internal/store"
)

// Reply discriminator values for the /chat response
const (
	ReplyText        = "text"
	ReplyPassBuilder = "PASS_BUILDER"
)

// PassData is the structured grocery list handed to the pass builder
type PassData struct {
	UserID string       `json:"user_id,omitempty"`
	Items  []store.Item `json:"items"`
}

// Reply is the answer to one chat question: either plain text or a
// pass-builder payload, distinguished by Type
type Reply struct {
	Type string
	Text string
	Pass *PassData
}

// IDGenerator generates unique IDs for receipts and chat entries
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service answers receipt questions and extracts receipt data from images
type Service struct {
	db          store.DB
	llm         Provider
	files       store.Storage
	search      Searcher
	locate      Locator
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db store.DB, llm Provider, files store.Storage) *Service {
	return &Service{
		db:          db,
		llm:         llm,
		files:       files,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db store.DB, llm Provider, files store.Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		llm:         llm,
		files:       files,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// EnablePriceSearch wires a web searcher and locator for price-comparison
// questions. Without it, price questions get an explanatory text reply.
func (s *Service) EnablePriceSearch(search Searcher, locate Locator) {
	s.search = search
	s.locate = locate
}

// ProcessImage extracts receipt data from a data-URL image, stores the
// normalized image and the receipt, and returns the receipt. The receipt ID
// doubles as the session correlation id echoed on later chat calls.
func (s *Service) ProcessImage(ctx context.Context, imageDataURL, userID string) (*store.Receipt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	mediaType, raw, err := imaging.ParseDataURL(imageDataURL)
	if err != nil {
		return nil, fmt.Errorf("parsing image data: %w", err)
	}

	pngData, err := imaging.ToPNG(raw, mediaType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.files.Save(id+".png", pngData)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	text, err := s.llm.GenerateVision(ctx, receiptScanPrompt(now.Format("2006-01-02")), pngData)
	if err != nil {
		slog.Error("Failed to extract receipt data",
			"user_id", userID,
			"image_size", len(pngData),
			"error", err,
		)
		s.files.Delete(savedPath)
		return nil, fmt.Errorf("extracting receipt data: %w", err)
	}

	data, err := parseReceiptData(text, now)
	if err != nil {
		s.files.Delete(savedPath)
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	receipt := &store.Receipt{
		ID:            id,
		UserID:        userID,
		Items:         data.Items,
		PurchaseDate:  data.PurchaseDate,
		PurchasePlace: data.PurchasePlace,
		Filename:      savedPath,
		UploadedAt:    now,
		UpdatedAt:     now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.files.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt: %w", err)
	}

	return receipt, nil
}

// Answer routes a chat question to the matching handler based on its intent
func (s *Service) Answer(ctx context.Context, question, userID, sessionID string) (*Reply, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	intent, err := s.detectIntent(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("detecting intent: %w", err)
	}
	slog.Info("Detected intent", "intent", intent, "user_id", userID)

	switch intent {
	case "PRICE_COMPARISON":
		return s.comparePrices(ctx, question)
	case "CREATE_PASS":
		return s.buildGroceryPass(ctx, question, userID)
	default:
		return s.answerReceiptQuestion(ctx, question, userID, sessionID)
	}
}

// ListReceipts returns all receipts belonging to a user
func (s *Service) ListReceipts(userID string) ([]*store.Receipt, error) {
	receipts, err := s.db.ListReceipts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// ReceiptImage returns the stored PNG for a receipt
func (s *Service) ReceiptImage(id string) ([]byte, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	data, err := s.files.Get(receipt.Filename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt image: %w", err)
	}
	return data, nil
}

// detectIntent classifies the question via the LLM
func (s *Service) detectIntent(ctx context.Context, question string) (string, error) {
	text, err := s.llm.GenerateText(ctx, intentPrompt(question))
	if err != nil {
		return "", err
	}

	detected := strings.ToUpper(strings.TrimSpace(text))
	if strings.Contains(detected, "PRICE_COMPARISON") {
		return "PRICE_COMPARISON", nil
	}
	if strings.Contains(detected, "CREATE_PASS") {
		return "CREATE_PASS", nil
	}
	return "GENERAL_QUESTION", nil
}

// buildGroceryPass asks the LLM to structure the request into a grocery list
func (s *Service) buildGroceryPass(ctx context.Context, question, userID string) (*Reply, error) {
	text, err := s.llm.GenerateText(ctx, groceryPassPrompt(question))
	if err != nil {
		return nil, fmt.Errorf("building grocery pass: %w", err)
	}

	pass, err := parsePassData(text)
	if err != nil {
		return nil, fmt.Errorf("building grocery pass: %w", err)
	}
	pass.UserID = userID

	return &Reply{Type: ReplyPassBuilder, Pass: pass}, nil
}

// comparePrices answers a price question from live web search results
func (s *Service) comparePrices(ctx context.Context, question string) (*Reply, error) {
	if s.search == nil {
		return &Reply{
			Type: ReplyText,
			Text: "I couldn't search for prices right now. Reason: price search unavailable - missing API credentials",
		}, nil
	}

	product, err := s.llm.GenerateText(ctx, productExtractPrompt(question))
	if err != nil {
		return nil, fmt.Errorf("extracting product name: %w", err)
	}
	product = strings.ReplaceAll(strings.TrimSpace(product), `"`, "")
	if product == "" {
		return &Reply{
			Type: ReplyText,
			Text: "I'm sorry, I couldn't understand which product you're asking about. Please be more specific.",
		}, nil
	}

	location := Location{City: "Unknown", Region: "Unknown", Country: "United States"}
	if s.locate != nil {
		if loc, err := s.locate.Locate(ctx); err == nil {
			location = loc
		} else {
			slog.Debug("Location detection failed", "error", err)
		}
	}

	query := fmt.Sprintf("%s best prices in %s %s, more emphasis on online availability and country", product, location.City, location.Country)
	slog.Info("Searching online", "product", product)

	results, err := s.search.Search(ctx, query)
	if err != nil {
		return &Reply{
			Type: ReplyText,
			Text: fmt.Sprintf("I couldn't search for prices right now. Reason: %v", err),
		}, nil
	}
	if len(results) == 0 {
		return &Reply{
			Type: ReplyText,
			Text: fmt.Sprintf("I couldn't find any specific online listings for '%s'. You could try a broader search term.", product),
		}, nil
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshaling search results: %w", err)
	}

	answer, err := s.llm.GenerateText(ctx, priceSynthesisPrompt(question, string(resultsJSON)))
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	return &Reply{Type: ReplyText, Text: answer}, nil
}

// answerReceiptQuestion answers from the user's stored receipts and recent
// chat history, then records the exchange
func (s *Service) answerReceiptQuestion(ctx context.Context, question, userID, sessionID string) (*Reply, error) {
	receipts, err := s.db.ListReceipts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	if len(receipts) == 0 {
		return &Reply{
			Type: ReplyText,
			Text: "No receipt data found. Please upload a receipt image first.",
		}, nil
	}

	chats, err := s.db.RecentChats(userID, 10)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}

	contextJSON, err := json.Marshal(map[string]interface{}{
		"receipts":     receipts,
		"chat_history": chats,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling context: %w", err)
	}

	answer, err := s.llm.GenerateText(ctx, receiptAnswerPrompt(string(contextJSON), question))
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	entry := &store.ChatEntry{
		ID:        s.idGenerator.Generate(),
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		SessionID: sessionID,
		Timestamp: s.timeSource.Now(),
	}
	if err := s.db.SaveChat(entry); err != nil {
		// The answer is already generated; losing history is not fatal
		slog.Warn("Failed to save chat history", "user_id", userID, "error", err)
	}

	return &Reply{Type: ReplyText, Text: answer}, nil
}
