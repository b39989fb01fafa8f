package assistant

import "context"

// Provider defines the interface for LLM text and vision generation
type Provider interface {
	// GenerateText sends a text-only prompt and returns the model's reply
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateVision sends a prompt plus a PNG image and returns the model's reply
	GenerateVision(ctx context.Context, prompt string, pngData []byte) (string, error)

	// Close closes the provider and releases resources
	Close() error
}
