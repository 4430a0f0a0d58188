package llm

import (
	"context"
)

// Provider is an opaque text-completion capability. Any compliant
// endpoint satisfies it; callers treat responses as plain text and never
// trust the model for exact offsets or counts without verification.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete generates a text completion for the given request
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Transcriber converts an audio file into transcript text.
// Implemented by providers that expose a speech-to-text endpoint.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// Embedder produces embedding vectors for semantic search.
// Implemented by providers that expose an embeddings endpoint.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CompleteRequest contains the input for a completion call.
type CompleteRequest struct {
	// System sets the model's role; optional.
	System string

	// Prompt is the user-role instruction and context text.
	Prompt string

	// Model overrides the configured model for this call (provider-specific).
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature overrides the configured sampling temperature when > 0.
	Temperature float32
}

// CompleteResponse contains the model's output.
type CompleteResponse struct {
	// Text is the completion, whitespace-trimmed.
	Text string

	// Model is the model that generated the response.
	Model string

	// TokensUsed tracks token consumption.
	TokensUsed int
}

// Config holds LLM provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; low values keep edits focused
	Temperature float32

	// EmbeddingModel used by Embed (OpenAI only)
	EmbeddingModel string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Model:       "",
		Timeout:     30,
		MaxTokens:   1024,
		Temperature: 0.4,
	}
}
