package driven

import (
	"context"
)

// StreamFunc receives incremental text fragments from a streaming
// generation call. Returning an error stops consumption and releases
// the underlying request.
type StreamFunc func(delta string) error

// GenerationService provides large language model text generation
type GenerationService interface {
	// Generate produces a complete response for the prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream produces an incremental response, forwarding each
	// text fragment to onDelta as it arrives. It returns once the
	// stream is exhausted, the context is cancelled, or onDelta fails.
	GenerateStream(ctx context.Context, prompt string, onDelta StreamFunc) error

	// GenerateJSON produces a response constrained to JSON and decodes
	// it into out. schemaHint describes the expected shape to the model.
	GenerateJSON(ctx context.Context, prompt string, schemaHint string, out any) error

	// Model returns the model name being used
	Model() string

	// Ping verifies the generation service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generation service
	Close() error
}
