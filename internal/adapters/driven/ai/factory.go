package ai

import (
	"fmt"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
)

// ollamaDefaultBaseURL is Ollama's OpenAI-compatible endpoint
const ollamaDefaultBaseURL = "http://localhost:11434/v1"

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings.
// Returns nil, nil when the settings are not configured.
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOllama:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = ollamaDefaultBaseURL
		}
		// Ollama serves the OpenAI embeddings API; the key is unused
		// but the adapter requires one.
		return NewOpenAIEmbedding("ollama", settings.Model, baseURL)
	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not provide an embeddings API", domain.ErrInvalidProvider)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateGenerationService creates a generation service from settings.
// Returns nil, nil when the settings are not configured.
func (f *Factory) CreateGenerationService(settings *domain.GenerationSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIGeneration(settings.APIKey, settings.Model, settings.BaseURL, settings.MaxTokens)
	case domain.AIProviderAnthropic:
		return NewAnthropicGeneration(settings.APIKey, settings.Model, settings.BaseURL, settings.MaxTokens)
	case domain.AIProviderOllama:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = ollamaDefaultBaseURL
		}
		return NewOpenAIGeneration("ollama", settings.Model, baseURL, settings.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
