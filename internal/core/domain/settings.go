package domain

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderOllama    AIProvider = "ollama"
)

// RequiresAPIKey returns true for hosted providers that need a key
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings configures the generation (LLM) service
type GenerationSettings struct {
	Provider  AIProvider `json:"provider"`
	Model     string     `json:"model"`
	APIKey    string     `json:"-"` // Never serialize to JSON
	BaseURL   string     `json:"base_url,omitempty"`
	MaxTokens int        `json:"max_tokens,omitempty"`
}

// IsConfigured returns true if generation settings are properly configured
func (g *GenerationSettings) IsConfigured() bool {
	if g.Provider == "" {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}
