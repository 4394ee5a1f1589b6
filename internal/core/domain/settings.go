package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or extraction.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `validate:"omitempty,oneof=ollama openai"`

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ExtractionSettings holds insight extraction provider configuration.
type ExtractionSettings struct {
	// Provider is the extraction (chat model) provider.
	Provider AIProvider `validate:"omitempty,oneof=ollama openai anthropic"`

	// Model is the chat model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls sampling randomness.
	Temperature float64 `validate:"gte=0,lte=2"`
}

// IsConfigured returns true if the extraction provider is set up.
func (e ExtractionSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds chunking and semantic search configuration.
type IndexSettings struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `validate:"gt=0"`

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int `validate:"gte=0,ltfield=ChunkSize"`

	// MinSimilarity is the cosine threshold for semantic search hits.
	MinSimilarity float64 `validate:"gte=0,lte=1"`

	// StaleAfter is the debounce before an edited entry is re-embedded.
	StaleAfter time.Duration `validate:"gte=0"`
}

// RateLimitSettings bounds outbound provider calls.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained provider request rate.
	RequestsPerSecond float64 `validate:"gt=0"`

	// Burst is the token bucket size.
	Burst int `validate:"gt=0"`
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the database file.
	DataDir string

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Extraction holds insight extraction provider settings.
	Extraction ExtractionSettings

	// Index holds chunking and semantic search settings.
	Index IndexSettings

	// RateLimit holds provider rate limit settings.
	RateLimit RateLimitSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured until the user sets them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding:  EmbeddingSettings{},
		Extraction: ExtractionSettings{Temperature: 0.3},
		Index: IndexSettings{
			ChunkSize:     1600,
			ChunkOverlap:  320,
			MinSimilarity: 0.35,
			StaleAfter:    5 * time.Minute,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 5,
			Burst:             5,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllExtractionProviders returns providers that support insight extraction.
func AllExtractionProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultExtractionModels returns default models for each extraction provider.
func DefaultExtractionModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
