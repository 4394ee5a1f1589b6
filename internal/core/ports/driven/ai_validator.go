package driven

import "github.com/custodia-labs/diarymem/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateExtraction validates an extraction configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateExtraction(config *domain.ExtractionSettings) error
}
