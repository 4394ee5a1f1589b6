package ai

import (
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateExtraction validates an extraction configuration by pinging the provider.
func (v *ConfigValidator) ValidateExtraction(config *domain.ExtractionSettings) error {
	return ValidateExtractionConfig(config)
}
