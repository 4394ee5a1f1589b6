package driving

import "github.com/custodia-labs/diarymem/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetExtractionProvider configures the extraction provider.
	SetExtractionProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the current settings for structural errors.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// GetSchedulerConfig returns the background scheduler configuration.
	GetSchedulerConfig() domain.SchedulerConfig

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateExtractionConfig validates the current extraction configuration by pinging the provider.
	ValidateExtractionConfig() error
}
