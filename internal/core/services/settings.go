package services

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir            = "data_dir"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyExtractProvider    = "extraction.provider"
	keyExtractModel       = "extraction.model"
	keyExtractBaseURL     = "extraction.base_url"
	keyExtractAPIKey      = "extraction.api_key"
	keyExtractTemperature = "extraction.temperature"
	keyChunkSize          = "index.chunk_size"
	keyChunkOverlap       = "index.chunk_overlap"
	keyMinSimilarity      = "index.min_similarity"
	keyStaleAfter         = "index.stale_after"
	keyRateLimitRPS       = "rate_limit.requests_per_second"
	keyRateLimitBurst     = "rate_limit.burst"
)

// defaultOllamaURL is used when a local provider is selected without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DataDir: s.configStore.GetString(keyDataDir),
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Extraction: domain.ExtractionSettings{
			Provider:    s.getProvider(keyExtractProvider, defaults.Extraction.Provider),
			Model:       s.getString(keyExtractModel, defaults.Extraction.Model),
			BaseURL:     s.configStore.GetString(keyExtractBaseURL),
			APIKey:      s.configStore.GetString(keyExtractAPIKey),
			Temperature: s.getFloat(keyExtractTemperature, defaults.Extraction.Temperature),
		},
		Index: domain.IndexSettings{
			ChunkSize:     s.getInt(keyChunkSize, defaults.Index.ChunkSize),
			ChunkOverlap:  s.getInt(keyChunkOverlap, defaults.Index.ChunkOverlap),
			MinSimilarity: s.getFloat(keyMinSimilarity, defaults.Index.MinSimilarity),
			StaleAfter:    s.getDuration(keyStaleAfter, defaults.Index.StaleAfter),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateLimitRPS, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateLimitBurst, defaults.RateLimit.Burst),
		},
	}

	// Fill in provider defaults for models left blank.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Extraction.Model == "" {
		settings.Extraction.Model = domain.DefaultExtractionModels()[settings.Extraction.Provider]
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("save settings: %w", domain.ErrInvalidInput)
	}
	if err := s.validateStruct(settings); err != nil {
		return err
	}

	type setting struct {
		key   string
		value any
	}
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyExtractProvider, settings.Extraction.Provider.String()},
		{keyExtractModel, settings.Extraction.Model},
		{keyExtractBaseURL, settings.Extraction.BaseURL},
		{keyExtractTemperature, settings.Extraction.Temperature},
		{keyChunkSize, settings.Index.ChunkSize},
		{keyChunkOverlap, settings.Index.ChunkOverlap},
		{keyMinSimilarity, settings.Index.MinSimilarity},
		{keyStaleAfter, settings.Index.StaleAfter.String()},
		{keyRateLimitRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateLimitBurst, settings.RateLimit.Burst},
	}
	if settings.DataDir != "" {
		values = append(values, setting{keyDataDir, settings.DataDir})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.Extraction.APIKey != "" {
		if err := s.configStore.Set(keyExtractAPIKey, settings.Extraction.APIKey); err != nil {
			return fmt.Errorf("save extraction api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetExtractionProvider configures the insight extraction provider.
func (s *SettingsService) SetExtractionProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid extraction provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Extraction.Provider = provider
	settings.Extraction.Model = model
	if model == "" {
		settings.Extraction.Model = domain.DefaultExtractionModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Extraction.BaseURL == "" {
			settings.Extraction.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Extraction.BaseURL = ""
	}
	settings.Extraction.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings for out-of-range values.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validateStruct(settings)
}

func (s *SettingsService) validateStruct(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", domain.ErrInvalidInput, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateExtractionConfig validates the current extraction configuration by pinging the provider.
func (s *SettingsService) ValidateExtractionConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateExtraction(&settings.Extraction)
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	if _, exists := s.configStore.Get("scheduler.enabled"); exists {
		defaults.Enabled = s.configStore.GetBool("scheduler.enabled")
	}
	if limit := s.configStore.GetInt("scheduler.history_limit"); limit > 0 {
		defaults.HistoryLimit = limit
	}

	// Map from task ID to config key (underscore version for TOML)
	taskKeys := map[string]string{
		domain.TaskIDEmbedStale:   "embed_stale",
		domain.TaskIDProcessQueue: "process_queue",
	}

	for taskID, configKey := range taskKeys {
		prefix := "scheduler." + configKey + "."

		taskCfg := defaults.TaskConfigs[taskID]

		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}

		// Cron spec, e.g. "@every 10m" or "0 * * * *"
		if schedule := s.configStore.GetString(prefix + "schedule"); schedule != "" {
			taskCfg.Schedule = schedule
		}

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
