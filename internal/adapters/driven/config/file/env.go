package file

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure EnvOverlay implements the interface.
var _ driven.ConfigStore = (*EnvOverlay)(nil)

// EnvPrefix is the prefix for environment overrides, e.g. DIARYMEM_DATA_DIR.
const EnvPrefix = "diarymem"

// envSettings lists the supported environment overrides. Each variable is
// looked up with the DIARYMEM_ prefix first and then without it, so
// OPENAI_API_KEY works as well as DIARYMEM_OPENAI_API_KEY.
type envSettings struct {
	DataDir string `envconfig:"DATA_DIR"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`

	ExtractionProvider string `envconfig:"EXTRACTION_PROVIDER"`
	ExtractionModel    string `envconfig:"EXTRACTION_MODEL"`
	ExtractionBaseURL  string `envconfig:"EXTRACTION_BASE_URL"`
	ExtractionAPIKey   string `envconfig:"EXTRACTION_API_KEY"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
}

// EnvOverlay is a ConfigStore whose reads prefer environment variables
// over the wrapped store. Writes go to the wrapped store only, so values
// taken from the environment are never persisted by Set.
type EnvOverlay struct {
	base      driven.ConfigStore
	overrides map[string]string
}

// NewEnvOverlay reads the environment once and wraps base.
func NewEnvOverlay(base driven.ConfigStore) (*EnvOverlay, error) {
	var env envSettings
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &EnvOverlay{base: base, overrides: env.overrides(base)}, nil
}

// overrides maps config keys to their environment values. Provider API
// keys apply to whichever section selects that provider.
func (e envSettings) overrides(base driven.ConfigStore) map[string]string {
	out := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	put("data_dir", e.DataDir)
	put("embedding.provider", e.EmbeddingProvider)
	put("embedding.model", e.EmbeddingModel)
	put("embedding.base_url", e.EmbeddingBaseURL)
	put("extraction.provider", e.ExtractionProvider)
	put("extraction.model", e.ExtractionModel)
	put("extraction.base_url", e.ExtractionBaseURL)

	providerKeys := map[string]string{
		"openai":    e.OpenAIAPIKey,
		"anthropic": e.AnthropicAPIKey,
	}
	for _, section := range []string{"embedding", "extraction"} {
		provider := out[section+".provider"]
		if provider == "" {
			provider = base.GetString(section + ".provider")
		}
		put(section+".api_key", providerKeys[provider])
	}
	put("embedding.api_key", e.EmbeddingAPIKey)
	put("extraction.api_key", e.ExtractionAPIKey)

	return out
}

// Overridden reports whether key is currently taken from the environment.
func (o *EnvOverlay) Overridden(key string) bool {
	_, ok := o.overrides[key]
	return ok
}

// Get retrieves a configuration value by key.
func (o *EnvOverlay) Get(key string) (any, bool) {
	if v, ok := o.overrides[key]; ok {
		return v, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *EnvOverlay) GetString(key string) string {
	if v, ok := o.overrides[key]; ok {
		return v
	}
	return o.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *EnvOverlay) GetInt(key string) int {
	if v, ok := o.overrides[key]; ok {
		return toInt(v)
	}
	return o.base.GetInt(key)
}

// GetBool retrieves a boolean configuration value.
func (o *EnvOverlay) GetBool(key string) bool {
	if v, ok := o.overrides[key]; ok {
		return toBool(v)
	}
	return o.base.GetBool(key)
}

// GetStringSlice retrieves a string slice configuration value.
func (o *EnvOverlay) GetStringSlice(key string) []string {
	if v, ok := o.overrides[key]; ok {
		return toStringSlice(v)
	}
	return o.base.GetStringSlice(key)
}

// Set stores a value in the wrapped store.
func (o *EnvOverlay) Set(key string, value any) error {
	return o.base.Set(key, value)
}

// Save persists the wrapped store.
func (o *EnvOverlay) Save() error {
	return o.base.Save()
}

// Load reloads the wrapped store.
func (o *EnvOverlay) Load() error {
	return o.base.Load()
}

// Path returns the wrapped store's file path.
func (o *EnvOverlay) Path() string {
	return o.base.Path()
}
