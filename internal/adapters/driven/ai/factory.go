// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/diarymem/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/diarymem/internal/adapters/driven/embedding/openai"
	anthropicext "github.com/custodia-labs/diarymem/internal/adapters/driven/extraction/anthropic"
	ollamaext "github.com/custodia-labs/diarymem/internal/adapters/driven/extraction/ollama"
	openaiext "github.com/custodia-labs/diarymem/internal/adapters/driven/extraction/openai"
	"github.com/custodia-labs/diarymem/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// promptSetter is implemented by extractors that accept a customised prompt.
type promptSetter interface {
	SetPromptStore(store driven.PromptStore)
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Extractor        driven.InsightExtractor
	Truncator        driven.Truncator
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if a configured provider could not be used.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.Extractor != nil {
		r.Extractor.Close()
	}
}

// Init creates, validates and rate limits the configured providers.
// A provider that cannot be created or reached is left nil and reported
// in Warnings, so search degrades to lexical and the queue waits.
// Both providers share one limiter.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) *InitResult {
	result := &InitResult{Truncator: tokenizer.NewTruncator()}
	if settings == nil {
		return result
	}

	limiter := NewRateLimiter(RateLimitConfigFromSettings(settings.RateLimit))
	retry := DefaultRetryConfig()

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	} else if embedder != nil {
		result.EmbeddingService = NewLimitedEmbedder(embedder, limiter, retry)
	}

	extractor, err := CreateAndValidateExtractor(&settings.Extraction, prompts)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	} else if extractor != nil {
		result.Extractor = NewLimitedExtractor(extractor, limiter, retry)
	}

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'diarymem config set-provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateExtractor creates an extractor and validates connectivity.
// Returns the extractor if successful, or an error with guidance.
func CreateAndValidateExtractor(
	settings *domain.ExtractionSettings, prompts driven.PromptStore,
) (driven.InsightExtractor, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	ext, err := CreateExtractor(settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'diarymem config set-provider' to fix",
			domain.ErrExtractionUnavailable, err)
	}

	if ext == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := ext.Ping(ctx); err != nil {
		ext.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrExtractionUnavailable, err)
	}

	return ext, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateExtractionConfig validates an extraction configuration by creating an extractor and pinging it.
func ValidateExtractionConfig(settings *domain.ExtractionSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	ext, err := CreateExtractor(settings, nil)
	if err != nil {
		return err
	}
	if ext == nil {
		return nil
	}
	defer ext.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return ext.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateExtractor creates the appropriate extractor based on settings.
// Returns nil if the provider is not configured. prompts may be nil.
func CreateExtractor(settings *domain.ExtractionSettings, prompts driven.PromptStore) (driven.InsightExtractor, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		ext driven.InsightExtractor
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		ext = createOllamaExtractor(settings)

	case domain.AIProviderOpenAI:
		ext, err = createOpenAIExtractor(settings)

	case domain.AIProviderAnthropic:
		ext, err = createAnthropicExtractor(settings)

	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if setter, ok := ext.(promptSetter); ok && prompts != nil {
		setter.SetPromptStore(prompts)
	}
	return ext, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaExtractor creates an Ollama extractor.
func createOllamaExtractor(settings *domain.ExtractionSettings) driven.InsightExtractor {
	return ollamaext.NewExtractor(ollamaext.Config{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Temperature: settings.Temperature,
	})
}

// createOpenAIExtractor creates an OpenAI extractor.
func createOpenAIExtractor(settings *domain.ExtractionSettings) (driven.InsightExtractor, error) {
	return openaiext.NewExtractor(openaiext.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Temperature: settings.Temperature,
	})
}

// createAnthropicExtractor creates an Anthropic extractor.
func createAnthropicExtractor(settings *domain.ExtractionSettings) (driven.InsightExtractor, error) {
	return anthropicext.NewExtractor(anthropicext.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Temperature: settings.Temperature,
	})
}
