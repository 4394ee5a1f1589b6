package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// RetryConfig bounds retries of failed provider calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// InitialInterval is the first back-off delay.
	InitialInterval time.Duration
	// MaxInterval caps the back-off delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the retry policy used by the factory.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     20 * time.Second,
	}
}

// caller runs provider calls through the rate limiter with back-off on
// retryable provider errors.
type caller struct {
	limiter *RateLimiter
	retry   RetryConfig
}

func (c caller) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retry.InitialInterval
	exp.MaxInterval = c.retry.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, c.retry.MaxRetries), ctx)

	return backoff.RetryNotify(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pe *domain.ProviderError
		if !errors.As(err, &pe) || !pe.Retryable() {
			return backoff.Permanent(err)
		}
		if pe.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimitError(0)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Debug("ai: %s failed, retrying in %s: %v", op, wait, err)
	})
}

// ==================== Embedding ====================

// Ensure LimitedEmbedder implements the interface.
var _ driven.EmbeddingService = (*LimitedEmbedder)(nil)

// LimitedEmbedder rate limits and retries an embedding service.
type LimitedEmbedder struct {
	driven.EmbeddingService
	caller caller
}

// NewLimitedEmbedder wraps svc with the limiter and retry policy.
func NewLimitedEmbedder(svc driven.EmbeddingService, limiter *RateLimiter, retry RetryConfig) *LimitedEmbedder {
	return &LimitedEmbedder{EmbeddingService: svc, caller: caller{limiter: limiter, retry: retry}}
}

// Embed generates a vector embedding for the given text.
func (e *LimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.caller.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		out, err = e.EmbeddingService.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings for multiple texts.
func (e *LimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.caller.do(ctx, "embed batch", func(ctx context.Context) error {
		var err error
		out, err = e.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// ==================== Extraction ====================

// Ensure LimitedExtractor implements the interface.
var _ driven.InsightExtractor = (*LimitedExtractor)(nil)

// LimitedExtractor rate limits and retries an insight extractor.
type LimitedExtractor struct {
	driven.InsightExtractor
	caller caller
}

// NewLimitedExtractor wraps ext with the limiter and retry policy.
func NewLimitedExtractor(ext driven.InsightExtractor, limiter *RateLimiter, retry RetryConfig) *LimitedExtractor {
	return &LimitedExtractor{InsightExtractor: ext, caller: caller{limiter: limiter, retry: retry}}
}

// Extract returns the model output for one entry.
func (e *LimitedExtractor) Extract(ctx context.Context, content, date string) (string, error) {
	var out string
	err := e.caller.do(ctx, "extract", func(ctx context.Context) error {
		var err error
		out, err = e.InsightExtractor.Extract(ctx, content, date)
		return err
	})
	return out, err
}
