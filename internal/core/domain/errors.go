package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates a required credential or setting is missing.
	// It is raised before any network call is attempted.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic search and indexing are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrExtractionUnavailable indicates the insight extraction service is not configured.
	ErrExtractionUnavailable = errors.New("extraction service unavailable")

	// ErrStorageLocked indicates the database stayed locked after all retries.
	ErrStorageLocked = errors.New("storage locked")

	// ErrAnalysisInProgress indicates a queue run is already active.
	ErrAnalysisInProgress = errors.New("analysis in progress")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ProviderError describes a failure of an external model provider:
// transport errors, non-2xx responses, rate limits and unparseable output.
// It is always recoverable at the granularity of one entry.
type ProviderError struct {
	// Provider names the backend, e.g. "openai" or "ollama".
	Provider string

	// Op is the operation that failed, e.g. "embed" or "extract".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider, op string, statusCode int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, StatusCode: statusCode, Err: err}
}

// Error implements error.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later attempt could succeed.
// Authentication and bad-request failures are not retryable.
func (e *ProviderError) Retryable() bool {
	switch e.StatusCode {
	case 400, 401, 403, 404:
		return false
	default:
		return true
	}
}

// IsProviderError reports whether err wraps a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
