package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrExtractionUnavailable", ErrExtractionUnavailable},
		{"ErrStorageLocked", ErrStorageLocked},
		{"ErrAnalysisInProgress", ErrAnalysisInProgress},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

// TestErrors_Wrapped tests sentinels survive fmt.Errorf wrapping
func TestErrors_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("get entry e1: %w", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Contains(t, wrapped.Error(), "not found")

	locked := fmt.Errorf("insert chunk: %w", ErrStorageLocked)
	assert.True(t, errors.Is(locked, ErrStorageLocked))
	assert.False(t, errors.Is(locked, ErrNotFound))
}

func TestProviderError_Error(t *testing.T) {
	withStatus := NewProviderError("openai", "embed", 500, errors.New("boom"))
	assert.Equal(t, "openai embed failed (status 500): boom", withStatus.Error())

	noStatus := NewProviderError("ollama", "extract", 0, errors.New("connection refused"))
	assert.Equal(t, "ollama extract failed: connection refused", noStatus.Error())
}

func TestProviderError_Unwrap(t *testing.T) {
	err := NewProviderError("openai", "embed", 429, ErrRateLimited)

	assert.True(t, errors.Is(err, ErrRateLimited))

	wrapped := fmt.Errorf("embed entry e1: %w", err)
	assert.True(t, IsProviderError(wrapped))

	var pe *ProviderError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, 429, pe.StatusCode)
}

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{0, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewProviderError("openai", "extract", tt.status, errors.New("x"))
			assert.Equal(t, tt.retryable, err.Retryable())
		})
	}
}

func TestIsProviderError_Plain(t *testing.T) {
	assert.False(t, IsProviderError(errors.New("plain")))
	assert.False(t, IsProviderError(nil))
}
