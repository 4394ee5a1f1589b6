package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())

	large, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, large.Dimensions())
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Out of order on purpose; the adapter orders by index.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.0, 1.0]},
				{"object": "embedding", "index": 0, "embedding": [1.0, 0.0]}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1", Dimensions: 2})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])

	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.Equal(t, []any{"first", "second"}, gotBody["input"])
	assert.EqualValues(t, 2, gotBody["dimensions"])
}

func TestEmbeddingService_EmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbeddingService_EmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
}

func TestEmbeddingService_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"unauthorised", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer server.Close()

			svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = svc.Embed(context.Background(), "text")
			require.Error(t, err)

			var pe *domain.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "openai", pe.Provider)
			assert.Equal(t, "embed", pe.Op)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.retryable, pe.Retryable())
		})
	}
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
