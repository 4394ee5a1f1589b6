package driven

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// ChunkStore persists embedding chunks.
// Vectors are stored alongside chunk text; similarity search is a scan
// over ListChunks performed by the core.
type ChunkStore interface {
	// SaveChunks stores all chunks of one entry in a single transaction.
	SaveChunks(ctx context.Context, chunks []domain.EmbeddingChunk) error

	// ListChunks returns every chunk, optionally restricted to a date range.
	ListChunks(ctx context.Context, dateRange *domain.DateRange) ([]domain.EmbeddingChunk, error)

	// DeleteChunks removes all chunks of an entry.
	DeleteChunks(ctx context.Context, entryID string) error

	// DeleteAllChunks removes every chunk.
	DeleteAllChunks(ctx context.Context) error

	// HasAny reports whether at least one chunk exists.
	HasAny(ctx context.Context) (bool, error)

	// HasChunks reports whether the entry has at least one chunk.
	HasChunks(ctx context.Context, entryID string) (bool, error)

	// Stats summarises the chunk table.
	Stats(ctx context.Context) (*domain.EmbeddingStats, error)
}
