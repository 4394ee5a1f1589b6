package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// IndexService chunks and embeds entries and searches their vectors.
type IndexService interface {
	// EmbedEntry replaces the chunks of one entry. Returns the chunk count.
	EmbedEntry(ctx context.Context, entryID, date, content string) (int, error)

	// SearchByVector ranks stored chunks by cosine similarity to the query vector.
	SearchByVector(ctx context.Context, query []float32, opts domain.VectorSearchOptions) ([]domain.ScoredChunk, error)

	// DeleteEntryEmbeddings removes the chunks of one entry.
	DeleteEntryEmbeddings(ctx context.Context, entryID string) error

	// ClearAll removes every chunk.
	ClearAll(ctx context.Context) error

	// Stats summarises the embedding index.
	Stats(ctx context.Context) (*domain.EmbeddingStats, error)

	// IsEntryEmbedded reports whether an entry has chunks.
	IsEntryEmbedded(ctx context.Context, entryID string) (bool, error)

	// EmbedAll embeds every unembedded entry, isolating per-entry failures.
	EmbedAll(ctx context.Context, onProgress func(domain.EmbedProgress)) (*domain.EmbedReport, error)

	// EmbedStale embeds unembedded entries not updated within minAge.
	// Returns an empty report if another run is active.
	EmbedStale(ctx context.Context, minAge time.Duration) (*domain.EmbedReport, error)
}
