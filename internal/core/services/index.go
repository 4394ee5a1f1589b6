package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// MinEmbeddableLength is the trimmed length an entry must exceed to be
// picked up by EmbedAll and EmbedStale.
const MinEmbeddableLength = 50

// DefaultStaleAge is how long an entry must stay unchanged before the
// background task embeds it.
const DefaultStaleAge = 5 * time.Minute

// IndexService chunks entries, embeds the chunks and answers nearest
// neighbour queries over the stored vectors.
type IndexService struct {
	entries  driven.EntryStore
	chunks   driven.ChunkStore
	embedder driven.EmbeddingService
	chunker  driven.Chunker

	// staleRunning guards EmbedStale against overlapping runs.
	staleRunning atomic.Bool
}

// NewIndexService creates a new index service.
// The embedder may be nil; embedding operations then fail with ErrConfiguration.
func NewIndexService(
	entries driven.EntryStore,
	chunks driven.ChunkStore,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
) *IndexService {
	return &IndexService{
		entries:  entries,
		chunks:   chunks,
		embedder: embedder,
		chunker:  chunker,
	}
}

// EmbedEntry replaces the stored chunks of an entry with freshly embedded ones.
// Returns the number of chunks written.
func (s *IndexService) EmbedEntry(ctx context.Context, entryID, date, content string) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embedding entry %s: %w: no embedding provider configured",
			entryID, domain.ErrConfiguration)
	}

	if err := s.chunks.DeleteChunks(ctx, entryID); err != nil {
		return 0, fmt.Errorf("clearing chunks: %w", err)
	}

	texts := s.chunker.Chunk(content)
	if len(texts) == 0 {
		logger.Debug("Entry %s produced no chunks", entryID)
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, asProviderError(s.embedder.ModelName(), "embed", err)
	}
	if len(vectors) != len(texts) {
		return 0, domain.NewProviderError(s.embedder.ModelName(), "embed", 0,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}

	now := time.Now()
	chunks := make([]domain.EmbeddingChunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.EmbeddingChunk{
			ID:         chunkID(entryID, i),
			EntryID:    entryID,
			EntryDate:  date,
			Content:    text,
			Embedding:  vectors[i],
			ChunkIndex: i,
			CreatedAt:  now,
		}
	}

	if err := s.chunks.SaveChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("saving chunks: %w", err)
	}

	logger.Debug("Embedded entry %s: %d chunks", entryID, len(chunks))
	return len(chunks), nil
}

// SearchByVector scans stored chunks and returns the most similar ones.
func (s *IndexService) SearchByVector(
	ctx context.Context,
	query []float32,
	opts domain.VectorSearchOptions,
) ([]domain.ScoredChunk, error) {
	if opts.Limit <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	chunks, err := s.chunks.ListChunks(ctx, opts.DateRange)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		score := CosineSimilarity(query, chunk.Embedding)
		if score < opts.MinSimilarity {
			continue
		}
		scored = append(scored, domain.ScoredChunk{EmbeddingChunk: chunk, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored, nil
}

// DeleteEntryEmbeddings removes all chunks of an entry.
func (s *IndexService) DeleteEntryEmbeddings(ctx context.Context, entryID string) error {
	return s.chunks.DeleteChunks(ctx, entryID)
}

// ClearAll removes every stored chunk.
func (s *IndexService) ClearAll(ctx context.Context) error {
	return s.chunks.DeleteAllChunks(ctx)
}

// Stats returns embedding coverage figures.
func (s *IndexService) Stats(ctx context.Context) (*domain.EmbeddingStats, error) {
	return s.chunks.Stats(ctx)
}

// IsEntryEmbedded reports whether the entry has stored chunks.
func (s *IndexService) IsEntryEmbedded(ctx context.Context, entryID string) (bool, error) {
	return s.chunks.HasChunks(ctx, entryID)
}

// EmbedAll embeds every entry that has no chunks yet.
// Failures are collected per entry and do not stop the run.
func (s *IndexService) EmbedAll(
	ctx context.Context,
	onProgress func(domain.EmbedProgress),
) (*domain.EmbedReport, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedding entries: %w: no embedding provider configured", domain.ErrConfiguration)
	}

	entries, err := s.entries.ListUnembedded(ctx, MinEmbeddableLength, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing unembedded entries: %w", err)
	}

	logger.Section("Embed All")
	return s.embedEntries(ctx, entries, onProgress), nil
}

// EmbedStale embeds unembedded entries not modified within minAge.
// Returns an empty report when another run is already active.
func (s *IndexService) EmbedStale(ctx context.Context, minAge time.Duration) (*domain.EmbedReport, error) {
	if !s.staleRunning.CompareAndSwap(false, true) {
		logger.Debug("Stale embedding already running, skipping")
		return &domain.EmbedReport{Errors: []string{}}, nil
	}
	defer s.staleRunning.Store(false)

	if s.embedder == nil {
		return nil, fmt.Errorf("embedding stale entries: %w: no embedding provider configured", domain.ErrConfiguration)
	}
	if minAge < 0 {
		minAge = 0
	}

	entries, err := s.entries.ListUnembedded(ctx, MinEmbeddableLength, time.Now().Add(-minAge))
	if err != nil {
		return nil, fmt.Errorf("listing stale entries: %w", err)
	}

	if len(entries) > 0 {
		logger.Info("Embedding %d stale entries", len(entries))
	}
	return s.embedEntries(ctx, entries, nil), nil
}

// embedEntries embeds each entry, isolating failures into the report.
func (s *IndexService) embedEntries(
	ctx context.Context,
	entries []domain.JournalEntry,
	onProgress func(domain.EmbedProgress),
) *domain.EmbedReport {
	report := &domain.EmbedReport{Errors: []string{}}

	for i, entry := range entries {
		if ctx.Err() != nil {
			logger.Warn("Embedding interrupted after %d of %d entries", i, len(entries))
			break
		}

		count, err := s.EmbedEntry(ctx, entry.ID, entry.Date, entry.Content)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("Entry %s: %v", entry.ID, err))
			logger.Warn("Failed to embed entry %s: %v", entry.ID, err)
		} else {
			report.Success++
		}

		if onProgress != nil {
			onProgress(domain.EmbedProgress{
				Current:    i + 1,
				Total:      len(entries),
				EntryID:    entry.ID,
				ChunkCount: count,
			})
		}
	}

	return report
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// chunkID builds the stable identifier of the i-th chunk of an entry.
func chunkID(entryID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", entryID, index)
}

// asProviderError wraps err in a ProviderError unless it already is one.
func asProviderError(provider, op string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewProviderError(provider, op, 0, err)
}
