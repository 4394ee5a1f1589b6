package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunks stores chunks in a single transaction.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.store.do(ctx, "saving chunks", func(ctx context.Context) error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO embedding_chunks (id, entry_id, entry_date, chunk_index, content, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				entry_id = excluded.entry_id,
				entry_date = excluded.entry_date,
				chunk_index = excluded.chunk_index,
				content = excluded.content,
				embedding = excluded.embedding
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			createdAt := chunk.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.EntryID, chunk.EntryDate, chunk.ChunkIndex,
				chunk.Content, float32SliceToBytes(chunk.Embedding), formatTime(createdAt)); err != nil {
				return fmt.Errorf("saving chunk: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// ListChunks returns every chunk, optionally restricted to a date range.
func (s *chunkStore) ListChunks(ctx context.Context, dateRange *domain.DateRange) ([]domain.EmbeddingChunk, error) {
	query := `SELECT id, entry_id, entry_date, chunk_index, content, embedding, created_at FROM embedding_chunks`
	var args []any
	if dateRange != nil {
		query += " WHERE entry_date BETWEEN ? AND ?"
		args = append(args, dateRange.Start, dateRange.End)
	}
	query += " ORDER BY id"

	var chunks []domain.EmbeddingChunk
	err := s.store.do(ctx, "listing chunks", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying chunks: %w", err)
		}
		defer rows.Close()

		chunks = make([]domain.EmbeddingChunk, 0)
		for rows.Next() {
			var chunk domain.EmbeddingChunk
			var blob []byte
			var createdAt string
			if err := rows.Scan(&chunk.ID, &chunk.EntryID, &chunk.EntryDate, &chunk.ChunkIndex,
				&chunk.Content, &blob, &createdAt); err != nil {
				return fmt.Errorf("scanning chunk: %w", err)
			}
			chunk.Embedding = bytesToFloat32Slice(blob)
			chunk.CreatedAt = parseTime(createdAt)
			chunks = append(chunks, chunk)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteChunks removes all chunks of an entry.
func (s *chunkStore) DeleteChunks(ctx context.Context, entryID string) error {
	return s.store.do(ctx, "deleting chunks", func(ctx context.Context) error {
		if _, err := s.store.db.ExecContext(ctx, "DELETE FROM embedding_chunks WHERE entry_id = ?", entryID); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		return nil
	})
}

// DeleteAllChunks removes every chunk.
func (s *chunkStore) DeleteAllChunks(ctx context.Context) error {
	return s.store.do(ctx, "clearing chunks", func(ctx context.Context) error {
		if _, err := s.store.db.ExecContext(ctx, "DELETE FROM embedding_chunks"); err != nil {
			return fmt.Errorf("clearing chunks: %w", err)
		}
		return nil
	})
}

// HasAny reports whether at least one chunk exists.
func (s *chunkStore) HasAny(ctx context.Context) (bool, error) {
	var exists int
	err := s.store.do(ctx, "checking chunks", func(ctx context.Context) error {
		return s.store.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM embedding_chunks)").Scan(&exists)
	})
	return exists == 1, err
}

// HasChunks reports whether the entry has at least one chunk.
func (s *chunkStore) HasChunks(ctx context.Context, entryID string) (bool, error) {
	var exists int
	err := s.store.do(ctx, "checking entry chunks", func(ctx context.Context) error {
		return s.store.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM embedding_chunks WHERE entry_id = ?)", entryID).Scan(&exists)
	})
	return exists == 1, err
}

// Stats summarises the chunk table.
func (s *chunkStore) Stats(ctx context.Context) (*domain.EmbeddingStats, error) {
	stats := &domain.EmbeddingStats{EmbeddedEntryIDs: []string{}}

	err := s.store.do(ctx, "reading chunk stats", func(ctx context.Context) error {
		if err := s.store.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM embedding_chunks").Scan(&stats.TotalChunks); err != nil {
			return fmt.Errorf("counting chunks: %w", err)
		}
		if err := s.store.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM entries").Scan(&stats.TotalEntries); err != nil {
			return fmt.Errorf("counting entries: %w", err)
		}

		rows, err := s.store.db.QueryContext(ctx,
			"SELECT DISTINCT entry_id FROM embedding_chunks ORDER BY entry_id")
		if err != nil {
			return fmt.Errorf("querying embedded entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning entry id: %w", err)
			}
			stats.EmbeddedEntryIDs = append(stats.EmbeddedEntryIDs, id)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating embedded entries: %w", err)
		}
		stats.EntriesWithEmbeddings = len(stats.EmbeddedEntryIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ==================== Lexical Index ====================

// lexicalIndex implements driven.LexicalIndex over the entries_fts table.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// SearchLexical returns entries matching query ranked by bm25, best first.
func (s *lexicalIndex) SearchLexical(
	ctx context.Context,
	query string,
	limit int,
	dateRange *domain.DateRange,
) ([]domain.LexicalHit, error) {
	match := buildMatchQuery(query)
	if match == "" || limit <= 0 {
		return []domain.LexicalHit{}, nil
	}

	sqlQuery := `
		SELECT e.id, e.date, e.content, bm25(entries_fts) AS rank
		FROM entries_fts
		JOIN entries e ON e.rowid = entries_fts.rowid
		WHERE entries_fts MATCH ?`
	args := []any{match}
	if dateRange != nil {
		sqlQuery += " AND e.date BETWEEN ? AND ?"
		args = append(args, dateRange.Start, dateRange.End)
	}
	sqlQuery += " ORDER BY rank, e.id LIMIT ?"
	args = append(args, limit)

	var hits []domain.LexicalHit
	err := s.store.do(ctx, "searching entries", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			return fmt.Errorf("querying full-text index: %w", err)
		}
		defer rows.Close()

		hits = make([]domain.LexicalHit, 0)
		for rows.Next() {
			var hit domain.LexicalHit
			if err := rows.Scan(&hit.EntryID, &hit.Date, &hit.Content, &hit.Rank); err != nil {
				return fmt.Errorf("scanning search hit: %w", err)
			}
			hits = append(hits, hit)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating search hits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// buildMatchQuery turns free text into an FTS5 expression: quotes are
// removed and each remaining term becomes a quoted phrase, OR-joined.
func buildMatchQuery(query string) string {
	cleaned := strings.NewReplacer(`"`, " ", "'", " ").Replace(query)

	terms := strings.FieldsFunc(cleaned, func(r rune) bool {
		return unicode.IsSpace(r)
	})

	phrases := make([]string, 0, len(terms))
	for _, term := range terms {
		if !strings.ContainsFunc(term, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) {
			continue
		}
		phrases = append(phrases, `"`+term+`"`)
	}

	return strings.Join(phrases, " OR ")
}
