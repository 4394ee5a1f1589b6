package driven

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// LexicalIndex provides full-text search over entry content.
// Backed by SQLite FTS5 ranked with bm25 (lower rank is better).
type LexicalIndex interface {
	// SearchLexical returns up to limit entries matching query, best first.
	// A blank query, or one with no usable terms, returns no hits.
	SearchLexical(ctx context.Context, query string, limit int, dateRange *domain.DateRange) ([]domain.LexicalHit, error)
}
