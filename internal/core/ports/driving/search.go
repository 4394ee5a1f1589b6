package driving

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// SearchService provides hybrid search to external actors.
type SearchService interface {
	// HybridSearch ranks entries by fusing lexical and semantic results.
	// An empty corpus or blank query returns an empty slice.
	HybridSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
