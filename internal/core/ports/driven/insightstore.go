package driven

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// InsightStore persists extracted insights.
// Metadata is decoded into its typed variant at this boundary.
type InsightStore interface {
	// SaveInsights stores insights in a single transaction.
	SaveInsights(ctx context.Context, insights []domain.Insight) error

	// DeleteInsights removes all insights of an entry.
	DeleteInsights(ctx context.Context, entryID string) error

	// DeleteAllInsights removes every insight. Returns the number removed.
	DeleteAllInsights(ctx context.Context) (int, error)

	// HasInsights reports whether the entry has at least one insight.
	HasInsights(ctx context.Context, entryID string) (bool, error)

	// FindInsights returns insights matching the lookup ordered by
	// entry date descending.
	FindInsights(ctx context.Context, lookup domain.InsightLookup) ([]domain.Insight, error)

	// InsightStats returns totals, per-type counts, distinct analysed
	// entries and the most recent extraction time.
	InsightStats(ctx context.Context) (*domain.AnalyticsStats, error)
}
