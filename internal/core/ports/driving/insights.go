package driving

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// InsightService answers read-only questions about extracted insights.
type InsightService interface {
	// GetFilteredInsights returns insights by type, name and sentiment.
	GetFilteredInsights(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error)

	// QueryInsights runs a structured query with optional entity grouping.
	QueryInsights(ctx context.Context, query domain.InsightQuery) (*domain.InsightQueryResult, error)

	// EmotionOccurrences lists every dated appearance of an emotion.
	EmotionOccurrences(ctx context.Context, emotion string) ([]domain.Occurrence, error)

	// PersonOccurrences lists every dated mention of a person.
	PersonOccurrences(ctx context.Context, name string) ([]domain.Occurrence, error)

	// RecentInsights lists raw insights of one type in recency buckets.
	RecentInsights(
		ctx context.Context, t domain.InsightType, dateRange *domain.DateRange, limit int,
	) ([]domain.InsightTimeGroup, error)

	// Aggregated summarises the top emotions and people.
	Aggregated(ctx context.Context, dateRange *domain.DateRange) (*domain.AggregatedInsights, error)
}
