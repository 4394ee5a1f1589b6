package driving

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// AnalysisService drives the insight extraction queue.
type AnalysisService interface {
	// QueueEntry enqueues an entry unless it has insights or an item already.
	// Returns true if an item was created.
	QueueEntry(ctx context.Context, entryID string) (bool, error)

	// QueueAll enqueues every entry with no insights and no item.
	QueueAll(ctx context.Context) (int, error)

	// Reanalyze re-queues an entry regardless of existing insights.
	Reanalyze(ctx context.Context, entryID string) error

	// Process drains eligible items one at a time. Cancelling ctx stops the
	// batch before the next item.
	Process(ctx context.Context, onProgress func(domain.Progress)) (*domain.ProcessResult, error)

	// Failed lists items that exhausted their retries.
	Failed(ctx context.Context) ([]domain.FailedItem, error)

	// Retry returns a failed item to the eligible pool.
	// Completed items cannot be retried.
	Retry(ctx context.Context, id string) error

	// Dismiss removes an item.
	Dismiss(ctx context.Context, id string) error

	// RetryAllFailed resets every failed item.
	RetryAllFailed(ctx context.Context) (int, error)

	// DismissAllFailed removes every failed item.
	DismissAllFailed(ctx context.Context) (int, error)

	// ClearCompleted removes completed items.
	ClearCompleted(ctx context.Context) (int, error)

	// QueueStatus returns the queue item of an entry.
	// Returns domain.ErrNotFound if the entry has none.
	QueueStatus(ctx context.Context, entryID string) (*domain.QueueItem, error)

	// ClearInsights deletes every insight and the completed queue items, so
	// QueueAll picks every entry up again. Returns the insights deleted.
	ClearInsights(ctx context.Context) (int, error)

	// Stats summarises extraction state.
	Stats(ctx context.Context) (*domain.AnalyticsStats, error)
}
