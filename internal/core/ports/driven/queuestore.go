package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// QueueStore persists the analysis queue.
// At most one item exists per entry; inserts for an entry that already
// has an item are no-ops.
type QueueStore interface {
	// Enqueue inserts a pending item for the entry.
	// Returns false if an item already existed.
	Enqueue(ctx context.Context, entryID string) (bool, error)

	// EnqueueUnanalysed inserts a pending item for every entry that has
	// neither insights nor a queue item. Returns the number created.
	EnqueueUnanalysed(ctx context.Context) (int, error)

	// GetQueueItem retrieves an item by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetQueueItem(ctx context.Context, id string) (*domain.QueueItem, error)

	// GetQueueItemByEntry retrieves the item for an entry.
	// Returns domain.ErrNotFound if it does not exist.
	GetQueueItemByEntry(ctx context.Context, entryID string) (*domain.QueueItem, error)

	// ListPending returns pending items with retry_count below maxRetries,
	// oldest first.
	ListPending(ctx context.Context, maxRetries int) ([]domain.QueueItem, error)

	// ListFailed returns pending items with retry_count at or above
	// maxRetries, joined with the entry date.
	ListFailed(ctx context.Context, maxRetries int) ([]domain.FailedItem, error)

	// MarkProcessing moves an item to processing.
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted moves an item to completed and clears its error.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed returns an item to pending, increments its retry count
	// and records the error text.
	MarkFailed(ctx context.Context, id, errMsg string) error

	// ResetRetries sets retry_count to 0 and clears the error.
	ResetRetries(ctx context.Context, id string) error

	// ResetAllFailed resets every failed item. Returns the number reset.
	ResetAllFailed(ctx context.Context, maxRetries int) (int, error)

	// DeleteQueueItem removes an item.
	DeleteQueueItem(ctx context.Context, id string) error

	// DeleteQueueItemByEntry removes the item for an entry, if any.
	DeleteQueueItemByEntry(ctx context.Context, entryID string) error

	// DeleteAllFailed removes every failed item. Returns the number removed.
	DeleteAllFailed(ctx context.Context, maxRetries int) (int, error)

	// DeleteCompleted removes completed items. Returns the number removed.
	DeleteCompleted(ctx context.Context) (int, error)

	// ReclaimStuck returns items left in processing since before cutoff
	// to pending. Returns the number reclaimed.
	ReclaimStuck(ctx context.Context, cutoff time.Time) (int, error)

	// CountQueue returns the eligible pending and failed item counts.
	CountQueue(ctx context.Context, maxRetries int) (pending, failed int, err error)
}
