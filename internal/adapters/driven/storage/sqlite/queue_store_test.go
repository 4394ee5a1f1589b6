package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// ==================== QueueStore Tests ====================

func TestQueueStore_EnqueueIsIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	queue := store.QueueStore()

	created, err := queue.Enqueue(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = queue.Enqueue(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, created)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM analytics_queue").Scan(&count))
	assert.Equal(t, 1, count)

	item, err := queue.GetQueueItemByEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, item.Status)
	assert.Equal(t, 0, item.RetryCount)

	_, err = queue.Enqueue(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueueStore_EnqueueUnanalysed(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	var analysed []domain.Insight
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("e%03d", i)
		saveTestEntry(t, store, id, fmt.Sprintf("2024-01-%02d", i%28+1), "entry")
		if i < 30 {
			analysed = append(analysed, personInsight("i"+id, id, "2024-01-01", "Tom", domain.SentimentPositive))
		}
	}
	require.NoError(t, store.InsightStore().SaveInsights(ctx, analysed))

	added, err := store.QueueStore().EnqueueUnanalysed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70, added)

	again, err := store.QueueStore().EnqueueUnanalysed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	pending, failed, err := store.QueueStore().CountQueue(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Equal(t, 70, pending)
	assert.Equal(t, 0, failed)
}

func TestQueueStore_RetryLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "e1", "2024-04-01", "text")
	queue := store.QueueStore()

	_, err := queue.Enqueue(ctx, "e1")
	require.NoError(t, err)
	item, err := queue.GetQueueItemByEntry(ctx, "e1")
	require.NoError(t, err)

	for i := 1; i <= domain.MaxRetryCount; i++ {
		pending, err := queue.ListPending(ctx, domain.MaxRetryCount)
		require.NoError(t, err)
		require.Len(t, pending, 1, "attempt %d", i)

		require.NoError(t, queue.MarkProcessing(ctx, item.ID))
		got, err := queue.GetQueueItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueStatusProcessing, got.Status)

		require.NoError(t, queue.MarkFailed(ctx, item.ID, "provider unavailable"))
	}

	pending, err := queue.ListPending(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed, err := queue.ListFailed(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "e1", failed[0].EntryID)
	assert.Equal(t, "2024-04-01", failed[0].EntryDate)
	assert.Equal(t, domain.MaxRetryCount, failed[0].RetryCount)
	assert.Equal(t, "provider unavailable", failed[0].Error)
	assert.True(t, failed[0].IsFailed())

	require.NoError(t, queue.ResetRetries(ctx, item.ID))
	got, err := queue.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RetryCount)
	assert.Empty(t, got.Error)

	require.NoError(t, queue.MarkCompleted(ctx, item.ID))
	got, err = queue.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, got.Status)

	removed, err := queue.DeleteCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestQueueStore_ListPendingOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		_, err := store.QueueStore().Enqueue(ctx, id)
		require.NoError(t, err)
	}

	pending, err := store.QueueStore().ListPending(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "c", pending[0].EntryID)
	assert.Equal(t, "a", pending[1].EntryID)
	assert.Equal(t, "b", pending[2].EntryID)
}

func TestQueueStore_BulkFailedOperations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	queue := store.QueueStore()

	for _, id := range []string{"e1", "e2", "e3"} {
		_, err := queue.Enqueue(ctx, id)
		require.NoError(t, err)
	}
	for _, id := range []string{"e1", "e2"} {
		item, err := queue.GetQueueItemByEntry(ctx, id)
		require.NoError(t, err)
		for i := 0; i < domain.MaxRetryCount; i++ {
			require.NoError(t, queue.MarkFailed(ctx, item.ID, "boom"))
		}
	}

	pending, failed, err := queue.CountQueue(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 2, failed)

	reset, err := queue.ResetAllFailed(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Equal(t, 2, reset)

	pending, failed, err = queue.CountQueue(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)
	assert.Equal(t, 0, failed)

	item, err := queue.GetQueueItemByEntry(ctx, "e3")
	require.NoError(t, err)
	for i := 0; i < domain.MaxRetryCount; i++ {
		require.NoError(t, queue.MarkFailed(ctx, item.ID, "boom"))
	}

	deleted, err := queue.DeleteAllFailed(ctx, domain.MaxRetryCount)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = queue.GetQueueItemByEntry(ctx, "e3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueueStore_DeleteItems(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	queue := store.QueueStore()

	_, err := queue.Enqueue(ctx, "e1")
	require.NoError(t, err)
	item, err := queue.GetQueueItemByEntry(ctx, "e1")
	require.NoError(t, err)

	require.NoError(t, queue.DeleteQueueItem(ctx, item.ID))
	assert.ErrorIs(t, queue.DeleteQueueItem(ctx, item.ID), domain.ErrNotFound)

	_, err = queue.Enqueue(ctx, "e2")
	require.NoError(t, err)
	require.NoError(t, queue.DeleteQueueItemByEntry(ctx, "e2"))
	require.NoError(t, queue.DeleteQueueItemByEntry(ctx, "e2"))

	assert.ErrorIs(t, queue.MarkProcessing(ctx, "missing"), domain.ErrNotFound)
	_, err = queue.GetQueueItem(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueueStore_ReclaimStuck(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	queue := store.QueueStore()

	_, err := queue.Enqueue(ctx, "e1")
	require.NoError(t, err)
	item, err := queue.GetQueueItemByEntry(ctx, "e1")
	require.NoError(t, err)
	require.NoError(t, queue.MarkProcessing(ctx, item.ID))

	// A cutoff in the past leaves recent work alone.
	n, err := queue.ReclaimStuck(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = queue.ReclaimStuck(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := queue.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, interruptedError, got.Error)
}
