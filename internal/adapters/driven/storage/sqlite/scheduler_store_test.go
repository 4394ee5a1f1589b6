package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDEmbedStale,
		Name:        "Embed Stale Entries",
		Schedule:    "@every 1m",
		LastRun:     now.Add(-30 * time.Second),
		NextRun:     now.Add(30 * time.Second),
		LastSuccess: now.Add(-30 * time.Second),
		Enabled:     true,
	}

	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDEmbedStale)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, task.ID, retrieved.ID)
	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, "@every 1m", retrieved.Schedule)
	assert.True(t, retrieved.Enabled)
	assert.WithinDuration(t, task.LastRun, retrieved.LastRun, time.Second)
	assert.WithinDuration(t, task.NextRun, retrieved.NextRun, time.Second)
	assert.WithinDuration(t, task.LastSuccess, retrieved.LastSuccess, time.Second)
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "non-existent")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: "test-task", Name: "Test Task", Schedule: "@every 1h", Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.Name = "Updated Task"
	task.Schedule = "*/5 * * * *"
	task.LastError = "some error"
	task.Enabled = false
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, "Updated Task", retrieved.Name)
	assert.Equal(t, "*/5 * * * *", retrieved.Schedule)
	assert.Equal(t, "some error", retrieved.LastError)
	assert.False(t, retrieved.Enabled)
}

func TestSchedulerStore_NilArguments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	assert.ErrorIs(t, store.SchedulerStore().SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SchedulerStore().RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListAndDeleteTasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	empty, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, task := range []*domain.ScheduledTask{
		{ID: "task-2", Name: "Task 2", Schedule: "@every 2h", Enabled: false},
		{ID: "task-1", Name: "Task 1", Schedule: "@every 1h", Enabled: true},
	} {
		require.NoError(t, schedulerStore.SaveTask(ctx, task))
	}

	tasks, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-1", tasks[0].ID)

	require.NoError(t, schedulerStore.DeleteTask(ctx, "task-1"))
	retrieved, err := schedulerStore.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSchedulerStore_RecordResultAndHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID:         domain.TaskIDProcessQueue,
		StartedAt:      now.Add(-5 * time.Minute),
		EndedAt:        now,
		Success:        true,
		ItemsProcessed: 10,
	}))
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID:    domain.TaskIDProcessQueue,
		StartedAt: now,
		EndedAt:   now.Add(time.Minute),
		Success:   false,
		Error:     "extraction unavailable",
	}))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDProcessQueue, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.False(t, history[0].Success)
	assert.Equal(t, "extraction unavailable", history[0].Error)
	assert.True(t, history[1].Success)
	assert.Equal(t, 10, history[1].ItemsProcessed)
	assert.WithinDuration(t, now.Add(-5*time.Minute), history[1].StartedAt, time.Millisecond)

	limited, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDProcessQueue, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDEmbedStale, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 10; i++ {
		for _, taskID := range []string{domain.TaskIDEmbedStale, domain.TaskIDProcessQueue} {
			require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
				TaskID:         taskID,
				StartedAt:      now.Add(time.Duration(i) * time.Minute),
				EndedAt:        now.Add(time.Duration(i)*time.Minute + 30*time.Second),
				Success:        true,
				ItemsProcessed: i + 1,
			}))
		}
	}

	require.NoError(t, schedulerStore.PruneHistory(ctx, 3))

	for _, taskID := range []string{domain.TaskIDEmbedStale, domain.TaskIDProcessQueue} {
		history, err := schedulerStore.GetTaskHistory(ctx, taskID, 100)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, 10, history[0].ItemsProcessed)
		assert.Equal(t, 9, history[1].ItemsProcessed)
		assert.Equal(t, 8, history[2].ItemsProcessed)
	}
}

func TestSchedulerStore_TaskWithZeroTimes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{
		ID: "zero-times-task", Name: "New Task", Schedule: "@every 1h", Enabled: true,
	}))

	retrieved, err := schedulerStore.GetTask(ctx, "zero-times-task")
	require.NoError(t, err)
	assert.True(t, retrieved.LastRun.IsZero())
	assert.True(t, retrieved.NextRun.IsZero())
	assert.True(t, retrieved.LastSuccess.IsZero())
}
