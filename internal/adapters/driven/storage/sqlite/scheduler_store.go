package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

const taskColumns = "id, name, schedule, last_run, next_run, last_error, last_success, enabled"

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	var task *domain.ScheduledTask
	err := s.store.do(ctx, "getting scheduled task", func(ctx context.Context) error {
		row := s.store.db.QueryRowContext(ctx,
			"SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = ?", taskID)
		var err error
		task, err = scanScheduledTask(row)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all scheduled tasks ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	var tasks []domain.ScheduledTask
	err := s.store.do(ctx, "listing scheduled tasks", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx,
			"SELECT "+taskColumns+" FROM scheduled_tasks ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying scheduled tasks: %w", err)
		}
		defer rows.Close()

		tasks = nil
		for rows.Next() {
			task, err := scanScheduledTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, *task)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating scheduled tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTask creates or updates a task's state.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	return s.store.do(ctx, "saving scheduled task", func(ctx context.Context) error {
		_, err := s.store.db.ExecContext(ctx, `
			INSERT INTO scheduled_tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				schedule = excluded.schedule,
				last_run = excluded.last_run,
				next_run = excluded.next_run,
				last_error = excluded.last_error,
				last_success = excluded.last_success,
				enabled = excluded.enabled
		`, task.ID, task.Name, task.Schedule,
			formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
			nullString(task.LastError), formatNullableTime(task.LastSuccess),
			boolToInt(task.Enabled))
		if err != nil {
			return fmt.Errorf("saving scheduled task: %w", err)
		}
		return nil
	})
}

// DeleteTask removes a task from storage.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	return s.store.do(ctx, "deleting scheduled task", func(ctx context.Context) error {
		if _, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", taskID); err != nil {
			return fmt.Errorf("deleting scheduled task: %w", err)
		}
		return nil
	})
}

// RecordResult logs a task execution result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	return s.store.do(ctx, "recording task result", func(ctx context.Context) error {
		_, err := s.store.db.ExecContext(ctx, `
			INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
			VALUES (?, ?, ?, ?, ?, ?)
		`, result.TaskID,
			formatTime(result.StartedAt),
			formatTime(result.EndedAt),
			boolToInt(result.Success),
			nullString(result.Error),
			result.ItemsProcessed)
		if err != nil {
			return fmt.Errorf("recording task result: %w", err)
		}
		return nil
	})
}

// GetTaskHistory returns recent results for a task, most recent first.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	var results []domain.TaskResult
	err := s.store.do(ctx, "reading task history", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT task_id, started_at, ended_at, success, error, items_processed
			FROM task_results
			WHERE task_id = ?
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		`, taskID, limit)
		if err != nil {
			return fmt.Errorf("querying task history: %w", err)
		}
		defer rows.Close()

		results = nil
		for rows.Next() {
			result, err := scanTaskResult(rows)
			if err != nil {
				return err
			}
			results = append(results, *result)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating task history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PruneHistory keeps the most recent 'keep' results per task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	return s.store.do(ctx, "pruning task history", func(ctx context.Context) error {
		_, err := s.store.db.ExecContext(ctx, `
			DELETE FROM task_results
			WHERE id NOT IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
					FROM task_results
				) WHERE rn <= ?
			)
		`, keep)
		if err != nil {
			return fmt.Errorf("pruning task history: %w", err)
		}
		return nil
	})
}

// scanScheduledTask scans a single scheduled task row.
func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := row.Scan(&task.ID, &task.Name, &task.Schedule,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastError = lastError.String
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1

	return &task, nil
}

// scanTaskResult scans a task result row.
func scanTaskResult(row rowScanner) (*domain.TaskResult, error) {
	var result domain.TaskResult
	var startedAt, endedAt string
	var success int
	var errMsg sql.NullString

	if err := row.Scan(&result.TaskID, &startedAt, &endedAt,
		&success, &errMsg, &result.ItemsProcessed); err != nil {
		return nil, fmt.Errorf("scanning task result: %w", err)
	}

	result.StartedAt = parseTime(startedAt)
	result.EndedAt = parseTime(endedAt)
	result.Success = success == 1
	result.Error = errMsg.String

	return &result, nil
}
