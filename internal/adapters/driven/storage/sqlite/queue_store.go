package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

const queueColumns = "id, entry_id, status, retry_count, error, created_at, updated_at"

// interruptedError is recorded on items reclaimed from the processing state.
const interruptedError = "interrupted while processing"

// ==================== Queue Store ====================

// queueStore implements driven.QueueStore.
type queueStore struct {
	store *Store
}

var _ driven.QueueStore = (*queueStore)(nil)

// Enqueue adds a pending item for the entry. Returns false if one already exists.
func (s *queueStore) Enqueue(ctx context.Context, entryID string) (bool, error) {
	if entryID == "" {
		return false, domain.ErrInvalidInput
	}

	var created bool
	err := s.store.do(ctx, "enqueueing entry", func(ctx context.Context) error {
		now := formatTime(time.Now())
		res, err := s.store.db.ExecContext(ctx, `
			INSERT INTO analytics_queue (id, entry_id, status, retry_count, created_at, updated_at)
			VALUES (?, ?, 'pending', 0, ?, ?)
			ON CONFLICT(entry_id) DO NOTHING
		`, uuid.NewString(), entryID, now, now)
		if err != nil {
			return fmt.Errorf("inserting queue item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}
		created = n > 0
		return nil
	})
	return created, err
}

// EnqueueUnanalysed queues every entry that has no insights and no queue row.
func (s *queueStore) EnqueueUnanalysed(ctx context.Context) (int, error) {
	var added int
	err := s.store.do(ctx, "enqueueing unanalysed entries", func(ctx context.Context) error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		rows, err := tx.QueryContext(ctx, `
			SELECT e.id FROM entries e
			WHERE NOT EXISTS (SELECT 1 FROM journal_insights i WHERE i.entry_id = e.id)
			AND NOT EXISTS (SELECT 1 FROM analytics_queue q WHERE q.entry_id = e.id)
			ORDER BY e.date, e.id
		`)
		if err != nil {
			return fmt.Errorf("querying unanalysed entries: %w", err)
		}

		var ids []string //nolint:prealloc // size unknown from query
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scanning entry id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating unanalysed entries: %w", err)
		}

		now := formatTime(time.Now())
		added = 0
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO analytics_queue (id, entry_id, status, retry_count, created_at, updated_at)
				VALUES (?, ?, 'pending', 0, ?, ?)
				ON CONFLICT(entry_id) DO NOTHING
			`, uuid.NewString(), id, now, now)
			if err != nil {
				return fmt.Errorf("inserting queue item: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// GetQueueItem retrieves a queue item by ID.
func (s *queueStore) GetQueueItem(ctx context.Context, id string) (*domain.QueueItem, error) {
	return s.getOne(ctx, "SELECT "+queueColumns+" FROM analytics_queue WHERE id = ?", id)
}

// GetQueueItemByEntry retrieves the queue item for an entry.
func (s *queueStore) GetQueueItemByEntry(ctx context.Context, entryID string) (*domain.QueueItem, error) {
	return s.getOne(ctx, "SELECT "+queueColumns+" FROM analytics_queue WHERE entry_id = ?", entryID)
}

// ListPending returns pending items under the retry limit, oldest first.
func (s *queueStore) ListPending(ctx context.Context, maxRetries int) ([]domain.QueueItem, error) {
	var items []domain.QueueItem
	err := s.store.do(ctx, "listing pending items", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT `+queueColumns+` FROM analytics_queue
			WHERE status = 'pending' AND retry_count < ?
			ORDER BY created_at, rowid
		`, maxRetries)
		if err != nil {
			return fmt.Errorf("querying pending items: %w", err)
		}
		defer rows.Close()

		items = make([]domain.QueueItem, 0)
		for rows.Next() {
			item, err := scanQueueItem(rows)
			if err != nil {
				return err
			}
			items = append(items, *item)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating pending items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListFailed returns items that exhausted their retries, most recently updated first.
func (s *queueStore) ListFailed(ctx context.Context, maxRetries int) ([]domain.FailedItem, error) {
	var items []domain.FailedItem
	err := s.store.do(ctx, "listing failed items", func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT q.id, q.entry_id, q.status, q.retry_count, q.error, q.created_at, q.updated_at,
				COALESCE(e.date, '')
			FROM analytics_queue q
			LEFT JOIN entries e ON e.id = q.entry_id
			WHERE q.status = 'pending' AND q.retry_count >= ?
			ORDER BY q.updated_at DESC, q.id
		`, maxRetries)
		if err != nil {
			return fmt.Errorf("querying failed items: %w", err)
		}
		defer rows.Close()

		items = make([]domain.FailedItem, 0)
		for rows.Next() {
			var item domain.FailedItem
			var status, createdAt, updatedAt string
			var errMsg sql.NullString
			if err := rows.Scan(&item.ID, &item.EntryID, &status, &item.RetryCount, &errMsg,
				&createdAt, &updatedAt, &item.EntryDate); err != nil {
				return fmt.Errorf("scanning failed item: %w", err)
			}
			item.Status = domain.QueueStatus(status)
			item.Error = errMsg.String
			item.CreatedAt = parseTime(createdAt)
			item.UpdatedAt = parseTime(updatedAt)
			items = append(items, item)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating failed items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// MarkProcessing moves an item into the processing state.
func (s *queueStore) MarkProcessing(ctx context.Context, id string) error {
	return s.updateOne(ctx, "marking item processing",
		"UPDATE analytics_queue SET status = 'processing', updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
}

// MarkCompleted moves an item into the completed state and clears its error.
func (s *queueStore) MarkCompleted(ctx context.Context, id string) error {
	return s.updateOne(ctx, "marking item completed",
		"UPDATE analytics_queue SET status = 'completed', error = NULL, updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
}

// MarkFailed returns an item to pending, increments its retry count and records the error.
func (s *queueStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.updateOne(ctx, "marking item failed", `
		UPDATE analytics_queue
		SET status = 'pending', retry_count = retry_count + 1, error = ?, updated_at = ?
		WHERE id = ?`,
		nullString(errMsg), formatTime(time.Now()), id)
}

// ResetRetries clears the retry count and error of a single item.
func (s *queueStore) ResetRetries(ctx context.Context, id string) error {
	return s.updateOne(ctx, "resetting item", `
		UPDATE analytics_queue
		SET status = 'pending', retry_count = 0, error = NULL, updated_at = ?
		WHERE id = ?`,
		formatTime(time.Now()), id)
}

// ResetAllFailed resets every failed item and returns how many were reset.
func (s *queueStore) ResetAllFailed(ctx context.Context, maxRetries int) (int, error) {
	return s.execCount(ctx, "resetting failed items", `
		UPDATE analytics_queue
		SET retry_count = 0, error = NULL, updated_at = ?
		WHERE status = 'pending' AND retry_count >= ?`,
		formatTime(time.Now()), maxRetries)
}

// DeleteQueueItem removes a queue item by ID.
func (s *queueStore) DeleteQueueItem(ctx context.Context, id string) error {
	return s.updateOne(ctx, "deleting queue item", "DELETE FROM analytics_queue WHERE id = ?", id)
}

// DeleteQueueItemByEntry removes the queue item of an entry, if any.
func (s *queueStore) DeleteQueueItemByEntry(ctx context.Context, entryID string) error {
	_, err := s.execCount(ctx, "deleting queue item", "DELETE FROM analytics_queue WHERE entry_id = ?", entryID)
	return err
}

// DeleteAllFailed removes every failed item.
func (s *queueStore) DeleteAllFailed(ctx context.Context, maxRetries int) (int, error) {
	return s.execCount(ctx, "deleting failed items",
		"DELETE FROM analytics_queue WHERE status = 'pending' AND retry_count >= ?", maxRetries)
}

// DeleteCompleted removes every completed item.
func (s *queueStore) DeleteCompleted(ctx context.Context) (int, error) {
	return s.execCount(ctx, "deleting completed items",
		"DELETE FROM analytics_queue WHERE status = 'completed'")
}

// ReclaimStuck returns processing items last touched at or before cutoff to
// pending, counting the interruption as a failed attempt.
func (s *queueStore) ReclaimStuck(ctx context.Context, cutoff time.Time) (int, error) {
	return s.execCount(ctx, "reclaiming stuck items", `
		UPDATE analytics_queue
		SET status = 'pending', retry_count = retry_count + 1, error = ?, updated_at = ?
		WHERE status = 'processing' AND updated_at <= ?`,
		interruptedError, formatTime(time.Now()), formatTime(cutoff))
}

// CountQueue returns the number of pending and failed items.
func (s *queueStore) CountQueue(ctx context.Context, maxRetries int) (pending, failed int, err error) {
	err = s.store.do(ctx, "counting queue", func(ctx context.Context) error {
		return s.store.db.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(CASE WHEN retry_count < ? THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN retry_count >= ? THEN 1 ELSE 0 END), 0)
			FROM analytics_queue WHERE status = 'pending'
		`, maxRetries, maxRetries).Scan(&pending, &failed)
	})
	return pending, failed, err
}

// getOne runs a single-row queue query.
func (s *queueStore) getOne(ctx context.Context, query string, arg string) (*domain.QueueItem, error) {
	var item *domain.QueueItem
	err := s.store.do(ctx, "getting queue item", func(ctx context.Context) error {
		var err error
		item, err = scanQueueItem(s.store.db.QueryRowContext(ctx, query, arg))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// updateOne executes a statement that must affect exactly one row.
func (s *queueStore) updateOne(ctx context.Context, op, query string, args ...any) error {
	n, err := s.execCount(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// execCount executes a statement and returns the affected row count.
func (s *queueStore) execCount(ctx context.Context, op, query string, args ...any) (int, error) {
	var affected int64
	err := s.store.do(ctx, op, func(ctx context.Context) error {
		res, err := s.store.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// scanQueueItem scans a single queue row.
func scanQueueItem(row rowScanner) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var status, createdAt, updatedAt string
	var errMsg sql.NullString

	if err := row.Scan(&item.ID, &item.EntryID, &status, &item.RetryCount, &errMsg,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning queue item: %w", err)
	}

	item.Status = domain.QueueStatus(status)
	item.Error = errMsg.String
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}
