package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const entryColumns = "id, date, content, created_at, updated_at"

// ==================== Entry Store ====================

// entryStore implements driven.EntryStore.
type entryStore struct {
	store *Store
}

var _ driven.EntryStore = (*entryStore)(nil)

// SaveEntry stores or updates an entry. Derived rows follow a date change.
func (s *entryStore) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil || entry.ID == "" || entry.Date == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}

	return s.store.do(ctx, "saving entry", func(ctx context.Context) error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (id, date, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				content = excluded.content,
				updated_at = excluded.updated_at
		`, entry.ID, entry.Date, entry.Content,
			formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt)); err != nil {
			return fmt.Errorf("saving entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE embedding_chunks SET entry_date = ? WHERE entry_id = ?", entry.Date, entry.ID); err != nil {
			return fmt.Errorf("updating chunk dates: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE journal_insights SET entry_date = ? WHERE entry_id = ?", entry.Date, entry.ID); err != nil {
			return fmt.Errorf("updating insight dates: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// GetEntry retrieves an entry by ID.
func (s *entryStore) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	var entry *domain.JournalEntry
	err := s.store.do(ctx, "getting entry", func(ctx context.Context) error {
		row := s.store.db.QueryRowContext(ctx,
			"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
		var err error
		entry, err = scanEntry(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntries retrieves entries by ID, newest first.
func (s *entryStore) GetEntries(ctx context.Context, ids []string) ([]domain.JournalEntry, error) {
	if len(ids) == 0 {
		return []domain.JournalEntry{}, nil
	}

	query := "SELECT " + entryColumns + " FROM entries WHERE id IN (" + placeholders(len(ids)) + ")" +
		" ORDER BY date DESC, id"
	return s.queryEntries(ctx, "getting entries", query, stringArgs(ids)...)
}

// ListEntries returns entries matching the options.
func (s *entryStore) ListEntries(ctx context.Context, opts domain.EntryListOptions) ([]domain.JournalEntry, error) {
	var where []string
	var args []any

	if opts.DateRange != nil {
		where = append(where, "e.date BETWEEN ? AND ?")
		args = append(args, opts.DateRange.Start, opts.DateRange.End)
	}
	if opts.HasInsights != nil {
		clause := "EXISTS (SELECT 1 FROM journal_insights i WHERE i.entry_id = e.id)"
		if !*opts.HasInsights {
			clause = "NOT " + clause
		}
		where = append(where, clause)
	}

	query := "SELECT " + prefixColumns("e", entryColumns) + " FROM entries e"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.Ascending {
		query += " ORDER BY e.date ASC, e.id"
	} else {
		query += " ORDER BY e.date DESC, e.id"
	}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return s.queryEntries(ctx, "listing entries", query, args...)
}

// ListUnembedded returns entries that have no chunks yet.
func (s *entryStore) ListUnembedded(
	ctx context.Context,
	minLength int,
	cutoff time.Time,
) ([]domain.JournalEntry, error) {
	query := "SELECT " + prefixColumns("e", entryColumns) + ` FROM entries e
		WHERE length(trim(e.content)) > ?
		AND NOT EXISTS (SELECT 1 FROM embedding_chunks c WHERE c.entry_id = e.id)`
	args := []any{minLength}

	if !cutoff.IsZero() {
		query += " AND e.updated_at <= ?"
		args = append(args, formatTime(cutoff))
	}
	query += " ORDER BY e.date DESC, e.id"

	return s.queryEntries(ctx, "listing unembedded entries", query, args...)
}

// CountEntries returns the total number of entries.
func (s *entryStore) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := s.store.do(ctx, "counting entries", func(ctx context.Context) error {
		return s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	})
	return count, err
}

// DeleteEntry removes an entry with its chunks, insights and queue row.
func (s *entryStore) DeleteEntry(ctx context.Context, id string) error {
	return s.store.do(ctx, "deleting entry", func(ctx context.Context) error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		for _, table := range []string{"embedding_chunks", "journal_insights", "analytics_queue"} {
			//nolint:gosec // table names are constants
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE entry_id = ?", id); err != nil {
				return fmt.Errorf("deleting %s rows: %w", table, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// queryEntries runs an entry query and scans all rows.
func (s *entryStore) queryEntries(ctx context.Context, op, query string, args ...any) ([]domain.JournalEntry, error) {
	var entries []domain.JournalEntry
	err := s.store.do(ctx, op, func(ctx context.Context) error {
		rows, err := s.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying entries: %w", err)
		}
		defer rows.Close()

		entries = make([]domain.JournalEntry, 0)
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, *entry)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// scanEntry scans a single entry row.
func scanEntry(row rowScanner) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var createdAt, updatedAt string

	if err := row.Scan(&entry.ID, &entry.Date, &entry.Content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	entry.CreatedAt = parseTime(createdAt)
	entry.UpdatedAt = parseTime(updatedAt)
	return &entry, nil
}

// prefixColumns qualifies a comma separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
