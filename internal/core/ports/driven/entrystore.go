package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// EntryStore reads journal entries.
// Backed by SQLite; the entries table is shared with the host application.
type EntryStore interface {
	// SaveEntry stores or updates an entry.
	SaveEntry(ctx context.Context, entry *domain.JournalEntry) error

	// GetEntry retrieves an entry by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error)

	// GetEntries retrieves entries by ID, newest first. Unknown IDs are skipped.
	GetEntries(ctx context.Context, ids []string) ([]domain.JournalEntry, error)

	// ListEntries returns entries matching the options.
	ListEntries(ctx context.Context, opts domain.EntryListOptions) ([]domain.JournalEntry, error)

	// ListUnembedded returns entries with no chunks whose content is longer
	// than minLength and that were last updated at or before cutoff.
	// A zero cutoff disables the age filter. Newest first.
	ListUnembedded(ctx context.Context, minLength int, cutoff time.Time) ([]domain.JournalEntry, error)

	// CountEntries returns the total number of entries.
	CountEntries(ctx context.Context) (int, error)

	// DeleteEntry removes an entry with its chunks, insights and queue row.
	DeleteEntry(ctx context.Context, id string) error
}
