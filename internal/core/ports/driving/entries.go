package driving

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// EntryService queries and imports journal entries.
type EntryService interface {
	// QueryEntries lists or searches entries.
	QueryEntries(ctx context.Context, query domain.EntryQuery) ([]domain.EntrySummary, error)

	// GetEntriesByIDs returns full entries for the given IDs.
	GetEntriesByIDs(ctx context.Context, ids []string) ([]domain.JournalEntry, error)

	// SaveEntry stores an entry, dropping stale chunks when content changed.
	SaveEntry(ctx context.Context, entry *domain.JournalEntry) error

	// DeleteEntry removes an entry and everything derived from it.
	DeleteEntry(ctx context.Context, id string) error
}
