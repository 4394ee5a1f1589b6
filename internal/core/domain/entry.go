package domain

import "time"

// JournalEntry is a single diary entry.
// Entries are the source of truth and are never mutated by indexing or analysis.
type JournalEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// Date is the calendar day of the entry in YYYY-MM-DD form.
	// Dates order lexicographically.
	Date string

	// Content is the free text of the entry.
	Content string

	// CreatedAt is when the entry was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the entry content last changed.
	UpdatedAt time.Time
}

// DateRange is an inclusive range of entry dates.
type DateRange struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Contains reports whether date falls within the range.
func (r DateRange) Contains(date string) bool {
	return date >= r.Start && date <= r.End
}

// EntryListOptions filters entries returned by the entry store.
type EntryListOptions struct {
	// DateRange restricts entries to a date window.
	DateRange *DateRange

	// HasInsights filters on whether the entry has been analysed.
	// Nil means no filter.
	HasInsights *bool

	// Ascending orders by date oldest-first; default is newest-first.
	Ascending bool

	// Limit caps the number of entries (0 = no limit).
	Limit int
}
