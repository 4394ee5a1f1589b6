package cli

import (
	"fmt"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

const dateLayout = "2006-01-02"

// Open bounds used when only one side of a date range is given.
const (
	minDate = "0000-01-01"
	maxDate = "9999-12-31"
)

// parseDateRange builds an inclusive range from --from/--to values.
// Returns nil when both are empty.
func parseDateRange(from, to string) (*domain.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}

	r := &domain.DateRange{Start: from, End: to}
	if r.Start == "" {
		r.Start = minDate
	}
	if r.End == "" {
		r.End = maxDate
	}
	if r.Start > r.End {
		return nil, fmt.Errorf("--from %s is after --to %s", from, to)
	}
	return r, nil
}

// truncate shortens s to n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
