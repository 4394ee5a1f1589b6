package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure EntryService implements the interface.
var _ driving.EntryService = (*EntryService)(nil)

// PreviewLength bounds the entry preview returned when full text is not requested.
const PreviewLength = 200

// EntryService queries journal entries and imports them into the store.
type EntryService struct {
	entries  driven.EntryStore
	chunks   driven.ChunkStore
	insights driven.InsightStore
	search   driving.SearchService
}

// NewEntryService creates a new entry service.
func NewEntryService(
	entries driven.EntryStore,
	chunks driven.ChunkStore,
	insights driven.InsightStore,
	search driving.SearchService,
) *EntryService {
	return &EntryService{
		entries:  entries,
		chunks:   chunks,
		insights: insights,
		search:   search,
	}
}

// QueryEntries lists entries by date, or ranks them by hybrid search when a
// search string is given.
func (s *EntryService) QueryEntries(ctx context.Context, query domain.EntryQuery) ([]domain.EntrySummary, error) {
	limit := clampLimit(query.Limit, DefaultQueryLimit, MaxQueryLimit)

	if search := strings.TrimSpace(query.Search); search != "" {
		return s.searchEntries(ctx, search, query, limit)
	}

	entries, err := s.entries.ListEntries(ctx, domain.EntryListOptions{
		DateRange:   query.DateRange,
		HasInsights: query.HasInsights,
		Ascending:   query.OrderBy != nil && query.OrderBy.Ascending(),
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	out := make([]domain.EntrySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarise(e.ID, e.Date, e.Content, "", query.ReturnFullText, nil))
	}
	return out, nil
}

func (s *EntryService) searchEntries(
	ctx context.Context, search string, query domain.EntryQuery, limit int,
) ([]domain.EntrySummary, error) {
	if s.search == nil {
		return nil, errors.New("search service unavailable")
	}

	results, err := s.search.HybridSearch(ctx, search, domain.SearchOptions{
		Limit:     limit,
		DateRange: query.DateRange,
	})
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}

	if query.HasInsights != nil {
		filtered := make([]domain.SearchResult, 0, len(results))
		for _, r := range results {
			has, err := s.insights.HasInsights(ctx, r.EntryID)
			if err != nil {
				return nil, fmt.Errorf("checking insights for %s: %w", r.EntryID, err)
			}
			if has == *query.HasInsights {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	full := make(map[string]string)
	if query.ReturnFullText && len(results) > 0 {
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.EntryID
		}
		entries, err := s.entries.GetEntries(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("loading entries: %w", err)
		}
		for _, e := range entries {
			full[e.ID] = e.Content
		}
	}

	if query.OrderBy != nil && query.OrderBy.Field == domain.OrderByDate {
		asc := query.OrderBy.Ascending()
		sort.SliceStable(results, func(i, j int) bool {
			if asc {
				return results[i].Date < results[j].Date
			}
			return results[i].Date > results[j].Date
		})
	}

	out := make([]domain.EntrySummary, 0, len(results))
	for _, r := range results {
		score := r.Score
		content := r.Content
		if text, ok := full[r.EntryID]; ok {
			content = text
		}
		out = append(out, summarise(r.EntryID, r.Date, content, search, query.ReturnFullText, &score))
	}
	return out, nil
}

func summarise(id, date, content, query string, fullText bool, score *float64) domain.EntrySummary {
	summary := domain.EntrySummary{ID: id, Date: date, Score: score}
	if fullText {
		summary.Content = content
	} else {
		summary.Preview = GenerateSnippet(content, query, PreviewLength)
	}
	return summary
}

// GetEntriesByIDs loads entries by id, newest first. Unknown ids are skipped.
func (s *EntryService) GetEntriesByIDs(ctx context.Context, ids []string) ([]domain.JournalEntry, error) {
	if len(ids) == 0 {
		return []domain.JournalEntry{}, nil
	}
	entries, err := s.entries.GetEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	return entries, nil
}

// SaveEntry stores an entry. When the content of an existing entry changes,
// its chunks are dropped so the background task re-embeds it once the entry
// has settled.
func (s *EntryService) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil || entry.ID == "" || entry.Date == "" {
		return fmt.Errorf("entry requires id and date: %w", domain.ErrInvalidInput)
	}

	existing, err := s.entries.GetEntry(ctx, entry.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return fmt.Errorf("loading entry %s: %w", entry.ID, err)
	}

	entry.UpdatedAt = time.Now()
	if existing != nil && entry.CreatedAt.IsZero() {
		entry.CreatedAt = existing.CreatedAt
	}
	if err := s.entries.SaveEntry(ctx, entry); err != nil {
		return fmt.Errorf("saving entry %s: %w", entry.ID, err)
	}

	if existing != nil && existing.Content != entry.Content {
		logger.Debug("Entry %s content changed, dropping chunks", entry.ID)
		if err := s.chunks.DeleteChunks(ctx, entry.ID); err != nil {
			return fmt.Errorf("clearing chunks for %s: %w", entry.ID, err)
		}
	}
	return nil
}

// DeleteEntry removes an entry together with its chunks, insights and queue item.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	return nil
}
