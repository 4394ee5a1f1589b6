package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/core/ports/driving"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Ensure InsightService implements the interface.
var _ driving.InsightService = (*InsightService)(nil)

// Query limits.
const (
	DefaultFilteredInsightsLimit = 20
	DefaultQueryLimit            = 10
	MaxQueryLimit                = 50

	// maxGroupEntryIDs caps the related entry ids kept per entity group.
	maxGroupEntryIDs = 10

	maxAggregatedItems    = 20
	maxTriggersPerEmotion = 3

	DefaultRecentInsightsLimit = 100
)

const entryDateLayout = "2006-01-02"

// InsightService answers read-only queries over extracted insights.
type InsightService struct {
	insights driven.InsightStore
	search   driving.SearchService
	now      func() time.Time
}

// NewInsightService creates a new insight query service.
// The search service is only needed for free-text queries.
func NewInsightService(insights driven.InsightStore, search driving.SearchService) *InsightService {
	return &InsightService{
		insights: insights,
		search:   search,
		now:      time.Now,
	}
}

// GetFilteredInsights returns insights matching a type, a name substring and
// a sentiment, newest entry first.
func (s *InsightService) GetFilteredInsights(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error) {
	lookup := domain.InsightLookup{
		Name:  strings.TrimSpace(filter.Name),
		Limit: filter.Limit,
	}
	if lookup.Limit <= 0 {
		lookup.Limit = DefaultFilteredInsightsLimit
	}
	if filter.Type != "" {
		if !filter.Type.IsValid() {
			return nil, fmt.Errorf("insight type %q: %w", filter.Type, domain.ErrInvalidInput)
		}
		lookup.Types = []domain.InsightType{filter.Type}
	}
	lookup.Sentiments = normaliseSentiments([]domain.Sentiment{filter.Sentiment})

	insights, err := s.insights.FindInsights(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("finding insights: %w", err)
	}
	return insights, nil
}

// QueryInsights runs a structured insight query. A free-text search first
// resolves the eligible entries through hybrid search and returns the
// matching rows flat, newest first, across every requested category.
// Without a search, rows are either folded into entity groups or returned
// flat for the first category.
func (s *InsightService) QueryInsights(ctx context.Context, query domain.InsightQuery) (*domain.InsightQueryResult, error) {
	limit := clampLimit(query.Limit, DefaultQueryLimit, MaxQueryLimit)
	includeIDs := query.IncludeEntryIDs == nil || *query.IncludeEntryIDs
	grouped := query.GroupBy == domain.GroupByEntity

	lookup := domain.InsightLookup{
		Sentiments: normaliseSentiments(query.Filters.Sentiments),
		DateRange:  query.Filters.DateRange,
		Name:       strings.TrimSpace(query.Filters.Name),
	}

	types := categoryTypes(query.Filters.Categories)
	if len(query.Filters.Categories) > 0 && len(types) == 0 {
		return nil, fmt.Errorf("categories %v: %w", query.Filters.Categories, domain.ErrInvalidInput)
	}

	if search := strings.TrimSpace(query.Filters.Search); search != "" {
		ids, err := searchEntryIDs(ctx, s.search, search, limit*2)
		if err != nil {
			return nil, fmt.Errorf("searching entries: %w", err)
		}
		if len(ids) == 0 {
			logger.Debug("Insight search %q matched no entries", search)
			return &domain.InsightQueryResult{Insights: []domain.FlatInsight{}}, nil
		}
		lookup.EntryIDs = ids
		lookup.Types = types
		lookup.Limit = limit
		return s.flatQuery(ctx, lookup, includeIDs)
	}

	if !grouped {
		if len(types) > 0 {
			lookup.Types = types[:1]
		}
		lookup.Limit = limit
		return s.flatQuery(ctx, lookup, includeIDs)
	}

	lookup.Types = types
	rows, err := s.insights.FindInsights(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("finding insights: %w", err)
	}

	groups := GroupByEntity(rows)
	SortGroups(groups, query.OrderBy)
	if len(groups) > limit {
		groups = groups[:limit]
	}
	if !includeIDs {
		for i := range groups {
			groups[i].EntryIDs = nil
		}
	}
	return &domain.InsightQueryResult{Groups: groups, Total: len(groups)}, nil
}

func (s *InsightService) flatQuery(
	ctx context.Context, lookup domain.InsightLookup, includeIDs bool,
) (*domain.InsightQueryResult, error) {
	rows, err := s.insights.FindInsights(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("finding insights: %w", err)
	}

	flat := make([]domain.FlatInsight, 0, len(rows))
	for _, in := range rows {
		row := flattenInsight(in)
		if !includeIDs {
			row.EntryID = ""
		}
		flat = append(flat, row)
	}
	return &domain.InsightQueryResult{Insights: flat, Total: len(flat)}, nil
}

// EmotionOccurrences lists every appearance of an emotion, newest first.
func (s *InsightService) EmotionOccurrences(ctx context.Context, emotion string) ([]domain.Occurrence, error) {
	return s.occurrences(ctx, domain.InsightEmotion, emotion)
}

// PersonOccurrences lists every mention of a person, newest first.
func (s *InsightService) PersonOccurrences(ctx context.Context, name string) ([]domain.Occurrence, error) {
	return s.occurrences(ctx, domain.InsightPerson, name)
}

func (s *InsightService) occurrences(ctx context.Context, t domain.InsightType, name string) ([]domain.Occurrence, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s name: %w", t, domain.ErrInvalidInput)
	}

	rows, err := s.insights.FindInsights(ctx, domain.InsightLookup{
		Types:     []domain.InsightType{t},
		Name:      name,
		ExactName: true,
	})
	if err != nil {
		return nil, fmt.Errorf("finding %s occurrences: %w", t, err)
	}

	out := make([]domain.Occurrence, 0, len(rows))
	for _, in := range rows {
		occ := domain.Occurrence{
			InsightID: in.ID,
			EntryID:   in.EntryID,
			Date:      in.EntryDate,
			Sentiment: in.Metadata.Sentiment(),
		}
		if m := in.Metadata.Emotion; m != nil {
			occ.Intensity = m.Intensity
			occ.Trigger = m.Trigger
		}
		if m := in.Metadata.Person; m != nil {
			occ.Context = m.Context
		}
		if in.Source != nil {
			occ.Quote = in.Source.Quote
		}
		out = append(out, occ)
	}
	return out, nil
}

// Aggregated summarises the most frequent emotions and people, optionally
// within a date range.
func (s *InsightService) Aggregated(ctx context.Context, dateRange *domain.DateRange) (*domain.AggregatedInsights, error) {
	emotions, err := s.insights.FindInsights(ctx, domain.InsightLookup{
		Types:     []domain.InsightType{domain.InsightEmotion},
		DateRange: dateRange,
	})
	if err != nil {
		return nil, fmt.Errorf("loading emotions: %w", err)
	}
	people, err := s.insights.FindInsights(ctx, domain.InsightLookup{
		Types:     []domain.InsightType{domain.InsightPerson},
		DateRange: dateRange,
	})
	if err != nil {
		return nil, fmt.Errorf("loading people: %w", err)
	}

	return &domain.AggregatedInsights{
		Emotions: summariseEmotions(emotions),
		People:   summarisePeople(people),
	}, nil
}

// RecentInsights lists the raw insights of one type, newest first, split
// into This Week, This Month and Older buckets. Empty buckets are left out.
func (s *InsightService) RecentInsights(
	ctx context.Context, t domain.InsightType, dateRange *domain.DateRange, limit int,
) ([]domain.InsightTimeGroup, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("insight type %q: %w", t, domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultRecentInsightsLimit
	}

	rows, err := s.insights.FindInsights(ctx, domain.InsightLookup{
		Types:     []domain.InsightType{t},
		DateRange: dateRange,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("finding %s insights: %w", t, err)
	}

	now := s.now()
	buckets := []domain.TimeBucket{domain.BucketThisWeek, domain.BucketThisMonth, domain.BucketOlder}
	byBucket := make(map[domain.TimeBucket][]domain.FlatInsight, len(buckets))
	for _, in := range rows {
		b := TimeBucketOf(in.EntryDate, now)
		byBucket[b] = append(byBucket[b], flattenInsight(in))
	}

	groups := make([]domain.InsightTimeGroup, 0, len(buckets))
	for _, b := range buckets {
		if len(byBucket[b]) > 0 {
			groups = append(groups, domain.InsightTimeGroup{Bucket: b, Insights: byBucket[b]})
		}
	}
	return groups, nil
}

// TimeBucketOf places an entry date relative to now. Weeks start on Sunday.
// This Week covers the current and the previous calendar week, and any
// date after today. This Month covers the rest of the current month.
// Unparseable dates are Older.
func TimeBucketOf(date string, now time.Time) domain.TimeBucket {
	d, err := time.ParseInLocation(entryDateLayout, date, now.Location())
	if err != nil {
		return domain.BucketOlder
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfLastWeek := today.AddDate(0, 0, -int(today.Weekday())-7)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	switch {
	case !d.Before(startOfLastWeek):
		return domain.BucketThisWeek
	case !d.Before(startOfMonth):
		return domain.BucketThisMonth
	default:
		return domain.BucketOlder
	}
}

// ==================== Entity grouping ====================

// GroupByEntity folds insight rows into groups keyed by type and
// case-insensitive name. Rows are expected newest first, but the scalar
// fields of a group only move to a row with a strictly later date, so the
// result does not depend on input order. Groups keep first-seen order.
func GroupByEntity(rows []domain.Insight) []domain.EntityGroup {
	index := make(map[string]int)
	groups := make([]domain.EntityGroup, 0)

	for _, in := range rows {
		key := string(in.Type) + ":" + strings.ToLower(in.Content)
		i, ok := index[key]
		if !ok {
			groups = append(groups, domain.EntityGroup{
				Type: in.Type,
				Name: in.Content,
			})
			i = len(groups) - 1
			index[key] = i
			applyRecent(&groups[i], in)
		} else if in.EntryDate > groups[i].MostRecentDate {
			applyRecent(&groups[i], in)
		}

		g := &groups[i]
		g.Count++
		if len(g.EntryIDs) < maxGroupEntryIDs && !slices.Contains(g.EntryIDs, in.EntryID) {
			g.EntryIDs = append(g.EntryIDs, in.EntryID)
		}
		if m := in.Metadata.Emotion; m != nil {
			g.TotalIntensity += m.Intensity
			g.IntensityCount++
		}
	}

	for i := range groups {
		g := &groups[i]
		if g.Type == domain.InsightEmotion && g.IntensityCount > 0 {
			avg := round1(float64(g.TotalIntensity) / float64(g.IntensityCount))
			g.AvgIntensity = &avg
		}
	}
	return groups
}

// applyRecent copies the scalar fields of a row onto its group.
func applyRecent(g *domain.EntityGroup, in domain.Insight) {
	g.MostRecentDate = in.EntryDate
	g.Sentiment = in.Metadata.Sentiment()
	g.Trigger, g.Relationship, g.Context, g.SourceQuote = "", "", "", ""
	if m := in.Metadata.Emotion; m != nil {
		g.Trigger = m.Trigger
	}
	if m := in.Metadata.Person; m != nil {
		g.Relationship = m.Relationship
		g.Context = m.Context
	}
	if in.Source != nil {
		g.SourceQuote = in.Source.Quote
	}
}

// SortGroups orders groups in place. A nil order keeps the fold order.
// Equal keys fall back to the name so the output is stable.
func SortGroups(groups []domain.EntityGroup, order *domain.OrderBy) {
	if order == nil || order.Field == "" || order.Field == domain.OrderByRelevance {
		return
	}
	asc := order.Ascending()

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		var c int
		switch order.Field {
		case domain.OrderByCount:
			c = cmp.Compare(a.Count, b.Count)
		case domain.OrderByDate:
			c = strings.Compare(a.MostRecentDate, b.MostRecentDate)
		case domain.OrderByIntensity:
			c = cmp.Compare(avgOrZero(a.AvgIntensity), avgOrZero(b.AvgIntensity))
		case domain.OrderByName:
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if c == 0 {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

// ==================== Aggregation ====================

func summariseEmotions(rows []domain.Insight) []domain.EmotionSummary {
	type acc struct {
		count    int
		total    int
		triggers []string
	}
	index := make(map[string]int)
	names := make([]string, 0)
	accs := make([]acc, 0)

	for _, in := range rows {
		key := strings.ToLower(in.Content)
		i, ok := index[key]
		if !ok {
			names = append(names, key)
			accs = append(accs, acc{})
			i = len(accs) - 1
			index[key] = i
		}
		a := &accs[i]
		a.count++
		intensity := domain.DefaultIntensity
		if m := in.Metadata.Emotion; m != nil {
			intensity = domain.ClampIntensity(m.Intensity)
			if m.Trigger != "" && len(a.triggers) < maxTriggersPerEmotion && !slices.Contains(a.triggers, m.Trigger) {
				a.triggers = append(a.triggers, m.Trigger)
			}
		}
		a.total += intensity
	}

	out := make([]domain.EmotionSummary, len(accs))
	for i, a := range accs {
		triggers := a.triggers
		if triggers == nil {
			triggers = []string{}
		}
		out[i] = domain.EmotionSummary{
			Emotion:      names[i],
			Count:        a.count,
			AvgIntensity: round1(float64(a.total) / float64(a.count)),
			Triggers:     triggers,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > maxAggregatedItems {
		out = out[:maxAggregatedItems]
	}
	return out
}

func summarisePeople(rows []domain.Insight) []domain.PersonSummary {
	index := make(map[string]int)
	out := make([]domain.PersonSummary, 0)

	for _, in := range rows {
		key := strings.ToLower(in.Content)
		if i, ok := index[key]; ok {
			out[i].Mentions++
			continue
		}
		summary := domain.PersonSummary{
			Name:      key,
			Mentions:  1,
			Sentiment: in.Metadata.Sentiment(),
		}
		if m := in.Metadata.Person; m != nil {
			summary.Relationship = m.Relationship
		}
		index[key] = len(out)
		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Mentions > out[j].Mentions })
	if len(out) > maxAggregatedItems {
		out = out[:maxAggregatedItems]
	}
	return out
}

// ==================== Helpers ====================

func flattenInsight(in domain.Insight) domain.FlatInsight {
	row := domain.FlatInsight{
		ID:        in.ID,
		EntryID:   in.EntryID,
		Date:      in.EntryDate,
		Type:      in.Type,
		Name:      in.Content,
		Sentiment: in.Metadata.Sentiment(),
	}
	if m := in.Metadata.Emotion; m != nil {
		row.Intensity = m.Intensity
		row.Trigger = m.Trigger
	}
	if m := in.Metadata.Person; m != nil {
		row.Relationship = m.Relationship
		row.Context = m.Context
	}
	if in.Source != nil {
		row.SourceQuote = in.Source.Quote
	}
	return row
}

// categoryTypes maps categories to insight types, dropping unknown and
// duplicate values.
func categoryTypes(categories []string) []domain.InsightType {
	var types []domain.InsightType
	for _, c := range categories {
		t, ok := domain.InsightTypeFromCategory(c)
		if !ok {
			continue
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types
}

// normaliseSentiments lowercases and trims sentiment filters to match the
// stored form. Blank values are dropped.
func normaliseSentiments(in []domain.Sentiment) []domain.Sentiment {
	var out []domain.Sentiment
	for _, s := range in {
		v := domain.Sentiment(strings.ToLower(strings.TrimSpace(string(s))))
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// clampLimit applies a default to non-positive limits and caps the rest.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func avgOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
