package mcp

import (
	"context"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// mockInsightService is a mock implementation of driving.InsightService.
type mockInsightService struct {
	result    *domain.InsightQueryResult
	lastQuery domain.InsightQuery
	calls     int
	err       error
}

func (m *mockInsightService) GetFilteredInsights(_ context.Context, _ domain.InsightFilter) ([]domain.Insight, error) {
	return nil, m.err
}

func (m *mockInsightService) QueryInsights(_ context.Context, query domain.InsightQuery) (*domain.InsightQueryResult, error) {
	m.calls++
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.InsightQueryResult{}, nil
	}
	return m.result, nil
}

func (m *mockInsightService) EmotionOccurrences(_ context.Context, _ string) ([]domain.Occurrence, error) {
	return nil, m.err
}

func (m *mockInsightService) PersonOccurrences(_ context.Context, _ string) ([]domain.Occurrence, error) {
	return nil, m.err
}

func (m *mockInsightService) RecentInsights(
	_ context.Context, _ domain.InsightType, _ *domain.DateRange, _ int,
) ([]domain.InsightTimeGroup, error) {
	return nil, m.err
}

func (m *mockInsightService) Aggregated(_ context.Context, _ *domain.DateRange) (*domain.AggregatedInsights, error) {
	return &domain.AggregatedInsights{}, m.err
}

// mockEntryService is a mock implementation of driving.EntryService.
type mockEntryService struct {
	summaries []domain.EntrySummary
	entries   []domain.JournalEntry
	lastQuery domain.EntryQuery
	lastIDs   []string
	calls     int
	err       error
}

func (m *mockEntryService) QueryEntries(_ context.Context, query domain.EntryQuery) ([]domain.EntrySummary, error) {
	m.calls++
	m.lastQuery = query
	return m.summaries, m.err
}

func (m *mockEntryService) GetEntriesByIDs(_ context.Context, ids []string) ([]domain.JournalEntry, error) {
	m.calls++
	m.lastIDs = ids
	return m.entries, m.err
}

func (m *mockEntryService) SaveEntry(_ context.Context, _ *domain.JournalEntry) error {
	return m.err
}

func (m *mockEntryService) DeleteEntry(_ context.Context, _ string) error {
	return m.err
}

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	stats *domain.AnalyticsStats
	err   error
}

func (m *mockAnalysisService) QueueEntry(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

func (m *mockAnalysisService) QueueAll(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAnalysisService) Reanalyze(_ context.Context, _ string) error {
	return m.err
}

func (m *mockAnalysisService) Process(_ context.Context, _ func(domain.Progress)) (*domain.ProcessResult, error) {
	return &domain.ProcessResult{}, m.err
}

func (m *mockAnalysisService) Failed(_ context.Context) ([]domain.FailedItem, error) {
	return nil, m.err
}

func (m *mockAnalysisService) Retry(_ context.Context, _ string) error {
	return m.err
}

func (m *mockAnalysisService) Dismiss(_ context.Context, _ string) error {
	return m.err
}

func (m *mockAnalysisService) RetryAllFailed(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAnalysisService) DismissAllFailed(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAnalysisService) ClearCompleted(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAnalysisService) ClearInsights(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAnalysisService) QueueStatus(_ context.Context, _ string) (*domain.QueueItem, error) {
	return nil, m.err
}

func (m *mockAnalysisService) Stats(_ context.Context) (*domain.AnalyticsStats, error) {
	return m.stats, m.err
}

// newTestServer builds a server over the given mocks.
func newTestServer(insights *mockInsightService, entries *mockEntryService) *Server {
	server, err := NewServer(&Ports{Insights: insights, Entries: entries})
	if err != nil {
		panic(err)
	}
	return server
}
