package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// mockSearchService returns one hybrid result per query.
type mockSearchService struct {
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) HybridSearch(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return []domain.SearchResult{
		{
			ID:      "entry-1",
			EntryID: "entry-1",
			Date:    "2026-03-14",
			Content: "Walked along the river with Sam.",
			Snippet: "Walked along the river with Sam.",
			Score:   0.0325,
			Source:  domain.SourceHybrid,
		},
	}, nil
}

// mockSearchServiceError fails every search.
type mockSearchServiceError struct{}

func (m *mockSearchServiceError) HybridSearch(
	_ context.Context, _ string, _ domain.SearchOptions,
) ([]domain.SearchResult, error) {
	return nil, errors.New("index unavailable")
}

// mockEntryService keeps entries in a map.
type mockEntryService struct {
	entries   map[string]domain.JournalEntry
	lastQuery domain.EntryQuery
	saved     []domain.JournalEntry
	deleted   []string
	err       error
}

func newMockEntryService(entries ...domain.JournalEntry) *mockEntryService {
	m := &mockEntryService{entries: make(map[string]domain.JournalEntry)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockEntryService) QueryEntries(_ context.Context, query domain.EntryQuery) ([]domain.EntrySummary, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.EntrySummary, 0, len(m.entries))
	for _, e := range m.entries {
		s := domain.EntrySummary{ID: e.ID, Date: e.Date, Preview: e.Content}
		if query.ReturnFullText {
			s.Content = e.Content
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockEntryService) GetEntriesByIDs(_ context.Context, ids []string) ([]domain.JournalEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.JournalEntry
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEntryService) SaveEntry(_ context.Context, entry *domain.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	if entry.ID == "" || entry.Date == "" {
		return domain.ErrInvalidInput
	}
	m.saved = append(m.saved, *entry)
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockEntryService) DeleteEntry(_ context.Context, id string) error {
	if _, ok := m.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.entries, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockIndexService records embedding calls.
type mockIndexService struct {
	embedded   []string
	staleCalls int
	cleared    bool
	stats      domain.EmbeddingStats
}

func (m *mockIndexService) EmbedEntry(_ context.Context, entryID, _, _ string) (int, error) {
	m.embedded = append(m.embedded, entryID)
	return 2, nil
}

func (m *mockIndexService) SearchByVector(
	_ context.Context, _ []float32, _ domain.VectorSearchOptions,
) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (m *mockIndexService) DeleteEntryEmbeddings(_ context.Context, _ string) error {
	return nil
}

func (m *mockIndexService) ClearAll(_ context.Context) error {
	m.cleared = true
	return nil
}

func (m *mockIndexService) Stats(_ context.Context) (*domain.EmbeddingStats, error) {
	s := m.stats
	return &s, nil
}

func (m *mockIndexService) IsEntryEmbedded(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockIndexService) EmbedAll(
	_ context.Context, onProgress func(domain.EmbedProgress),
) (*domain.EmbedReport, error) {
	if onProgress != nil {
		onProgress(domain.EmbedProgress{Current: 1, Total: 2, EntryID: "entry-1", ChunkCount: 3})
		onProgress(domain.EmbedProgress{Current: 2, Total: 2, EntryID: "entry-2", ChunkCount: 1})
	}
	return &domain.EmbedReport{Success: 1, Failed: 1, Errors: []string{"entry-2: provider timeout"}}, nil
}

func (m *mockIndexService) EmbedStale(_ context.Context, _ time.Duration) (*domain.EmbedReport, error) {
	m.staleCalls++
	return &domain.EmbedReport{Success: 3, Errors: []string{}}, nil
}

// mockAnalysisService records queue operations.
type mockAnalysisService struct {
	queued      []string
	reanalyzed  []string
	retried     []string
	dismissed   []string
	processErr  error
	failed      []domain.FailedItem
	alreadyDone bool
	cleared     bool
}

func (m *mockAnalysisService) QueueEntry(_ context.Context, entryID string) (bool, error) {
	m.queued = append(m.queued, entryID)
	return !m.alreadyDone, nil
}

func (m *mockAnalysisService) QueueAll(_ context.Context) (int, error) {
	return 4, nil
}

func (m *mockAnalysisService) Reanalyze(_ context.Context, entryID string) error {
	m.reanalyzed = append(m.reanalyzed, entryID)
	return nil
}

func (m *mockAnalysisService) Process(
	_ context.Context, onProgress func(domain.Progress),
) (*domain.ProcessResult, error) {
	if m.processErr != nil {
		return nil, m.processErr
	}
	if onProgress != nil {
		onProgress(domain.Progress{Current: 1, Total: 1, EntryID: "entry-1", Success: 1})
	}
	return &domain.ProcessResult{Success: 1}, nil
}

func (m *mockAnalysisService) Failed(_ context.Context) ([]domain.FailedItem, error) {
	return m.failed, nil
}

func (m *mockAnalysisService) Retry(_ context.Context, id string) error {
	m.retried = append(m.retried, id)
	return nil
}

func (m *mockAnalysisService) Dismiss(_ context.Context, id string) error {
	m.dismissed = append(m.dismissed, id)
	return nil
}

func (m *mockAnalysisService) RetryAllFailed(_ context.Context) (int, error) {
	return len(m.failed), nil
}

func (m *mockAnalysisService) DismissAllFailed(_ context.Context) (int, error) {
	return len(m.failed), nil
}

func (m *mockAnalysisService) ClearCompleted(_ context.Context) (int, error) {
	return 7, nil
}

func (m *mockAnalysisService) ClearInsights(_ context.Context) (int, error) {
	m.cleared = true
	return 12, nil
}

func (m *mockAnalysisService) QueueStatus(_ context.Context, entryID string) (*domain.QueueItem, error) {
	switch entryID {
	case "entry-1":
		return &domain.QueueItem{ID: "q-1", EntryID: entryID, Status: domain.QueueStatusCompleted}, nil
	case "entry-2":
		return &domain.QueueItem{
			ID: "q-2", EntryID: entryID, Status: domain.QueueStatusPending,
			RetryCount: domain.MaxRetryCount, Error: "provider timeout",
		}, nil
	default:
		return nil, fmt.Errorf("getting queue item for %s: %w", entryID, domain.ErrNotFound)
	}
}

func (m *mockAnalysisService) Stats(_ context.Context) (*domain.AnalyticsStats, error) {
	return &domain.AnalyticsStats{
		TotalInsights: 5,
		InsightsByType: map[domain.InsightType]int{
			domain.InsightEmotion: 3,
			domain.InsightPerson:  2,
		},
		EntriesAnalyzed: 2,
		EntriesPending:  1,
	}, nil
}

// mockInsightService returns canned insights and records queries.
type mockInsightService struct {
	lastFilter domain.InsightFilter
	lastQuery  domain.InsightQuery
	lastRange  *domain.DateRange
	lastName   string
	lastType   domain.InsightType
	lastLimit  int
}

func (m *mockInsightService) GetFilteredInsights(
	_ context.Context, filter domain.InsightFilter,
) ([]domain.Insight, error) {
	m.lastFilter = filter
	return []domain.Insight{
		{
			ID:        "ins-1",
			EntryID:   "entry-1",
			EntryDate: "2026-03-14",
			Type:      domain.InsightEmotion,
			Content:   "calm",
			Metadata: domain.InsightMetadata{
				Emotion: &domain.EmotionMetadata{Intensity: 6, Sentiment: domain.SentimentPositive},
			},
		},
		{
			ID:        "ins-2",
			EntryID:   "entry-1",
			EntryDate: "2026-03-14",
			Type:      domain.InsightPerson,
			Content:   "Sam",
			Metadata: domain.InsightMetadata{
				Person: &domain.PersonMetadata{Relationship: "friend", Sentiment: domain.SentimentPositive},
			},
		},
	}, nil
}

func (m *mockInsightService) QueryInsights(
	_ context.Context, query domain.InsightQuery,
) (*domain.InsightQueryResult, error) {
	m.lastQuery = query
	if query.GroupBy == domain.GroupByEntity {
		avg := 6.5
		return &domain.InsightQueryResult{
			Groups: []domain.EntityGroup{
				{Type: domain.InsightEmotion, Name: "calm", Count: 2, MostRecentDate: "2026-03-14", AvgIntensity: &avg},
			},
			Total: 1,
		}, nil
	}
	return &domain.InsightQueryResult{
		Insights: []domain.FlatInsight{
			{ID: "ins-2", Date: "2026-03-14", Type: domain.InsightPerson, Name: "Sam", Sentiment: domain.SentimentPositive},
		},
		Total: 1,
	}, nil
}

func (m *mockInsightService) EmotionOccurrences(_ context.Context, emotion string) ([]domain.Occurrence, error) {
	m.lastName = emotion
	if emotion != "calm" {
		return nil, nil
	}
	return []domain.Occurrence{
		{InsightID: "ins-1", EntryID: "entry-1", Date: "2026-03-14", Sentiment: domain.SentimentPositive,
			Intensity: 6, Trigger: "the river walk", Quote: "felt calm by the water"},
	}, nil
}

func (m *mockInsightService) PersonOccurrences(_ context.Context, name string) ([]domain.Occurrence, error) {
	m.lastName = name
	return []domain.Occurrence{
		{InsightID: "ins-2", EntryID: "entry-1", Date: "2026-03-14", Sentiment: domain.SentimentPositive,
			Context: "walked together"},
	}, nil
}

func (m *mockInsightService) RecentInsights(
	_ context.Context, t domain.InsightType, dateRange *domain.DateRange, limit int,
) ([]domain.InsightTimeGroup, error) {
	m.lastType = t
	m.lastRange = dateRange
	m.lastLimit = limit
	if t == domain.InsightPerson {
		return nil, nil
	}
	return []domain.InsightTimeGroup{
		{Bucket: domain.BucketThisWeek, Insights: []domain.FlatInsight{
			{ID: "ins-1", Date: "2026-03-14", Type: domain.InsightEmotion, Name: "calm",
				Sentiment: domain.SentimentPositive, Intensity: 6},
		}},
		{Bucket: domain.BucketOlder, Insights: []domain.FlatInsight{
			{ID: "ins-3", Date: "2025-11-02", Type: domain.InsightEmotion, Name: "restless",
				Sentiment: domain.SentimentNegative, Intensity: 4},
		}},
	}, nil
}

func (m *mockInsightService) Aggregated(
	_ context.Context, dateRange *domain.DateRange,
) (*domain.AggregatedInsights, error) {
	m.lastRange = dateRange
	return &domain.AggregatedInsights{
		Emotions: []domain.EmotionSummary{{Emotion: "calm", Count: 2, AvgIntensity: 6.5, Triggers: []string{"the river walk"}}},
		People:   []domain.PersonSummary{{Name: "Sam", Mentions: 1, Relationship: "friend", Sentiment: domain.SentimentPositive}},
	}, nil
}

// mockScheduler blocks in Start until the context is cancelled.
type mockScheduler struct {
	started bool
	ran     []string
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	return nil
}

func (m *mockScheduler) RunTask(_ context.Context, taskID string) (*domain.TaskResult, error) {
	if taskID != domain.TaskIDEmbedStale && taskID != domain.TaskIDProcessQueue {
		return nil, fmt.Errorf("unknown task %q: %w", taskID, domain.ErrInvalidInput)
	}
	m.ran = append(m.ran, taskID)
	now := time.Now()
	return &domain.TaskResult{TaskID: taskID, StartedAt: now, EndedAt: now, Success: true, ItemsProcessed: 3}, nil
}

// mockSettingsService serves fixed settings.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	embedding   []string
	extraction  []string
}

func newMockSettingsService() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.DataDir = "/tmp/diarymem-test"
	s.Embedding.Provider = domain.AIProviderOpenAI
	s.Embedding.Model = "text-embedding-3-small"
	s.Embedding.APIKey = "sk-test-embedding-key"
	return &mockSettingsService{settings: s}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(provider), model, apiKey}
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetExtractionProvider(provider domain.AIProvider, model, apiKey string) error {
	m.extraction = []string{string(provider), model, apiKey}
	m.settings.Extraction.Provider = provider
	m.settings.Extraction.Model = model
	m.settings.Extraction.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	return domain.DefaultSchedulerConfig()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateExtractionConfig() error {
	return m.validateErr
}

// mockConfigStore is an in-memory driven.ConfigStore.
type mockConfigStore struct {
	values     map[string]any
	overridden map[string]bool
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any), overridden: make(map[string]bool)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if v, ok := m.values[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func (m *mockConfigStore) GetInt(_ string) int { return 0 }

func (m *mockConfigStore) GetBool(_ string) bool { return false }

func (m *mockConfigStore) GetStringSlice(_ string) []string { return nil }

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string { return "/tmp/diarymem-test/config.toml" }

func (m *mockConfigStore) Overridden(key string) bool { return m.overridden[key] }

// testServices bundles the mocks installed by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	entries   *mockEntryService
	index     *mockIndexService
	search    *mockSearchService
	analysis  *mockAnalysisService
	insights  *mockInsightService
	scheduler *mockScheduler
	config    *mockConfigStore
}

var lastTestServices *testServices

// setupTestServices installs fresh mocks and returns a restore func.
// The installed mocks are available through lastTestServices.
func setupTestServices() func() {
	old := Services{
		Settings:  settingsService,
		Entries:   entryService,
		Index:     indexService,
		Search:    searchService,
		Analysis:  analysisService,
		Insights:  insightService,
		Scheduler: scheduler,
		Config:    configStore,
	}

	ts := &testServices{
		settings: newMockSettingsService(),
		entries: newMockEntryService(
			domain.JournalEntry{ID: "entry-1", Date: "2026-03-14", Content: "Walked along the river with Sam."},
		),
		index:     &mockIndexService{stats: domain.EmbeddingStats{TotalChunks: 4, EntriesWithEmbeddings: 1, TotalEntries: 3}},
		search:    &mockSearchService{},
		analysis:  &mockAnalysisService{},
		insights:  &mockInsightService{},
		scheduler: &mockScheduler{},
		config:    newMockConfigStore(),
	}
	lastTestServices = ts

	SetServices(Services{
		Settings:  ts.settings,
		Entries:   ts.entries,
		Index:     ts.index,
		Search:    ts.search,
		Analysis:  ts.analysis,
		Insights:  ts.insights,
		Scheduler: ts.scheduler,
		Config:    ts.config,
	})

	return func() {
		SetServices(old)
		lastTestServices = nil
	}
}
