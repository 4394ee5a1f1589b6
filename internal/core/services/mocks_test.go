package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// newTestStore opens a real sqlite store in a temp dir.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// addEntry stores an entry and returns it.
func addEntry(t *testing.T, store *sqlite.Store, id, date, content string) *domain.JournalEntry {
	t.Helper()
	entry := &domain.JournalEntry{ID: id, Date: date, Content: content}
	require.NoError(t, store.EntryStore().SaveEntry(context.Background(), entry))
	return entry
}

// backdate moves an entry's updated_at into the past.
func backdate(t *testing.T, store *sqlite.Store, id string, age time.Duration) {
	t.Helper()
	entry, err := store.EntryStore().GetEntry(context.Background(), id)
	require.NoError(t, err)
	entry.UpdatedAt = time.Now().Add(-age)
	require.NoError(t, store.EntryStore().SaveEntry(context.Background(), entry))
}

// saveInsights stores insights directly.
func saveInsights(t *testing.T, store *sqlite.Store, insights ...domain.Insight) {
	t.Helper()
	require.NoError(t, store.InsightStore().SaveInsights(context.Background(), insights))
}

func emotionRow(id, entryID, date, label string, intensity int, sentiment domain.Sentiment, trigger string) domain.Insight {
	return domain.Insight{
		ID: id, EntryID: entryID, EntryDate: date, Type: domain.InsightEmotion, Content: label,
		Metadata: domain.InsightMetadata{Emotion: &domain.EmotionMetadata{
			Intensity: intensity, Trigger: trigger, Sentiment: sentiment,
		}},
		CreatedAt: time.Now(),
	}
}

func personRow(id, entryID, date, name, relationship string, sentiment domain.Sentiment) domain.Insight {
	return domain.Insight{
		ID: id, EntryID: entryID, EntryDate: date, Type: domain.InsightPerson, Content: name,
		Metadata: domain.InsightMetadata{Person: &domain.PersonMetadata{
			Relationship: relationship, Sentiment: sentiment, Context: "lunch",
		}},
		CreatedAt: time.Now(),
	}
}

// ==================== Embedding ====================

// mockEmbedder implements driven.EmbeddingService with a keyword vocabulary:
// each dimension counts one vocabulary word in the text.
type mockEmbedder struct {
	mu      sync.Mutex
	vocab   []string
	err     error
	failOn  string
	short   bool
	calls   int
	batches [][]string
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder(vocab ...string) *mockEmbedder {
	return &mockEmbedder{vocab: vocab}
}

func (m *mockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(m.vocab)+1)
	for i, word := range m.vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	// Constant component keeps every vector non-zero.
	vec[len(m.vocab)] = 0.01
	return vec
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return nil, errors.New("embedding failed")
		}
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, m.vector(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return len(m.vocab) + 1 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.err }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ==================== Extraction ====================

// mockExtractor implements driven.InsightExtractor. Responses are keyed by a
// substring of the entry content; unmatched content yields empty arrays.
type mockExtractor struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
	onExtract func()
}

var _ driven.InsightExtractor = (*mockExtractor)(nil)

func newMockExtractor() *mockExtractor {
	return &mockExtractor{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (m *mockExtractor) Extract(ctx context.Context, content, _ string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, content)
	hook := m.onExtract
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, err := range m.errs {
		if strings.Contains(content, key) {
			return "", err
		}
	}
	for key, resp := range m.responses {
		if strings.Contains(content, key) {
			return resp, nil
		}
	}
	return `{"emotions":[],"people":[]}`, nil
}

func (m *mockExtractor) ModelName() string            { return "mock-extract" }
func (m *mockExtractor) Ping(_ context.Context) error { return nil }
func (m *mockExtractor) Close() error                 { return nil }

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// substringMatcher implements driven.ApproximateMatcher with exact matching.
type substringMatcher struct{}

func (substringMatcher) Search(needle, haystack []rune, _ int) []driven.ApproxMatch {
	var out []driven.ApproxMatch
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			out = append(out, driven.ApproxMatch{Start: i, End: i + len(needle)})
		}
	}
	return out
}

// fixedMatcher returns canned matches regardless of input.
type fixedMatcher struct {
	matches []driven.ApproxMatch
}

func (m fixedMatcher) Search(_, _ []rune, _ int) []driven.ApproxMatch {
	return m.matches
}

// ==================== Search ====================

// mockSearchService implements driving.SearchService.
type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) HybridSearch(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.results), nil
}

// fixedChunker implements driven.Chunker with a paragraph split.
type fixedChunker struct{}

func (fixedChunker) Chunk(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ==================== Settings ====================

// mockConfigStore implements driven.ConfigStore over a map.
type mockConfigStore struct {
	values  map[string]any
	setErr  error
	setKeys []string
}

var _ driven.ConfigStore = (*mockConfigStore)(nil)

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setKeys = append(m.setKeys, key)
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "memory"
}

// mockAIValidator implements driven.AIConfigValidator.
type mockAIValidator struct {
	embeddingErr  error
	extractionErr error
	lastEmbedding *domain.EmbeddingSettings
}

func (m *mockAIValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	m.lastEmbedding = config
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateExtraction(_ *domain.ExtractionSettings) error {
	return m.extractionErr
}
