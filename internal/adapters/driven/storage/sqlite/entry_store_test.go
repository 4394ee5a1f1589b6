package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

// ==================== EntryStore Tests ====================

func TestEntryStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saved := saveTestEntry(t, store, "e1", "2024-02-10", "Went hiking with Tom.")

	entry, err := store.EntryStore().GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", entry.ID)
	assert.Equal(t, "2024-02-10", entry.Date)
	assert.Equal(t, "Went hiking with Tom.", entry.Content)
	assert.WithinDuration(t, saved.CreatedAt, entry.CreatedAt, time.Millisecond)
}

func TestEntryStore_Get_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.EntryStore().GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryStore_Save_InvalidInput(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	assert.ErrorIs(t, store.EntryStore().SaveEntry(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.EntryStore().SaveEntry(ctx, &domain.JournalEntry{ID: "x"}), domain.ErrInvalidInput)
}

func TestEntryStore_Save_UpdatePropagatesDate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "e1", "2024-02-10", "original text")

	require.NoError(t, store.ChunkStore().SaveChunks(ctx, []domain.EmbeddingChunk{
		{ID: "e1_0", EntryID: "e1", EntryDate: "2024-02-10", Content: "original text", Embedding: []float32{1, 0}},
	}))
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		{ID: "i1", EntryID: "e1", EntryDate: "2024-02-10", Type: domain.InsightEmotion, Content: "joy"},
	}))

	saveTestEntry(t, store, "e1", "2024-02-11", "edited text")

	entry, err := store.EntryStore().GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-11", entry.Date)
	assert.Equal(t, "edited text", entry.Content)

	chunks, err := store.ChunkStore().ListChunks(ctx, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "2024-02-11", chunks[0].EntryDate)

	insights, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{})
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "2024-02-11", insights[0].EntryDate)
}

func TestEntryStore_GetEntries(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "a", "2024-01-01", "first")
	saveTestEntry(t, store, "b", "2024-01-03", "third")
	saveTestEntry(t, store, "c", "2024-01-02", "second")

	entries, err := store.EntryStore().GetEntries(ctx, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "c", entries[1].ID)
	assert.Equal(t, "a", entries[2].ID)

	empty, err := store.EntryStore().GetEntries(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEntryStore_ListEntries(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		saveTestEntry(t, store, fmt.Sprintf("e%d", i), fmt.Sprintf("2024-01-0%d", i), "entry text")
	}
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		{ID: "i1", EntryID: "e2", EntryDate: "2024-01-02", Type: domain.InsightPerson, Content: "Tom"},
	}))

	t.Run("newest first by default", func(t *testing.T) {
		entries, err := store.EntryStore().ListEntries(ctx, domain.EntryListOptions{})
		require.NoError(t, err)
		require.Len(t, entries, 5)
		assert.Equal(t, "e5", entries[0].ID)
	})

	t.Run("ascending with limit", func(t *testing.T) {
		entries, err := store.EntryStore().ListEntries(ctx, domain.EntryListOptions{Ascending: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "e1", entries[0].ID)
		assert.Equal(t, "e2", entries[1].ID)
	})

	t.Run("date range inclusive", func(t *testing.T) {
		entries, err := store.EntryStore().ListEntries(ctx, domain.EntryListOptions{
			DateRange: &domain.DateRange{Start: "2024-01-02", End: "2024-01-04"},
		})
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("has insights", func(t *testing.T) {
		yes, no := true, false
		with, err := store.EntryStore().ListEntries(ctx, domain.EntryListOptions{HasInsights: &yes})
		require.NoError(t, err)
		require.Len(t, with, 1)
		assert.Equal(t, "e2", with[0].ID)

		without, err := store.EntryStore().ListEntries(ctx, domain.EntryListOptions{HasInsights: &no})
		require.NoError(t, err)
		assert.Len(t, without, 4)
	})
}

func TestEntryStore_ListUnembedded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	long := "This entry is long enough to be worth embedding for semantic search later."
	saveTestEntry(t, store, "short", "2024-01-01", "too short")
	saveTestEntry(t, store, "embedded", "2024-01-02", long)
	saveTestEntry(t, store, "pending", "2024-01-03", long)

	require.NoError(t, store.ChunkStore().SaveChunks(ctx, []domain.EmbeddingChunk{
		{ID: "embedded_0", EntryID: "embedded", EntryDate: "2024-01-02", Content: long, Embedding: []float32{1}},
	}))

	entries, err := store.EntryStore().ListUnembedded(ctx, 50, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pending", entries[0].ID)

	// A cutoff before the entry was written excludes it.
	entries, err = store.EntryStore().ListUnembedded(ctx, 50, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntryStore_DeleteEntry_RemovesDerivedRows(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "e1", "2024-01-01", "a day at the beach with Anna")
	saveTestEntry(t, store, "e2", "2024-01-02", "another day")

	require.NoError(t, store.ChunkStore().SaveChunks(ctx, []domain.EmbeddingChunk{
		{ID: "e1_0", EntryID: "e1", EntryDate: "2024-01-01", Content: "x", Embedding: []float32{1}},
	}))
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		{ID: "i1", EntryID: "e1", EntryDate: "2024-01-01", Type: domain.InsightPerson, Content: "Anna"},
	}))
	_, err := store.QueueStore().Enqueue(ctx, "e1")
	require.NoError(t, err)

	require.NoError(t, store.EntryStore().DeleteEntry(ctx, "e1"))

	_, err = store.EntryStore().GetEntry(ctx, "e1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	has, err := store.ChunkStore().HasChunks(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = store.InsightStore().HasInsights(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.QueueStore().GetQueueItemByEntry(ctx, "e1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hits, err := store.LexicalIndex().SearchLexical(ctx, "beach", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, store.EntryStore().DeleteEntry(ctx, "e1"), domain.ErrNotFound)

	count, err := store.EntryStore().CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// ==================== LexicalIndex Tests ====================

func TestLexicalIndex_Search(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "e1", "2024-01-01", "Morning coffee with Kasia at the new café.")
	saveTestEntry(t, store, "e2", "2024-01-05", "Long run in the park, felt great.")
	saveTestEntry(t, store, "e3", "2024-02-01", "Coffee again, then a quiet evening reading.")

	t.Run("matches terms", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, "coffee", 10, nil)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		ids := []string{hits[0].EntryID, hits[1].EntryID}
		assert.ElementsMatch(t, []string{"e1", "e3"}, ids)
		assert.LessOrEqual(t, hits[0].Rank, hits[1].Rank)
	})

	t.Run("terms are OR-joined", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, "park reading", 10, nil)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("date range", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, "coffee", 10,
			&domain.DateRange{Start: "2024-01-15", End: "2024-02-28"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "e3", hits[0].EntryID)
		assert.Equal(t, "2024-02-01", hits[0].Date)
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, "coffee", 1, nil)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("diacritics folded", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, "cafe", 10, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "e1", hits[0].EntryID)
	})

	t.Run("quotes and operators are neutralised", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, `"coffee" AND (park`, 10, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, hits)
	})

	t.Run("empty query", func(t *testing.T) {
		hits, err := store.LexicalIndex().SearchLexical(ctx, `  " ' `, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestLexicalIndex_FollowsUpdates(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	saveTestEntry(t, store, "e1", "2024-01-01", "rainy day indoors")
	saveTestEntry(t, store, "e1", "2024-01-01", "sunny day at the lake")

	hits, err := store.LexicalIndex().SearchLexical(ctx, "rainy", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.LexicalIndex().SearchLexical(ctx, "lake", 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"coffee", `"coffee"`},
		{"coffee  with kasia", `"coffee" OR "with" OR "kasia"`},
		{`"quoted" it's`, `"quoted" OR "it" OR "s"`},
		{"( ) -", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchQuery(tt.input))
		})
	}
}
