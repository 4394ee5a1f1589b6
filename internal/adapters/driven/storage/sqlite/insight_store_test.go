package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

func emotionInsight(id, entryID, date, label string, intensity int, sentiment domain.Sentiment) domain.Insight {
	return domain.Insight{
		ID: id, EntryID: entryID, EntryDate: date, Type: domain.InsightEmotion, Content: label,
		Metadata: domain.InsightMetadata{Emotion: &domain.EmotionMetadata{
			Intensity: intensity, Trigger: "work", Sentiment: sentiment,
		}},
	}
}

func personInsight(id, entryID, date, name string, sentiment domain.Sentiment) domain.Insight {
	return domain.Insight{
		ID: id, EntryID: entryID, EntryDate: date, Type: domain.InsightPerson, Content: name,
		Metadata: domain.InsightMetadata{Person: &domain.PersonMetadata{
			Relationship: "friend", Sentiment: sentiment, Context: "lunch",
		}},
	}
}

// ==================== InsightStore Tests ====================

func TestInsightStore_MetadataRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	emotion := emotionInsight("i1", "e1", "2024-01-01", "anxious", 7, domain.SentimentNegative)
	emotion.Source = &domain.SourceRange{Start: 10, End: 24, Quote: "felt so anxious"}
	person := personInsight("i2", "e1", "2024-01-01", "Kasia", domain.SentimentTense)

	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{emotion, person}))

	found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{})
	require.NoError(t, err)
	require.Len(t, found, 2)

	byID := map[string]domain.Insight{}
	for _, in := range found {
		byID[in.ID] = in
	}

	gotEmotion := byID["i1"]
	require.NotNil(t, gotEmotion.Metadata.Emotion)
	assert.Nil(t, gotEmotion.Metadata.Person)
	assert.Equal(t, 7, gotEmotion.Metadata.Emotion.Intensity)
	assert.Equal(t, "work", gotEmotion.Metadata.Emotion.Trigger)
	assert.Equal(t, domain.SentimentNegative, gotEmotion.Metadata.Emotion.Sentiment)
	require.NotNil(t, gotEmotion.Source)
	assert.Equal(t, domain.SourceRange{Start: 10, End: 24, Quote: "felt so anxious"}, *gotEmotion.Source)

	gotPerson := byID["i2"]
	require.NotNil(t, gotPerson.Metadata.Person)
	assert.Equal(t, "friend", gotPerson.Metadata.Person.Relationship)
	assert.Equal(t, "lunch", gotPerson.Metadata.Person.Context)
	assert.Equal(t, domain.SentimentTense, gotPerson.Metadata.Person.Sentiment)
	assert.Nil(t, gotPerson.Source)
}

func TestInsightStore_SaveNormalisesMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	in := emotionInsight("i1", "e1", "2024-01-01", "calm", 0, domain.Sentiment("Tense"))
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{in}))

	found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.DefaultIntensity, found[0].Metadata.Emotion.Intensity)
	assert.Equal(t, domain.SentimentNeutral, found[0].Metadata.Emotion.Sentiment)
}

func TestInsightStore_SaveRejectsUnknownType(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.InsightStore().SaveInsights(context.Background(), []domain.Insight{
		{ID: "i1", EntryID: "e1", EntryDate: "2024-01-01", Type: "event", Content: "party"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInsightStore_FindInsights_Filters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		personInsight("p1", "e1", "2024-01-01", "Kasia", domain.SentimentPositive),
		personInsight("p2", "e2", "2024-01-05", "kasia", domain.SentimentNegative),
		personInsight("p3", "e3", "2024-02-01", "Kasia M.", domain.SentimentNeutral),
		personInsight("p4", "e3", "2024-02-01", "Tom", domain.SentimentPositive),
		emotionInsight("m1", "e1", "2024-01-01", "happy", 8, domain.SentimentPositive),
		emotionInsight("m2", "e4", "2024-03-01", "100%_done", 3, domain.SentimentNeutral),
	}))

	t.Run("type", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{
			Types: []domain.InsightType{domain.InsightEmotion},
		})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("partial name is case insensitive", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{Name: "KASIA"})
		require.NoError(t, err)
		assert.Len(t, found, 3)
		assert.Equal(t, "p3", found[0].ID)
	})

	t.Run("exact name", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{Name: "kasia", ExactName: true})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "p2", found[0].ID)
		assert.Equal(t, "p1", found[1].ID)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{Name: "%_"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "m2", found[0].ID)
	})

	t.Run("sentiment", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{
			Sentiments: []domain.Sentiment{domain.SentimentPositive},
		})
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("date range", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{
			DateRange: &domain.DateRange{Start: "2024-01-02", End: "2024-02-01"},
		})
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("entry ids", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{EntryIDs: []string{"e3"}})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		none, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{EntryIDs: []string{}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("limit and ordering", func(t *testing.T) {
		found, err := store.InsightStore().FindInsights(ctx, domain.InsightLookup{Limit: 1})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "2024-03-01", found[0].EntryDate)
	})
}

func TestInsightStore_DeleteAndHas(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	insights := store.InsightStore()
	require.NoError(t, insights.SaveInsights(ctx, []domain.Insight{
		personInsight("p1", "e1", "2024-01-01", "Tom", domain.SentimentPositive),
	}))

	has, err := insights.HasInsights(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, insights.DeleteInsights(ctx, "e1"))

	has, err = insights.HasInsights(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInsightStore_DeleteAllInsights(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	insights := store.InsightStore()
	require.NoError(t, insights.SaveInsights(ctx, []domain.Insight{
		personInsight("p1", "e1", "2024-01-01", "Tom", domain.SentimentPositive),
		emotionInsight("m1", "e2", "2024-01-02", "calm", 4, domain.SentimentPositive),
	}))

	n, err := insights.DeleteAllInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := insights.FindInsights(ctx, domain.InsightLookup{})
	require.NoError(t, err)
	assert.Empty(t, found)

	n, err = insights.DeleteAllInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsightStore_TypeColumn(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		emotionInsight("m1", "e1", "2024-01-02", "calm", 4, domain.SentimentPositive),
	}))

	var insightType string
	err := store.db.QueryRowContext(ctx,
		"SELECT insight_type FROM journal_insights WHERE id = ?", "m1").Scan(&insightType)
	require.NoError(t, err)
	assert.Equal(t, "emotion", insightType)
}

func TestInsightStore_Stats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	empty, err := store.InsightStore().InsightStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalInsights)
	assert.Nil(t, empty.LastAnalyzedAt)

	created := time.Now().Add(-time.Minute)
	latest := personInsight("p1", "e1", "2024-01-01", "Tom", domain.SentimentPositive)
	latest.CreatedAt = created
	require.NoError(t, store.InsightStore().SaveInsights(ctx, []domain.Insight{
		latest,
		emotionInsight("m1", "e1", "2024-01-01", "happy", 8, domain.SentimentPositive),
		emotionInsight("m2", "e2", "2024-01-02", "sad", 4, domain.SentimentNegative),
	}))

	stats, err := store.InsightStore().InsightStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalInsights)
	assert.Equal(t, 2, stats.InsightsByType[domain.InsightEmotion])
	assert.Equal(t, 1, stats.InsightsByType[domain.InsightPerson])
	assert.Equal(t, 2, stats.EntriesAnalyzed)
	require.NotNil(t, stats.LastAnalyzedAt)
	assert.True(t, stats.LastAnalyzedAt.After(created))
}
