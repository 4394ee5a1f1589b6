package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsightType_IsValid(t *testing.T) {
	assert.True(t, InsightEmotion.IsValid())
	assert.True(t, InsightPerson.IsValid())
	assert.False(t, InsightType("place").IsValid())
	assert.Equal(t, "emotion", InsightEmotion.String())
}

func TestInsightTypeFromCategory(t *testing.T) {
	tests := []struct {
		category string
		want     InsightType
		ok       bool
	}{
		{"people", InsightPerson, true},
		{"People", InsightPerson, true},
		{"person", InsightPerson, true},
		{"emotions", InsightEmotion, true},
		{"emotion", InsightEmotion, true},
		{"places", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			got, ok := InsightTypeFromCategory(tt.category)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormaliseSentiment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  InsightType
		want Sentiment
	}{
		{"positive emotion", "positive", InsightEmotion, SentimentPositive},
		{"uppercase trimmed", "  NEGATIVE ", InsightEmotion, SentimentNegative},
		{"tense emotion becomes neutral", "tense", InsightEmotion, SentimentNeutral},
		{"tense person kept", "tense", InsightPerson, SentimentTense},
		{"mixed person kept", "Mixed", InsightPerson, SentimentMixed},
		{"unknown becomes neutral", "ecstatic", InsightPerson, SentimentNeutral},
		{"empty becomes neutral", "", InsightEmotion, SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormaliseSentiment(tt.raw, tt.typ))
		})
	}
}

func TestClampIntensity(t *testing.T) {
	assert.Equal(t, DefaultIntensity, ClampIntensity(0))
	assert.Equal(t, 1, ClampIntensity(-4))
	assert.Equal(t, 10, ClampIntensity(42))
	assert.Equal(t, 7, ClampIntensity(7))
}

func TestInsightMetadata_Sentiment(t *testing.T) {
	emotion := InsightMetadata{Emotion: &EmotionMetadata{Intensity: 6, Sentiment: SentimentNegative}}
	assert.Equal(t, SentimentNegative, emotion.Sentiment())

	person := InsightMetadata{Person: &PersonMetadata{Sentiment: SentimentTense}}
	assert.Equal(t, SentimentTense, person.Sentiment())

	assert.Equal(t, SentimentNeutral, InsightMetadata{}.Sentiment())
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{Start: "2024-01-01", End: "2024-01-31"}

	assert.True(t, r.Contains("2024-01-01"))
	assert.True(t, r.Contains("2024-01-15"))
	assert.True(t, r.Contains("2024-01-31"))
	assert.False(t, r.Contains("2023-12-31"))
	assert.False(t, r.Contains("2024-02-01"))
}

func TestQueueItem_IsFailed(t *testing.T) {
	assert.False(t, QueueItem{Status: QueueStatusPending, RetryCount: 2}.IsFailed())
	assert.True(t, QueueItem{Status: QueueStatusPending, RetryCount: MaxRetryCount}.IsFailed())
	assert.False(t, QueueItem{Status: QueueStatusCompleted, RetryCount: 5}.IsFailed())
	assert.True(t, QueueStatusProcessing.IsValid())
	assert.False(t, QueueStatus("failed").IsValid())
}

func TestOrderBy_Ascending(t *testing.T) {
	assert.True(t, OrderBy{Field: OrderByDate, Direction: "asc"}.Ascending())
	assert.False(t, OrderBy{Field: OrderByDate, Direction: "desc"}.Ascending())
	assert.False(t, OrderBy{Field: OrderByCount}.Ascending())
}
