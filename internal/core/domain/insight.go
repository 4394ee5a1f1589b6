package domain

import (
	"strings"
	"time"
)

// InsightType identifies the kind of structured fact extracted from an entry.
type InsightType string

// Available insight types.
const (
	// InsightEmotion is a named emotion expressed by the author.
	InsightEmotion InsightType = "emotion"

	// InsightPerson is a named person mentioned in the entry.
	InsightPerson InsightType = "person"
)

// IsValid returns true if the insight type is recognised.
func (t InsightType) IsValid() bool {
	return t == InsightEmotion || t == InsightPerson
}

// String returns the string representation.
func (t InsightType) String() string {
	return string(t)
}

// InsightTypeFromCategory maps a plural category ("people", "emotions")
// to its insight type.
func InsightTypeFromCategory(category string) (InsightType, bool) {
	switch strings.ToLower(category) {
	case "people", "person":
		return InsightPerson, true
	case "emotions", "emotion":
		return InsightEmotion, true
	default:
		return "", false
	}
}

// Sentiment is the polarity attached to an insight.
type Sentiment string

// Available sentiments. Tense and Mixed only apply to people.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentTense    Sentiment = "tense"
	SentimentMixed    Sentiment = "mixed"
)

// NormaliseSentiment maps free text to a known sentiment for the given type.
// Unknown values become neutral.
func NormaliseSentiment(raw string, t InsightType) Sentiment {
	s := Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return s
	case SentimentTense, SentimentMixed:
		if t == InsightPerson {
			return s
		}
	}
	return SentimentNeutral
}

// Intensity bounds for emotions.
const (
	MinIntensity     = 1
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// ClampIntensity bounds an intensity to [1, 10]; zero means absent and
// yields DefaultIntensity.
func ClampIntensity(v int) int {
	switch {
	case v == 0:
		return DefaultIntensity
	case v < MinIntensity:
		return MinIntensity
	case v > MaxIntensity:
		return MaxIntensity
	default:
		return v
	}
}

// SourceRange locates the evidence for an insight inside the entry text.
// Start and End are byte offsets; Quote is content[Start:End].
type SourceRange struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Quote string `json:"quote"`
}

// EmotionMetadata carries the emotion-specific fields of an insight.
type EmotionMetadata struct {
	Intensity int       `json:"intensity"`
	Trigger   string    `json:"trigger,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
}

// PersonMetadata carries the person-specific fields of an insight.
type PersonMetadata struct {
	Relationship string    `json:"relationship,omitempty"`
	Sentiment    Sentiment `json:"sentiment"`
	Context      string    `json:"context,omitempty"`
}

// InsightMetadata is a tagged union: exactly one of Emotion or Person is set,
// matching the owning insight's type.
type InsightMetadata struct {
	Emotion *EmotionMetadata
	Person  *PersonMetadata
}

// Sentiment returns the sentiment of whichever variant is set.
func (m InsightMetadata) Sentiment() Sentiment {
	switch {
	case m.Emotion != nil:
		return m.Emotion.Sentiment
	case m.Person != nil:
		return m.Person.Sentiment
	default:
		return SentimentNeutral
	}
}

// Insight is a structured fact extracted from a journal entry.
type Insight struct {
	// ID is the unique identifier for the insight.
	ID string

	// EntryID links to the analysed entry.
	EntryID string

	// EntryDate is copied from the entry for date ordering.
	EntryDate string

	// Type is emotion or person.
	Type InsightType

	// Content is the label: the emotion word or the person's name.
	Content string

	// Metadata holds the type-specific fields.
	Metadata InsightMetadata

	// Source is the optional evidence span in the entry text.
	Source *SourceRange

	// CreatedAt is when the insight was extracted.
	CreatedAt time.Time
}

// ExtractedEmotion is an emotion as returned by the extraction provider.
type ExtractedEmotion struct {
	Emotion     string `json:"emotion"`
	Intensity   int    `json:"intensity"`
	Trigger     string `json:"trigger"`
	Sentiment   string `json:"sentiment"`
	SourceQuote string `json:"source_quote"`
}

// ExtractedPerson is a person as returned by the extraction provider.
type ExtractedPerson struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Sentiment    string `json:"sentiment"`
	Context      string `json:"context"`
	SourceQuote  string `json:"source_quote"`
}

// Extraction is the structured object produced by the extraction provider.
// Two empty arrays are a valid result.
type Extraction struct {
	Emotions []ExtractedEmotion `json:"emotions"`
	People   []ExtractedPerson  `json:"people"`
}
