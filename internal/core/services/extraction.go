package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

const (
	// MaxExtractionTokens bounds the entry text sent to the extraction model.
	MaxExtractionTokens = 3000

	// MaxExtractionChars is the character bound used without a tokenizer.
	MaxExtractionChars = 12000

	// minQuoteLength is the shortest source quote worth linking.
	minQuoteLength = 3

	// minQuoteDistance is the floor of the allowed edit distance.
	minQuoteDistance = 3

	// quoteDistanceRatio scales the allowed edit distance with quote length.
	quoteDistanceRatio = 0.15
)

// flexInt decodes a JSON number or numeric string, rounding fractions.
// Anything else, such as "high", decodes as 0 so the default applies.
type flexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = flexInt(math.Round(v))
	return nil
}

// rawExtraction mirrors the model response before normalisation.
type rawExtraction struct {
	Emotions []struct {
		Emotion     string  `json:"emotion"`
		Intensity   flexInt `json:"intensity"`
		Trigger     string  `json:"trigger"`
		Sentiment   string  `json:"sentiment"`
		SourceQuote string  `json:"source_quote"`
	} `json:"emotions"`
	People []struct {
		Name         string `json:"name"`
		Relationship string `json:"relationship"`
		Sentiment    string `json:"sentiment"`
		Context      string `json:"context"`
		SourceQuote  string `json:"source_quote"`
	} `json:"people"`
}

// ParseExtraction decodes and normalises a model response.
// Intensities are clamped, sentiments normalised, emotion labels lowercased,
// empty labels dropped and repeated labels collapsed to their first occurrence.
// Unparseable output is reported as a ProviderError.
func ParseExtraction(provider, raw string) (*domain.Extraction, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, domain.NewProviderError(provider, "extract", 0, errors.New("response contains no JSON object"))
	}

	var parsed rawExtraction
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, domain.NewProviderError(provider, "extract", 0, fmt.Errorf("decoding response: %w", err))
	}

	out := &domain.Extraction{
		Emotions: []domain.ExtractedEmotion{},
		People:   []domain.ExtractedPerson{},
	}

	seen := make(map[string]bool)
	for _, e := range parsed.Emotions {
		label := strings.ToLower(strings.TrimSpace(e.Emotion))
		key := string(domain.InsightEmotion) + ":" + label
		if label == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.Emotions = append(out.Emotions, domain.ExtractedEmotion{
			Emotion:     label,
			Intensity:   domain.ClampIntensity(int(e.Intensity)),
			Trigger:     strings.TrimSpace(e.Trigger),
			Sentiment:   string(domain.NormaliseSentiment(e.Sentiment, domain.InsightEmotion)),
			SourceQuote: strings.TrimSpace(e.SourceQuote),
		})
	}

	for _, p := range parsed.People {
		name := strings.TrimSpace(p.Name)
		key := string(domain.InsightPerson) + ":" + strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.People = append(out.People, domain.ExtractedPerson{
			Name:         name,
			Relationship: strings.TrimSpace(p.Relationship),
			Sentiment:    string(domain.NormaliseSentiment(p.Sentiment, domain.InsightPerson)),
			Context:      strings.TrimSpace(p.Context),
			SourceQuote:  strings.TrimSpace(p.SourceQuote),
		})
	}

	return out, nil
}

// extractJSONObject returns the outermost {...} span of s, skipping any
// surrounding prose or code fences.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// BuildInsights turns an extraction into insights for the entry, linking
// each item's source quote to the entry text where it can be found.
func BuildInsights(
	entry *domain.JournalEntry,
	extraction *domain.Extraction,
	matcher driven.ApproximateMatcher,
) []domain.Insight {
	now := time.Now()
	insights := make([]domain.Insight, 0, len(extraction.Emotions)+len(extraction.People))

	for _, e := range extraction.Emotions {
		insights = append(insights, domain.Insight{
			ID:        uuid.NewString(),
			EntryID:   entry.ID,
			EntryDate: entry.Date,
			Type:      domain.InsightEmotion,
			Content:   e.Emotion,
			Metadata: domain.InsightMetadata{Emotion: &domain.EmotionMetadata{
				Intensity: domain.ClampIntensity(e.Intensity),
				Trigger:   e.Trigger,
				Sentiment: domain.NormaliseSentiment(e.Sentiment, domain.InsightEmotion),
			}},
			Source:    LinkSource(matcher, e.SourceQuote, entry.Content),
			CreatedAt: now,
		})
	}

	for _, p := range extraction.People {
		insights = append(insights, domain.Insight{
			ID:        uuid.NewString(),
			EntryID:   entry.ID,
			EntryDate: entry.Date,
			Type:      domain.InsightPerson,
			Content:   p.Name,
			Metadata: domain.InsightMetadata{Person: &domain.PersonMetadata{
				Relationship: p.Relationship,
				Sentiment:    domain.NormaliseSentiment(p.Sentiment, domain.InsightPerson),
				Context:      p.Context,
			}},
			Source:    LinkSource(matcher, p.SourceQuote, entry.Content),
			CreatedAt: now,
		})
	}

	return insights
}

// LinkSource locates quote in content with approximate matching.
// Returns nil when the quote is too short or nothing is close enough.
// Offsets in the returned range are byte offsets into content.
func LinkSource(matcher driven.ApproximateMatcher, quote, content string) *domain.SourceRange {
	quote = strings.TrimSpace(quote)
	if matcher == nil || utf8.RuneCountInString(quote) < minQuoteLength || content == "" {
		return nil
	}

	needle := lowerRunes(quote)
	haystack := lowerRunes(content)
	maxDistance := max(minQuoteDistance, int(math.Floor(float64(len(needle))*quoteDistanceRatio)))

	var best *driven.ApproxMatch
	for _, m := range matcher.Search(needle, haystack, maxDistance) {
		if m.End <= m.Start || m.Start < 0 || m.End > len(haystack) || m.Distance > maxDistance {
			continue
		}
		if best == nil || betterMatch(m, *best) {
			match := m
			best = &match
		}
	}
	if best == nil {
		return nil
	}

	offsets := runeByteOffsets(content)
	start, end := offsets[best.Start], offsets[best.End]
	return &domain.SourceRange{Start: start, End: end, Quote: content[start:end]}
}

// betterMatch orders matches by distance, then start, then span length.
func betterMatch(a, b driven.ApproxMatch) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End-a.Start < b.End-b.Start
}

// lowerRunes lowercases s rune by rune so indexes line up with []rune(s).
func lowerRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

// runeByteOffsets maps rune index i to its byte offset; the final
// element is len(s).
func runeByteOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

// truncateForExtraction bounds content by tokens, or by characters when no
// tokenizer is available.
func truncateForExtraction(truncator driven.Truncator, content string) string {
	if truncator != nil {
		return truncator.Truncate(content, MaxExtractionTokens)
	}
	if utf8.RuneCountInString(content) <= MaxExtractionChars {
		return content
	}
	return string([]rune(content)[:MaxExtractionChars])
}
