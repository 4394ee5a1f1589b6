// Package extraction holds the prompt shared by the insight extractor
// adapters in its subpackages.
package extraction

import (
	"fmt"

	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// DefaultPrompt is the system prompt used when no PromptStore is configured
// or the store cannot provide one.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultPrompt = `You are an expert at analysing journal entries to extract meaningful insights about emotions and people mentioned.

Analyse the journal entry and extract:

1. Emotions expressed. For each emotion provide:
   - emotion: the name of the emotion (e.g. "happy", "anxious", "excited", "frustrated")
   - intensity: a number from 1-10 indicating how strongly the emotion is expressed
   - trigger: one or two sentences in second person ("you") explaining what caused this emotion
   - sentiment: "positive", "negative" or "neutral"
   - source_quote: a short passage copied exactly from the entry that shows this emotion

2. People mentioned by name or relationship. For each person provide:
   - name: the name or relationship term used (e.g. "Sarah", "Mom", "my boss")
   - relationship: the relationship if mentioned (e.g. "friend", "mother", "coworker")
   - sentiment: "positive", "negative", "neutral", "tense" or "mixed"
   - context: one or two sentences in second person ("you") describing the interaction
   - source_quote: a short passage copied exactly from the entry that mentions this person

Rules:
- source_quote must be copied verbatim from the entry; do not paraphrase it
- Only extract emotions that are clearly expressed, not implied
- Only extract people who are explicitly mentioned
- Always provide trigger for emotions and context for people
- Never refer to "the author" or "the writer"
- If nothing is found, return empty arrays

Respond with a JSON object in exactly this format:
{
  "emotions": [...],
  "people": [...]
}`

// MaxOutputTokens bounds the model response.
const MaxOutputTokens = 2048

// UserMessage renders the user turn for one entry.
func UserMessage(content, date string) string {
	if date == "" {
		return fmt.Sprintf("Journal Entry:\n\n%s", content)
	}
	return fmt.Sprintf("Journal Entry (%s):\n\n%s", date, content)
}

// LoadPrompt loads the extraction prompt from the store, falling back to
// DefaultPrompt if the store is nil, fails or returns an empty prompt.
func LoadPrompt(store driven.PromptStore) string {
	if store == nil {
		return DefaultPrompt
	}
	prompt, err := store.Load(driven.PromptExtractInsights)
	if err != nil || prompt == "" {
		return DefaultPrompt
	}
	return prompt
}
