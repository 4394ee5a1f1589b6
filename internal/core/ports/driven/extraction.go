package driven

import "context"

// InsightExtractor asks a chat model for the emotions and people in an entry.
// This is an optional service - when nil, the analysis queue cannot drain.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini with JSON response format)
//   - Anthropic (Claude)
//   - Ollama (local models with JSON format)
type InsightExtractor interface {
	// Extract returns the raw JSON object produced by the model for one
	// entry. Parsing and normalisation happen in the core.
	Extract(ctx context.Context, content, date string) (string, error)

	// ModelName returns the name of the chat model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Truncator bounds text to a token budget.
type Truncator interface {
	// Truncate returns text cut to at most maxTokens tokens.
	Truncate(text string, maxTokens int) string
}
