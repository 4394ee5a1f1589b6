package domain

// SearchSource tells which retrieval path produced a search result.
type SearchSource string

// Available result sources.
const (
	// SourceBM25 is a lexical full-text match.
	SourceBM25 SearchSource = "bm25"

	// SourceVector is a semantic (embedding) match.
	SourceVector SearchSource = "vector"

	// SourceHybrid is a match ranked by reciprocal rank fusion.
	SourceHybrid SearchSource = "hybrid"
)

// SearchOptions configures a hybrid search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Zero means the default.
	Limit int

	// DateRange restricts results to entries dated inside the window.
	DateRange *DateRange
}

// SearchResult represents a single search hit at entry granularity.
type SearchResult struct {
	// ID identifies the hit: the entry id for lexical hits, the chunk id
	// for semantic hits.
	ID string `json:"id"`

	// EntryID is the matched entry.
	EntryID string `json:"entryId"`

	// Date is the entry date.
	Date string `json:"date"`

	// Content is the matched text (entry content or chunk content).
	Content string `json:"content"`

	// Snippet is a window of Content around the first query term.
	Snippet string `json:"snippet,omitempty"`

	// Score is the relevance score. Higher is better for every source.
	Score float64 `json:"score"`

	// Source is the retrieval path.
	Source SearchSource `json:"source"`
}

// LexicalHit is a raw full-text match. Rank is the bm25 value where lower
// is better.
type LexicalHit struct {
	EntryID string
	Date    string
	Content string
	Rank    float64
}
