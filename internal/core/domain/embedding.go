package domain

import "time"

// EmbeddingChunk is a bounded, overlapping slice of an entry together with
// its vector embedding. The full chunk set of an entry is always replaced
// as a whole when the entry is re-embedded.
type EmbeddingChunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// EntryID links to the parent JournalEntry.
	EntryID string

	// EntryDate is copied from the entry so date filters avoid a join.
	EntryDate string

	// Content is the chunk text, a substring of the entry content.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// ChunkIndex is the ordinal position within the entry.
	ChunkIndex int

	// CreatedAt is when the chunk was embedded.
	CreatedAt time.Time
}

// ScoredChunk is a chunk ranked by cosine similarity to a query vector.
type ScoredChunk struct {
	EmbeddingChunk

	// Score is the cosine similarity to the query.
	Score float64
}

// VectorSearchOptions configures a brute-force vector scan.
type VectorSearchOptions struct {
	// Limit is the maximum number of chunks returned.
	Limit int

	// DateRange restricts the scan to chunks of entries in the window.
	DateRange *DateRange

	// MinSimilarity drops chunks scoring below the threshold.
	MinSimilarity float64
}

// EmbeddingStats summarises the state of the embedding index.
type EmbeddingStats struct {
	TotalChunks           int      `json:"totalChunks"`
	EntriesWithEmbeddings int      `json:"entriesWithEmbeddings"`
	TotalEntries          int      `json:"totalEntries"`
	EmbeddedEntryIDs      []string `json:"embeddedEntryIds"`
}

// EmbedReport aggregates per-entry embedding outcomes of a batch run.
type EmbedReport struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// EmbedProgress is reported after each entry of a batch embedding run.
type EmbedProgress struct {
	Current    int
	Total      int
	EntryID    string
	ChunkCount int
}
