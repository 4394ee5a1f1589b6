package driven

// Chunker splits text into bounded, overlapping chunks.
// Implementations must be deterministic.
type Chunker interface {
	// Chunk returns the chunk texts in order. Short or empty text may
	// produce no chunks.
	Chunk(text string) []string
}
