// Package domain defines the core business entities for diarymem.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - JournalEntry: A diary entry, the source of truth
//   - EmbeddingChunk: A slice of an entry with its vector embedding
//   - Insight: A named emotion or person extracted from an entry
//   - QueueItem: A retry-tracked request to analyse an entry
//   - SearchResult: A ranked entry returned by hybrid search
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
