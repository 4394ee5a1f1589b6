// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EntryStore: Journal entry persistence (owned by the host application)
//   - ChunkStore: Embedding chunk persistence
//   - InsightStore: Extracted insight persistence
//   - QueueStore: Analysis queue persistence
//   - LexicalIndex: Full-text search (SQLite FTS5). BM25 keyword search is always required.
//   - Chunker: Splits entry text into overlapping chunks
//   - ApproximateMatcher: Fuzzy substring search for provenance linking
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, search is lexical only.
//   - InsightExtractor: Chat model extraction. Without it, the analysis queue cannot drain.
//   - Truncator: Token-bounded truncation. Without it, input is cut by characters.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
