// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - EntryStore: Journal entry persistence
//   - LexicalIndex: FTS5 full-text search ranked with bm25
//   - ChunkStore: Embedding chunk persistence
//   - InsightStore: Extracted insight persistence
//   - QueueStore: Analysis queue persistence
//   - SchedulerStore: Background task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.diarymem/data/memory.db
//
// # Thread Safety
//
// All operations are serialised. The store holds a single connection and
// every call passes through a FIFO gate, so at most one statement or
// transaction runs at a time and callers are served in arrival order.
// Calls that hit a locked database are retried with exponential back-off
// and fail with domain.ErrStorageLocked once retries are exhausted.
package sqlite
