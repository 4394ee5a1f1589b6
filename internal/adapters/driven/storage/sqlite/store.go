package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/diarymem/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// Lock retry policy. Waits grow from lockRetryInitial by lockRetryMultiplier
// for at most lockRetryMax retries.
const (
	lockRetryInitial    = 40 * time.Millisecond
	lockRetryMultiplier = 1.5
	lockRetryMax        = 10
)

// timeLayout is fixed width so stored UTC timestamps order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string

	// gate admits one operation at a time. Blocked senders on a channel
	// are woken in arrival order.
	gate chan struct{}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.diarymem/data/memory.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".diarymem", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "memory.db")

	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: the gate serialises access, and SQLite allows a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
		gate: make(chan struct{}, 1),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EntryStore returns an EntryStore interface backed by this store.
func (s *Store) EntryStore() driven.EntryStore {
	return &entryStore{store: s}
}

// LexicalIndex returns a LexicalIndex interface backed by this store.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &lexicalIndex{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// InsightStore returns an InsightStore interface backed by this store.
func (s *Store) InsightStore() driven.InsightStore {
	return &insightStore{store: s}
}

// QueueStore returns a QueueStore interface backed by this store.
func (s *Store) QueueStore() driven.QueueStore {
	return &queueStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// do runs fn behind the gate, retrying while the database reports it is
// locked. Other errors are returned unchanged on the first occurrence.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	defer func() { <-s.gate }()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = lockRetryInitial
	exp.Multiplier = lockRetryMultiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, lockRetryMax), ctx)

	err := backoff.RetryNotify(func() error {
		err := fn(ctx)
		if err != nil && !isLockError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Debug("sqlite: %s hit a locked database, retrying in %s", op, wait)
	})

	if err != nil && isLockError(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageLocked, err)
	}
	return err
}

// isLockError reports whether err is SQLite's busy/locked condition.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "(5)")
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes packs floats as little-endian float32.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice unpacks little-endian float32 values.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// formatTime formats a time in UTC using timeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp. Returns zero time on failure.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable timestamp.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// stringArgs converts strings to query arguments.
func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
