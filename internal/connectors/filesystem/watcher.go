package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/logger"
)

// ChangeType identifies what happened to an entry file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one entry file event.
type Change struct {
	Type ChangeType

	// Path is the file that changed.
	Path string

	// EntryID is the id of the affected entry.
	EntryID string

	// Entry is the file content for created and updated changes.
	Entry *domain.JournalEntry
}

// Watcher reports changes to dated entry files in a journal directory.
// Only files directly inside the directory are watched.
type Watcher struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string) *Watcher {
	return &Watcher{dir: dir}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watch starts watching and returns the change channel. The channel is
// closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher already running")
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("journal directory error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("journal directory error: %s is not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.watcher = fw

	changes := make(chan Change)
	go w.loop(ctx, fw, changes)
	return changes, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	defer w.stop(fw)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			change := handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

func (w *Watcher) stop(fw *fsnotify.Watcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == fw {
		w.watcher = nil
	}
	_ = fw.Close()
}

// Close stops a running watch. The watcher cannot be reused.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

// handleFsEvent maps a filesystem event to an entry change.
// Returns nil for events that do not concern a dated entry file.
func handleFsEvent(event fsnotify.Event) *Change {
	name := filepath.Base(event.Name)
	if isHidden(name) || !IsEntryFile(name) {
		return nil
	}
	date, ok := DateFromName(name)
	if !ok {
		return nil
	}

	switch {
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name, EntryID: EntryID(date)}
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		entry, err := LoadFile(event.Name, date)
		if err != nil {
			// Editors truncate before writing; the next write event carries the content.
			logger.Debug("watcher: skipping %s: %v", event.Name, err)
			return nil
		}
		changeType := ChangeUpdated
		if event.Op.Has(fsnotify.Create) {
			changeType = ChangeCreated
		}
		return &Change{Type: changeType, Path: event.Name, EntryID: entry.ID, Entry: &entry}
	default:
		return nil
	}
}
