// Package filesystem reads journal entries from files and watches a journal
// directory for changes.
//
// A .json file holds an array of {"id", "date", "content"} records and a
// .jsonl file holds one record per line. Any other file is a single entry
// whose date is given explicitly or taken from a YYYY-MM-DD file name prefix.
package filesystem

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/diarymem/internal/core/domain"
)

const dateLayout = "2006-01-02"

// entryNamespace scopes the name-based ids of entries that arrive without one.
var entryNamespace = uuid.MustParse("5b1f8a3e-1d4c-4d8e-9a57-3c0d2e6f7a19")

// datePrefix matches a leading YYYY-MM-DD in a file name.
var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// Record is one entry in a .json or .jsonl import file.
type Record struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// EntryID derives the stable id of an entry that came without one.
// Every file or record for the same day maps to the same entry.
func EntryID(date string) string {
	return uuid.NewSHA1(entryNamespace, []byte(date)).String()
}

// IsEntryFile reports whether name is a text entry file.
func IsEntryFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".txt"
}

// DateFromName returns the YYYY-MM-DD prefix of a file name.
func DateFromName(path string) (string, bool) {
	m := datePrefix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	if _, err := time.Parse(dateLayout, m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// Load reads entries from a file or directory. date overrides the file name
// date of a single text file.
func Load(path, date string) ([]domain.JournalEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if info.IsDir() {
		return LoadDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return FromRecords(records)
	case ".jsonl":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer f.Close()
		records, err := ReadJSONLines(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return FromRecords(records)
	default:
		entry, err := LoadFile(path, date)
		if err != nil {
			return nil, err
		}
		return []domain.JournalEntry{entry}, nil
	}
}

// LoadDir reads every visible .md and .txt file directly inside dir.
func LoadDir(dir string) ([]domain.JournalEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var entries []domain.JournalEntry
	for _, f := range files {
		if f.IsDir() || isHidden(f.Name()) || !IsEntryFile(f.Name()) {
			continue
		}
		entry, err := LoadFile(filepath.Join(dir, f.Name()), "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadFile reads one text file as an entry.
func LoadFile(path, date string) (domain.JournalEntry, error) {
	if date == "" {
		d, ok := DateFromName(path)
		if !ok {
			return domain.JournalEntry{}, fmt.Errorf("%s: no date in file name, pass --date", path)
		}
		date = d
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return domain.JournalEntry{}, fmt.Errorf("%s: invalid date %q", path, date)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("reading %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return domain.JournalEntry{}, fmt.Errorf("%s: file is empty", path)
	}

	return domain.JournalEntry{ID: EntryID(date), Date: date, Content: content}, nil
}

// ReadJSONLines decodes one record per non-blank line.
func ReadJSONLines(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// FromRecords validates records and converts them to entries.
// Records with blank content are skipped.
func FromRecords(records []Record) ([]domain.JournalEntry, error) {
	entries := make([]domain.JournalEntry, 0, len(records))
	for i, rec := range records {
		if _, err := time.Parse(dateLayout, rec.Date); err != nil {
			return nil, fmt.Errorf("record %d: invalid date %q", i+1, rec.Date)
		}
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		id := rec.ID
		if id == "" {
			id = EntryID(rec.Date)
		}
		entries = append(entries, domain.JournalEntry{ID: id, Date: rec.Date, Content: rec.Content})
	}
	return entries, nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
