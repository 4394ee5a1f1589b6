// Package chunker provides a sentence-aware text chunking processor.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk
// (roughly 400 tokens at 4 characters per token).
const DefaultChunkSize = 1600

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 320

// MinChunkLength is the shortest trimmed chunk that is kept.
// Anything of this length or shorter is dropped.
const MinChunkLength = 50

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits entry content into overlapping chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Chunk splits text using the processor's configuration.
func (p *Processor) Chunk(text string) []string {
	return ChunkText(text, p.chunkSize, p.overlap)
}

// ChunkText splits text into chunks of about chunkSize characters.
//
// When a window ends before the end of the text, it is pulled back to just
// after the last '.' or '\n' at or before the window end, provided that
// breakpoint lies past the middle of the window. Each chunk is trimmed and
// the next window starts overlap characters before the previous end.
// Chunks of MinChunkLength characters or fewer are dropped.
//
// Characters are counted as runes so multi-byte text is never split
// inside a code point.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 || text == "" {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []string //nolint:prealloc // size unknown until breakpoints are found
	start := 0

	for start < n {
		end := start + chunkSize
		if end < n {
			if bp := lastBreakpoint(runes, end); bp > start+chunkSize/2 {
				end = bp + 1
			}
		} else {
			end = n
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) > MinChunkLength {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastBreakpoint returns the index of the last '.' or '\n' at or before pos,
// or -1 if there is none.
func lastBreakpoint(runes []rune, pos int) int {
	if pos >= len(runes) {
		pos = len(runes) - 1
	}
	for i := pos; i >= 0; i-- {
		if runes[i] == '.' || runes[i] == '\n' {
			return i
		}
	}
	return -1
}
