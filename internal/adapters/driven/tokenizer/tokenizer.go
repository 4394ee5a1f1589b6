// Package tokenizer bounds extraction input to a model token budget.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure both truncators implement the interface.
var (
	_ driven.Truncator = (*Tokenizer)(nil)
	_ driven.Truncator = CharTruncator{}
)

// DefaultEncoding is the BPE used by current OpenAI chat and embedding models.
const DefaultEncoding = "cl100k_base"

// CharsPerToken is the rough ratio used when no encoding is available.
const CharsPerToken = 4

// Tokenizer counts and truncates text with a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding. The BPE ranks are fetched on first use
// and cached by tiktoken-go, so this can fail offline.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding loads the named encoding.
func NewWithEncoding(name string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// NewTruncator returns a tiktoken truncator, or a CharTruncator if the
// encoding cannot be loaded.
func NewTruncator() driven.Truncator {
	tok, err := New()
	if err != nil {
		return CharTruncator{}
	}
	return tok
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most maxTokens tokens.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return strings.ToValidUTF8(t.enc.Decode(tokens[:maxTokens]), "")
}

// CharTruncator approximates tokens as CharsPerToken runes.
type CharTruncator struct{}

// Truncate returns text cut to at most maxTokens*CharsPerToken runes.
func (CharTruncator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * CharsPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
