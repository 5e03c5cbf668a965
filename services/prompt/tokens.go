package prompt

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token cost of a piece of text. Estimates feed
// budget reservations, which are reconciled against actual provider usage,
// so a counter only has to be close, not exact.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates GPT-family tokenization at roughly four
// characters per token. It needs no encoding data, which makes it the
// fallback when the BPE files cannot be loaded.
type HeuristicCounter struct{}

// Count returns the estimated token count for text.
func (HeuristicCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. "cl100k_base").
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the exact token count for text under the loaded encoding.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewCounter returns the best available counter: tiktoken's cl100k_base
// encoding when it can be loaded, the heuristic otherwise.
func NewCounter() TokenCounter {
	if c, err := NewTiktokenCounter("cl100k_base"); err == nil {
		return c
	}
	return HeuristicCounter{}
}
