// Package tokencount counts tokens the way the configured chat model
// tokenizes them, used to enforce chunk token bounds and the turn
// expander's token budget.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for a fixed encoding, lazily initialized and
// safe for concurrent use.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
	name string
}

// NewCounter returns a Counter backed by the cl100k_base encoding, which
// covers the gpt-4o / text-embedding-3-* model families used throughout
// this service.
func NewCounter() *Counter {
	return &Counter{name: "cl100k_base"}
}

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.name)
	})
	return c.enc, c.err
}

// Count returns the number of tokens in text. On tokenizer initialization
// failure it falls back to a conservative whitespace-based estimate
// rather than failing the caller outright — token counts here are only
// used for budget bookkeeping, not billing.
func (c *Counter) Count(text string) int {
	enc, err := c.encoding()
	if err != nil {
		return fallbackEstimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Encode returns the token IDs for text, or nil with ok=false if the
// tokenizer failed to initialize (callers fall back to a simpler
// splitting strategy in that case).
func (c *Counter) Encode(text string) (tokens []int, ok bool) {
	enc, err := c.encoding()
	if err != nil {
		return nil, false
	}
	return enc.Encode(text, nil, nil), true
}

// Decode reverses Encode, reconstructing text from a slice of token IDs.
func (c *Counter) Decode(tokens []int) (string, bool) {
	enc, err := c.encoding()
	if err != nil {
		return "", false
	}
	return enc.Decode(tokens), true
}

func fallbackEstimate(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	// cl100k_base averages roughly 0.75 words per token (about 1.3 tokens
	// per word) for English text.
	return int(float64(words) * 1.3)
}
