package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountNonEmpty(t *testing.T) {
	c := NewCounter()
	n := c.Count("the quick brown fox jumps over the lazy dog")
	assert.Greater(t, n, 0)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewCounter()
	text := "scaling laws and compute budgets"

	tokens, ok := c.Encode(text)
	require.True(t, ok)
	require.NotEmpty(t, tokens)

	decoded, ok := c.Decode(tokens)
	require.True(t, ok)
	assert.Equal(t, text, decoded)
}

func TestCountMatchesEncodeLength(t *testing.T) {
	c := NewCounter()
	text := "a somewhat longer passage about interview transcripts and retrieval"

	tokens, ok := c.Encode(text)
	require.True(t, ok)
	assert.Equal(t, len(tokens), c.Count(text))
}

func TestCountEmptyTextIsZero(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, 0, c.Count(""))
}
