package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/tokencount"
)

func newTestChunker(min, max, overlap int) *TokenChunker {
	return NewTokenChunker(tokencount.NewCounter(), min, max, overlap)
}

func TestNewTokenChunkerDefaults(t *testing.T) {
	c := NewTokenChunker(tokencount.NewCounter(), 0, 0, -1)
	assert.Equal(t, DefaultMinTokens, c.MinTokens)
	assert.Equal(t, DefaultMaxTokens, c.MaxTokens)
	assert.Equal(t, DefaultOverlapTokens, c.OverlapTokens)
}

func TestNewTokenChunkerRejectsOverlapGEMax(t *testing.T) {
	c := NewTokenChunker(tokencount.NewCounter(), 10, 100, 100)
	assert.Equal(t, DefaultOverlapTokens, c.OverlapTokens)
}

func TestChunkEmptyText(t *testing.T) {
	c := newTestChunker(10, 50, 5)
	assert.Nil(t, c.Chunk(""))
}

func TestChunkShortTextIsSingleFinalChunk(t *testing.T) {
	c := newTestChunker(64, 512, 64)
	chunks := c.Chunk("a short sentence about scaling laws and compute.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ord)
	assert.Contains(t, chunks[0].Text, "scaling laws")
}

func TestChunkLongTextProducesMultipleWindowsWithContiguousOrd(t *testing.T) {
	word := "token "
	text := strings.Repeat(word, 2000)
	c := newTestChunker(16, 64, 8)

	chunks := c.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ord)
		assert.LessOrEqual(t, ch.TokenCount, 64)
	}
}

func TestChunkCoarseSplitKeepsOrdsUniqueAcrossSegments(t *testing.T) {
	// Build text long enough to force more than one recursive-character
	// segment, and confirm ord keeps incrementing across segment
	// boundaries instead of resetting to zero per segment.
	paragraph := strings.Repeat("This is one sentence of a long interview turn. ", 400)
	c := newTestChunker(16, 128, 16)

	chunks := c.Chunk(paragraph)

	require.NotEmpty(t, chunks)
	seenOrds := make(map[int]bool)
	for _, ch := range chunks {
		assert.False(t, seenOrds[ch.Ord], "duplicate ord %d", ch.Ord)
		seenOrds[ch.Ord] = true
	}
}

func TestCoarseSplitFallsBackToWholeTextWhenShort(t *testing.T) {
	segments := coarseSplit("a short turn of dialogue")
	require.Len(t, segments, 1)
	assert.Equal(t, "a short turn of dialogue", segments[0])
}

func TestChunkByWordsFallback(t *testing.T) {
	c := newTestChunker(2, 10, 2)
	text := strings.Repeat("word ", 50)
	chunks := c.chunkByWords(text)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ord)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestCleanTranscriptText(t *testing.T) {
	in := "line one\nline two\\ with backslash   and   extra   spaces"
	out := CleanTranscriptText(in)
	assert.NotContains(t, out, "\n")
	assert.NotContains(t, out, "\\")
	assert.Equal(t, "line one line two with backslash and extra spaces", out)
}

func TestCleanTranscriptTextEmpty(t *testing.T) {
	assert.Equal(t, "", CleanTranscriptText(""))
}
