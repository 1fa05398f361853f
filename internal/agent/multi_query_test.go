package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
)

func TestDeduplicateChunksBoostsRepeatedChunks(t *testing.T) {
	resultsByQuery := map[string][]retrieval.Result{
		"q1": {{ChunkID: "c1", Score: 0.8}, {ChunkID: "c2", Score: 0.5}},
		"q2": {{ChunkID: "c1", Score: 0.7}, {ChunkID: "c3", Score: 0.6}},
	}
	order := []string{"q1", "q2"}

	deduped, stats := deduplicateChunks(resultsByQuery, order, 10, 0.2)

	require.Len(t, deduped, 3)
	assert.Equal(t, 4, stats.TotalBeforeDedup)
	assert.Equal(t, 3, stats.UniqueChunks)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Equal(t, 1, stats.ChunksBoosted)
	assert.Equal(t, 2, stats.MaxOccurrences)

	// c1 appears twice (max score 0.8), boosted by 1 + 0.2*(2-1) = 1.2
	assert.Equal(t, "c1", deduped[0].ChunkID)
	assert.InDelta(t, 0.96, deduped[0].Score, 1e-9)
}

func TestDeduplicateChunksTruncatesToMaxReturned(t *testing.T) {
	resultsByQuery := map[string][]retrieval.Result{
		"q1": {{ChunkID: "c1", Score: 0.9}, {ChunkID: "c2", Score: 0.8}, {ChunkID: "c3", Score: 0.7}},
	}

	deduped, stats := deduplicateChunks(resultsByQuery, []string{"q1"}, 2, 0.2)

	assert.Len(t, deduped, 2)
	assert.Equal(t, 2, stats.ChunksReturned)
	assert.Equal(t, "c1", deduped[0].ChunkID)
	assert.Equal(t, "c2", deduped[1].ChunkID)
}

func TestDeduplicateChunksTiesBrokenByChunkID(t *testing.T) {
	resultsByQuery := map[string][]retrieval.Result{
		"q1": {{ChunkID: "zzz", Score: 0.5}, {ChunkID: "aaa", Score: 0.5}},
	}

	deduped, _ := deduplicateChunks(resultsByQuery, []string{"q1"}, 10, 0.2)

	require.Len(t, deduped, 2)
	assert.Equal(t, "aaa", deduped[0].ChunkID)
	assert.Equal(t, "zzz", deduped[1].ChunkID)
}

func TestDeduplicateChunksEmptyInput(t *testing.T) {
	deduped, stats := deduplicateChunks(map[string][]retrieval.Result{}, nil, 10, 0.2)
	assert.Empty(t, deduped)
	assert.Equal(t, 0, stats.TotalBeforeDedup)
	assert.Equal(t, 0, stats.MaxOccurrences)
}

func TestBuildContextFormatsEachChunk(t *testing.T) {
	chunks := []retrieval.Result{
		{Title: "Episode 1", Text: "first quote"},
		{Title: "", Text: "second quote"},
	}

	ctxText := buildContext(chunks)

	assert.Contains(t, ctxText, "Title: Episode 1")
	assert.Contains(t, ctxText, "first quote")
	assert.Contains(t, ctxText, "Title: Unknown")
	assert.Contains(t, ctxText, "second quote")
}
