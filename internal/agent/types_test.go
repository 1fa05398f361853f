package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
)

func TestChunkFromResultDefaultsSpeaker(t *testing.T) {
	c := chunkFromResult(retrieval.Result{ChunkID: "c1", Speaker: ""})
	assert.Equal(t, DefaultSpeaker, c.Speaker)
}

func TestChunkFromResultKeepsGivenSpeaker(t *testing.T) {
	c := chunkFromResult(retrieval.Result{ChunkID: "c1", Speaker: "Tyler Cowen"})
	assert.Equal(t, "Tyler Cowen", c.Speaker)
}

func TestChunksFromResultsPreservesOrder(t *testing.T) {
	rs := []retrieval.Result{{ChunkID: "c1"}, {ChunkID: "c2"}}
	out := chunksFromResults(rs)
	assert.Equal(t, []string{"c1", "c2"}, []string{out[0].ChunkID, out[1].ChunkID})
}
