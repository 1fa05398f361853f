// Package agent implements the two RAG agent strategies of spec.md
// §4.7: a single-query vanilla agent and a multi-query agent that
// decomposes the question into MECE sub-queries before retrieving.
package agent

import (
	"context"

	"github.com/dwarkesh-labs/transcript-rag/internal/ingest"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
)

// Type selects which agent strategy answers a question.
type Type string

const (
	TypeVanilla    Type = "vanilla"
	TypeMultiQuery Type = "multi-query"
)

// DefaultSpeaker mirrors ingest.DefaultSpeaker, the value persisted on
// chunks with no owning turn. Kept here too as a display-time fallback
// for any chunk row predating that persistence fix.
const DefaultSpeaker = ingest.DefaultSpeaker

// RetrievedChunk is a chunk surfaced to the caller as part of an
// AgentResponse, carrying enough metadata to render a citation.
type RetrievedChunk struct {
	ChunkID string
	DocID   string
	Text    string
	Score   float64
	Title   string
	Ord     int
	Speaker string
}

// Params is the retrieval configuration an agent run accepts: the
// retrieval Mode plus the retrieval.Params fields other than Query and N,
// with MaxReturned bounding the final deduplicated chunk list.
type Params struct {
	Mode          retrieval.Mode
	Operator      retrieval.Operator
	FTSCandidates int
	MaxReturned   int
	Filters       retrieval.Filters
}

// Response is the full AgentResponse of spec.md §4.7.
type Response struct {
	Answer              string
	TraceID             *string
	LatencyMS           float64
	RetrievedChunks      []RetrievedChunk
	ModelUsed           string
	TokensUsed          TokenUsage
	SubQueries          []string       // multi-query only
	ChunksPerSubquery   map[string]int // multi-query only
	DeduplicationStats  *DedupStats    // multi-query only
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// DedupStats mirrors the statistics worked example of spec.md §8.
type DedupStats struct {
	TotalBeforeDedup int
	UniqueChunks     int
	DuplicatesRemoved int
	ChunksBoosted    int
	MaxOccurrences   int
	ChunksReturned   int
}

// Agent is the narrow capability both strategies implement.
type Agent interface {
	Generate(ctx context.Context, question string, params Params) (Response, error)
}

func chunkFromResult(r retrieval.Result) RetrievedChunk {
	speaker := r.Speaker
	if speaker == "" {
		speaker = DefaultSpeaker
	}
	return RetrievedChunk{
		ChunkID: r.ChunkID,
		DocID:   r.DocID,
		Text:    r.Text,
		Score:   r.Score,
		Title:   r.Title,
		Ord:     r.Ord,
		Speaker: speaker,
	}
}

func chunksFromResults(rs []retrieval.Result) []RetrievedChunk {
	out := make([]RetrievedChunk, len(rs))
	for i, r := range rs {
		out[i] = chunkFromResult(r)
	}
	return out
}
