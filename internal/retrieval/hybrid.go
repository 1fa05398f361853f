package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

const (
	defaultFTSCandidates = 100
	minFTSCandidates     = 1
	maxFTSCandidates     = 500
)

// HybridRetriever is spec.md §4.5: FTS candidate generation followed by
// vector reranking of exactly those candidates.
type HybridRetriever struct {
	FTS      *FTSRetriever
	Store    *store.Store
	Embedder embedding.Embedder
}

func NewHybridRetriever(fts *FTSRetriever, s *store.Store, e embedding.Embedder) *HybridRetriever {
	return &HybridRetriever{FTS: fts, Store: s, Embedder: e}
}

func (r *HybridRetriever) Retrieve(ctx context.Context, p Params) (Response, error) {
	candidates := p.FTSCandidates
	if candidates == 0 {
		candidates = defaultFTSCandidates
	}
	if candidates < minFTSCandidates {
		candidates = minFTSCandidates
	}
	if candidates > maxFTSCandidates {
		candidates = maxFTSCandidates
	}

	ftsStart := time.Now()
	ftsResp, err := r.FTS.Retrieve(ctx, Params{
		Query: p.Query, N: candidates, Filters: p.Filters, Operator: p.Operator,
	})
	ftsMS := msSince(ftsStart)
	if err != nil {
		return Response{}, err
	}

	if len(ftsResp.Chunks) == 0 {
		return Response{
			Chunks: nil,
			TimingMS: map[string]float64{
				"fts": round2(ftsMS), "embedding": 0, "reranking": 0, "total": round2(ftsMS),
			},
			QueryInfo: map[string]any{
				"query": p.Query, "n": p.N, "fts_candidates": candidates,
				"results_returned": 0, "retrieval_mode": string(ModeHybrid),
			},
		}, nil
	}

	embedStart := time.Now()
	vec, err := r.Embedder.Embed(ctx, p.Query)
	embeddingMS := msSince(embedStart)
	if err != nil {
		return Response{}, err
	}

	rerankStart := time.Now()
	chunkIDs := make([]string, len(ftsResp.Chunks))
	textByID := make(map[string]Result, len(ftsResp.Chunks))
	for i, c := range ftsResp.Chunks {
		chunkIDs[i] = c.ChunkID
		textByID[c.ChunkID] = c
	}

	hits, err := r.Store.RerankByVector(ctx, chunkIDs, vec)
	rerankingMS := msSince(rerankStart)
	if err != nil {
		return Response{}, err
	}

	reranked := hitsToResults(hits)
	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ChunkID < reranked[j].ChunkID
	})

	n := p.N
	if n <= 0 || n > len(reranked) {
		n = len(reranked)
	}
	top := reranked[:n]
	totalMS := ftsMS + embeddingMS + rerankingMS

	return Response{
		Chunks: top,
		TimingMS: map[string]float64{
			"fts": round2(ftsMS), "embedding": round2(embeddingMS),
			"reranking": round2(rerankingMS), "total": round2(totalMS),
		},
		QueryInfo: map[string]any{
			"query": p.Query, "n": p.N, "fts_candidates": candidates,
			"results_returned": len(top), "retrieval_mode": string(ModeHybrid),
		},
	}, nil
}

func (r *HybridRetriever) Explain(ctx context.Context, p Params) (string, error) {
	candidates := p.FTSCandidates
	if candidates == 0 {
		candidates = defaultFTSCandidates
	}
	ftsExplain, err := r.FTS.Explain(ctx, Params{Query: p.Query, N: candidates, Filters: p.Filters, Operator: p.Operator})
	if err != nil {
		return "", err
	}

	embedStart := time.Now()
	_, err = r.Embedder.Embed(ctx, p.Query)
	embeddingMS := msSince(embedStart)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"HYBRID RETRIEVAL EXPLAIN\nStage 1: Full-Text Search\n%s\nStage 2: Vector Reranking\n"+
			"  query embedding generation (charged to caller): %.2fms\n",
		ftsExplain, embeddingMS,
	), nil
}
