package retrieval

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

func vectorArg(vec []float32) pgvector.Vector {
	return pgvector.NewVector(vec)
}

// VectorRetriever is the semantic retriever of spec.md §4.4.
type VectorRetriever struct {
	Store    *store.Store
	Embedder embedding.Embedder
}

func NewVectorRetriever(s *store.Store, e embedding.Embedder) *VectorRetriever {
	return &VectorRetriever{Store: s, Embedder: e}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, p Params) (Response, error) {
	if p.N < 1 {
		return Response{}, apperr.New(apperr.BadInput, "n must be >= 1")
	}

	embedStart := time.Now()
	vec, err := r.Embedder.Embed(ctx, p.Query)
	embeddingMS := msSince(embedStart)
	if err != nil {
		return Response{}, err
	}

	retrieveStart := time.Now()
	hits, err := r.Store.QueryChunksVector(ctx, vec, p.N, p.Filters)
	retrievalMS := msSince(retrieveStart)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Chunks: hitsToResults(hits),
		TimingMS: map[string]float64{
			"embedding": round2(embeddingMS),
			"retrieval": round2(retrievalMS),
			"total":     round2(embeddingMS + retrievalMS),
		},
		QueryInfo: map[string]any{
			"query":            p.Query,
			"n":                p.N,
			"results_returned": len(hits),
			"retrieval_mode":   string(ModeVector),
		},
	}, nil
}

func (r *VectorRetriever) Explain(ctx context.Context, p Params) (string, error) {
	vec, err := r.Embedder.Embed(ctx, p.Query)
	if err != nil {
		return "", err
	}
	where, fargs := store.FilterSQL(p.Filters, 3)
	sql := `
		SELECT c.id, c.doc_id, c.ord, c.text, 1 - (ce.embedding <=> $1::vector) AS similarity
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON ce.chunk_id = c.id
		INNER JOIN docs d ON c.doc_id = d.id
		WHERE TRUE ` + where + `
		ORDER BY similarity DESC, c.id ASC
		LIMIT $2`
	args := append([]any{vectorArg(vec), p.N}, fargs...)
	return r.Store.Explain(ctx, sql, args...)
}
