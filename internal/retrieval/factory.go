package retrieval

import (
	"context"
	"fmt"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
	"github.com/dwarkesh-labs/transcript-rag/internal/tracing"
)

// Registry holds one instance of each retrieval strategy and resolves a
// Mode to the right Retriever — the API layer uses the Mode enum, the
// core depends only on the Retriever interface.
type Registry struct {
	fts    *FTSRetriever
	vector *VectorRetriever
	hybrid *HybridRetriever
}

func NewRegistry(s *store.Store, e embedding.Embedder) *Registry {
	fts := NewFTSRetriever(s)
	return &Registry{
		fts:    fts,
		vector: NewVectorRetriever(s, e),
		hybrid: NewHybridRetriever(fts, s, e),
	}
}

func (r *Registry) For(mode Mode) (Retriever, error) {
	switch mode {
	case ModeFTS:
		return r.fts, nil
	case ModeVector:
		return r.vector, nil
	case ModeHybrid, "":
		return r.hybrid, nil
	default:
		return nil, apperr.New(apperr.BadInput, fmt.Sprintf("invalid retrieval mode: %q", mode))
	}
}

// ExplainFor runs EXPLAIN ANALYZE for the given mode and params, used by
// the benchmark endpoint (GET /api/retrieval/bench).
func (r *Registry) ExplainFor(ctx context.Context, mode Mode, p Params) (string, error) {
	retriever, err := r.For(mode)
	if err != nil {
		return "", err
	}
	return retriever.Explain(ctx, p)
}

// Retrieve is a convenience one-shot call used by the agent's retrieval
// tool, avoiding an extra ctx plumb-through where only a single call is
// needed.
func (r *Registry) Retrieve(ctx context.Context, mode Mode, p Params) (Response, error) {
	ctx, end := tracing.Start(ctx, "retrieval.retrieve")
	retriever, err := r.For(mode)
	if err != nil {
		end(false)
		return Response{}, err
	}
	resp, err := retriever.Retrieve(ctx, p)
	end(err == nil)
	return resp, err
}
