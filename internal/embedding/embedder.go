// Package embedding wraps langchaingo's embeddings.Embedder so the rest of the
// code can depend on a clean interface instead of the langchaingo type directly,
// adding the dimensional check spec.md §4.2 requires of every returned vector.
package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/tracing"
)

// Embedder is the interface the rest of the app depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder wraps langchaingo's EmbedderImpl and enforces that
// every returned vector matches the configured dimensionality D.
type OpenAIEmbedder struct {
	inner *embeddings.EmbedderImpl
	dim   int
}

// NewOpenAIEmbedder creates an embedder backed by the given OpenAI
// embedding model, failing fast on provider init errors.
func NewOpenAIEmbedder(apiKey, model string, dimensions int) (*OpenAIEmbedder, error) {
	llm, err := lcopenai.New(
		lcopenai.WithToken(apiKey),
		lcopenai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.EmbedderUnavailable, "init openai embedding client", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, apperr.Wrap(apperr.EmbedderUnavailable, "init embedder", err)
	}

	return &OpenAIEmbedder{inner: embedder, dim: dimensions}, nil
}

// Embed embeds a single query string, reusing EmbedBatch for a
// one-item batch so both paths share the same dimension check — the
// embedder makes at most one provider call per EmbedBatch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds a batch of texts in a single provider call and
// verifies every returned vector matches the configured dimension D.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, end := tracing.Start(ctx, "embedding.embed_batch")
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		end(false)
		return nil, apperr.Wrap(apperr.EmbedderUnavailable, "embed batch", err)
	}
	for i, v := range vecs {
		if len(v) != e.dim {
			end(false)
			return nil, apperr.New(apperr.EmbedderProtocolError,
				fmt.Sprintf("embedding %d has dimension %d, expected %d", i, len(v), e.dim))
		}
	}
	end(true)
	return vecs, nil
}
