// Package retrieval implements the three retrieval strategies of
// spec.md §4.3-§4.5: lexical (FTS), vector, and hybrid. All three share
// the narrow {Retrieve, Explain} capability behind the Retriever
// interface, selected by the Mode enum — grounded on
// original_source/src/retrieval/{fts,vector,hybrid}.py.
package retrieval

import (
	"context"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

// Mode selects which retrieval strategy the API/agent layer uses.
type Mode string

const (
	ModeFTS    Mode = "fts"
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

// Operator selects FTS query compilation strategy.
type Operator string

const (
	OperatorOR  Operator = "or"
	OperatorAND Operator = "and"
)

// Filters narrows retrieval to a subset of chunks (re-exported from
// store so callers outside this package don't need to import store
// directly just to build a query).
type Filters = store.Filters

// Result is the retrieval result entity of spec.md §3: scores are
// comparable only within a single retrieval call.
type Result struct {
	ChunkID     string
	DocID       string
	Ord         int
	Text        string
	Score       float64
	Title       string
	URL         string
	Source      string
	DocType     string
	Speaker     string
	PublishedAt *time.Time
}

// Response is what every retriever returns: ranked chunks plus a timing
// breakdown and query metadata for observability.
type Response struct {
	Chunks    []Result
	TimingMS  map[string]float64
	QueryInfo map[string]any
}

// Params bundles the parameters every retriever variant accepts, a
// superset covering fts/vector/hybrid so the agent layer can hold one
// struct regardless of mode.
type Params struct {
	Query         string
	N             int
	Filters       Filters
	Operator      Operator
	FTSCandidates int // hybrid only; default 100, bounded [1,500]
}

// Retriever is the narrow capability shared by all three strategies.
type Retriever interface {
	Retrieve(ctx context.Context, p Params) (Response, error)
	Explain(ctx context.Context, p Params) (string, error)
}

func hitToResult(h store.ChunkHit) Result {
	return Result{
		ChunkID:     h.ChunkID,
		DocID:       h.DocID,
		Ord:         h.Ord,
		Text:        h.Text,
		Score:       h.Score,
		Title:       h.Title,
		URL:         h.URL,
		Source:      h.Source,
		DocType:     h.DocType,
		Speaker:     h.Speaker,
		PublishedAt: h.PublishedAt,
	}
}

func hitsToResults(hits []store.ChunkHit) []Result {
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = hitToResult(h)
	}
	return out
}
