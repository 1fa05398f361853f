package retrieval

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

// stopWords is the common English closed class removed during
// tokenization, embedded in the system per spec.md §4.3.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "will": {}, "with": {}, "not": {}, "but": {}, "they": {}, "have": {},
	"been": {}, "would": {}, "could": {}, "should": {}, "their": {}, "there": {},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// tokenize extracts alphanumeric terms, lower-cases them, and removes
// stop words and single-character noise.
func tokenize(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if len(w) <= 1 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// FTSRetriever is the lexical retriever of spec.md §4.3.
type FTSRetriever struct {
	Store *store.Store
}

func NewFTSRetriever(s *store.Store) *FTSRetriever { return &FTSRetriever{Store: s} }

// buildTSQuery selects the tsquery compilation strategy and returns the
// SQL expression (referencing the caller's first bind parameter) plus
// the argument to bind there.
func buildTSQuery(query string, operator Operator) (expr string, arg string) {
	if operator == OperatorAND {
		return "websearch_to_tsquery('english', $1)", query
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return "websearch_to_tsquery('english', $1)", query
	}
	return "to_tsquery('english', $1)", strings.Join(terms, " | ")
}

func (r *FTSRetriever) Retrieve(ctx context.Context, p Params) (Response, error) {
	if p.N < 1 {
		return Response{}, apperr.New(apperr.BadInput, "n must be >= 1")
	}
	operator := p.Operator
	if operator == "" {
		operator = OperatorOR
	}

	start := time.Now()
	expr, arg := buildTSQuery(p.Query, operator)
	hits, err := r.Store.QueryChunksFTS(ctx, expr, arg, p.N, p.Filters)
	retrievalMS := msSince(start)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Chunks: hitsToResults(hits),
		TimingMS: map[string]float64{
			"retrieval": round2(retrievalMS),
			"total":     round2(retrievalMS),
		},
		QueryInfo: map[string]any{
			"query":            p.Query,
			"n":                p.N,
			"results_returned": len(hits),
			"operator":         string(operator),
		},
	}, nil
}

func (r *FTSRetriever) Explain(ctx context.Context, p Params) (string, error) {
	operator := p.Operator
	if operator == "" {
		operator = OperatorOR
	}
	expr, arg := buildTSQuery(p.Query, operator)
	where, fargs := store.FilterSQL(p.Filters, 3)
	sql := `
		SELECT c.id, c.doc_id, c.ord, c.text, ts_rank(c.tsv, ` + expr + `) AS score
		FROM chunks c
		INNER JOIN docs d ON c.doc_id = d.id
		WHERE c.tsv @@ ` + expr + where + `
		ORDER BY score DESC, c.id ASC
		LIMIT $2`
	args := append([]any{arg, p.N}, fargs...)
	return r.Store.Explain(ctx, sql, args...)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
