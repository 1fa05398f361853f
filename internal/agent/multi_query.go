package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
	"github.com/dwarkesh-labs/transcript-rag/internal/tracing"
)

const (
	defaultMultiQueryMaxReturned = 15
	boostFactor                  = 0.2
	minSubQueries                = 1
	maxSubQueries                = 5
	maxDecomposeAttempts         = 2
)

const retrievalToolName = "retrieve_for_queries"

var retrievalToolParams = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"queries": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "2 to 5 MECE search queries, each targeting a specific aspect of the question.",
		},
	},
	"required": []string{"queries"},
}

const multiQuerySystemPromptTemplate = `You are a helpful assistant that answers questions using a knowledge base of interview transcripts.

You have access to a multi-query retrieval tool. To answer questions effectively:

1. Analyze the user's question and break it down into 2-5 MECE (Mutually Exclusive, Collectively Exhaustive) sub-queries.
2. Each sub-query should target a specific aspect of the question.
3. Call %s with your list of sub-queries.
4. Synthesize the retrieved information into a comprehensive answer.

Guidelines:
- Use 2-3 sub-queries for simple questions, 4-5 for complex multi-part questions.
- Make sub-queries specific and searchable.
- Base your answer ONLY on the retrieved information.
- If the information doesn't fully answer the question, say so clearly.
`

// MultiQueryAgent decomposes the question into sub-queries via a single
// tool call, retrieves each sub-query in bounded parallel, deduplicates
// with score boosting, and synthesizes an answer. Grounded on
// original_source/src/agents/multi_query.py.
type MultiQueryAgent struct {
	Retrieval *retrieval.Registry
	LLM       llm.Client
}

func NewMultiQueryAgent(r *retrieval.Registry, c llm.Client) *MultiQueryAgent {
	return &MultiQueryAgent{Retrieval: r, LLM: c}
}

func (a *MultiQueryAgent) Generate(ctx context.Context, question string, params Params) (Response, error) {
	ctx, end := tracing.Start(ctx, "agent.multi_query.generate")
	start := time.Now()
	var runErr error
	defer func() { end(runErr == nil) }()

	maxReturned := params.MaxReturned
	if maxReturned <= 0 {
		maxReturned = defaultMultiQueryMaxReturned
	}

	systemPrompt := fmt.Sprintf(multiQuerySystemPromptTemplate, retrievalToolName)

	tool := llm.ToolSpec{
		Name:        retrievalToolName,
		Description: "Search the knowledge base with multiple queries in parallel, deduplicating and ranking results.",
		Parameters:  retrievalToolParams,
	}

	var decomposeResp llm.ChatResponse
	var subQueries []string
	var history []llm.Turn
	for attempt := 1; ; attempt++ {
		var callErr error
		decomposeResp, callErr = a.LLM.ChatWithTools(ctx, systemPrompt, question, tool, history...)
		if callErr != nil {
			runErr = callErr
			return Response{}, callErr
		}

		var toolCalled bool
		subQueries = nil
		for _, tc := range decomposeResp.ToolCalls {
			if tc.Name != retrievalToolName {
				continue
			}
			toolCalled = true
			var args struct {
				Queries []string `json:"queries"`
			}
			if jsonErr := json.Unmarshal(tc.Arguments, &args); jsonErr != nil {
				runErr = apperr.Wrap(apperr.ToolInputRejected, "decode retrieval tool arguments", jsonErr)
				return Response{}, runErr
			}
			subQueries = args.Queries
		}

		if !toolCalled {
			// The model chose not to decompose at all; fall back to the
			// question itself as the single sub-query.
			subQueries = []string{question}
			break
		}
		if len(subQueries) >= minSubQueries {
			break
		}
		if attempt >= maxDecomposeAttempts {
			runErr = apperr.New(apperr.ToolInputRejected, "at least one query is required")
			return Response{}, runErr
		}
		// The model called the tool with an empty queries list. Reject it
		// as a tool-side error and let the model retry within the same
		// conversation rather than failing the request outright.
		history = append(history,
			llm.Turn{Role: "assistant", Content: fmt.Sprintf("(called %s with an empty queries list)", retrievalToolName)},
			llm.Turn{Role: "user", Content: fmt.Sprintf("%s rejected: queries must not be empty. Call it again with 2-5 MECE search queries.", retrievalToolName)},
		)
	}
	if len(subQueries) > maxSubQueries {
		subQueries = subQueries[:maxSubQueries]
	}

	resultsByQuery, chunksPerSubquery := a.retrieveAll(ctx, subQueries, params, maxReturned)

	deduped, stats := deduplicateChunks(resultsByQuery, subQueries, maxReturned, boostFactor)

	synthesisPrompt := "Answer the user's question using only the provided information below:\n" + buildContext(deduped)
	synthesisResp, err := a.LLM.Chat(ctx, synthesisPrompt, question)
	if err != nil {
		runErr = err
		return Response{}, err
	}

	traceID := tracing.TraceID(ctx)
	var traceIDPtr *string
	if traceID != "" {
		traceIDPtr = &traceID
	}

	totalUsage := TokenUsage{
		PromptTokens:     decomposeResp.Usage.PromptTokens + synthesisResp.Usage.PromptTokens,
		CompletionTokens: decomposeResp.Usage.CompletionTokens + synthesisResp.Usage.CompletionTokens,
		TotalTokens:      decomposeResp.Usage.TotalTokens + synthesisResp.Usage.TotalTokens,
	}

	return Response{
		Answer:             synthesisResp.Text,
		TraceID:            traceIDPtr,
		LatencyMS:          float64(time.Since(start).Microseconds()) / 1000.0,
		RetrievedChunks:    chunksFromResults(deduped),
		ModelUsed:          a.LLM.ModelName(),
		TokensUsed:         totalUsage,
		SubQueries:         subQueries,
		ChunksPerSubquery:  chunksPerSubquery,
		DeduplicationStats: &stats,
	}, nil
}

// retrieveAll runs one retrieval per sub-query with bounded parallelism
// (one goroutine per sub-query, since there are at most 5). A failing
// sub-query yields an empty result rather than aborting the others —
// spec.md §4.7's per-sub-query failure isolation.
func (a *MultiQueryAgent) retrieveAll(ctx context.Context, subQueries []string, params Params, maxReturned int) (map[string][]retrieval.Result, map[string]int) {
	results := make(map[string][]retrieval.Result, len(subQueries))
	counts := make(map[string]int, len(subQueries))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range subQueries {
		q := q
		g.Go(func() error {
			resp, err := a.Retrieval.Retrieve(gctx, params.Mode, retrieval.Params{
				Query:         q,
				N:             maxReturned,
				Filters:       params.Filters,
				Operator:      params.Operator,
				FTSCandidates: params.FTSCandidates,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[q] = nil
				counts[q] = 0
				return nil
			}
			results[q] = resp.Chunks
			counts[q] = len(resp.Chunks)
			return nil
		})
	}
	_ = g.Wait() // errors are already absorbed per sub-query above

	return results, counts
}

// deduplicateChunks merges per-sub-query retrieval results keyed by
// chunk ID, boosting the score of any chunk that appears under more than
// one sub-query by boostFactor per additional occurrence, then returns
// the top maxReturned by boosted score (ties broken by chunk ID for
// determinism).
func deduplicateChunks(resultsByQuery map[string][]retrieval.Result, order []string, maxReturned int, boost float64) ([]retrieval.Result, DedupStats) {
	type entry struct {
		best  retrieval.Result
		count int
		max   float64
	}
	byID := make(map[string]*entry)
	totalBefore := 0

	for _, q := range order {
		for _, c := range resultsByQuery[q] {
			totalBefore++
			if e, ok := byID[c.ChunkID]; ok {
				e.count++
				if c.Score > e.max {
					e.max = c.Score
					e.best = c
				}
			} else {
				byID[c.ChunkID] = &entry{best: c, count: 1, max: c.Score}
			}
		}
	}

	boosted := make([]retrieval.Result, 0, len(byID))
	maxOccurrences := 0
	chunksBoosted := 0
	for _, e := range byID {
		if e.count > maxOccurrences {
			maxOccurrences = e.count
		}
		if e.count > 1 {
			chunksBoosted++
		}
		multiplier := 1.0 + boost*float64(e.count-1)
		out := e.best
		out.Score = e.max * multiplier
		boosted = append(boosted, out)
	}

	sort.Slice(boosted, func(i, j int) bool {
		if boosted[i].Score != boosted[j].Score {
			return boosted[i].Score > boosted[j].Score
		}
		return boosted[i].ChunkID < boosted[j].ChunkID
	})

	if maxReturned > 0 && len(boosted) > maxReturned {
		boosted = boosted[:maxReturned]
	}

	stats := DedupStats{
		TotalBeforeDedup:  totalBefore,
		UniqueChunks:      len(byID),
		DuplicatesRemoved: totalBefore - len(byID),
		ChunksBoosted:     chunksBoosted,
		MaxOccurrences:    maxOccurrences,
		ChunksReturned:    len(boosted),
	}
	return boosted, stats
}
