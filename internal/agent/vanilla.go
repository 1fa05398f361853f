package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
	"github.com/dwarkesh-labs/transcript-rag/internal/tracing"
)

const defaultVanillaMaxReturned = 10

// VanillaAgent answers with a single retrieval call against the
// question as given, then one synthesis call over the retrieved chunks.
// Grounded on original_source/src/agents/vanilla.py.
type VanillaAgent struct {
	Retrieval *retrieval.Registry
	LLM       llm.Client
}

func NewVanillaAgent(r *retrieval.Registry, c llm.Client) *VanillaAgent {
	return &VanillaAgent{Retrieval: r, LLM: c}
}

func (a *VanillaAgent) Generate(ctx context.Context, question string, params Params) (Response, error) {
	ctx, end := tracing.Start(ctx, "agent.vanilla.generate")
	start := time.Now()
	var runErr error
	defer func() { end(runErr == nil) }()

	maxReturned := params.MaxReturned
	if maxReturned <= 0 {
		maxReturned = defaultVanillaMaxReturned
	}

	resp, err := a.Retrieval.Retrieve(ctx, params.Mode, retrieval.Params{
		Query:         question,
		N:             maxReturned,
		Filters:       params.Filters,
		Operator:      params.Operator,
		FTSCandidates: params.FTSCandidates,
	})
	if err != nil {
		runErr = err
		return Response{}, err
	}

	systemPrompt := "Answer the user's question using only the provided information below:\n" + buildContext(resp.Chunks)

	chatResp, err := a.LLM.Chat(ctx, systemPrompt, question)
	if err != nil {
		runErr = err
		return Response{}, err
	}

	traceID := tracing.TraceID(ctx)
	var traceIDPtr *string
	if traceID != "" {
		traceIDPtr = &traceID
	}

	return Response{
		Answer:    chatResp.Text,
		TraceID:   traceIDPtr,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000.0,
		RetrievedChunks: chunksFromResults(resp.Chunks),
		ModelUsed: a.LLM.ModelName(),
		TokensUsed: TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

func buildContext(chunks []retrieval.Result) string {
	var sb strings.Builder
	for _, c := range chunks {
		title := c.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(&sb, "\nTitle: %s\nText Quotation: %s\n\n", title, c.Text)
	}
	return sb.String()
}
