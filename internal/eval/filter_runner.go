package eval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
)

const filterToolName = "search_knowledge_base"

var filterToolParams = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "The search query to find relevant information.",
		},
		"speaker": map[string]any{
			"type":        "string",
			"description": "Filter by speaker name (e.g. \"Elon Musk\", \"Sam Altman\"). Use only when the user asks about a specific person's statements.",
		},
		"start_date": map[string]any{
			"type":        "string",
			"description": "Only return results from on or after this date (ISO format: YYYY-MM-DD).",
		},
		"end_date": map[string]any{
			"type":        "string",
			"description": "Only return results from on or before this date (ISO format: YYYY-MM-DD).",
		},
		"source": map[string]any{
			"type":        "string",
			"description": "Filter by source (e.g. \"youtube\", \"dwarkesh\").",
		},
		"doc_type": map[string]any{
			"type":        "string",
			"description": "Filter by document type (e.g. \"transcript\", \"article\").",
		},
	},
	"required": []string{"query"},
}

const filterHarnessSystemPrompt = `You are a helpful assistant that answers questions using a knowledge base of podcast transcripts.

CRITICAL INSTRUCTIONS FOR TOOL USE:

1. ALWAYS use the search_knowledge_base tool to find information before answering.

2. SPEAKER FILTERING: when the user asks about what a SPECIFIC PERSON said, thought, or discussed, extract that person's name and pass it as the speaker parameter.

3. DATE FILTERING: when the user mentions specific dates or years, translate them to start_date/end_date (e.g. "in 2024" -> start_date=2024-01-01, end_date=2024-12-31; "after March 2023" -> start_date=2023-03-01; "before 2022" -> end_date=2021-12-31).

4. When no specific person is mentioned, do NOT set the speaker parameter.

5. Base your answer only on retrieved information.`

// ToolCallCapture is one recorded call the model made to the
// search_knowledge_base tool, mirroring
// original_source/evals/tasks/tool_params/types.py's ToolCallCapture.
type ToolCallCapture struct {
	Query   string
	Filters metrics.AppliedFilters
}

type filterToolArgs struct {
	Query     string `json:"query"`
	Speaker   string `json:"speaker"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Source    string `json:"source"`
	DocType   string `json:"doc_type"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FilterHarness runs filter-extraction eval cases against an LLM,
// capturing what filters it attaches to the retrieval tool call —
// mirroring original_source/src/evals/harness.py's EvalHarness (the
// function_tool capture pattern adapted to this module's explicit
// ToolSpec/ToolCall shape instead of the OpenAI Agents SDK's decorator).
type FilterHarness struct {
	LLM       llm.Client
	Retrieval *retrieval.Registry
	Mode      retrieval.Mode
	Operator  retrieval.Operator
}

// FilterCaseResult is the outcome of running one FilterCase through the
// harness, mirroring ToolParamsEvalResult.
type FilterCaseResult struct {
	CaseID        string
	Query         string
	Expected      metrics.ExpectedFilters
	Applied       metrics.AppliedFilters
	ToolCalls     []ToolCallCapture
	FilterMatches map[string]bool
	OverallMatch  bool
	Answer        string
	LatencyMS     float64
	Error         string
}

// Run executes one filter-extraction case: it asks the model to call
// the search_knowledge_base tool, decodes whatever filters it chose,
// and compares them against the case's expected filters.
func (h *FilterHarness) Run(ctx context.Context, c FilterCase) FilterCaseResult {
	start := time.Now()

	resp, err := withRetry(ctx, func() (llm.ChatResponse, error) {
		return h.LLM.ChatWithTools(ctx, filterHarnessSystemPrompt, c.Query, llm.ToolSpec{
			Name:        filterToolName,
			Description: "Search the knowledge base for relevant podcast transcript passages, optionally filtered by speaker, date range, source, or document type.",
			Parameters:  filterToolParams,
		})
	})
	latency := float64(time.Since(start) / time.Millisecond)
	if err != nil {
		return FilterCaseResult{CaseID: c.ID, Query: c.Query, Expected: c.Expected, LatencyMS: latency, Error: err.Error()}
	}

	var toolCalls []ToolCallCapture
	applied := metrics.AppliedFilters{}
	for _, tc := range resp.ToolCalls {
		if tc.Name != filterToolName {
			continue
		}
		var args filterToolArgs
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			continue
		}
		capture := ToolCallCapture{
			Query: args.Query,
			Filters: metrics.AppliedFilters{
				Speaker:   optionalString(args.Speaker),
				StartDate: optionalString(args.StartDate),
				EndDate:   optionalString(args.EndDate),
				Source:    optionalString(args.Source),
				DocType:   optionalString(args.DocType),
			},
		}
		toolCalls = append(toolCalls, capture)
		applied = capture.Filters
	}

	matches, overall := metrics.CompareFilters(c.Expected, applied)

	return FilterCaseResult{
		CaseID:        c.ID,
		Query:         c.Query,
		Expected:      c.Expected,
		Applied:       applied,
		ToolCalls:     toolCalls,
		FilterMatches: matches,
		OverallMatch:  overall,
		Answer:        resp.Text,
		LatencyMS:     latency,
	}
}

// RunAll runs every case sequentially, mirroring EvalHarness.run_all.
func (h *FilterHarness) RunAll(ctx context.Context, cases []FilterCase) []FilterCaseResult {
	results := make([]FilterCaseResult, 0, len(cases))
	for _, c := range cases {
		results = append(results, h.Run(ctx, c))
	}
	return results
}

func toFilterCase(r FilterCaseResult) metrics.FilterCase {
	return metrics.FilterCase{
		Expected: r.Expected,
		Applied:  r.Applied,
		Matches:  r.FilterMatches,
		Errored:  r.Error != "",
	}
}

// ComputeFilterRunMetrics aggregates a batch of FilterCaseResults into
// overall/per-filter/per-category metrics, mirroring
// compute_tool_params_metrics.
func ComputeFilterRunMetrics(results []FilterCaseResult, caseCategory map[string]string) FilterRunMetrics {
	out := FilterRunMetrics{TotalCases: len(results)}
	if len(results) == 0 {
		return out
	}

	cases := make([]metrics.FilterCase, len(results))
	totalLatency := 0.0
	for i, r := range results {
		cases[i] = toFilterCase(r)
		switch {
		case r.Error != "":
			out.Errors++
		case r.OverallMatch:
			out.Passed++
		default:
			out.Failed++
		}
		totalLatency += r.LatencyMS
	}

	if nonError := out.TotalCases - out.Errors; nonError > 0 {
		out.OverallAccuracy = float64(out.Passed) / float64(nonError)
	}
	out.AvgLatencyMS = totalLatency / float64(out.TotalCases)
	out.FilterMetrics = metrics.ComputeFilterMetrics(cases)

	byCategory := make(map[string][]int)
	for i, r := range results {
		cat := caseCategory[r.CaseID]
		if cat == "" {
			cat = "general"
		}
		byCategory[cat] = append(byCategory[cat], i)
	}
	out.CategoryMetrics = make(map[string]metrics.CategoryMetrics, len(byCategory))
	for cat, idxs := range byCategory {
		catCases := make([]metrics.FilterCase, len(idxs))
		overall := make([]bool, len(idxs))
		for j, idx := range idxs {
			catCases[j] = cases[idx]
			overall[j] = results[idx].OverallMatch
		}
		out.CategoryMetrics[cat] = metrics.ComputeCategoryMetrics(cat, catCases, overall)
	}

	return out
}

// FilterRunMetrics is the aggregate report for a filter-extraction eval
// run, mirroring ToolParamsMetrics.
type FilterRunMetrics struct {
	TotalCases      int
	Passed          int
	Failed          int
	Errors          int
	OverallAccuracy float64
	AvgLatencyMS    float64
	FilterMetrics   map[string]metrics.FilterMetrics
	CategoryMetrics map[string]metrics.CategoryMetrics
}
