package eval

import (
	"context"
	"errors"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/agent"
	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
)

// RetrievalResult is the outcome of running one Task through an agent,
// mirroring original_source/evals/retrieval/runner.py's EvalResult.
type RetrievalResult struct {
	EvalID             string
	Question           string
	QuestionType       QuestionType
	DifficultyLevel    DifficultyLevel
	ReferenceAnswer    string
	ExpectedChunkIDs   []string
	GeneratedAnswer    string
	RetrievedChunkIDs  []string
	MetricsByK         map[int]metrics.RetrievalMetrics
	LatencyMS          float64
	ModelUsed          string
	TokensUsed         agent.TokenUsage
	TraceID            *string
	SubQueries         []string
	DeduplicationStats *agent.DedupStats
	Success            bool
	Error              string
}

// RunSingle runs one eval task against an agent, computing retrieval
// metrics at every requested k. A per-task timeout produces a
// Success=false, Error="timeout" result with zero-valued metrics at
// every k, matching the runner's asyncio.TimeoutError branch.
func RunSingle(ctx context.Context, a agent.Agent, task Task, params agent.Params, kValues []int, timeout time.Duration) RetrievalResult {
	groundTruth := task.SourceChunkIDs

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := withRetry(runCtx, func() (agent.Response, error) {
		return a.Generate(runCtx, task.Question, params)
	})
	if err != nil {
		errMsg := err.Error()
		latency := 0.0
		if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			errMsg = "timeout"
			latency = float64(timeout / time.Millisecond)
		}
		return RetrievalResult{
			EvalID:            task.ID,
			Question:          task.Question,
			QuestionType:      task.QuestionType,
			DifficultyLevel:   task.DifficultyLevel,
			ReferenceAnswer:   task.ReferenceAnswer,
			ExpectedChunkIDs:  groundTruth,
			RetrievedChunkIDs: nil,
			MetricsByK:        zeroMetricsByK(groundTruth, kValues),
			LatencyMS:         latency,
			Success:           false,
			Error:             errMsg,
		}
	}

	retrievedIDs := make([]string, len(resp.RetrievedChunks))
	for i, c := range resp.RetrievedChunks {
		retrievedIDs[i] = c.ChunkID
	}

	metricsByK := make(map[int]metrics.RetrievalMetrics, len(kValues))
	for _, k := range kValues {
		metricsByK[k] = metrics.Compute(retrievedIDs, groundTruth, k)
	}

	return RetrievalResult{
		EvalID:             task.ID,
		Question:           task.Question,
		QuestionType:       task.QuestionType,
		DifficultyLevel:    task.DifficultyLevel,
		ReferenceAnswer:    task.ReferenceAnswer,
		ExpectedChunkIDs:   groundTruth,
		GeneratedAnswer:    resp.Answer,
		RetrievedChunkIDs:  retrievedIDs,
		MetricsByK:         metricsByK,
		LatencyMS:          resp.LatencyMS,
		ModelUsed:          resp.ModelUsed,
		TokensUsed:         resp.TokensUsed,
		TraceID:            resp.TraceID,
		SubQueries:         resp.SubQueries,
		DeduplicationStats: resp.DeduplicationStats,
		Success:            true,
	}
}

func zeroMetricsByK(groundTruth []string, kValues []int) map[int]metrics.RetrievalMetrics {
	out := make(map[int]metrics.RetrievalMetrics, len(kValues))
	for _, k := range kValues {
		out[k] = metrics.Compute(nil, groundTruth, k)
	}
	return out
}

// RunResults is the full outcome of an evaluation run across a dataset,
// mirroring original_source/evals/retrieval/runner.py's EvalRunResults
// (schema inferred from its field usage, since
// original_source/evals/results/schemas.py was not present in the
// retrieved reference material).
type RunResults struct {
	RunID          string
	AgentType      agent.Type
	DatasetPath    string
	DatasetVersion string
	RetrievalMode  string
	FTSCandidates  int
	MaxReturned    int
	KValues        []int
	StartedAt      time.Time
	CompletedAt    time.Time
	Results        []RetrievalResult
	OverallByK     map[int]MetricsBreakdown
	ByDifficulty   map[DifficultyLevel]map[int]MetricsBreakdown
	ByQuestionType map[QuestionType]map[int]MetricsBreakdown
	NumSuccessful  int
	NumFailed      int
	Errors         []RunError
}

// RunError is one failed task's ID and error message.
type RunError struct {
	EvalID string
	Error  string
}

// TotalExamples is the number of tasks the run covered.
func (r RunResults) TotalExamples() int { return len(r.Results) }

// SuccessRate is NumSuccessful / TotalExamples, or 0 for an empty run.
func (r RunResults) SuccessRate() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.NumSuccessful) / float64(len(r.Results))
}

// TotalDuration is CompletedAt - StartedAt.
func (r RunResults) TotalDuration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Aggregate builds OverallByK / ByDifficulty / ByQuestionType / error
// list from a completed run's per-task results, mirroring the
// aggregation block in runner.py's main().
func Aggregate(results []RetrievalResult, kValues []int) (overall map[int]MetricsBreakdown, byDifficulty map[DifficultyLevel]map[int]MetricsBreakdown, byQuestionType map[QuestionType]map[int]MetricsBreakdown, errs []RunError) {
	overall = make(map[int]MetricsBreakdown, len(kValues))
	for _, k := range kValues {
		overall[k] = breakdownForK(results, k)
	}

	byDifficulty = make(map[DifficultyLevel]map[int]MetricsBreakdown)
	for _, level := range []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		levelResults := filterByDifficulty(results, level)
		if len(levelResults) == 0 {
			continue
		}
		byDifficulty[level] = make(map[int]MetricsBreakdown, len(kValues))
		for _, k := range kValues {
			byDifficulty[level][k] = breakdownForK(levelResults, k)
		}
	}

	byQuestionType = make(map[QuestionType]map[int]MetricsBreakdown)
	for _, qt := range []QuestionType{QuestionFactual, QuestionAnalytical, QuestionOpinion} {
		typeResults := filterByQuestionType(results, qt)
		if len(typeResults) == 0 {
			continue
		}
		byQuestionType[qt] = make(map[int]MetricsBreakdown, len(kValues))
		for _, k := range kValues {
			byQuestionType[qt][k] = breakdownForK(typeResults, k)
		}
	}

	for _, r := range results {
		if !r.Success {
			msg := r.Error
			if msg == "" {
				msg = "unknown"
			}
			errs = append(errs, RunError{EvalID: r.EvalID, Error: msg})
		}
	}
	return overall, byDifficulty, byQuestionType, errs
}

func breakdownForK(results []RetrievalResult, k int) MetricsBreakdown {
	ms := make([]metrics.RetrievalMetrics, 0, len(results))
	latencies := make([]float64, 0, len(results))
	for _, r := range results {
		if m, ok := r.MetricsByK[k]; ok {
			ms = append(ms, m)
			latencies = append(latencies, r.LatencyMS)
		}
	}
	return BuildMetricsBreakdown(ms, latencies, k)
}

func filterByDifficulty(results []RetrievalResult, level DifficultyLevel) []RetrievalResult {
	var out []RetrievalResult
	for _, r := range results {
		if r.DifficultyLevel == level {
			out = append(out, r)
		}
	}
	return out
}

func filterByQuestionType(results []RetrievalResult, qt QuestionType) []RetrievalResult {
	var out []RetrievalResult
	for _, r := range results {
		if r.QuestionType == qt {
			out = append(out, r)
		}
	}
	return out
}
