// Command harness runs the offline evaluation suites of spec.md §4.9:
// retrieval-quality evaluation against a ground-truth dataset, and
// filter-extraction accuracy for the multi-query agent. Grounded on
// original_source/evals/retrieval/runner.py and
// original_source/evals/tasks/tool_params/runner.py.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwarkesh-labs/transcript-rag/internal/agent"
	"github.com/dwarkesh-labs/transcript-rag/internal/config"
	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/eval"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

// newRunID builds the timestamp-UUID run identifier spec.md §6 requires:
// a sortable timestamp prefix for readability, a short uuid suffix for
// uniqueness against concurrent runs sharing the same second.
func newRunID(t time.Time, suffix string) string {
	return fmt.Sprintf("%s_%s_%s", t.Format("20060102_150405"), suffix, uuid.NewString()[:8])
}

type kValues []int

func (k *kValues) String() string {
	strs := make([]string, len(*k))
	for i, v := range *k {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ",")
}

func (k *kValues) Set(value string) error {
	*k = nil
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid k value %q: %w", part, err)
		}
		if n < 1 {
			return fmt.Errorf("invalid k value %q: must be at least 1", part)
		}
		*k = append(*k, n)
	}
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	evalType := flag.String("eval-type", "retrieval", "evaluation suite to run: retrieval, tool-params")
	agentFlag := flag.String("agent", "multi-query", "agent type to evaluate: vanilla, multi-query")
	datasetPath := flag.String("dataset", "evals/datasets/eval_questions.json", "path to retrieval eval dataset JSON")
	numSamples := flag.Int("num-samples", 0, "number of examples to evaluate (0 = all)")
	k := kValues{5, 10, 15}
	flag.Var(&k, "k", "comma-separated k values for @k metrics (default 5,10,15)")
	mode := flag.String("mode", "hybrid", "retrieval mode: fts, vector, hybrid")
	ftsCandidates := flag.Int("fts-candidates", 100, "number of FTS candidates for hybrid mode")
	maxReturned := flag.Int("max-returned", 15, "number of chunks returned after reranking")
	outputDir := flag.String("output-dir", "evals/results", "output directory for results")
	timeoutSec := flag.Float64("timeout", 0, "timeout per example in seconds (0 = no timeout)")
	category := flag.String("category", "", "tool-params only: run only cases in this category")
	caseID := flag.String("case-id", "", "tool-params only: run only a specific case by ID")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	embedder, err := embedding.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	llmClient, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel)
	if err != nil {
		slog.Error("failed to create chat client", "error", err)
		os.Exit(1)
	}
	retrievalRegistry := retrieval.NewRegistry(db, embedder)

	var exitCode int
	switch *evalType {
	case "retrieval":
		exitCode = runRetrievalEval(ctx, retrievalEvalArgs{
			agentFactory:  agent.NewFactory(retrievalRegistry, llmClient),
			agentType:     agent.Type(*agentFlag),
			datasetPath:   *datasetPath,
			numSamples:    *numSamples,
			kValues:       k,
			mode:          retrieval.Mode(*mode),
			ftsCandidates: *ftsCandidates,
			maxReturned:   *maxReturned,
			outputDir:     *outputDir,
			timeout:       time.Duration(*timeoutSec * float64(time.Second)),
		})
	case "tool-params":
		exitCode = runFilterEval(ctx, filterEvalArgs{
			llmClient:  llmClient,
			registry:   retrievalRegistry,
			mode:       retrieval.Mode(*mode),
			category:   *category,
			caseID:     *caseID,
			numSamples: *numSamples,
			outputDir:  *outputDir,
		})
	default:
		slog.Error("unknown eval-type", "eval-type", *evalType)
		exitCode = 1
	}

	os.Exit(exitCode)
}

type retrievalEvalArgs struct {
	agentFactory  *agent.Factory
	agentType     agent.Type
	datasetPath   string
	numSamples    int
	kValues       []int
	mode          retrieval.Mode
	ftsCandidates int
	maxReturned   int
	outputDir     string
	timeout       time.Duration
}

func runRetrievalEval(ctx context.Context, a retrievalEvalArgs) int {
	dataset, err := eval.LoadDataset(a.datasetPath)
	if err != nil {
		slog.Error("failed to load eval dataset", "error", err)
		return 1
	}
	slog.Info("loaded eval dataset", "count", len(dataset.Examples), "version", dataset.Version)

	examples := dataset.Examples
	if a.numSamples > 0 && a.numSamples < len(examples) {
		examples = examples[:a.numSamples]
	}

	ag, err := a.agentFactory.Get(a.agentType)
	if err != nil {
		slog.Error("failed to resolve agent", "error", err)
		return 1
	}

	params := agent.Params{
		Mode:          a.mode,
		Operator:      retrieval.OperatorOR,
		FTSCandidates: a.ftsCandidates,
		MaxReturned:   a.maxReturned,
	}

	startedAt := time.Now()
	results := make([]eval.RetrievalResult, 0, len(examples))
	for i, task := range examples {
		slog.Info("evaluating", "index", i+1, "total", len(examples), "id", task.ID)
		results = append(results, eval.RunSingle(ctx, ag, task, params, a.kValues, a.timeout))
	}
	completedAt := time.Now()

	overall, byDifficulty, byQuestionType, errs := eval.Aggregate(results, a.kValues)

	numSuccessful := 0
	for _, r := range results {
		if r.Success {
			numSuccessful++
		}
	}

	runID := newRunID(completedAt, string(a.agentType))
	runResults := eval.RunResults{
		RunID:          runID,
		AgentType:      a.agentType,
		DatasetPath:    a.datasetPath,
		DatasetVersion: dataset.Version,
		RetrievalMode:  string(a.mode),
		FTSCandidates:  a.ftsCandidates,
		MaxReturned:    a.maxReturned,
		KValues:        a.kValues,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		Results:        results,
		OverallByK:     overall,
		ByDifficulty:   byDifficulty,
		ByQuestionType: byQuestionType,
		NumSuccessful:  numSuccessful,
		NumFailed:      len(results) - numSuccessful,
		Errors:         errs,
	}

	jsonPath, err := eval.WriteJSONReport(a.outputDir, runID, runResults)
	if err != nil {
		slog.Error("failed to write json report", "error", err)
		return 1
	}
	mdPath, err := eval.WriteMarkdownSummary(a.outputDir, runID, runResults)
	if err != nil {
		slog.Error("failed to write markdown summary", "error", err)
		return 1
	}

	slog.Info("evaluation complete",
		"examples", runResults.TotalExamples(),
		"successful", runResults.NumSuccessful,
		"duration_s", runResults.TotalDuration().Seconds(),
		"json", jsonPath,
		"summary", mdPath,
	)

	if runResults.SuccessRate() < 0.8 {
		return 1
	}
	return 0
}

type filterEvalArgs struct {
	llmClient  llm.Client
	registry   *retrieval.Registry
	mode       retrieval.Mode
	category   string
	caseID     string
	numSamples int
	outputDir  string
}

func runFilterEval(ctx context.Context, a filterEvalArgs) int {
	cases := eval.DefaultFilterCases
	switch {
	case a.caseID != "":
		c, ok := eval.ByID(cases, a.caseID)
		if !ok {
			slog.Error("case not found", "case_id", a.caseID)
			return 1
		}
		cases = []eval.FilterCase{c}
	case a.category != "":
		cases = eval.ByCategory(cases, a.category)
		if len(cases) == 0 {
			slog.Error("no cases found for category", "category", a.category)
			return 1
		}
	}
	if a.numSamples > 0 && a.numSamples < len(cases) {
		cases = cases[:a.numSamples]
	}

	harness := &eval.FilterHarness{LLM: a.llmClient, Retrieval: a.registry, Mode: a.mode, Operator: retrieval.OperatorOR}

	slog.Info("running tool-params evaluation", "cases", len(cases), "mode", a.mode)
	results := harness.RunAll(ctx, cases)

	caseCategory := make(map[string]string, len(eval.DefaultFilterCases))
	for _, c := range eval.DefaultFilterCases {
		caseCategory[c.ID] = c.Category
	}
	runMetrics := eval.ComputeFilterRunMetrics(results, caseCategory)

	fmt.Println(eval.FormatFilterReport(runMetrics))

	if runMetrics.TotalCases > 0 {
		runID := newRunID(time.Now(), "tool_params")
		if path, err := eval.WriteJSONReport(a.outputDir, runID, runMetrics); err != nil {
			slog.Warn("failed to write tool-params json report", "error", err)
		} else {
			slog.Info("tool-params results saved", "path", path)
		}
	}

	if runMetrics.OverallAccuracy < 0.8 {
		return 1
	}
	return 0
}
