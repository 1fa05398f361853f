package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteJSONReport marshals v to indented JSON at dir/<runID>_results.json,
// mirroring runner.py's json_path.write_text(run_results.model_dump_json()).
func WriteJSONReport(dir, runID string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, runID+"_results.json")
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

// WriteMarkdownSummary renders RunResults as a human-readable report,
// mirroring runner.py's generate_markdown_report.
func WriteMarkdownSummary(dir, runID string, r RunResults) (string, error) {
	var b strings.Builder

	fmt.Fprintln(&b, "# Evaluation Results")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Configuration")
	fmt.Fprintf(&b, "- **Run ID:** %s\n", r.RunID)
	fmt.Fprintf(&b, "- **Agent:** %s\n", r.AgentType)
	fmt.Fprintf(&b, "- **Dataset:** %s\n", r.DatasetPath)
	fmt.Fprintf(&b, "- **Dataset Version:** %s\n", r.DatasetVersion)
	fmt.Fprintf(&b, "- **Retrieval Mode:** %s\n", r.RetrievalMode)
	fmt.Fprintf(&b, "- **FTS Candidates:** %d\n", r.FTSCandidates)
	fmt.Fprintf(&b, "- **Max Returned:** %d\n", r.MaxReturned)
	fmt.Fprintf(&b, "- **K Values:** %v\n", r.KValues)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- **Completed:** %s\n", r.CompletedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- **Duration:** %.1fs\n", r.TotalDuration().Seconds())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Summary")
	fmt.Fprintf(&b, "- **Total Examples:** %d\n", r.TotalExamples())
	fmt.Fprintf(&b, "- **Successful:** %d (%.1f%%)\n", r.NumSuccessful, r.SuccessRate()*100)
	fmt.Fprintf(&b, "- **Failed:** %d\n", r.NumFailed)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Overall Metrics")
	fmt.Fprintln(&b)
	header := "| Metric |"
	sep := "|--------|"
	for _, k := range r.KValues {
		header += fmt.Sprintf(" k=%d |", k)
		sep += "------|"
	}
	fmt.Fprintln(&b, header)
	fmt.Fprintln(&b, sep)

	type row struct {
		name string
		get  func(MetricsBreakdown) AggregateStats
	}
	rows := []row{
		{"Recall", func(m MetricsBreakdown) AggregateStats { return m.Recall }},
		{"Precision", func(m MetricsBreakdown) AggregateStats { return m.Precision }},
		{"Hit Rate", func(m MetricsBreakdown) AggregateStats { return m.HitRate }},
		{"MRR", func(m MetricsBreakdown) AggregateStats { return m.MRR }},
		{"NDCG", func(m MetricsBreakdown) AggregateStats { return m.NDCG }},
	}
	for _, row := range rows {
		line := fmt.Sprintf("| %s |", row.name)
		for _, k := range r.KValues {
			if bd, ok := r.OverallByK[k]; ok {
				s := row.get(bd)
				line += fmt.Sprintf(" %.3f ± %.3f |", s.Mean, s.Std)
			} else {
				line += " - |"
			}
		}
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintln(&b)

	if len(r.KValues) > 0 {
		if bd, ok := r.OverallByK[r.KValues[0]]; ok {
			fmt.Fprintln(&b, "## Latency")
			fmt.Fprintf(&b, "- **Mean:** %.0fms\n", bd.LatencyMS.Mean)
			fmt.Fprintf(&b, "- **Median:** %.0fms\n", bd.LatencyMS.Median)
			fmt.Fprintf(&b, "- **Min:** %.0fms\n", bd.LatencyMS.Min)
			fmt.Fprintf(&b, "- **Max:** %.0fms\n", bd.LatencyMS.Max)
			fmt.Fprintln(&b)
		}
	}

	if len(r.ByDifficulty) > 0 && len(r.KValues) > 0 {
		k := r.KValues[0]
		fmt.Fprintf(&b, "## By Difficulty (k=%d)\n\n", k)
		fmt.Fprintln(&b, "| Difficulty | Count | Recall | Precision | MRR |")
		fmt.Fprintln(&b, "|------------|-------|--------|-----------|-----|")
		for _, level := range []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard} {
			if byK, ok := r.ByDifficulty[level]; ok {
				if bd, ok := byK[k]; ok {
					fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %.3f |\n", level, bd.Count, bd.Recall.Mean, bd.Precision.Mean, bd.MRR.Mean)
				}
			}
		}
		fmt.Fprintln(&b)
	}

	if len(r.ByQuestionType) > 0 && len(r.KValues) > 0 {
		k := r.KValues[0]
		fmt.Fprintf(&b, "## By Question Type (k=%d)\n\n", k)
		fmt.Fprintln(&b, "| Type | Count | Recall | Precision | MRR |")
		fmt.Fprintln(&b, "|------|-------|--------|-----------|-----|")
		for _, qt := range []QuestionType{QuestionFactual, QuestionAnalytical, QuestionOpinion} {
			if byK, ok := r.ByQuestionType[qt]; ok {
				if bd, ok := byK[k]; ok {
					fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %.3f |\n", qt, bd.Count, bd.Recall.Mean, bd.Precision.Mean, bd.MRR.Mean)
				}
			}
		}
		fmt.Fprintln(&b)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(&b, "## Failed Examples")
		fmt.Fprintln(&b)
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- **%s**: %s\n", e.EvalID, e.Error)
		}
		fmt.Fprintln(&b)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, runID+"_summary.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// FormatFilterReport renders FilterRunMetrics as a human-readable
// report, mirroring format_metrics_report for the tool-params run.
func FormatFilterReport(m FilterRunMetrics) string {
	var b strings.Builder
	bar := strings.Repeat("=", 60)

	fmt.Fprintln(&b, bar)
	fmt.Fprintln(&b, "AGENT TOOL PARAMETER EVALUATION REPORT")
	fmt.Fprintln(&b, bar)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "OVERALL RESULTS")
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	fmt.Fprintf(&b, "Total Cases:      %d\n", m.TotalCases)
	fmt.Fprintf(&b, "Passed:           %d\n", m.Passed)
	fmt.Fprintf(&b, "Failed:           %d\n", m.Failed)
	fmt.Fprintf(&b, "Errors:           %d\n", m.Errors)
	fmt.Fprintf(&b, "Overall Accuracy: %.1f%%\n", m.OverallAccuracy*100)
	fmt.Fprintf(&b, "Avg Latency:      %.1fms\n", m.AvgLatencyMS)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "FILTER-LEVEL METRICS")
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s\n", "Filter", "Precision", "Recall", "F1", "Accuracy")
	fmt.Fprintln(&b, strings.Repeat("-", 52))
	for _, name := range []string{"speaker", "start_date", "end_date", "source", "doc_type"} {
		if fm, ok := m.FilterMetrics[name]; ok {
			fmt.Fprintf(&b, "%-12s %9.1f%% %9.1f%% %9.1f%% %9.1f%%\n", name, fm.Precision*100, fm.Recall*100, fm.F1Score*100, fm.Accuracy*100)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "CATEGORY BREAKDOWN")
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	fmt.Fprintf(&b, "%-20s %8s %8s %8s %10s\n", "Category", "Total", "Pass", "Fail", "Rate")
	fmt.Fprintln(&b, strings.Repeat("-", 54))
	cats := make([]string, 0, len(m.CategoryMetrics))
	for cat := range m.CategoryMetrics {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		cm := m.CategoryMetrics[cat]
		fmt.Fprintf(&b, "%-20s %8d %8d %8d %9.1f%%\n", cat, cm.TotalCases, cm.Passed, cm.Failed, cm.PassRate*100)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, bar)

	return b.String()
}
