package eval

import (
	"math"
	"sort"

	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
)

// AggregateStats summarizes one metric's distribution across a run.
type AggregateStats struct {
	Mean   float64
	Std    float64
	Min    float64
	Median float64
	Max    float64
	Count  int
}

func buildStats(values []float64) AggregateStats {
	if len(values) == 0 {
		return AggregateStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return AggregateStats{
		Mean:   mean,
		Std:    math.Sqrt(variance),
		Min:    sorted[0],
		Median: median(sorted),
		Max:    sorted[len(sorted)-1],
		Count:  len(values),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MetricsBreakdown is the per-k aggregate view over a set of
// RetrievalResult metrics, mirroring
// original_source/evals/results/schemas.py's MetricsBreakdown (inferred
// from its usage in evals/retrieval/runner.py — the schemas module
// itself was not retrievable from original_source).
type MetricsBreakdown struct {
	K           int
	Count       int
	Recall      AggregateStats
	Precision   AggregateStats
	HitRate     AggregateStats
	MRR         AggregateStats
	MRRCoverage float64 // fraction of results with a defined (non-nil) MRR
	NDCG        AggregateStats
	LatencyMS   AggregateStats
}

// BuildMetricsBreakdown aggregates a slice of per-query RetrievalMetrics
// (already computed at a fixed k) plus latencies into a MetricsBreakdown.
// MRR is averaged only over results where it is non-nil, per
// SPEC_FULL.md's decision to keep "no match" distinguishable from a
// defined zero score.
func BuildMetricsBreakdown(results []metrics.RetrievalMetrics, latenciesMS []float64, k int) MetricsBreakdown {
	recall := make([]float64, 0, len(results))
	precision := make([]float64, 0, len(results))
	hitRate := make([]float64, 0, len(results))
	ndcg := make([]float64, 0, len(results))
	var mrrDefined []float64

	for _, m := range results {
		recall = append(recall, m.RecallAtK)
		precision = append(precision, m.PrecisionAtK)
		hitRate = append(hitRate, m.HitRate)
		ndcg = append(ndcg, m.NDCGAtK)
		if m.MRR != nil {
			mrrDefined = append(mrrDefined, *m.MRR)
		}
	}

	coverage := 0.0
	if len(results) > 0 {
		coverage = float64(len(mrrDefined)) / float64(len(results))
	}

	return MetricsBreakdown{
		K:           k,
		Count:       len(results),
		Recall:      buildStats(recall),
		Precision:   buildStats(precision),
		HitRate:     buildStats(hitRate),
		MRR:         buildStats(mrrDefined),
		MRRCoverage: coverage,
		NDCG:        buildStats(ndcg),
		LatencyMS:   buildStats(latenciesMS),
	}
}
