package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"
)

func TestBuildStats(t *testing.T) {
	s := buildStats([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Min, 1e-9)
	assert.InDelta(t, 4.0, s.Max, 1e-9)
	assert.InDelta(t, 2.5, s.Median, 1e-9)
	assert.Equal(t, 4, s.Count)
}

func TestBuildStatsEmpty(t *testing.T) {
	s := buildStats(nil)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.Mean)
}

func TestBuildMetricsBreakdownMRRCoverage(t *testing.T) {
	one := 1.0
	half := 0.5
	results := []metrics.RetrievalMetrics{
		{MRR: &one, RecallAtK: 1.0},
		{MRR: &half, RecallAtK: 0.5},
		{MRR: nil, RecallAtK: 0.0},
	}
	bd := BuildMetricsBreakdown(results, []float64{100, 200, 300}, 5)

	assert.Equal(t, 3, bd.Count)
	assert.InDelta(t, 2.0/3.0, bd.MRRCoverage, 1e-9)
	require.Equal(t, 2, bd.MRR.Count)
	assert.InDelta(t, 0.75, bd.MRR.Mean, 1e-9)
	assert.InDelta(t, 0.5, bd.Recall.Mean, 1e-9)
	assert.InDelta(t, 200.0, bd.LatencyMS.Mean, 1e-9)
}

func TestBuildMetricsBreakdownAllMRRNil(t *testing.T) {
	results := []metrics.RetrievalMetrics{{MRR: nil}, {MRR: nil}}
	bd := BuildMetricsBreakdown(results, []float64{10, 20}, 5)
	assert.Equal(t, 0.0, bd.MRRCoverage)
	assert.Equal(t, 0, bd.MRR.Count)
}
