package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name        string
		retrieved   []string
		groundTruth []string
		k           int
		expected    float64
	}{
		{"perfect recall", []string{"a", "b", "c"}, []string{"a", "b"}, 3, 1.0},
		{"partial recall", []string{"a", "x", "y"}, []string{"a", "b"}, 3, 0.5},
		{"no overlap", []string{"x", "y"}, []string{"a", "b"}, 2, 0.0},
		{"k truncates before match", []string{"x", "a"}, []string{"a"}, 1, 0.0},
		{"empty ground truth", []string{"a"}, []string{}, 5, 0.0},
		{"empty retrieved", []string{}, []string{"a"}, 5, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, RecallAtK(tt.retrieved, tt.groundTruth, tt.k), 1e-9)
		})
	}
}

func TestPrecisionAtK(t *testing.T) {
	tests := []struct {
		name        string
		retrieved   []string
		groundTruth []string
		k           int
		expected    float64
	}{
		{"all relevant", []string{"a", "b"}, []string{"a", "b", "c"}, 2, 1.0},
		{"half relevant", []string{"a", "x"}, []string{"a"}, 2, 0.5},
		{"k larger than retrieved", []string{"a"}, []string{"a"}, 10, 1.0},
		{"no matches", []string{"x", "y"}, []string{"a"}, 2, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PrecisionAtK(tt.retrieved, tt.groundTruth, tt.k), 1e-9)
		})
	}
}

func TestHitRate(t *testing.T) {
	assert.Equal(t, 1.0, HitRate([]string{"x", "a"}, []string{"a"}, 5))
	assert.Equal(t, 0.0, HitRate([]string{"x", "a"}, []string{"a"}, 1))
	assert.Equal(t, 0.0, HitRate(nil, []string{"a"}, 5))
}

func TestMRR(t *testing.T) {
	t.Run("match at first position", func(t *testing.T) {
		v := MRR([]string{"a", "b"}, []string{"a"})
		require.NotNil(t, v)
		assert.InDelta(t, 1.0, *v, 1e-9)
	})

	t.Run("match at third position", func(t *testing.T) {
		v := MRR([]string{"x", "y", "a"}, []string{"a"})
		require.NotNil(t, v)
		assert.InDelta(t, 1.0/3.0, *v, 1e-9)
	})

	t.Run("no match returns nil, not zero", func(t *testing.T) {
		v := MRR([]string{"x", "y"}, []string{"a"})
		assert.Nil(t, v)
	})

	t.Run("empty retrieved returns nil", func(t *testing.T) {
		assert.Nil(t, MRR(nil, []string{"a"}))
	})
}

func TestNDCGAtK(t *testing.T) {
	t.Run("perfect ranking scores 1.0", func(t *testing.T) {
		score := NDCGAtK([]string{"a", "b"}, []string{"a", "b"}, 2)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("reversed ranking scores less than perfect", func(t *testing.T) {
		perfect := NDCGAtK([]string{"a", "x"}, []string{"a"}, 2)
		reversed := NDCGAtK([]string{"x", "a"}, []string{"a"}, 2)
		assert.Less(t, reversed, perfect)
	})

	t.Run("no relevant results scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, NDCGAtK([]string{"x", "y"}, []string{"a"}, 2))
	})
}

func TestCompute(t *testing.T) {
	m := Compute([]string{"a", "x", "b"}, []string{"a", "b", "c"}, 3)
	assert.InDelta(t, 2.0/3.0, m.RecallAtK, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.PrecisionAtK, 1e-9)
	assert.Equal(t, 1.0, m.HitRate)
	require.NotNil(t, m.MRR)
	assert.InDelta(t, 1.0, *m.MRR, 1e-9)
	assert.Equal(t, 3, m.NumRetrieved)
	assert.Equal(t, 3, m.NumGroundTruth)
	assert.Equal(t, 2, m.NumRelevantRetrieved)
}

func TestComputeNoMatchKeepsMRRNil(t *testing.T) {
	m := Compute([]string{"x", "y"}, []string{"a"}, 2)
	assert.Nil(t, m.MRR)
	assert.Equal(t, 0.0, m.RecallAtK)
}
