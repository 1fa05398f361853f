// Package metrics implements the retrieval-quality and filter-extraction
// metrics of spec.md §4.9, grounded on
// original_source/evals/metrics/retrieval.py.
package metrics

import "math"

// RetrievalMetrics is the full set of IR metrics computed for one query.
// All scores are in [0,1] except MRR, which is nil when no ground-truth
// item was ever retrieved (Open Question 3's decision: a defined zero
// and "no match" must stay distinguishable).
type RetrievalMetrics struct {
	RecallAtK            float64
	PrecisionAtK         float64
	HitRate              float64
	MRR                  *float64
	NDCGAtK              float64
	K                    int
	NumRetrieved         int
	NumGroundTruth       int
	NumRelevantRetrieved int
}

func topK(retrieved []string, k int) []string {
	if k > len(retrieved) {
		k = len(retrieved)
	}
	return retrieved[:k]
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// RecallAtK = |ground_truth ∩ retrieved[:k]| / |ground_truth|.
func RecallAtK(retrieved, groundTruth []string, k int) float64 {
	if len(groundTruth) == 0 || len(retrieved) == 0 {
		return 0.0
	}
	gt := toSet(groundTruth)
	relevant := 0
	for _, item := range topK(retrieved, k) {
		if _, ok := gt[item]; ok {
			relevant++
		}
	}
	return float64(relevant) / float64(len(groundTruth))
}

// PrecisionAtK = |ground_truth ∩ retrieved[:k]| / min(k, |retrieved|).
func PrecisionAtK(retrieved, groundTruth []string, k int) float64 {
	if len(retrieved) == 0 || len(groundTruth) == 0 {
		return 0.0
	}
	gt := toSet(groundTruth)
	top := topK(retrieved, k)
	relevant := 0
	for _, item := range top {
		if _, ok := gt[item]; ok {
			relevant++
		}
	}
	return float64(relevant) / float64(len(top))
}

// HitRate is 1.0 if any ground-truth item is present in the top-k, else 0.0.
func HitRate(retrieved, groundTruth []string, k int) float64 {
	if len(retrieved) == 0 || len(groundTruth) == 0 {
		return 0.0
	}
	gt := toSet(groundTruth)
	for _, item := range topK(retrieved, k) {
		if _, ok := gt[item]; ok {
			return 1.0
		}
	}
	return 0.0
}

// MRR returns 1/rank of the first ground-truth item found (1-indexed),
// or nil if no ground-truth item appears anywhere in retrieved.
func MRR(retrieved, groundTruth []string) *float64 {
	if len(retrieved) == 0 || len(groundTruth) == 0 {
		return nil
	}
	gt := toSet(groundTruth)
	for i, item := range retrieved {
		if _, ok := gt[item]; ok {
			v := 1.0 / float64(i+1)
			return &v
		}
	}
	return nil
}

// NDCGAtK computes binary-relevance normalized discounted cumulative
// gain over the top-k results.
func NDCGAtK(retrieved, groundTruth []string, k int) float64 {
	if len(retrieved) == 0 || len(groundTruth) == 0 {
		return 0.0
	}
	gt := toSet(groundTruth)
	top := topK(retrieved, k)

	dcg := 0.0
	for i, item := range top {
		if _, ok := gt[item]; ok {
			dcg += 1.0 / math.Log2(float64(i+2))
		}
	}
	if dcg == 0.0 {
		return 0.0
	}

	numRelevant := len(groundTruth)
	if numRelevant > k {
		numRelevant = k
	}
	idcg := 0.0
	for rank := 1; rank <= numRelevant; rank++ {
		idcg += 1.0 / math.Log2(float64(rank+1))
	}
	if idcg == 0.0 {
		return 0.0
	}
	return dcg / idcg
}

// Compute computes every metric for a single query's result. It does not
// check k itself: k < 1 is rejected by the caller layer (cmd/harness's
// -k flag parsing) before any k reaches this function.
func Compute(retrieved, groundTruth []string, k int) RetrievalMetrics {
	gt := toSet(groundTruth)
	top := topK(retrieved, k)
	relevant := 0
	for _, item := range top {
		if _, ok := gt[item]; ok {
			relevant++
		}
	}

	return RetrievalMetrics{
		RecallAtK:            RecallAtK(retrieved, groundTruth, k),
		PrecisionAtK:         PrecisionAtK(retrieved, groundTruth, k),
		HitRate:              HitRate(retrieved, groundTruth, k),
		MRR:                  MRR(retrieved, groundTruth),
		NDCGAtK:              NDCGAtK(retrieved, groundTruth, k),
		K:                    k,
		NumRetrieved:         len(retrieved),
		NumGroundTruth:       len(groundTruth),
		NumRelevantRetrieved: relevant,
	}
}
