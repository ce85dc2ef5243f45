// Package metrics implements the retrieval scoring functions: standard IR
// ranking-quality metrics over a ranked candidate list and a relevant set,
// plus a percentile estimator for latency distributions.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/openclaw/membench/internal/models"
)

// dedupeKeepOrder removes duplicates preserving first-occurrence order.
func dedupeKeepOrder(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, x := range items {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

// ScoreRetrieval computes hit@k, precision@k, recall@k, MRR and NDCG@k for a
// ranked list of retrieved ids against a set of relevant ids. The retrieved
// list is deduplicated (first occurrence wins) and truncated to k before
// scoring. An empty relevant set yields all-zero metrics.
func ScoreRetrieval(retrievedIDs, relevantIDs []string, k int) (models.RetrievalMetrics, error) {
	if k <= 0 {
		return models.RetrievalMetrics{}, fmt.Errorf("k must be > 0, got %d", k)
	}

	ranked := dedupeKeepOrder(retrievedIDs)
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	relevant := make(map[string]struct{}, len(relevantIDs))
	for _, id := range relevantIDs {
		relevant[id] = struct{}{}
	}
	if len(relevant) == 0 {
		return models.RetrievalMetrics{}, nil
	}

	relCount := 0
	reciprocalRank := 0.0
	dcg := 0.0
	for i, id := range ranked {
		if _, ok := relevant[id]; !ok {
			continue
		}
		relCount++
		if reciprocalRank == 0 {
			reciprocalRank = 1.0 / float64(i+1)
		}
		dcg += 1.0 / math.Log2(float64(i+2))
	}

	hit := 0.0
	if relCount > 0 {
		hit = 1.0
	}

	idealHits := min(len(relevant), k)
	idcg := 0.0
	for i := 0; i < idealHits; i++ {
		idcg += 1.0 / math.Log2(float64(i+2))
	}
	ndcg := 0.0
	if idcg > 0 {
		ndcg = dcg / idcg
	}

	return models.RetrievalMetrics{
		HitAtK:       hit,
		PrecisionAtK: float64(relCount) / float64(k),
		RecallAtK:    float64(relCount) / float64(len(relevant)),
		MRR:          reciprocalRank,
		NDCGAtK:      ndcg,
	}, nil
}

// Percentile returns the p-th percentile of values using linear
// interpolation. Returns 0 for an empty input; p<=0 yields the minimum and
// p>=100 the maximum.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := float64(len(sorted)-1) * (p / 100.0)
	low := int(math.Floor(rank))
	high := int(math.Ceil(rank))
	if low == high {
		return sorted[low]
	}
	frac := rank - float64(low)
	return sorted[low] + frac*(sorted[high]-sorted[low])
}

// Mean returns the arithmetic mean of values, 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
