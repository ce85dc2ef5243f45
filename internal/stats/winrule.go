package stats

import "fmt"

// WinRule is the quantitative go/no-go criterion applied to the
// experimental-minus-baseline deltas. All thresholds must hold for a go:
// search p95 latency improves by at least MinLatencyP95ImprovementPct
// percent, recall drops by no more than MaxRecallDropPts percentage points,
// and NDCG drops by no more than MaxNDCGDrop.
type WinRule struct {
	MinLatencyP95ImprovementPct float64 `json:"min_latency_p95_improvement_pct"`
	MaxRecallDropPts            float64 `json:"max_recall_drop_pts"`
	MaxNDCGDrop                 float64 `json:"max_ndcg_drop"`
}

// DefaultWinRule requires a >=20% p95 latency improvement, at most a 3
// percentage-point recall drop and no NDCG regression.
func DefaultWinRule() WinRule {
	return WinRule{
		MinLatencyP95ImprovementPct: 20,
		MaxRecallDropPts:            3,
		MaxNDCGDrop:                 0,
	}
}

// Decision is the outcome of applying a win rule. Reasons lists every
// criterion with its observed value, whether it passed or not.
type Decision struct {
	Go      bool     `json:"go"`
	Reasons []string `json:"reasons"`
}

// Evaluate applies the rule to the baseline CIs and the
// experimental-minus-baseline delta CIs.
func (w WinRule) Evaluate(baseline, delta map[string]CI) Decision {
	d := Decision{Go: true}

	check := func(pass bool, format string, args ...any) {
		if !pass {
			d.Go = false
		}
		verdict := "PASS"
		if !pass {
			verdict = "FAIL"
		}
		d.Reasons = append(d.Reasons, verdict+": "+fmt.Sprintf(format, args...))
	}

	improvementPct := 0.0
	if base := baseline["search_ms_p95"].Mean; base > 0 {
		improvementPct = -delta["search_ms_p95"].Mean / base * 100
	}
	check(improvementPct >= w.MinLatencyP95ImprovementPct,
		"search p95 latency improvement %.1f%% (need >= %.1f%%)",
		improvementPct, w.MinLatencyP95ImprovementPct)

	recallDropPts := -delta["recall_at_k"].Mean * 100
	check(recallDropPts <= w.MaxRecallDropPts,
		"recall drop %.2f pts (allowed <= %.2f pts)",
		recallDropPts, w.MaxRecallDropPts)

	ndcgDrop := -delta["ndcg_at_k"].Mean
	check(ndcgDrop <= w.MaxNDCGDrop,
		"ndcg drop %.4f (allowed <= %.4f)",
		ndcgDrop, w.MaxNDCGDrop)

	return d
}
