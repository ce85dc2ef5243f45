package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openclaw/membench/internal/models"
)

// SummarySchema is the artifact schema identifier for multiseed summaries.
const SummarySchema = "membench/multiseed-summary/v1"

// MetricKeys lists the scalar metrics aggregated across seeds.
var MetricKeys = []string{
	"hit_at_k",
	"precision_at_k",
	"recall_at_k",
	"mrr",
	"ndcg_at_k",
	"search_ms_p50",
	"search_ms_p95",
	"search_ms_mean",
}

// SeedMetrics extracts the per-seed scalar metrics from one report.
func SeedMetrics(r *models.Report) map[string]float64 {
	return map[string]float64{
		"hit_at_k":       r.Summary.HitAtK,
		"precision_at_k": r.Summary.PrecisionAtK,
		"recall_at_k":    r.Summary.RecallAtK,
		"mrr":            r.Summary.MRR,
		"ndcg_at_k":      r.Summary.NDCGAtK,
		"search_ms_p50":  r.Latency.SearchMsP50,
		"search_ms_p95":  r.Latency.SearchMsP95,
		"search_ms_mean": r.Latency.SearchMsMean,
	}
}

// MultiSeedSummary aggregates N reports of repeated randomized runs into
// bootstrap mean/CI tables, optionally with experimental-minus-baseline
// deltas and a win-rule decision.
type MultiSeedSummary struct {
	Schema        string        `json:"schema"`
	NSeeds        int           `json:"n_seeds"`
	DatasetPath   string        `json:"dataset_path"`
	DatasetSHA256 string        `json:"dataset_sha256"`
	TopK          int           `json:"top_k"`
	Baseline      map[string]CI `json:"baseline"`
	Delta         map[string]CI `json:"delta,omitempty"`
	Decision      *Decision     `json:"decision,omitempty"`
}

// checkConsistency verifies that every report was produced from the same
// dataset content and top_k. A mismatch is a hard error: bootstrap over
// seeds is only meaningful for identical inputs.
func checkConsistency(reports []*models.Report) (sha, path string, topK int, err error) {
	if len(reports) == 0 {
		return "", "", 0, fmt.Errorf("no reports to aggregate")
	}
	for i, r := range reports {
		if r.Manifest == nil {
			return "", "", 0, fmt.Errorf("report %d (run %s) has no manifest; cannot verify dataset identity", i, r.RunID)
		}
		if i == 0 {
			sha = r.Manifest.Dataset.SHA256
			path = r.Manifest.Dataset.Path
			topK = r.TopK
			continue
		}
		if r.Manifest.Dataset.SHA256 != sha {
			return "", "", 0, fmt.Errorf("dataset hash mismatch across runs: %s vs %s", sha, r.Manifest.Dataset.SHA256)
		}
		if r.TopK != topK {
			return "", "", 0, fmt.Errorf("top_k mismatch across runs: %d vs %d", topK, r.TopK)
		}
	}
	return sha, path, topK, nil
}

// SummarizeSeeds computes the bootstrap mean/CI of every metric over the
// given per-seed reports.
func SummarizeSeeds(reports []*models.Report, opts BootstrapOptions) (*MultiSeedSummary, error) {
	sha, path, topK, err := checkConsistency(reports)
	if err != nil {
		return nil, err
	}

	perSeed := make([]map[string]float64, len(reports))
	for i, r := range reports {
		perSeed[i] = SeedMetrics(r)
	}

	baseline := make(map[string]CI, len(MetricKeys))
	for _, key := range MetricKeys {
		values := make([]float64, len(perSeed))
		for i, m := range perSeed {
			values[i] = m[key]
		}
		baseline[key] = BootstrapMeanCI(values, opts)
	}

	return &MultiSeedSummary{
		Schema:        SummarySchema,
		NSeeds:        len(reports),
		DatasetPath:   path,
		DatasetSHA256: sha,
		TopK:          topK,
		Baseline:      baseline,
	}, nil
}

// SummarizeExperiment aggregates paired baseline and experimental reports
// (one pair per seed, matched by position) into baseline CIs plus
// experimental-minus-baseline delta CIs, and applies the win rule when one
// is given.
func SummarizeExperiment(baseline, experimental []*models.Report, rule *WinRule, opts BootstrapOptions) (*MultiSeedSummary, error) {
	if len(baseline) != len(experimental) {
		return nil, fmt.Errorf("seed count mismatch: %d baseline vs %d experimental reports", len(baseline), len(experimental))
	}

	all := append(append([]*models.Report{}, baseline...), experimental...)
	sha, path, topK, err := checkConsistency(all)
	if err != nil {
		return nil, err
	}

	summary, err := SummarizeSeeds(baseline, opts)
	if err != nil {
		return nil, err
	}
	summary.DatasetPath = path
	summary.DatasetSHA256 = sha
	summary.TopK = topK

	delta := make(map[string]CI, len(MetricKeys))
	for _, key := range MetricKeys {
		values := make([]float64, len(baseline))
		for i := range baseline {
			values[i] = SeedMetrics(experimental[i])[key] - SeedMetrics(baseline[i])[key]
		}
		delta[key] = BootstrapMeanCI(values, opts)
	}
	summary.Delta = delta

	if rule != nil {
		decision := rule.Evaluate(summary.Baseline, delta)
		summary.Decision = &decision
	}
	return summary, nil
}

// SaveSummary writes the summary artifact as indented JSON, creating parent
// directories as needed.
func SaveSummary(summary *MultiSeedSummary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
