package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/membench/internal/compare"
	"github.com/openclaw/membench/internal/config"
	"github.com/openclaw/membench/internal/dataset"
	"github.com/openclaw/membench/internal/manifest"
	"github.com/openclaw/membench/internal/models"
)

func newCompareCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "compare <run.yaml> <providers.toml>",
		Short: "Benchmark several providers against the same dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRunConfig(args[0])
			if err != nil {
				return err
			}
			providersCfg, err := config.LoadProviders(args[1])
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}

			ds, err := dataset.Load(cfg.DatasetPath)
			if err != nil {
				return err
			}

			specs := make([]compare.ProviderSpec, len(providersCfg.Providers))
			for i, p := range providersCfg.Providers {
				specs[i] = compare.ProviderSpec{
					Name:       p.Name,
					Kind:       p.Kind,
					Config:     p.Config,
					TimeoutSec: p.TimeoutSec,
				}
			}

			result, err := compare.Run(cmd.Context(), specs, ds, compare.Options{
				TopK:         cfg.TopK,
				FailFast:     cfg.FailFast,
				SkipIngest:   cfg.SkipIngest,
				PreindexOnce: cfg.PreindexOnce,
				Limit:        cfg.Limit,
				SampleSize:   cfg.SampleSize,
				SampleSeed:   cfg.SampleSeed,
				BuildManifest: func(spec compare.ProviderSpec, runID string) (*models.Manifest, error) {
					return manifest.Build(manifest.BuildOptions{
						RunID:          runID,
						Provider:       spec.Name,
						ProviderConfig: spec.Config,
						DatasetPath:    cfg.DatasetPath,
						DatasetName:    ds.Name,
						RepoDir:        ".",
						TopK:           cfg.TopK,
						Limit:          cfg.Limit,
						SampleSize:     cfg.SampleSize,
						SampleSeed:     cfg.SampleSeed,
						SkipIngest:     cfg.SkipIngest,
						PreindexOnce:   cfg.PreindexOnce,
						FailFast:       cfg.FailFast,
					})
				},
			})
			if err != nil {
				return err
			}

			stamp := time.Now().UTC().Format("20060102T150405Z")
			resultPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("compare_%s.json", stamp))
			if err := compare.SaveResult(result, resultPath); err != nil {
				return err
			}
			slog.Info("comparison written", "path", resultPath)

			anyFailed := false
			for _, report := range result.Reports {
				fmt.Printf("\nProvider: %s\n", report.Provider)
				printSummary(report)
				if report.Summary.QuestionsFailed > 0 {
					printFailures(report)
					anyFailed = true
				}
			}
			if anyFailed {
				return fmt.Errorf("at least one provider had failed questions")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "out", "", "output directory for artifacts")
	return cmd
}

func printSummary(report *models.Report) {
	s := report.Summary
	fmt.Printf("Questions: %d total, %d succeeded, %d failed\n",
		s.QuestionsTotal, s.QuestionsSucceeded, s.QuestionsFailed)
	fmt.Printf("hit@%d: %.4f  precision@%d: %.4f  recall@%d: %.4f\n",
		report.TopK, s.HitAtK, report.TopK, s.PrecisionAtK, report.TopK, s.RecallAtK)
	fmt.Printf("MRR: %.4f  NDCG@%d: %.4f\n", s.MRR, report.TopK, s.NDCGAtK)
	fmt.Printf("Search latency: p50 %.1fms, p95 %.1fms, mean %.1fms\n",
		report.Latency.SearchMsP50, report.Latency.SearchMsP95, report.Latency.SearchMsMean)
}

// printFailures lists the failure breakdown when a run had failed questions.
func printFailures(report *models.Report) {
	if len(report.Failures) == 0 {
		return
	}
	fmt.Println("Failures by code:")
	for code, count := range report.Summary.FailureBreakdown.ByCode {
		fmt.Printf("  %s: %d\n", code, count)
	}
}
