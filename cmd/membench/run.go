package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/config"
	"github.com/openclaw/membench/internal/dataset"
	"github.com/openclaw/membench/internal/manifest"
	"github.com/openclaw/membench/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		runID      string
		outputDir  string
		topK       int
		limit      int
		sampleSize int
		sampleSeed int64
		failFast   bool
	)

	cmd := &cobra.Command{
		Use:   "run <run.yaml>",
		Short: "Run the benchmark for one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRunConfig(args[0])
			if err != nil {
				return err
			}

			// Flag overrides beat the config file.
			if cmd.Flags().Changed("top-k") {
				cfg.TopK = topK
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limit = &limit
			}
			if cmd.Flags().Changed("sample-size") {
				cfg.SampleSize = &sampleSize
			}
			if cmd.Flags().Changed("sample-seed") {
				cfg.SampleSeed = &sampleSeed
			}
			if cmd.Flags().Changed("fail-fast") {
				cfg.FailFast = failFast
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if runID == "" {
				runID = uuid.NewString()
			}

			ds, err := dataset.Load(cfg.DatasetPath)
			if err != nil {
				return err
			}

			ad, err := adapter.New(cfg.ProviderKind)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := ad.Initialize(ctx, cfg.Config); err != nil {
				return fmt.Errorf("initializing provider %q: %w", cfg.Provider, err)
			}

			m, err := manifest.Build(manifest.BuildOptions{
				RunID:          runID,
				Provider:       cfg.Provider,
				ProviderConfig: cfg.Config,
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
			if err != nil {
				return err
			}

			report, err := runner.Run(ctx, ad, ds, runner.Options{
				Provider:     cfg.Provider,
				TopK:         cfg.TopK,
				RunID:        runID,
				FailFast:     cfg.FailFast,
				SkipIngest:   cfg.SkipIngest,
				PreindexOnce: cfg.PreindexOnce,
				Limit:        cfg.Limit,
				SampleSize:   cfg.SampleSize,
				SampleSeed:   cfg.SampleSeed,
				Manifest:     m,
			})
			if err != nil {
				return err
			}

			reportPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("report_%s.json", report.RunID))
			if err := runner.SaveReport(report, reportPath); err != nil {
				return err
			}
			slog.Info("report written", "path", reportPath)

			printSummary(report)

			if report.Summary.QuestionsFailed > 0 {
				printFailures(report)
				return fmt.Errorf("%d of %d questions failed",
					report.Summary.QuestionsFailed, report.Summary.QuestionsTotal)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run id (default: random UUID)")
	cmd.Flags().StringVar(&outputDir, "out", "", "output directory for artifacts")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of hits to retrieve per search")
	cmd.Flags().IntVar(&limit, "limit", 0, "truncate the question list to the first N")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "draw a random subset of N questions")
	cmd.Flags().Int64Var(&sampleSeed, "sample-seed", 0, "seed for question sampling")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop after the first failed question")
	return cmd
}
