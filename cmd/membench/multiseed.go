package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/runner"
	"github.com/openclaw/membench/internal/stats"
)

func newMultiseedCmd() *cobra.Command {
	var (
		experimental []string
		out          string
		resamples    int
		alpha        float64
		seed         int64
		decide       bool
	)

	cmd := &cobra.Command{
		Use:   "multiseed <report.json>...",
		Short: "Aggregate per-seed reports into bootstrap confidence intervals",
		Long: `Aggregate N reports of repeated randomized runs against the same dataset
into a bootstrap mean and confidence interval per metric. With --experimental,
the positional reports are the baseline and experimental-minus-baseline deltas
are computed pairwise by position.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline, err := loadReports(args)
			if err != nil {
				return err
			}

			opts := stats.BootstrapOptions{Resamples: resamples, Alpha: alpha, Seed: seed}

			var summary *stats.MultiSeedSummary
			if len(experimental) > 0 {
				expReports, err := loadReports(experimental)
				if err != nil {
					return err
				}
				var rule *stats.WinRule
				if decide {
					r := stats.DefaultWinRule()
					rule = &r
				}
				summary, err = stats.SummarizeExperiment(baseline, expReports, rule, opts)
				if err != nil {
					return err
				}
			} else {
				summary, err = stats.SummarizeSeeds(baseline, opts)
				if err != nil {
					return err
				}
			}

			if out != "" {
				if err := stats.SaveSummary(summary, out); err != nil {
					return err
				}
				slog.Info("summary written", "path", out)
			}

			printMultiSeed(summary)

			if summary.Decision != nil && !summary.Decision.Go {
				return fmt.Errorf("win rule not satisfied")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&experimental, "experimental", nil, "experimental report paths, paired with the baseline by position")
	cmd.Flags().StringVar(&out, "out", "", "write the summary artifact to this path")
	cmd.Flags().IntVar(&resamples, "resamples", 0, "bootstrap resample count (default 20000)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "CI significance level (default 0.05)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "bootstrap resampling seed")
	cmd.Flags().BoolVar(&decide, "decide", false, "apply the default win rule to the deltas")
	return cmd
}

func loadReports(paths []string) ([]*models.Report, error) {
	reports := make([]*models.Report, len(paths))
	for i, path := range paths {
		report, err := runner.LoadReport(path)
		if err != nil {
			return nil, err
		}
		reports[i] = report
	}
	return reports, nil
}

func printMultiSeed(summary *stats.MultiSeedSummary) {
	fmt.Printf("Seeds: %d  dataset: %s  top_k: %d\n", summary.NSeeds, summary.DatasetPath, summary.TopK)
	fmt.Println("\nBaseline:")
	printCITable(summary.Baseline)
	if summary.Delta != nil {
		fmt.Println("\nDelta (experimental - baseline):")
		printCITable(summary.Delta)
	}
	if summary.Decision != nil {
		verdict := "NO-GO"
		if summary.Decision.Go {
			verdict = "GO"
		}
		fmt.Printf("\nDecision: %s\n", verdict)
		for _, reason := range summary.Decision.Reasons {
			fmt.Printf("  %s\n", reason)
		}
	}
}

func printCITable(table map[string]stats.CI) {
	for _, key := range stats.MetricKeys {
		ci := table[key]
		fmt.Printf("  %-16s mean %9.4f  CI [%9.4f, %9.4f]\n", key, ci.Mean, ci.Lo, ci.Hi)
	}
}
