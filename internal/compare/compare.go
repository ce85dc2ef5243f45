// Package compare orchestrates benchmark runs for several providers against
// the same dataset. Each provider gets a fresh adapter instance, its own run
// id and isolation namespace, and a hard wall-clock deadline; a provider
// whose run times out or crashes is reported as a run-level failure rather
// than blocking the comparison.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/runner"
)

// ResultSchema is the artifact schema identifier for comparison results.
const ResultSchema = "membench/compare-result/v1"

// ProviderSpec configures one provider entry in a comparison.
type ProviderSpec struct {
	Name       string
	Kind       string
	Config     map[string]any
	TimeoutSec float64
}

// Options configures a multi-provider comparison. The per-run flags mirror
// the single-run options and apply identically to every provider.
type Options struct {
	TopK         int
	FailFast     bool
	SkipIngest   bool
	PreindexOnce bool
	Limit        *int
	SampleSize   *int
	SampleSeed   *int64
	Logger       *slog.Logger

	// NewAdapter resolves a provider kind to a fresh adapter instance.
	// Defaults to the package registry; tests inject their own.
	NewAdapter func(kind string) (adapter.Adapter, error)

	// BuildManifest, when set, produces the provenance manifest attached to
	// each provider's report.
	BuildManifest func(spec ProviderSpec, runID string) (*models.Manifest, error)
}

// Result is the artifact of one comparison: one report per provider, in the
// order the providers were given.
type Result struct {
	Schema       string           `json:"schema"`
	Dataset      string           `json:"dataset"`
	TopK         int              `json:"top_k"`
	CreatedAtUTC string           `json:"created_at_utc"`
	Providers    []string         `json:"providers"`
	Reports      []*models.Report `json:"reports"`
}

// Run benchmarks every provider against the dataset. Providers run
// concurrently unless fail_fast is set, in which case they run in order and
// a provider-level failure marks the remaining providers skipped. Provider
// failures are recorded in their reports; only setup-level problems (empty
// provider list, invalid selection parameters) are errors.
func Run(ctx context.Context, providers []ProviderSpec, ds *models.RetrievalDataset, opts Options) (*Result, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers to compare")
	}
	if opts.NewAdapter == nil {
		opts.NewAdapter = adapter.New
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	reports := make([]*models.Report, len(providers))

	if opts.FailFast {
		skipFrom := -1
		for i, spec := range providers {
			if skipFrom >= 0 {
				report, err := failedProviderReport(ds, spec, opts, models.ErrProviderSkipped,
					fmt.Errorf("skipped after provider %q failed", providers[skipFrom].Name))
				if err != nil {
					return nil, err
				}
				reports[i] = report
				continue
			}
			report, err := runProvider(ctx, spec, ds, opts, log)
			if err != nil {
				return nil, err
			}
			reports[i] = report
			if report.Summary.QuestionsFailed > 0 {
				skipFrom = i
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, spec := range providers {
			i, spec := i, spec
			g.Go(func() error {
				report, err := runProvider(gctx, spec, ds, opts, log)
				if err != nil {
					return err
				}
				reports[i] = report
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	names := make([]string, len(providers))
	for i, spec := range providers {
		names[i] = spec.Name
	}
	return &Result{
		Schema:       ResultSchema,
		Dataset:      ds.Name,
		TopK:         opts.TopK,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Providers:    names,
		Reports:      reports,
	}, nil
}

// runProvider executes one provider's full run under its wall-clock deadline.
// A timeout or crash becomes a report in which every question carries a
// provider-level failure.
func runProvider(ctx context.Context, spec ProviderSpec, ds *models.RetrievalDataset, opts Options, log *slog.Logger) (*models.Report, error) {
	if spec.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(spec.TimeoutSec*float64(time.Second)))
		defer cancel()
	}

	log.Info("running provider", "provider", spec.Name, "kind", spec.Kind)

	report, err := benchmarkProvider(ctx, spec, ds, opts, log)
	if err == nil {
		// A run cut short by the provider deadline still yields a partial
		// report; the whole provider counts as timed out, matching the
		// process-kill semantics where partial results are discarded.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("provider %q exceeded its %gs wall-clock timeout: %w",
				spec.Name, spec.TimeoutSec, context.DeadlineExceeded)
		} else {
			return report, nil
		}
	}

	code := models.ErrProviderError
	if errors.Is(err, context.DeadlineExceeded) {
		code = models.ErrProviderTimeout
	}
	log.Error("provider run failed", "provider", spec.Name, "error_code", code, "error", err)
	return failedProviderReport(ds, spec, opts, code, err)
}

func benchmarkProvider(ctx context.Context, spec ProviderSpec, ds *models.RetrievalDataset, opts Options, log *slog.Logger) (*models.Report, error) {
	ad, err := opts.NewAdapter(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("resolving provider %q: %w", spec.Name, err)
	}
	if err := ad.Initialize(ctx, spec.Config); err != nil {
		return nil, fmt.Errorf("initializing provider %q: %w", spec.Name, err)
	}

	runOpts := runOptions(spec, opts)
	runOpts.Logger = log.With("provider", spec.Name)
	if opts.BuildManifest != nil {
		m, err := opts.BuildManifest(spec, runOpts.RunID)
		if err != nil {
			return nil, fmt.Errorf("building manifest for provider %q: %w", spec.Name, err)
		}
		runOpts.Manifest = m
	}

	report, err := runner.Run(ctx, ad, ds, runOpts)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", spec.Name, err)
	}
	return report, nil
}

// failedProviderReport builds the synthetic all-failed report for a provider
// whose run never produced per-question results.
func failedProviderReport(ds *models.RetrievalDataset, spec ProviderSpec, opts Options, code models.ErrorCode, cause error) (*models.Report, error) {
	runOpts := runOptions(spec, opts)
	return runner.FailedRunReport(ds, runOpts, func(questionID string) models.Failure {
		return models.Failure{
			QuestionID:    questionID,
			Phase:         models.PhaseProvider,
			ErrorCode:     code,
			ErrorCategory: models.CategoryProvider,
			Retryable:     code == models.ErrProviderTimeout,
			ErrorType:     fmt.Sprintf("%T", cause),
			Error:         cause.Error(),
		}
	})
}

// runOptions derives per-provider run options. Every provider gets its own
// run id, so isolation tags never collide across concurrent runs.
func runOptions(spec ProviderSpec, opts Options) runner.Options {
	return runner.Options{
		Provider:     spec.Name,
		TopK:         opts.TopK,
		FailFast:     opts.FailFast,
		SkipIngest:   opts.SkipIngest,
		PreindexOnce: opts.PreindexOnce,
		Limit:        opts.Limit,
		SampleSize:   opts.SampleSize,
		SampleSeed:   opts.SampleSeed,
	}
}

// SaveResult writes the comparison artifact as indented JSON, creating
// parent directories as needed.
func SaveResult(result *Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
