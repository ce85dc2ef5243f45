// Package runner drives one evaluation run: it selects questions
// deterministically, executes the per-question
// clear -> ingest -> await-indexing -> search -> score -> cleanup sequence
// against a single adapter instance, classifies failures without aborting the
// run, and aggregates everything into a validated report artifact.
//
// Execution is strictly sequential question-by-question: isolation and
// cleanup correctness depend on the before/after ordering around each
// provider call, so there is no concurrency at this level.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/metrics"
	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/validation"
)

// Options configures one benchmark run.
type Options struct {
	Provider     string
	TopK         int
	RunID        string
	FailFast     bool
	SkipIngest   bool
	PreindexOnce bool
	Limit        *int
	SampleSize   *int
	SampleSeed   *int64
	Manifest     *models.Manifest
	Logger       *slog.Logger
}

// Run executes the benchmark against one adapter instance and returns the
// validated report. Per-question failures are recorded, not raised; only
// pre-run validation problems and report-schema violations are errors.
func Run(ctx context.Context, ad adapter.Adapter, ds *models.RetrievalDataset, opts Options) (*models.Report, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be > 0, got %d", opts.TopK)
	}
	if opts.Provider == "" {
		opts.Provider = ad.Name()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	selected, err := SelectQuestions(ds.Questions, opts.Limit, opts.SampleSize, opts.SampleSeed)
	if err != nil {
		return nil, err
	}

	// The report schema requires results and failures to be arrays even when
	// empty, so both start non-nil.
	results := []models.QuestionResult{}
	failures := []models.Failure{}
	var latencies []float64
	failedQuestions := make(map[string]bool)

	preindexTag := opts.RunID + ":GLOBAL"
	var preindexResult map[string]any

	if opts.PreindexOnce && !opts.SkipIngest {
		preindexResult, err = preindex(ctx, ad, selected, preindexTag)
		if err != nil {
			// The shared container is unusable; every question is failed up
			// front and no further provider calls are made for them.
			for _, q := range selected {
				failures = append(failures, ClassifyFailure(q.QuestionID, models.PhasePreindex, err))
				failedQuestions[q.QuestionID] = true
			}
			log.Error("preindex failed", "run_id", opts.RunID, "error", err)
		}
	}

	stopped := false
	for i, q := range selected {
		if stopped || ctx.Err() != nil {
			break
		}

		containerTag := opts.RunID + ":" + q.QuestionID
		if opts.PreindexOnce {
			containerTag = preindexTag
		}

		log.Info("running question",
			"index", i+1, "total", len(selected), "question_id", q.QuestionID)

		if failedQuestions[q.QuestionID] {
			if opts.FailFast {
				break
			}
			continue
		}

		result, failure := runQuestion(ctx, ad, q, containerTag, preindexResult, opts)

		// Cleanup is best-effort and runs regardless of the outcome. A
		// cleanup error must never invalidate the measurement, so it is
		// logged and swallowed.
		if !opts.PreindexOnce {
			if err := ad.Clear(ctx, containerTag); err != nil {
				log.Warn("cleanup failed", "question_id", q.QuestionID, "error", err)
			}
		}

		if failure != nil {
			failures = append(failures, *failure)
			log.Warn("question failed",
				"question_id", q.QuestionID, "phase", failure.Phase, "error_code", failure.ErrorCode)
			if opts.FailFast {
				stopped = true
			}
			continue
		}

		results = append(results, *result)
		latencies = append(latencies, result.LatencyMs)
	}

	if opts.PreindexOnce {
		if err := ad.Clear(ctx, preindexTag); err != nil {
			log.Warn("cleanup failed", "container_tag", preindexTag, "error", err)
		}
	}

	report := &models.Report{
		Schema:       models.ReportSchema,
		RunID:        opts.RunID,
		Provider:     opts.Provider,
		Dataset:      ds.Name,
		TopK:         opts.TopK,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Config: models.RunConfig{
			SkipIngest:   opts.SkipIngest,
			PreindexOnce: opts.PreindexOnce,
			FailFast:     opts.FailFast,
			Limit:        opts.Limit,
			SampleSize:   opts.SampleSize,
			SampleSeed:   opts.SampleSeed,
		},
		Manifest: opts.Manifest,
		Summary:  buildSummary(selected, results, failures),
		Latency:  buildLatency(latencies),
		Results:  results,
		Failures: failures,
	}

	if err := validation.ValidateReport(report); err != nil {
		return nil, fmt.Errorf("report failed self-validation: %w", err)
	}
	return report, nil
}

// preindex clears the run-scoped container and ingests the union of all
// sessions across the selected questions, deduplicated by session id.
func preindex(ctx context.Context, ad adapter.Adapter, questions []models.RetrievalQuestion, tag string) (map[string]any, error) {
	if err := ad.Clear(ctx, tag); err != nil {
		return nil, err
	}
	result, err := ad.Ingest(ctx, uniqueSessions(questions), tag)
	if err != nil {
		return nil, err
	}
	if err := ad.AwaitIndexing(ctx, result, tag); err != nil {
		return nil, err
	}
	return result, nil
}

// runQuestion executes the phase sequence for one question. On any phase
// error it returns the classified failure instead of a result.
func runQuestion(
	ctx context.Context,
	ad adapter.Adapter,
	q models.RetrievalQuestion,
	containerTag string,
	preindexResult map[string]any,
	opts Options,
) (*models.QuestionResult, *models.Failure) {
	fail := func(phase models.Phase, err error) (*models.QuestionResult, *models.Failure) {
		f := ClassifyFailure(q.QuestionID, phase, err)
		return nil, &f
	}

	ingestResult := map[string]any{"ingest": "skipped"}

	if opts.PreindexOnce {
		ingestResult = map[string]any{
			"ingest":               "preindexed",
			"container_tag":        containerTag,
			"global_ingest_result": preindexResult,
		}
	} else {
		if err := ad.Clear(ctx, containerTag); err != nil {
			return fail(models.PhaseClear, err)
		}
		if !opts.SkipIngest {
			var err error
			ingestResult, err = ad.Ingest(ctx, q.Sessions, containerTag)
			if err != nil {
				return fail(models.PhaseIngest, err)
			}
			if err := ad.AwaitIndexing(ctx, ingestResult, containerTag); err != nil {
				return fail(models.PhaseAwaitIndexing, err)
			}
		}
	}

	// Latency covers the search call only, never ingest or indexing.
	start := time.Now()
	hits, err := ad.Search(ctx, q.Question, containerTag, opts.TopK)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return fail(models.PhaseSearch, err)
	}

	hitIDs := make([]string, 0, len(hits))
	retrievedSessionIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		hitIDs = append(hitIDs, h.ID)
		if sid := h.Metadata["session_id"]; sid != "" {
			retrievedSessionIDs = append(retrievedSessionIDs, sid)
		}
	}

	scored, err := metrics.ScoreRetrieval(retrievedSessionIDs, q.RelevantSessionIDs, opts.TopK)
	if err != nil {
		return fail(models.PhaseScore, err)
	}

	return &models.QuestionResult{
		QuestionID:          q.QuestionID,
		Question:            q.Question,
		QuestionType:        q.QuestionType,
		GroundTruth:         q.GroundTruth,
		RelevantSessionIDs:  q.RelevantSessionIDs,
		RetrievedSessionIDs: retrievedSessionIDs,
		RetrievedHitIDs:     hitIDs,
		IngestResult:        ingestResult,
		LatencyMs:           latencyMs,
		Metrics:             scored,
	}, nil
}

// FailedRunReport builds a report in which every selected question carries
// the same run-level failure record. The compare layer uses it for providers
// whose entire run timed out, crashed, or was skipped; the artifact passes
// the same schema validation as a normal report.
func FailedRunReport(ds *models.RetrievalDataset, opts Options, failure func(questionID string) models.Failure) (*models.Report, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	selected, err := SelectQuestions(ds.Questions, opts.Limit, opts.SampleSize, opts.SampleSeed)
	if err != nil {
		return nil, err
	}

	failures := make([]models.Failure, 0, len(selected))
	for _, q := range selected {
		failures = append(failures, failure(q.QuestionID))
	}

	report := &models.Report{
		Schema:       models.ReportSchema,
		RunID:        opts.RunID,
		Provider:     opts.Provider,
		Dataset:      ds.Name,
		TopK:         opts.TopK,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Config: models.RunConfig{
			SkipIngest:   opts.SkipIngest,
			PreindexOnce: opts.PreindexOnce,
			FailFast:     opts.FailFast,
			Limit:        opts.Limit,
			SampleSize:   opts.SampleSize,
			SampleSeed:   opts.SampleSeed,
		},
		Manifest: opts.Manifest,
		Summary:  buildSummary(selected, nil, failures),
		Latency:  buildLatency(nil),
		Results:  []models.QuestionResult{},
		Failures: failures,
	}

	if err := validation.ValidateReport(report); err != nil {
		return nil, fmt.Errorf("report failed self-validation: %w", err)
	}
	return report, nil
}

// SaveReport writes the report artifact as indented JSON, creating parent
// directories as needed.
func SaveReport(report *models.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// LoadReport reads a previously saved report artifact and validates it.
func LoadReport(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if err := validation.ValidateReportPayload(data); err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &report, nil
}
