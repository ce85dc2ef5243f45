package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/openclaw/membench/internal/models"
)

// mockAdapter records every call and answers searches from a canned table of
// hits keyed by query.
type mockAdapter struct {
	mu    sync.Mutex
	calls []string

	hits       map[string][]models.SearchHit
	ingestErr  error
	searchErr  error
	clearErr   error
	searchErrN int // fail only the Nth search (1-based); 0 means every search
	searches   int
}

func (m *mockAdapter) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockAdapter) count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *mockAdapter) Name() string { return "mock" }

func (m *mockAdapter) Initialize(ctx context.Context, config map[string]any) error {
	m.record("initialize")
	return nil
}

func (m *mockAdapter) Ingest(ctx context.Context, sessions []models.Session, containerTag string) (map[string]any, error) {
	m.record("ingest:" + containerTag)
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	return map[string]any{"sessions": len(sessions)}, nil
}

func (m *mockAdapter) AwaitIndexing(ctx context.Context, ingestResult map[string]any, containerTag string) error {
	m.record("await:" + containerTag)
	return nil
}

func (m *mockAdapter) Search(ctx context.Context, query, containerTag string, limit int) ([]models.SearchHit, error) {
	m.record("search:" + containerTag)
	m.searches++
	if m.searchErr != nil && (m.searchErrN == 0 || m.searches == m.searchErrN) {
		return nil, m.searchErr
	}
	return m.hits[query], nil
}

func (m *mockAdapter) Clear(ctx context.Context, containerTag string) error {
	m.record("clear:" + containerTag)
	return m.clearErr
}

func question(qid, query string, sessionIDs ...string) models.RetrievalQuestion {
	q := models.RetrievalQuestion{
		QuestionID:   qid,
		Question:     query,
		GroundTruth:  "truth",
		QuestionType: "generic",
	}
	for _, sid := range sessionIDs {
		q.Sessions = append(q.Sessions, models.Session{
			SessionID: sid,
			Messages:  []models.SessionMessage{{Role: models.RoleUser, Content: "hi"}},
		})
	}
	q.RelevantSessionIDs = []string{sessionIDs[0]}
	return q
}

func hit(id, sessionID string, score float64) models.SearchHit {
	return models.SearchHit{ID: id, Content: "text", Score: score, Metadata: map[string]string{"session_id": sessionID}}
}

func testOptions() Options {
	return Options{
		TopK:   3,
		RunID:  "run-1",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunAllQuestionsSucceed(t *testing.T) {
	ad := &mockAdapter{hits: map[string][]models.SearchHit{
		"q one": {hit("h1", "s1", 0.9), hit("h2", "s9", 0.5)},
		"q two": {hit("h3", "s2", 0.8)},
	}}
	ds := &models.RetrievalDataset{
		Name: "t",
		Questions: []models.RetrievalQuestion{
			question("q1", "q one", "s1"),
			question("q2", "q two", "s2"),
		},
	}

	report, err := Run(context.Background(), ad, ds, testOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.QuestionsSucceeded != 2 || report.Summary.QuestionsFailed != 0 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.Summary.HitAtK != 1.0 || report.Summary.RecallAtK != 1.0 {
		t.Errorf("expected perfect hit/recall, got %+v", report.Summary.RetrievalMetrics)
	}
	if len(report.Summary.FailureBreakdown.ByCode) != 0 {
		t.Errorf("expected empty failure breakdown, got %+v", report.Summary.FailureBreakdown)
	}
	// Each question gets its own isolation tag and a cleanup clear.
	if got := ad.count("clear:run-1:q1"); got != 2 {
		t.Errorf("expected 2 clears for q1 (isolation + cleanup), got %d", got)
	}
	if report.Results[0].RetrievedSessionIDs[0] != "s1" {
		t.Errorf("unexpected retrieved ids: %v", report.Results[0].RetrievedSessionIDs)
	}
}

func TestRunSearchTimeoutClassified(t *testing.T) {
	ad := &mockAdapter{
		hits:      map[string][]models.SearchHit{"q one": {hit("h1", "s1", 0.9)}},
		searchErr: fmt.Errorf("search: %w", context.DeadlineExceeded),
	}
	ds := &models.RetrievalDataset{
		Name:      "t",
		Questions: []models.RetrievalQuestion{question("q1", "q one", "s1")},
	}

	report, err := Run(context.Background(), ad, ds, testOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failures))
	}
	f := report.Failures[0]
	if f.Phase != models.PhaseSearch || f.ErrorCode != models.ErrTimeout || !f.Retryable {
		t.Errorf("unexpected failure: %+v", f)
	}
	if report.Summary.FailureBreakdown.ByCode["TIMEOUT"] != 1 {
		t.Errorf("unexpected breakdown: %+v", report.Summary.FailureBreakdown)
	}
	// Cleanup still runs after the failure.
	if got := ad.count("clear:run-1:q1"); got != 2 {
		t.Errorf("expected cleanup clear after failure, got %d clears", got)
	}
}

func TestRunPreindexOnce(t *testing.T) {
	ad := &mockAdapter{hits: map[string][]models.SearchHit{
		"q one": {hit("h1", "s1", 0.9)},
		"q two": {hit("h2", "s2", 0.8)},
	}}
	ds := &models.RetrievalDataset{
		Name: "t",
		Questions: []models.RetrievalQuestion{
			question("q1", "q one", "s1", "shared"),
			question("q2", "q two", "s2", "shared"),
		},
	}

	opts := testOptions()
	opts.PreindexOnce = true
	report, err := Run(context.Background(), ad, ds, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := ad.count("ingest:"); got != 1 {
		t.Fatalf("expected exactly one global ingest, got %d", got)
	}
	if got := ad.count("clear:run-1:GLOBAL"); got != 2 {
		t.Errorf("expected setup + final clear on the global tag, got %d", got)
	}
	if !report.Config.PreindexOnce {
		t.Error("config.preindex_once not recorded")
	}
	if report.Summary.QuestionsSucceeded != 2 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.Results[0].IngestResult["ingest"] != "preindexed" {
		t.Errorf("unexpected ingest result: %v", report.Results[0].IngestResult)
	}
}

func TestRunPreindexFailureMarksAllQuestions(t *testing.T) {
	ad := &mockAdapter{ingestErr: fmt.Errorf("backend down")}
	ds := &models.RetrievalDataset{
		Name: "t",
		Questions: []models.RetrievalQuestion{
			question("q1", "q one", "s1"),
			question("q2", "q two", "s2"),
		},
	}

	opts := testOptions()
	opts.PreindexOnce = true
	report, err := Run(context.Background(), ad, ds, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.QuestionsFailed != 2 {
		t.Fatalf("expected both questions failed, got %+v", report.Summary)
	}
	for _, f := range report.Failures {
		if f.Phase != models.PhasePreindex {
			t.Errorf("expected preindex phase, got %s", f.Phase)
		}
	}
	// No searches once the shared container is unusable.
	if got := ad.count("search:"); got != 0 {
		t.Errorf("expected no provider searches, got %d", got)
	}
}

func TestRunFailFastStops(t *testing.T) {
	ad := &mockAdapter{
		hits:       map[string][]models.SearchHit{"q two": {hit("h2", "s2", 0.8)}},
		searchErr:  fmt.Errorf("boom"),
		searchErrN: 1,
	}
	ds := &models.RetrievalDataset{
		Name: "t",
		Questions: []models.RetrievalQuestion{
			question("q1", "q one", "s1"),
			question("q2", "q two", "s2"),
		},
	}

	opts := testOptions()
	opts.FailFast = true
	report, err := Run(context.Background(), ad, ds, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.QuestionsFailed != 1 || report.Summary.QuestionsSucceeded != 0 {
		t.Fatalf("fail_fast should stop after the first failure: %+v", report.Summary)
	}
	if got := ad.count("search:run-1:q2"); got != 0 {
		t.Errorf("expected q2 never searched, got %d", got)
	}
}

func TestRunCleanupErrorNotRecorded(t *testing.T) {
	ad := &mockAdapter{
		hits:     map[string][]models.SearchHit{"q one": {hit("h1", "s1", 0.9)}},
		clearErr: fmt.Errorf("cleanup blew up"),
	}
	ds := &models.RetrievalDataset{
		Name:      "t",
		Questions: []models.RetrievalQuestion{question("q1", "q one", "s1")},
	}

	report, err := Run(context.Background(), ad, ds, testOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The initial clear fails the question (phase=clear), but the cleanup
	// failure afterwards must not add a second record.
	if len(report.Failures) != 1 {
		t.Fatalf("expected exactly one failure record, got %d", len(report.Failures))
	}
	if report.Failures[0].Phase != models.PhaseClear {
		t.Errorf("expected clear phase, got %s", report.Failures[0].Phase)
	}
}

func TestRunInvalidSampleSizeBeforeProviderCalls(t *testing.T) {
	ad := &mockAdapter{}
	ds := &models.RetrievalDataset{
		Name:      "t",
		Questions: []models.RetrievalQuestion{question("q1", "q one", "s1")},
	}

	opts := testOptions()
	size := 5
	opts.SampleSize = &size
	if _, err := Run(context.Background(), ad, ds, opts); err == nil {
		t.Fatal("expected an error for sample_size exceeding the dataset")
	}
	if len(ad.calls) != 0 {
		t.Errorf("expected no provider calls, got %v", ad.calls)
	}
}

func TestRunInvalidTopK(t *testing.T) {
	opts := testOptions()
	opts.TopK = 0
	ds := &models.RetrievalDataset{Name: "t"}
	if _, err := Run(context.Background(), &mockAdapter{}, ds, opts); err == nil {
		t.Fatal("expected an error for top_k=0")
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	ad := &mockAdapter{hits: map[string][]models.SearchHit{"q one": {hit("h1", "s1", 0.9)}}}
	ds := &models.RetrievalDataset{
		Name:      "t",
		Questions: []models.RetrievalQuestion{question("q1", "q one", "s1")},
	}

	report, err := Run(context.Background(), ad, ds, testOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := t.TempDir() + "/report.json"
	if err := SaveReport(report, path); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if loaded.RunID != report.RunID || loaded.Summary.QuestionsSucceeded != 1 {
		t.Errorf("round-trip mismatch: %+v", loaded.Summary)
	}
}
