package validation_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/validation"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decoding test payload: %v", err)
	}
	return doc
}

const validDatasetJSON = `{
  "name": "tiny",
  "questions": [
    {
      "question_id": "q1",
      "question": "what did we plan?",
      "ground_truth": "a trip",
      "sessions": [
        {
          "session_id": "s1",
          "messages": [{"role": "user", "content": "let's plan a trip"}]
        }
      ],
      "relevant_session_ids": ["s1"]
    }
  ]
}`

func TestValidateDatasetPayloadOK(t *testing.T) {
	if err := validation.ValidateDatasetPayload(decode(t, validDatasetJSON)); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}
}

func TestValidateDatasetPayloadMissingField(t *testing.T) {
	raw := `{"questions": [{"question": "q?", "ground_truth": "g", "sessions": [
		{"session_id": "s1", "messages": [{"role": "user", "content": "hi"}]}
	]}]}`

	err := validation.ValidateDatasetPayload(decode(t, raw))
	if err == nil {
		t.Fatal("expected a validation error for a missing question_id")
	}
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %T", err)
	}
	if !strings.Contains(err.Error(), "question_id") {
		t.Errorf("error should name the missing property: %v", err)
	}
	if !strings.Contains(err.Error(), "/questions/0") {
		t.Errorf("error should carry the instance path: %v", err)
	}
}

func TestValidateDatasetPayloadBadRole(t *testing.T) {
	raw := strings.Replace(validDatasetJSON, `"role": "user"`, `"role": "robot"`, 1)
	if err := validation.ValidateDatasetPayload(decode(t, raw)); err == nil {
		t.Fatal("expected a validation error for an unknown role")
	}
}

func TestValidateDatasetDanglingRelevantID(t *testing.T) {
	ds := &models.RetrievalDataset{
		Name: "tiny",
		Questions: []models.RetrievalQuestion{
			{
				QuestionID:         "q1",
				Question:           "what did we plan?",
				GroundTruth:        "a trip",
				Sessions:           []models.Session{{SessionID: "s1"}},
				RelevantSessionIDs: []string{"s1", "missing"},
			},
		},
	}

	err := validation.ValidateDataset(ds)
	if err == nil {
		t.Fatal("expected an error for a dangling relevant session id")
	}
	if !strings.Contains(err.Error(), "dataset.questions[0].relevant_session_ids[1]") {
		t.Errorf("error should carry the offending path: %v", err)
	}
}

func TestValidateDatasetDuplicateIDs(t *testing.T) {
	ds := &models.RetrievalDataset{
		Questions: []models.RetrievalQuestion{
			{
				QuestionID: "q1",
				Sessions: []models.Session{
					{SessionID: "s1"}, {SessionID: "s1"},
				},
				RelevantSessionIDs: []string{"s1"},
			},
			{
				QuestionID:         "q1",
				Sessions:           []models.Session{{SessionID: "s2"}},
				RelevantSessionIDs: []string{"s2"},
			},
		},
	}

	err := validation.ValidateDataset(ds)
	if err == nil {
		t.Fatal("expected duplicate-id errors")
	}
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %T", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("expected 2 problems (dup session, dup question), got %v", verr.Problems)
	}
}

func validReport() *models.Report {
	return &models.Report{
		Schema:       models.ReportSchema,
		RunID:        "run-1",
		Provider:     "mock",
		Dataset:      "tiny",
		TopK:         3,
		CreatedAtUTC: "2026-08-24T00:00:00Z",
		Summary: models.Summary{
			QuestionsTotal: 1,
			ByQuestionType: map[string]models.TypeSummary{},
			FailureBreakdown: models.FailureBreakdown{
				ByCode:     map[string]int{},
				ByCategory: map[string]int{},
				ByPhase:    map[string]int{},
			},
		},
		Results:  []models.QuestionResult{},
		Failures: []models.Failure{},
	}
}

func TestValidateReportRoundTrip(t *testing.T) {
	if err := validation.ValidateReport(validReport()); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}
}

func TestValidateReportPayloadMissingMetric(t *testing.T) {
	data, err := json.Marshal(validReport())
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	delete(doc["summary"].(map[string]any), "hit_at_k")
	mutated, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	verr := validation.ValidateReportPayload(mutated)
	if verr == nil {
		t.Fatal("expected a validation error for a missing summary metric")
	}
	if !strings.Contains(verr.Error(), "hit_at_k") {
		t.Errorf("error should name the missing metric: %v", verr)
	}
}

func TestValidateReportFailureRecordShape(t *testing.T) {
	r := validReport()
	r.Summary.QuestionsFailed = 1
	r.Failures = []models.Failure{{
		QuestionID:    "q1",
		Phase:         models.PhaseSearch,
		ErrorCode:     models.ErrTimeout,
		ErrorCategory: models.CategoryTimeout,
		Retryable:     true,
		ErrorType:     "*errors.errorString",
		Error:         "deadline exceeded",
	}}
	if err := validation.ValidateReport(r); err != nil {
		t.Fatalf("report with a failure record rejected: %v", err)
	}

	r.Failures[0].ErrorType = ""
	if err := validation.ValidateReport(r); err == nil {
		t.Fatal("expected a validation error for an empty exception_type")
	}
}
