// Package validation checks datasets and reports against their schemas
// before they are used or persisted. Structural rules live in embedded JSON
// Schemas; referential invariants that JSON Schema cannot express (relevance
// judgments referencing existing sessions, id uniqueness) are checked in Go.
// All problems carry the path of the offending value.
package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/openclaw/membench/internal/models"
)

//go:embed dataset.schema.json
var datasetSchemaJSON string

//go:embed report.schema.json
var reportSchemaJSON string

var (
	datasetSchema = jsonschema.MustCompileString("dataset.schema.json", datasetSchemaJSON)
	reportSchema  = jsonschema.MustCompileString("report.schema.json", reportSchemaJSON)
)

// Error aggregates every schema problem found in one validation pass.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	msg := "schema validation failed"
	if len(e.Problems) == 0 {
		return msg
	}
	shown := e.Problems
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for i, p := range shown {
		if i == 0 {
			msg += ": " + p
		} else {
			msg += "; " + p
		}
	}
	if extra := len(e.Problems) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" ... (+%d more)", extra)
	}
	return msg
}

// collectCauses flattens a jsonschema validation error into leaf problems
// prefixed with the given document root.
func collectCauses(root string, ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s%s: %s", root, loc, ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectCauses(root, c, out)
	}
}

func validateAgainst(root string, schema *jsonschema.Schema, doc any) error {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("validating %s: %w", root, err)
	}
	var problems []string
	collectCauses(root, ve, &problems)
	return &Error{Problems: problems}
}

// ValidateDatasetPayload checks a decoded dataset document against the
// structural dataset schema.
func ValidateDatasetPayload(doc any) error {
	return validateAgainst("dataset", datasetSchema, doc)
}

// ValidateDataset checks the referential invariants of a loaded dataset:
// question ids unique within the dataset, session ids unique within each
// question, and every relevance judgment referencing an existing session.
func ValidateDataset(ds *models.RetrievalDataset) error {
	var problems []string

	questionIDs := make(map[string]struct{}, len(ds.Questions))
	for qi, q := range ds.Questions {
		qpath := fmt.Sprintf("dataset.questions[%d]", qi)

		if _, dup := questionIDs[q.QuestionID]; dup {
			problems = append(problems, fmt.Sprintf("%s.question_id: duplicate question_id %q", qpath, q.QuestionID))
		}
		questionIDs[q.QuestionID] = struct{}{}

		sessionIDs := make(map[string]struct{}, len(q.Sessions))
		for si, s := range q.Sessions {
			if _, dup := sessionIDs[s.SessionID]; dup {
				problems = append(problems, fmt.Sprintf("%s.sessions[%d].session_id: duplicate session_id %q", qpath, si, s.SessionID))
			}
			sessionIDs[s.SessionID] = struct{}{}
		}

		if len(q.RelevantSessionIDs) == 0 {
			problems = append(problems, fmt.Sprintf("%s.relevant_session_ids: must be non-empty", qpath))
		}
		for ri, sid := range q.RelevantSessionIDs {
			if _, ok := sessionIDs[sid]; !ok {
				problems = append(problems, fmt.Sprintf(
					"%s.relevant_session_ids[%d]: %q does not reference an existing session_id", qpath, ri, sid))
			}
		}
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// ValidateReport checks a report against the report artifact schema. Called
// before a report is returned or persisted; failure is a hard error.
func ValidateReport(r *models.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report for validation: %w", err)
	}
	return ValidateReportPayload(data)
}

// ValidateReportPayload checks raw report JSON against the artifact schema.
func ValidateReportPayload(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding report for validation: %w", err)
	}
	return validateAgainst("report", reportSchema, doc)
}
