// Package dataset loads retrieval benchmark datasets from JSON files.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/validation"
)

// Load reads, validates and builds a retrieval dataset from a JSON file.
// The dataset is validated before use: structural rules first, then the
// referential invariants. Questions missing relevant_session_ids default to
// judging the first session relevant.
func Load(path string) (*models.RetrievalDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if err := validation.ValidateDatasetPayload(doc); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	var ds models.RetrievalDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decoding dataset %s: %w", path, err)
	}

	if ds.Name == "" {
		base := filepath.Base(path)
		ds.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for i := range ds.Questions {
		q := &ds.Questions[i]
		if q.QuestionType == "" {
			q.QuestionType = "generic"
		}
		if len(q.RelevantSessionIDs) == 0 {
			q.RelevantSessionIDs = []string{q.Sessions[0].SessionID}
		}
	}

	if err := validation.ValidateDataset(&ds); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	return &ds, nil
}
