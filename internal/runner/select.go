package runner

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/openclaw/membench/internal/models"
)

// SelectQuestions picks the question subset for a run. When sampleSize is
// set it draws a uniformly random subset with a seeded generator (Go's
// math/rand, seed 0 when sampleSeed is nil) and sorts the drawn indices so
// dataset order is preserved; the result depends only on the dataset size,
// sample size and seed, never on the run id. limit then truncates the
// (possibly sampled) list.
//
// Out-of-range parameters are hard errors raised before any provider call.
func SelectQuestions(questions []models.RetrievalQuestion, limit, sampleSize *int, sampleSeed *int64) ([]models.RetrievalQuestion, error) {
	selected := questions

	if sampleSize != nil {
		size := *sampleSize
		if size <= 0 {
			return nil, fmt.Errorf("sample_size must be > 0, got %d", size)
		}
		if size > len(selected) {
			return nil, fmt.Errorf("sample_size=%d exceeds available questions=%d", size, len(selected))
		}

		var seed int64
		if sampleSeed != nil {
			seed = *sampleSeed
		}
		rng := rand.New(rand.NewSource(seed))
		indices := rng.Perm(len(selected))[:size]
		sort.Ints(indices)

		sampled := make([]models.RetrievalQuestion, 0, size)
		for _, i := range indices {
			sampled = append(sampled, selected[i])
		}
		selected = sampled
	}

	if limit != nil {
		n := *limit
		if n < 0 {
			return nil, fmt.Errorf("limit must be >= 0, got %d", n)
		}
		if n < len(selected) {
			selected = selected[:n]
		}
	}

	return selected, nil
}

// uniqueSessions flattens the sessions of all questions, deduplicated by
// session id with first occurrence winning. Used by pre-index mode.
func uniqueSessions(questions []models.RetrievalQuestion) []models.Session {
	seen := make(map[string]struct{})
	var out []models.Session
	for _, q := range questions {
		for _, s := range q.Sessions {
			if _, ok := seen[s.SessionID]; ok {
				continue
			}
			seen[s.SessionID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
