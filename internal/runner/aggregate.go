package runner

import (
	"github.com/openclaw/membench/internal/metrics"
	"github.com/openclaw/membench/internal/models"
)

// buildSummary rolls per-question results and failures into the run summary:
// metric means over succeeded questions, failure breakdowns along each
// taxonomy axis, and the per-question-type breakdown.
func buildSummary(selected []models.RetrievalQuestion, results []models.QuestionResult, failures []models.Failure) models.Summary {
	return models.Summary{
		QuestionsTotal:     len(selected),
		QuestionsSucceeded: len(results),
		QuestionsFailed:    len(failures),
		RetrievalMetrics:   meanMetrics(results),
		ByQuestionType:     byQuestionType(selected, results, failures),
		FailureBreakdown:   failureBreakdown(failures),
	}
}

func meanMetrics(results []models.QuestionResult) models.RetrievalMetrics {
	hit := make([]float64, 0, len(results))
	precision := make([]float64, 0, len(results))
	recall := make([]float64, 0, len(results))
	mrr := make([]float64, 0, len(results))
	ndcg := make([]float64, 0, len(results))
	for _, r := range results {
		hit = append(hit, r.Metrics.HitAtK)
		precision = append(precision, r.Metrics.PrecisionAtK)
		recall = append(recall, r.Metrics.RecallAtK)
		mrr = append(mrr, r.Metrics.MRR)
		ndcg = append(ndcg, r.Metrics.NDCGAtK)
	}
	return models.RetrievalMetrics{
		HitAtK:       metrics.Mean(hit),
		PrecisionAtK: metrics.Mean(precision),
		RecallAtK:    metrics.Mean(recall),
		MRR:          metrics.Mean(mrr),
		NDCGAtK:      metrics.Mean(ndcg),
	}
}

// failureBreakdown counts failures by code, category and phase. The sub-maps
// are always present; a fully successful run yields three empty maps.
func failureBreakdown(failures []models.Failure) models.FailureBreakdown {
	b := models.FailureBreakdown{
		ByCode:     map[string]int{},
		ByCategory: map[string]int{},
		ByPhase:    map[string]int{},
	}
	for _, f := range failures {
		b.ByCode[string(f.ErrorCode)]++
		b.ByCategory[string(f.ErrorCategory)]++
		b.ByPhase[string(f.Phase)]++
	}
	return b
}

// byQuestionType repeats the mean/percentile computation scoped to each
// distinct question type among the selected questions.
func byQuestionType(selected []models.RetrievalQuestion, results []models.QuestionResult, failures []models.Failure) map[string]models.TypeSummary {
	typeOf := make(map[string]string, len(selected))
	totals := make(map[string]int)
	for _, q := range selected {
		typeOf[q.QuestionID] = q.QuestionType
		totals[q.QuestionType]++
	}

	rowsByType := make(map[string][]models.QuestionResult)
	for _, r := range results {
		rowsByType[r.QuestionType] = append(rowsByType[r.QuestionType], r)
	}

	failedByType := make(map[string]int)
	for _, f := range failures {
		qt, ok := typeOf[f.QuestionID]
		if !ok {
			qt = "unknown"
		}
		failedByType[qt]++
	}

	out := make(map[string]models.TypeSummary, len(totals))
	for qt, total := range totals {
		rows := rowsByType[qt]
		latencies := make([]float64, 0, len(rows))
		for _, r := range rows {
			latencies = append(latencies, r.LatencyMs)
		}
		out[qt] = models.TypeSummary{
			QuestionsTotal:     total,
			QuestionsSucceeded: len(rows),
			QuestionsFailed:    failedByType[qt],
			RetrievalMetrics:   meanMetrics(rows),
			SearchMsP50:        metrics.Percentile(latencies, 50),
			SearchMsP95:        metrics.Percentile(latencies, 95),
			SearchMsMean:       metrics.Mean(latencies),
		}
	}
	return out
}

func buildLatency(latencies []float64) models.Latency {
	return models.Latency{
		SearchMsP50:  metrics.Percentile(latencies, 50),
		SearchMsP95:  metrics.Percentile(latencies, 95),
		SearchMsMean: metrics.Mean(latencies),
	}
}
