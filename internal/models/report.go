package models

// ReportSchema is the artifact schema identifier for retrieval reports.
const ReportSchema = "membench/retrieval-report/v1"

// RetrievalMetrics are the ranking-quality scores for one question. All
// values are in [0, 1].
type RetrievalMetrics struct {
	HitAtK       float64 `json:"hit_at_k"`
	PrecisionAtK float64 `json:"precision_at_k"`
	RecallAtK    float64 `json:"recall_at_k"`
	MRR          float64 `json:"mrr"`
	NDCGAtK      float64 `json:"ndcg_at_k"`
}

// QuestionResult is the per-question row recorded for a succeeded question.
type QuestionResult struct {
	QuestionID          string           `json:"question_id"`
	Question            string           `json:"question"`
	QuestionType        string           `json:"question_type"`
	GroundTruth         string           `json:"ground_truth"`
	RelevantSessionIDs  []string         `json:"relevant_session_ids"`
	RetrievedSessionIDs []string         `json:"retrieved_session_ids"`
	RetrievedHitIDs     []string         `json:"retrieved_hit_ids"`
	IngestResult        map[string]any   `json:"ingest_result"`
	LatencyMs           float64          `json:"latency_ms"`
	Metrics             RetrievalMetrics `json:"metrics"`
}

// FailureBreakdown counts failures along each taxonomy axis.
type FailureBreakdown struct {
	ByCode     map[string]int `json:"by_code"`
	ByCategory map[string]int `json:"by_category"`
	ByPhase    map[string]int `json:"by_phase"`
}

// TypeSummary repeats the aggregate computation scoped to one question type.
type TypeSummary struct {
	QuestionsTotal     int `json:"questions_total"`
	QuestionsSucceeded int `json:"questions_succeeded"`
	QuestionsFailed    int `json:"questions_failed"`
	RetrievalMetrics
	SearchMsP50  float64 `json:"search_ms_p50"`
	SearchMsP95  float64 `json:"search_ms_p95"`
	SearchMsMean float64 `json:"search_ms_mean"`
}

// Summary aggregates per-question results for one run. Metric fields are
// arithmetic means over succeeded questions, 0.0 if none succeeded.
type Summary struct {
	QuestionsTotal     int `json:"questions_total"`
	QuestionsSucceeded int `json:"questions_succeeded"`
	QuestionsFailed    int `json:"questions_failed"`
	RetrievalMetrics
	ByQuestionType   map[string]TypeSummary `json:"by_question_type"`
	FailureBreakdown FailureBreakdown       `json:"failure_breakdown"`
}

// Latency holds percentiles over recorded search latencies. Latency is
// measured strictly around the search call, excluding ingest and indexing.
type Latency struct {
	SearchMsP50  float64 `json:"search_ms_p50"`
	SearchMsP95  float64 `json:"search_ms_p95"`
	SearchMsMean float64 `json:"search_ms_mean"`
}

// RunConfig records the run flags a report was produced under.
type RunConfig struct {
	SkipIngest   bool   `json:"skip_ingest"`
	PreindexOnce bool   `json:"preindex_once"`
	FailFast     bool   `json:"fail_fast"`
	Limit        *int   `json:"limit"`
	SampleSize   *int   `json:"sample_size"`
	SampleSeed   *int64 `json:"sample_seed"`
}

// Report is the complete artifact of one evaluation run. Created once per
// run, never mutated after creation.
type Report struct {
	Schema       string           `json:"schema"`
	RunID        string           `json:"run_id"`
	Provider     string           `json:"provider"`
	Dataset      string           `json:"dataset"`
	TopK         int              `json:"top_k"`
	CreatedAtUTC string           `json:"created_at_utc"`
	Config       RunConfig        `json:"config"`
	Manifest     *Manifest        `json:"manifest,omitempty"`
	Summary      Summary          `json:"summary"`
	Latency      Latency          `json:"latency"`
	Results      []QuestionResult `json:"results"`
	Failures     []Failure        `json:"failures"`
}
