package models

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// AllowedRoles lists every role a session message may carry.
var AllowedRoles = []Role{RoleUser, RoleAssistant, RoleSystem, RoleTool}

// SessionMessage is a single turn of a recorded conversation. Immutable once
// constructed.
type SessionMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"ts,omitempty"`
}

// Session is the atomic unit of memory that can be judged relevant or
// irrelevant to a question.
type Session struct {
	SessionID string           `json:"session_id"`
	Messages  []SessionMessage `json:"messages"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// RetrievalQuestion is one benchmark question together with the sessions a
// provider must ingest and the ground-truth relevance judgments.
type RetrievalQuestion struct {
	QuestionID         string    `json:"question_id"`
	Question           string    `json:"question"`
	GroundTruth        string    `json:"ground_truth"`
	QuestionType       string    `json:"question_type"`
	Sessions           []Session `json:"sessions"`
	RelevantSessionIDs []string  `json:"relevant_session_ids"`
}

// RetrievalDataset is a loaded benchmark dataset. Loaded once, read-only for
// the duration of a run.
type RetrievalDataset struct {
	Name      string              `json:"name"`
	Questions []RetrievalQuestion `json:"questions"`
}

// SearchHit is a single adapter search result. Metadata is expected, but not
// guaranteed, to carry a "session_id" key used for scoring.
type SearchHit struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
