package models

// Phase identifies the step of the per-question lifecycle in which an error
// occurred.
type Phase string

const (
	PhaseClear         Phase = "clear"
	PhaseIngest        Phase = "ingest"
	PhaseAwaitIndexing Phase = "await_indexing"
	PhaseSearch        Phase = "search"
	PhaseScore         Phase = "score"
	PhasePreindex      Phase = "preindex"

	// PhaseProvider marks run-level failures recorded by the compare layer
	// when an entire provider run times out, crashes, or is skipped.
	PhaseProvider Phase = "provider"
)

// ErrorCode is the stable failure taxonomy, independent of provider identity.
type ErrorCode string

const (
	ErrTimeout              ErrorCode = "TIMEOUT"
	ErrCommandNotFound      ErrorCode = "COMMAND_NOT_FOUND"
	ErrParse                ErrorCode = "PARSE_ERROR"
	ErrDataValidation       ErrorCode = "DATA_VALIDATION_ERROR"
	ErrAdapterCommandFailed ErrorCode = "ADAPTER_COMMAND_FAILED"
	ErrUnexpected           ErrorCode = "UNEXPECTED_ERROR"

	// Provider-level codes share the same failure-record shape so downstream
	// aggregation is uniform.
	ErrProviderTimeout ErrorCode = "PROVIDER_TIMEOUT"
	ErrProviderError   ErrorCode = "PROVIDER_ERROR"
	ErrProviderSkipped ErrorCode = "PROVIDER_SKIPPED"
)

// ErrorCategory groups error codes for root-cause breakdowns.
type ErrorCategory string

const (
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryEnvironment    ErrorCategory = "environment"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryAdapterRuntime ErrorCategory = "adapter-runtime"
	CategoryUnknown        ErrorCategory = "unknown"
	CategoryProvider       ErrorCategory = "provider_error"
)

// Failure is one classified per-question error record.
type Failure struct {
	QuestionID    string        `json:"question_id"`
	Phase         Phase         `json:"phase"`
	ErrorCode     ErrorCode     `json:"error_code"`
	ErrorCategory ErrorCategory `json:"error_category"`
	Retryable     bool          `json:"retryable"`
	// ErrorType carries the concrete Go type of the underlying error.
	ErrorType string `json:"exception_type"`
	Error     string `json:"error"`
}
