package models

// Outcome is the decision recorded for a terminal Run.
type Outcome string

const (
	OutcomeSAT     Outcome = "SAT"
	OutcomeUNSAT   Outcome = "UNSAT"
	OutcomeError   Outcome = "ERROR"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// ErrorType classifies why a Run produced an ERROR or TIMEOUT outcome.
type ErrorType string

const (
	ErrorTypeParseError     ErrorType = "PARSE_ERROR"
	ErrorTypeUnexpectedRC   ErrorType = "UNEXPECTED_RC"
	ErrorTypeTimeout        ErrorType = "TIMEOUT"
	ErrorTypeBinaryNotFound ErrorType = "BINARY_NOT_FOUND"
	ErrorTypeExecutionError ErrorType = "EXECUTION_ERROR"
)

// Result is the outcome of a Run, inserted exactly once per Run. A second
// insert attempt for the same RunID is a no-op.
type Result struct {
	RunID        int64           `json:"run_id"`
	Result       Outcome         `json:"result"`
	Assignment   map[string]bool `json:"assignment,omitempty"`
	Stdout       string          `json:"-"`
	Stderr       string          `json:"-"`
	ErrorType    *ErrorType      `json:"error_type,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	RuntimeS     float64         `json:"runtime"`
}
