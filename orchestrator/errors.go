package orchestrator

import "errors"

// ErrorKind is the 8-kind error taxonomy of spec.md §7.
type ErrorKind string

const (
	KindParseError        ErrorKind = "parse_error"
	KindValidation        ErrorKind = "validation_error"
	KindUnknownTool       ErrorKind = "unknown_tool"
	KindPolicy            ErrorKind = "policy_error"
	KindProviderTransient ErrorKind = "provider_transient"
	KindProviderFatal     ErrorKind = "provider_fatal"
	KindCancelled         ErrorKind = "cancelled"
	KindBudgetExceeded    ErrorKind = "budget_exceeded"
)

// KindError wraps a terminal loop failure with its taxonomy kind so callers
// (and the event sink) can tell a fatal provider error apart from a budget
// overrun or cancellation without string-matching.
type KindError struct {
	Kind  ErrorKind
	Cause error
}

func (e *KindError) Error() string {
	if e.Cause == nil {
		return "orchestrator: " + string(e.Kind)
	}
	return "orchestrator: " + string(e.Kind) + ": " + e.Cause.Error()
}

func (e *KindError) Unwrap() error { return e.Cause }

var (
	ErrCancelled        = errors.New("orchestrator: cancelled")
	ErrBudgetExceeded   = errors.New("orchestrator: workflow mutating-step budget exceeded")
	ErrNoActionableTool = errors.New("orchestrator: no actionable tool produced within the turn limit")
)
