package tools

import (
	"errors"
	"fmt"
	"strings"
)

// FieldIssue represents a single validation issue for a tool payload. It
// mirrors the shape a model-facing VALIDATION_ERROR reflection turn needs:
// a path into the argument object and a human-readable message.
type FieldIssue struct {
	// Path identifies the offending field, e.g. ["props", "Name"].
	Path []string
	// Message explains the violation (missing field, wrong type, out of range, ...).
	Message string
}

func (fi FieldIssue) String() string {
	if len(fi.Path) == 0 {
		return fi.Message
	}
	return strings.Join(fi.Path, ".") + ": " + fi.Message
}

// ValidationError is returned by Registry.Validate when a tool's arguments
// fail schema validation. It is recoverable: the Plan/Act loop reflects it
// back to the model as a VALIDATION_ERROR turn (spec.md §4.7) and counts it
// toward the consecutive-error budget.
type ValidationError struct {
	Tool   Ident
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		parts[i] = iss.String()
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Tool, strings.Join(parts, "; "))
}

// ErrUnknownTool is returned by Registry.Validate when the invocation names
// a tool that is not in the registry. The Plan/Act loop treats this
// separately from ValidationError (its own retry budget, spec.md §4.7).
var ErrUnknownTool = errors.New("tools: unknown tool")

// UnknownToolError carries the offending name so callers can format a
// precise reflection message without re-parsing the error string.
type UnknownToolError struct {
	Name Ident
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownTool, e.Name)
}

func (e *UnknownToolError) Unwrap() error { return ErrUnknownTool }
