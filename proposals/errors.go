package proposals

import (
	"fmt"

	"github.com/vector-copilot/orchestrator/tools"
)

// PolicyError is returned when a proposal would violate a cross-cutting
// policy (the completion gate) rather than a per-tool argument problem.
// The Plan/Act loop reflects it back as a policy_error turn (spec.md §4.7/§7).
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return "proposals: policy violation: " + e.Reason }

// MappingError is returned when a tool's arguments are individually schema
// valid but cannot be mapped without additional context the caller did not
// supply (e.g. set_properties with no path and no single selection).
type MappingError struct {
	Tool   tools.Ident
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("proposals: cannot map %q: %s", e.Tool, e.Reason)
}
