package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// valid hygiene note: jsonschema/v6's *ValidationError exposes a rich
// causal tree (Causes, InstanceLocation, Kind) but its public text
// rendering (Error) already walks that tree into a readable multi-line
// message; re-deriving per-field issues from Kind would duplicate that
// logic and drift from it across library versions, so toFieldIssues uses
// one leaf-level Causes pass for structured Path info and falls back to
// the library's own Error() text for the Message.

// Registry is a read-mostly, map-backed catalogue of tool specs built once
// at process start. It is safe for concurrent read use across all
// workflows, matching the teacher's registry construction style
// (runtime/agent/tools) where a fixed set of specs is compiled and then
// never mutated.
type Registry struct {
	specs map[Ident]*Spec
}

// NewRegistry compiles each spec's JSON Schema and returns a Registry. It
// returns an error if any schema fails to compile or a name is duplicated.
func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{specs: make(map[Ident]*Spec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate spec %q", s.Name)
		}
		if err := s.compile(); err != nil {
			return nil, fmt.Errorf("tools: compile schema for %q: %w", s.Name, err)
		}
		r.specs[s.Name] = s
	}
	return r, nil
}

// Lookup returns the spec for name, or (nil, false) if it is not registered.
func (r *Registry) Lookup(name Ident) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Category returns the dispatch category for name, defaulting to
// CategoryMutating (fail closed: an unrecognized-but-present tool is never
// treated as a free local read).
func (r *Registry) Category(name Ident) Category {
	if s, ok := r.specs[name]; ok {
		return s.Category
	}
	return CategoryMutating
}

// Validate coerces inv.Args per the spec's lenient rules and validates the
// result against the compiled JSON Schema. On success it returns the
// coerced, schema-valid argument map. On failure it returns
// *ValidationError (recoverable) or *UnknownToolError (recoverable once)
// per spec.md §4.7.
func (r *Registry) Validate(inv Invocation) (map[string]any, error) {
	spec, ok := r.specs[inv.Name]
	if !ok {
		return nil, &UnknownToolError{Name: inv.Name}
	}
	coerced := spec.coerce(inv.Args)
	if spec.compiled == nil {
		return coerced, nil
	}
	if err := spec.compiled.Validate(canonicalizeJSON(coerced)); err != nil {
		return nil, &ValidationError{Tool: inv.Name, Issues: toFieldIssues(err)}
	}
	return coerced, nil
}

// canonicalizeJSON round-trips a coerced argument map through
// encoding/json so every value jsonschema/v6 sees is a decoded-JSON type
// ([]any, map[string]any, float64, string, bool, nil) rather than a Go
// type coercion happens to produce ([]string, []int, ...). jsonschema/v6
// only recognizes the canonical shapes, the same reason the teacher's own
// schema validation path (registry/service.go's
// validatePayloadJSONAgainstSchema) unmarshals into `any` before calling
// Validate instead of validating hand-built Go values directly. On the
// (unreachable in practice, since coerce only ever produces
// JSON-marshalable values) chance that marshaling fails, the original map
// is returned unchanged and Validate reports whatever mismatch results.
func canonicalizeJSON(v map[string]any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// toFieldIssues flattens a jsonschema validation error tree into flat
// FieldIssue entries so the loop can attach structured paths (when
// available) to a deterministic reflection message.
func toFieldIssues(err error) []FieldIssue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok || len(ve.Causes) == 0 {
		return []FieldIssue{{Message: err.Error()}}
	}
	var issues []FieldIssue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := make([]string, len(e.InstanceLocation))
			copy(path, e.InstanceLocation)
			issues = append(issues, FieldIssue{Path: path, Message: e.Error()})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	if len(issues) == 0 {
		issues = []FieldIssue{{Message: err.Error()}}
	}
	return issues
}
