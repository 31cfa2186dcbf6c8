package tools

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Category groups tools by the way the Plan/Act Loop (C7) dispatches them:
// context tools execute locally and the loop continues; planning tools
// update Task State and continue; "message" emits assistant text and the
// loop continues; everything else goes to the Proposal Mapper (C6), and
// the loop ends once the mapper yields proposals.
type Category string

const (
	// CategoryContext identifies read-only tools answered from the scene
	// graph / chat context / tool-result cache without a provider round trip.
	CategoryContext Category = "context"

	// CategoryPlanning identifies start_plan/update_plan/<plan> carry-forward.
	CategoryPlanning Category = "planning"

	// CategoryMutating identifies script/instance/asset/completion/message
	// tools that the Proposal Mapper translates into proposals or events.
	CategoryMutating Category = "mutating"
)

// Clamp describes a numeric clamp applied during coercion: values outside
// [Min, Max] are clamped rather than rejected (spec.md §4.1).
type Clamp struct {
	Min, Max float64
	Default  float64
	HasMin   bool
	HasMax   bool
}

// Spec enumerates the metadata, lenient-coercion hints, and compiled JSON
// Schema for one tool. It is the unit the Registry is built from, grounded
// on the teacher's tools.ToolSpec (runtime/agent/tools/spec.go) but trimmed
// to what this orchestrator actually needs: no server-data/paging/exports,
// since this module has exactly one fixed, hand-authored tool catalogue
// rather than DSL-generated services.
type Spec struct {
	// Name is the globally unique tool identifier.
	Name Ident
	// Category drives Plan/Act Loop dispatch (§4.7).
	Category Category
	// Description is shown to planners/tooling; not sent in the compiled schema.
	Description string

	// Aliases maps an alternate field name to its canonical name
	// (e.g. "parent" -> "parentPath"). Applied before schema validation.
	Aliases map[string]string

	// ArrayFields lists payload fields that accept the flexible array shapes
	// of spec.md §4.1/§4.2: a genuine list, a JSON-encoded string, or a
	// comma/whitespace-delimited plain string.
	ArrayFields []string

	// JSONStringFields lists fields whose value may arrive as a
	// JSON-encoded string (object or array) and must be parsed before
	// validation (e.g. `props`, `edits` supplied as a JSON string body).
	JSONStringFields []string

	// Clamps maps a numeric field name to its clamp range.
	Clamps map[string]Clamp

	// SchemaJSON is the literal JSON Schema (draft 2020-12 compatible)
	// describing the coerced payload shape. Compiled once at registry
	// construction via santhosh-tekuri/jsonschema.
	SchemaJSON []byte

	compiled *jsonschema.Schema
}

// compile parses and compiles SchemaJSON. It is called once by NewRegistry.
func (s *Spec) compile() error {
	if len(s.SchemaJSON) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(s.SchemaJSON, &doc); err != nil {
		return err
	}
	c := jsonschema.NewCompiler()
	url := "mem://tools/" + string(s.Name) + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return err
	}
	s.compiled = sch
	return nil
}
