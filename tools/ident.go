// Package tools declares the fixed catalogue of tools the orchestrator can
// invoke (context, planning, scripting, instance, asset, and messaging
// tools) along with the lenient argument coercion and strict JSON Schema
// validation that gates every tool call before it reaches the Proposal
// Mapper or a local context-tool handler.
package tools

// Ident is the strong type for a tool name (e.g. "create_instance").
// Using a distinct type instead of a bare string keeps tool identifiers from
// being accidentally mixed with arbitrary free-form strings across the
// codebase, mirroring how the teacher keys provider tool calls.
type Ident string

// Invocation is a single structured tool call extracted by the parser and,
// after Registry.Validate, ready for the Plan/Act loop to dispatch.
type Invocation struct {
	// Name is the tool identifier as requested by the model, or the
	// normalized inner name after a wrapper tag (tool_call, function_call,
	// action) has been unwrapped.
	Name Ident

	// Args is the raw argument mapping before coercion/validation.
	Args map[string]any
}
