package orchestrator

import (
	"time"

	"github.com/vector-copilot/orchestrator/modelgateway"
	"github.com/vector-copilot/orchestrator/proposals"
	"github.com/vector-copilot/orchestrator/tools"
	"github.com/vector-copilot/orchestrator/workingset"
)

// ChatInput is the inbound shape of a single chat turn (spec.md §3.3/§6.1).
type ChatInput struct {
	ProjectID     string
	Message       string
	Mode          string
	ModelOverride string
	WorkflowID    string
	Provider      string
	Context       ChatContext
}

// ChatContext carries the editor-side snapshot attached to a ChatInput:
// everything the context tools are allowed to answer from without ever
// reaching back into the host environment.
type ChatContext struct {
	ActiveScript    *ActiveScript
	Selection       []proposals.SelectionEntry
	OpenDocs        []OpenDoc
	Scene           []SceneNode
	CodeDefinitions []CodeDefinition
}

// ActiveScript is the editor's currently open script, if any.
type ActiveScript struct {
	Path string
	Text string
}

// OpenDoc is one open editor document path.
type OpenDoc struct {
	Path string
}

// CodeDefinition is one entry of the mirrored code-definition snapshot
// list_code_definition_names and search_files answer from.
type CodeDefinition struct {
	File string
	Line int
	Name string
}

// ToolRun records one executed tool invocation for the Task State's
// tool-run log (spec.md §3.5).
type ToolRun struct {
	Name          tools.Ident
	Args          map[string]any
	ResultSummary string
}

// TaskState is the per-workflow accumulator that survives across Run calls
// sharing the same workflowId (spec.md §3.5/§3.7): conversation history,
// plan, tool-run log, token totals, resource fingerprints, the scene-graph
// cache, and the completion-gate counters the Proposal Mapper consults.
type TaskState struct {
	WorkflowID string

	// Messages is the flat, ever-growing turn history handed to
	// workingset.Builder each iteration: assistant tool-call text plus
	// TOOL_RESULT/VALIDATION_ERROR reflection turns.
	Messages []*modelgateway.Message

	Plan    []string
	ToolLog []ToolRun

	Totals       workingset.TokenTotals
	Fingerprints map[string]string
	Scene        proposals.Snapshot
	Summary      *workingset.Summary

	// ObjectOpsEmitted/ScriptEditsEmitted/ScriptPolicyOptOut feed the
	// Proposal Mapper's completion gate on every mapCompletion call.
	ObjectOpsEmitted   int
	ScriptEditsEmitted int
	ScriptPolicyOptOut bool

	// MutatingStepCount is the workflow-level hard cap counter (spec.md §5:
	// default 50 mutating steps across the workflow's lifetime, not just
	// one Run call).
	MutatingStepCount int

	// consecutiveValidationErrors and unknownToolRetries are per-kind Plan/
	// Act counters (spec.md §4.7/§7); reset to zero on any successful turn.
	consecutiveValidationErrors int
	unknownToolRetries          int

	UpdatedAt time.Time
}

// workflowState narrows the Task State to what the Proposal Mapper needs.
func (ts *TaskState) workflowState() proposals.WorkflowState {
	return proposals.WorkflowState{
		ObjectOpsEmitted:   ts.ObjectOpsEmitted,
		ScriptEditsEmitted: ts.ScriptEditsEmitted,
		ScriptPolicyOptOut: ts.ScriptPolicyOptOut,
	}
}

// RunResult is the outbound shape of runLLM (spec.md §6.1).
type RunResult struct {
	WorkflowID  string
	Proposals   []proposals.Proposal
	TaskState   *TaskState
	TokenTotals workingset.TokenTotals
	IsComplete  bool
}
