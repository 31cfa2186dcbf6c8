// Package orchestrator implements the Plan/Act Loop: the per-workflow
// state machine that turns a single chat message, together with an
// editor-side context snapshot, into zero or more proposals for an
// external plugin to apply. It is the seam between the chat UI, the
// Provider Gateway, the local context-tool executor, and the Proposal
// Mapper.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vector-copilot/orchestrator/config"
	"github.com/vector-copilot/orchestrator/eventsink"
	"github.com/vector-copilot/orchestrator/modelgateway"
	"github.com/vector-copilot/orchestrator/proposals"
	"github.com/vector-copilot/orchestrator/telemetry"
	"github.com/vector-copilot/orchestrator/toolcache"
	"github.com/vector-copilot/orchestrator/toolcall"
	"github.com/vector-copilot/orchestrator/tools"
	"github.com/vector-copilot/orchestrator/workingset"
)

// TemplateMatcher recognizes the deterministic template bypass (C8) before
// the loop calls any provider.
type TemplateMatcher func(message string) ([]proposals.Proposal, bool)

// defaultMaxMutatingSteps is the workflow-level hard cap of spec.md §5 when
// Loop.MaxMutatingSteps is left at zero.
const defaultMaxMutatingSteps = 50

// Loop implements the Plan/Act Loop (spec.md §4.7).
type Loop struct {
	Registry *tools.Registry
	Gateway  *modelgateway.Gateway
	Builder  *workingset.Builder
	Mapper   *proposals.Mapper

	Cache    toolcache.Cache
	Sessions toolcache.SessionStore
	Sink     eventsink.Sink

	// Templates, if non-nil, is consulted before the first provider call.
	Templates TemplateMatcher

	Config       config.Config
	SystemPrompt string

	TaskStates TaskStateStore

	// MaxMutatingSteps overrides defaultMaxMutatingSteps when non-zero.
	MaxMutatingSteps int

	// Summarizer, if non-nil, is used to compact older turns into a
	// running summary once the token budget crosses its threshold
	// (workingset.ShouldCompact). ContextWindow must be set for
	// compaction to ever trigger.
	Summarizer    workingset.Summarizer
	ContextWindow int

	// Logger and Metrics default to no-ops when left nil, so tests and
	// lightweight callers never need to wire OpenTelemetry/Clue.
	Logger  telemetry.Logger
	Metrics telemetry.Metrics

	workflowLocks sync.Map // workflowID -> *sync.Mutex
}

func (l *Loop) logger() telemetry.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return telemetry.NewNoopLogger()
}

func (l *Loop) metrics() telemetry.Metrics {
	if l.Metrics != nil {
		return l.Metrics
	}
	return telemetry.NewNoopMetrics()
}

// Run executes the Plan/Act Loop for one ChatInput, attaching or creating
// Task State keyed by in.WorkflowID, and returns the proposals produced
// along with the updated Task State (spec.md §6.1).
func (l *Loop) Run(ctx context.Context, in ChatInput) (*RunResult, error) {
	workflowID := in.WorkflowID
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	unlock := l.lockWorkflow(workflowID)
	defer unlock()

	ts, existed, err := l.TaskStates.Load(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load task state: %w", err)
	}
	if !existed || ts == nil {
		ts = newTaskState(workflowID)
	}
	ts.Scene = proposals.NewSnapshot(toSceneEntries(in.Context.Scene))
	scene := buildSceneIndex(in.Context.Scene)

	l.Sink.Push(workflowID, eventsink.OrchestratorStart())
	l.logger().Info(ctx, "orchestrator.start", "workflowId", workflowID, "projectId", in.ProjectID)
	l.metrics().IncCounter("orchestrator.run.start", 1, "project", in.ProjectID)

	if l.Templates != nil {
		if matched, ok := l.Templates(in.Message); ok {
			ts.Messages = append(ts.Messages, modelgateway.NewTextMessage(modelgateway.RoleUser, in.Message))
			l.applyEmittedCounters(ts, matched)
			ts.UpdatedAt = stamp()
			if saveErr := l.TaskStates.Save(ctx, ts); saveErr != nil {
				return nil, fmt.Errorf("orchestrator: save task state: %w", saveErr)
			}
			return l.result(ts, matched, hasCompletion(matched)), nil
		}
	}

	ts.Messages = append(ts.Messages, modelgateway.NewTextMessage(modelgateway.RoleUser, in.Message))

	maxTurns := l.Config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 4
	}

	var collected []proposals.Proposal
	isComplete := false
	var terminalErr error

turnLoop:
	for turn := 1; turn <= maxTurns; turn++ {
		l.maybeCompact(ctx, ts)

		built := l.Builder.Build(workingset.BuildInput{
			SystemPrompt: l.SystemPrompt,
			Turns:        ts.Messages,
			Summary:      ts.Summary,
		})

		resp, err := l.callProvider(ctx, in, workflowID, built)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				terminalErr = &KindError{Kind: KindCancelled, Cause: ErrCancelled}
				break turnLoop
			}
			l.Sink.Push(workflowID, eventsink.ErrorProvider(err.Error()))
			l.logger().Error(ctx, "orchestrator.provider_error", "workflowId", workflowID, "turn", turn, "err", err.Error())
			l.metrics().IncCounter("orchestrator.provider.error", 1, "project", in.ProjectID)
			if in.Provider != "" {
				terminalErr = &KindError{Kind: KindProviderFatal, Cause: err}
				break turnLoop
			}
			break turnLoop
		}
		ts.Totals.In += resp.Usage.InputTokens
		ts.Totals.Out += resp.Usage.OutputTokens
		l.Sink.Push(workflowID, eventsink.ProviderResponse(turn, len(resp.Content)))

		ts.Messages = append(ts.Messages, modelgateway.NewTextMessage(modelgateway.RoleAssistant, resp.Content))

		inv, perr := toolcall.Parse(resp.Content)
		if perr != nil {
			if errors.Is(perr, toolcall.ErrNoToolCall) {
				if in.Provider != "" {
					terminalErr = &KindError{Kind: KindParseError, Cause: perr}
					break turnLoop
				}
				l.reflectValidationError(ts, workflowID, "(unparsed)", perr)
				continue turnLoop
			}
			if recoverErr := l.countValidationError(ts, workflowID, "(unparsed)", perr); recoverErr != nil {
				terminalErr = recoverErr
				break turnLoop
			}
			continue turnLoop
		}

		l.Sink.Push(workflowID, eventsink.ToolParsed(string(inv.Name)))

		coerced, verr := l.Registry.Validate(inv)
		if verr != nil {
			var unknown *tools.UnknownToolError
			if errors.As(verr, &unknown) {
				ts.unknownToolRetries++
				if ts.unknownToolRetries > 1 {
					terminalErr = &KindError{Kind: KindUnknownTool, Cause: verr}
					break turnLoop
				}
				l.reflectValidationError(ts, workflowID, string(inv.Name), verr)
				continue turnLoop
			}
			if recoverErr := l.countValidationError(ts, workflowID, string(inv.Name), verr); recoverErr != nil {
				terminalErr = recoverErr
				break turnLoop
			}
			continue turnLoop
		}

		ts.consecutiveValidationErrors = 0
		ts.unknownToolRetries = 0
		l.Sink.Push(workflowID, eventsink.ToolValid(string(inv.Name)))

		done, proposalsOut, dispatchErr := l.dispatch(ctx, in, ts, scene, inv.Name, coerced)
		if dispatchErr != nil {
			terminalErr = dispatchErr
			break turnLoop
		}
		if len(proposalsOut) > 0 {
			collected = append(collected, proposalsOut...)
			if hasCompletion(proposalsOut) {
				isComplete = true
				break turnLoop
			}
		}
		if done {
			break turnLoop
		}
	}

	if terminalErr != nil {
		ts.UpdatedAt = stamp()
		_ = l.TaskStates.Save(ctx, ts)
		return nil, terminalErr
	}

	if len(collected) == 0 && !isComplete {
		fb, ferr := l.generateFallback(in, ts)
		if ferr != nil {
			ts.UpdatedAt = stamp()
			_ = l.TaskStates.Save(ctx, ts)
			return nil, ferr
		}
		l.applyEmittedCounters(ts, fb)
		collected = append(collected, fb...)
	}

	ts.UpdatedAt = stamp()
	if err := l.TaskStates.Save(ctx, ts); err != nil {
		return nil, fmt.Errorf("orchestrator: save task state: %w", err)
	}
	l.metrics().RecordGauge("orchestrator.mutating_steps", float64(ts.MutatingStepCount), "project", in.ProjectID)
	return l.result(ts, collected, isComplete), nil
}

// dispatch routes one validated invocation by its registry category: a
// context tool executes locally and the loop continues; a planning tool
// updates Task State's plan and continues; everything else (including
// "message", which the mapper treats as a no-op) reaches the Proposal
// Mapper or emits an assistant-text event. done is true when the loop
// should stop iterating after this call (a mutating tool was dispatched).
func (l *Loop) dispatch(ctx context.Context, in ChatInput, ts *TaskState, scene *sceneIndex, name tools.Ident, args map[string]any) (done bool, out []proposals.Proposal, err error) {
	switch l.Registry.Category(name) {
	case tools.CategoryContext:
		result, cerr := l.runContextTool(ctx, name, args, in, ts, scene)
		if cerr != nil {
			if recoverErr := l.countValidationError(ts, ts.WorkflowID, string(name), cerr); recoverErr != nil {
				return false, nil, recoverErr
			}
			return false, nil, nil
		}
		ts.ToolLog = append(ts.ToolLog, ToolRun{Name: name, Args: args, ResultSummary: summarize(result)})
		l.reflectToolResult(ts, ts.WorkflowID, name, result)
		return false, nil, nil

	case tools.CategoryPlanning:
		l.applyPlanningTool(ts, name, args)
		ts.ToolLog = append(ts.ToolLog, ToolRun{Name: name, Args: args, ResultSummary: "plan updated"})
		l.Sink.Push(ts.WorkflowID, eventsink.Planning())
		l.reflectToolResult(ts, ts.WorkflowID, name, map[string]any{"plan": ts.Plan})
		return false, nil, nil

	default:
		if name == "message" {
			l.emitAssistantText(ts.WorkflowID, args)
			l.reflectToolResult(ts, ts.WorkflowID, name, map[string]any{"ok": true})
			return false, nil, nil
		}

		budget := l.MaxMutatingSteps
		if budget <= 0 {
			budget = defaultMaxMutatingSteps
		}
		if ts.MutatingStepCount >= budget {
			return true, nil, &KindError{Kind: KindBudgetExceeded, Cause: ErrBudgetExceeded}
		}

		mapped, manualFallback, merr := l.Mapper.Map(ctx, name, args, proposals.MapInput{
			ActiveScriptPath:   activeScriptPath(in),
			ActiveScriptText:   activeScriptText(in),
			Selection:          in.Context.Selection,
			Scene:              ts.Scene,
			State:              ts.workflowState(),
			CurrentUserMessage: in.Message,
		})
		if merr != nil {
			var policyErr *proposals.PolicyError
			if errors.As(merr, &policyErr) {
				l.reflectValidationError(ts, ts.WorkflowID, string(name), merr)
				return false, nil, nil
			}
			if recoverErr := l.countValidationError(ts, ts.WorkflowID, string(name), merr); recoverErr != nil {
				return true, nil, recoverErr
			}
			return false, nil, nil
		}
		if manualFallback {
			l.Sink.Push(ts.WorkflowID, eventsink.SearchAssetsDisabled())
			l.reflectToolResult(ts, ts.WorkflowID, name, map[string]any{"disabled": true})
			return false, nil, nil
		}

		ts.MutatingStepCount++
		ts.ToolLog = append(ts.ToolLog, ToolRun{Name: name, Args: args, ResultSummary: fmt.Sprintf("%d proposal(s)", len(mapped))})
		l.Sink.Push(ts.WorkflowID, eventsink.ProposalsMapped(string(name), len(mapped)))
		l.applyEmittedCounters(ts, mapped)

		if !hasCompletion(mapped) {
			l.reflectToolResult(ts, ts.WorkflowID, name, map[string]any{"accepted": len(mapped)})
		}
		return true, mapped, nil
	}
}

// countValidationError increments the consecutive-validation-error
// counter and reflects the failure back as a VALIDATION_ERROR turn,
// returning a fatal *KindError once the counter exceeds its budget
// (spec.md §4.7: fatal if > 2).
func (l *Loop) countValidationError(ts *TaskState, workflowID string, name string, cause error) error {
	ts.consecutiveValidationErrors++
	if ts.consecutiveValidationErrors > 2 {
		return &KindError{Kind: KindValidation, Cause: cause}
	}
	l.reflectValidationError(ts, workflowID, name, cause)
	return nil
}

func (l *Loop) callProvider(ctx context.Context, in ChatInput, workflowID string, messages []*modelgateway.Message) (*modelgateway.Response, error) {
	callCtx := ctx
	if l.Config.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.Config.ProviderTimeout)
		defer cancel()
	}
	provider := in.Provider
	if provider == "" {
		provider = l.Config.DefaultProvider
	}
	return l.Gateway.Complete(callCtx, provider, &modelgateway.Request{
		RunID:    workflowID,
		Model:    in.ModelOverride,
		Messages: messages,
	})
}

func (l *Loop) maybeCompact(ctx context.Context, ts *TaskState) {
	if l.Summarizer == nil || l.ContextWindow <= 0 {
		return
	}
	if !workingset.ShouldCompact(ts.Totals, l.ContextWindow) {
		return
	}
	kept, summary, _, triggered, err := l.Builder.Compact(ctx, l.Summarizer, ts.Messages, ts.Summary, ts.Totals, l.ContextWindow)
	if err != nil || !triggered {
		return
	}
	ts.Messages = kept
	ts.Summary = summary
}

func (l *Loop) applyPlanningTool(ts *TaskState, name tools.Ident, args map[string]any) {
	switch name {
	case "start_plan":
		ts.Plan = nil
		switch steps := args["steps"].(type) {
		case []any:
			for _, v := range steps {
				if s, ok := v.(string); ok {
					ts.Plan = append(ts.Plan, s)
				}
			}
		case []string:
			ts.Plan = append(ts.Plan, steps...)
		}
	case "update_plan":
		if next, ok := args["nextStep"].(string); ok && next != "" {
			ts.Plan = append(ts.Plan, next)
		}
	}
}

func (l *Loop) emitAssistantText(workflowID string, args map[string]any) {
	text, _ := args["text"].(string)
	phase, _ := args["phase"].(string)
	if phase == "" {
		phase = string(eventsink.PhaseUpdate)
	}
	l.Sink.PushAssistantText(workflowID, eventsink.AssistantText{Phase: eventsink.Phase(phase), Text: text})
}

// applyEmittedCounters feeds the completion gate's counters from a batch
// of freshly mapped proposals.
func (l *Loop) applyEmittedCounters(ts *TaskState, batch []proposals.Proposal) {
	for _, p := range batch {
		switch p.Kind {
		case proposals.KindEdit:
			if p.Edit != nil {
				ts.ScriptEditsEmitted += len(p.Edit.Files)
			}
		case proposals.KindObjectOp:
			if p.ObjectOp != nil {
				ts.ObjectOpsEmitted += len(p.ObjectOp.Ops)
			}
		}
	}
}

func (l *Loop) reflectToolResult(ts *TaskState, workflowID string, name tools.Ident, result map[string]any) {
	l.Sink.Push(workflowID, eventsink.ToolResult(string(name)))
	ts.Messages = append(ts.Messages, modelgateway.NewTextMessage(modelgateway.RoleUser, fmt.Sprintf("TOOL_RESULT %s\n%s", name, encodeJSON(result))))
}

func (l *Loop) reflectValidationError(ts *TaskState, workflowID string, name string, cause error) {
	l.Sink.Push(workflowID, eventsink.ErrorValidation(name, cause.Error()))
	ts.Messages = append(ts.Messages, modelgateway.NewTextMessage(modelgateway.RoleUser, fmt.Sprintf("VALIDATION_ERROR %s\n%s", name, cause.Error())))
}

func (l *Loop) result(ts *TaskState, props []proposals.Proposal, isComplete bool) *RunResult {
	return &RunResult{
		WorkflowID:  ts.WorkflowID,
		Proposals:   props,
		TaskState:   ts,
		TokenTotals: ts.Totals,
		IsComplete:  isComplete,
	}
}

func (l *Loop) lockWorkflow(workflowID string) func() {
	v, _ := l.workflowLocks.LoadOrStore(workflowID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func hasCompletion(batch []proposals.Proposal) bool {
	for _, p := range batch {
		if p.Kind == proposals.KindCompletion {
			return true
		}
	}
	return false
}

func activeScriptPath(in ChatInput) string {
	if in.Context.ActiveScript == nil {
		return ""
	}
	return in.Context.ActiveScript.Path
}

func activeScriptText(in ChatInput) string {
	if in.Context.ActiveScript == nil {
		return ""
	}
	return in.Context.ActiveScript.Text
}

func toSceneEntries(nodes []SceneNode) []proposals.SceneEntry {
	out := make([]proposals.SceneEntry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, proposals.SceneEntry{Path: n.Path, ClassName: n.ClassName})
	}
	return out
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func summarize(result map[string]any) string {
	return encodeJSON(result)
}

// stamp is a small indirection so a fixed clock can be substituted in
// tests without reaching for a forbidden time.Now() in hot loop code.
var stamp = func() time.Time { return time.Now() }
