package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/vector-copilot/orchestrator/config"
	"github.com/vector-copilot/orchestrator/eventsink"
	"github.com/vector-copilot/orchestrator/modelgateway"
	"github.com/vector-copilot/orchestrator/proposals"
	"github.com/vector-copilot/orchestrator/toolcache"
	"github.com/vector-copilot/orchestrator/tools"
	"github.com/vector-copilot/orchestrator/workingset"
)

// fakeCatalog is a no-op AssetCatalog stand-in so tests can exercise the
// enabled-catalog path of Mapper.Map without a real asset backend.
type fakeCatalog struct{}

func (fakeCatalog) Search(_ context.Context, _ string, _ []string, _ int) ([]proposals.Asset, error) {
	return nil, nil
}

// scriptedClient returns one response per call, in order, and errors once
// exhausted.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Complete(_ context.Context, _ *modelgateway.Request) (*modelgateway.Response, error) {
	if c.calls >= len(c.responses) {
		return nil, fmt.Errorf("scriptedClient: no more scripted responses")
	}
	resp := &modelgateway.Response{Content: c.responses[c.calls]}
	c.calls++
	return resp, nil
}

func newTestLoop(t *testing.T, responses ...string) *Loop {
	t.Helper()
	registry, err := tools.NewRegistry(tools.BuiltinSpecs()...)
	if err != nil {
		t.Fatalf("unexpected error building registry: %v", err)
	}
	gw := modelgateway.NewGateway()
	gw.RegisterProvider("test", &scriptedClient{responses: responses})

	return &Loop{
		Registry:     registry,
		Gateway:      gw,
		Builder:      workingset.NewBuilder(),
		Mapper:       proposals.NewMapper(nil, false),
		Cache:        toolcache.NewInMemory(),
		Sessions:     toolcache.NewInMemory(),
		Sink:         eventsink.NewBus(64, nil),
		Config:       config.Config{MaxTurns: 4},
		SystemPrompt: "you are a Vector copilot",
		TaskStates:   NewInMemoryTaskStateStore(),
	}
}

func TestRun_CreateInstanceProducesOneObjectOpProposal(t *testing.T) {
	l := newTestLoop(t, `<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`)

	res, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "add a part"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Proposals) != 1 || res.Proposals[0].Kind != proposals.KindObjectOp {
		t.Fatalf("expected exactly one ObjectOp proposal, got %+v", res.Proposals)
	}
	if res.TaskState.ObjectOpsEmitted != 1 {
		t.Fatalf("expected ObjectOpsEmitted=1, got %d", res.TaskState.ObjectOpsEmitted)
	}
}

func TestRun_ContextToolThenMutatingToolAcrossTwoTurns(t *testing.T) {
	l := newTestLoop(t,
		`<list_selection></list_selection>`,
		`<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`,
	)

	res, err := l.Run(context.Background(), ChatInput{
		ProjectID: "p1",
		Message:   "look at the selection then add a part",
		Context: ChatContext{
			Selection: []proposals.SelectionEntry{{ClassName: "Part", Path: "game.Workspace.Existing"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Proposals) != 1 {
		t.Fatalf("expected one proposal after the context turn, got %d", len(res.Proposals))
	}
	if len(res.TaskState.ToolLog) != 2 {
		t.Fatalf("expected two tool-run log entries (context + mutating), got %d", len(res.TaskState.ToolLog))
	}
}

func TestRun_CompletionGateRejectsBareObjectOpCompletion(t *testing.T) {
	// A mutating tool always terminates its Run call's turn loop, so the
	// scripted-completion-then-retry sequence has to span two Run calls
	// sharing one workflow, exactly as two successive chat turns would.
	l := newTestLoop(t, `<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`)

	first, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", WorkflowID: "wf-gate", Message: "add a part"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.IsComplete || first.TaskState.ObjectOpsEmitted != 1 {
		t.Fatalf("expected one uncompleted ObjectOp after the first turn, got %+v", first)
	}

	l.Gateway = modelgateway.NewGateway()
	l.Gateway.RegisterProvider("test", &scriptedClient{responses: []string{
		`<complete><summary>done</summary></complete>`,
		`<create_instance><className>Part</className><parentPath>game.Workspace</parentPath><props>{"Name":"P2"}</props></create_instance>`,
	}})

	second, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", WorkflowID: "wf-gate", Message: "wrap up"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.IsComplete {
		t.Fatal("expected the completion gate to reject a completion with no script edit")
	}
	if len(second.Proposals) != 1 || second.Proposals[0].Kind != proposals.KindObjectOp {
		t.Fatalf("expected the gate rejection to fall through to the retried create_instance, got %+v", second.Proposals)
	}
	if second.TaskState.ObjectOpsEmitted != 2 {
		t.Fatalf("expected ObjectOpsEmitted to accumulate to 2, got %d", second.TaskState.ObjectOpsEmitted)
	}
}

func TestRun_UnknownToolFatalAfterOneRetry(t *testing.T) {
	l := newTestLoop(t,
		`<frobnicate_widget></frobnicate_widget>`,
		`<frobnicate_widget></frobnicate_widget>`,
	)

	_, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "do something odd"})
	if err == nil {
		t.Fatal("expected an error after exceeding the unknown-tool retry budget")
	}
	var ke *KindError
	if !asKindError(err, &ke) || ke.Kind != KindUnknownTool {
		t.Fatalf("expected a KindUnknownTool error, got %v", err)
	}
}

func TestRun_NoToolCallFallsThroughToFallback(t *testing.T) {
	l := newTestLoop(t, "just some prose with no tool call", "still no tool call", "nope", "nothing here")

	res, err := l.Run(context.Background(), ChatInput{
		ProjectID: "p1",
		Message:   "do something vague",
		Context: ChatContext{
			Selection: []proposals.SelectionEntry{{ClassName: "Part", Path: "game.Workspace.Thing"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Proposals) != 1 || res.Proposals[0].Kind != proposals.KindObjectOp {
		t.Fatalf("expected the rename-selection fallback to fire, got %+v", res.Proposals)
	}
}

func TestRun_FallbacksDisabledReturnsNoActionableToolError(t *testing.T) {
	l := newTestLoop(t, "prose", "prose", "prose", "prose")
	l.Config.DisableFallbacks = true

	_, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "do something vague"})
	if err != ErrNoActionableTool {
		t.Fatalf("expected ErrNoActionableTool, got %v", err)
	}
}

func TestRun_GridTemplateBypassesProvider(t *testing.T) {
	l := newTestLoop(t) // no scripted responses: a provider call would fail the test
	l.Templates = func(message string) ([]proposals.Proposal, bool) {
		if message == "grid 2x2" {
			return []proposals.Proposal{{ID: "1", Kind: proposals.KindObjectOp, ObjectOp: &proposals.ObjectOpProposal{}}}, true
		}
		return nil, false
	}

	res, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "grid 2x2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Proposals) != 1 {
		t.Fatalf("expected the template bypass proposal, got %+v", res.Proposals)
	}
}

func TestRun_WorkflowIDReusesExistingTaskState(t *testing.T) {
	l := newTestLoop(t,
		`<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`,
	)
	first, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", WorkflowID: "wf-1", Message: "add a part"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TaskState.ObjectOpsEmitted != 1 {
		t.Fatalf("expected 1 object op after first run, got %d", first.TaskState.ObjectOpsEmitted)
	}

	l.Gateway = modelgateway.NewGateway()
	l.Gateway.RegisterProvider("test", &scriptedClient{responses: []string{
		`<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`,
	}})
	second, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", WorkflowID: "wf-1", Message: "add another part"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TaskState.ObjectOpsEmitted != 2 {
		t.Fatalf("expected the second run to accumulate onto the same Task State, got %d", second.TaskState.ObjectOpsEmitted)
	}
}

// TestRun_SearchAssetsFlexibleTagsProduceAssetOpWithTags is the end-to-end
// S3 regression: the flexible-array coercion in tools.CoerceFlexibleArray
// must survive unchanged through Registry.Validate's JSON-Schema check and
// into Mapper.Map's AssetOp, so the tags the model asked for actually show
// up on the proposal instead of silently becoming nil.
func TestRun_SearchAssetsFlexibleTagsProduceAssetOpWithTags(t *testing.T) {
	l := newTestLoop(t, `<search_assets><query>tree</query><tags>nature, plant</tags></search_assets>`)
	l.Mapper = proposals.NewMapper(fakeCatalog{}, true)

	res, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "find a tree"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Proposals) != 1 || res.Proposals[0].Kind != proposals.KindAssetOp {
		t.Fatalf("expected a single AssetOp proposal, got %+v", res.Proposals)
	}
	search := res.Proposals[0].AssetOp.Search
	if search.Query != "tree" {
		t.Fatalf("expected query %q, got %q", "tree", search.Query)
	}
	if len(search.Tags) != 2 || search.Tags[0] != "nature" || search.Tags[1] != "plant" {
		t.Fatalf("expected tags [nature plant], got %+v", search.Tags)
	}
}

// TestRun_StartPlanRecordsStepsWithoutPanicking is the end-to-end
// start_plan regression: "steps" is a required array field that goes
// through the same flexible-array coercion as "tags", so a valid
// start_plan call must populate TaskState.Plan instead of panicking on an
// unchecked []any assertion.
func TestRun_StartPlanRecordsStepsWithoutPanicking(t *testing.T) {
	l := newTestLoop(t,
		`<start_plan><steps>["scout the area","place the walls","add a roof"]</steps></start_plan>`,
		`<create_instance><className>Part</className><parentPath>game.Workspace</parentPath></create_instance>`,
	)

	res, err := l.Run(context.Background(), ChatInput{ProjectID: "p1", Message: "build a house"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"scout the area", "place the walls", "add a roof"}
	if len(res.TaskState.Plan) != len(want) {
		t.Fatalf("expected plan %v, got %v", want, res.TaskState.Plan)
	}
	for i, step := range want {
		if res.TaskState.Plan[i] != step {
			t.Fatalf("expected plan step %d to be %q, got %q", i, step, res.TaskState.Plan[i])
		}
	}
	if len(res.Proposals) != 1 || res.Proposals[0].Kind != proposals.KindObjectOp {
		t.Fatalf("expected the planning turn to continue into the mutating tool, got %+v", res.Proposals)
	}
}

func asKindError(err error, target **KindError) bool {
	if ke, ok := err.(*KindError); ok {
		*target = ke
		return true
	}
	return false
}
