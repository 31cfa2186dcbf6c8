package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

type mockRuntime struct {
	captured *bedrockruntime.ConverseInput
	output   *bedrockruntime.ConverseOutput
	err      error
}

func (m *mockRuntime) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.captured = params
	return m.output, m.err
}

func TestComplete_TranslatesTextAndUsage(t *testing.T) {
	mock := &mockRuntime{
		output: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hello"}},
			}},
			Usage: &brtypes.TokenUsage{
				InputTokens:  aws.Int32(100),
				OutputTokens: aws.Int32(20),
			},
			StopReason: brtypes.StopReasonEndTurn,
		},
	}
	client, err := New(Options{Runtime: mock, DefaultModel: "anthropic.claude-3"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := &modelgateway.Request{
		Messages: []*modelgateway.Message{
			modelgateway.NewTextMessage(modelgateway.RoleSystem, "be smart"),
			modelgateway.NewTextMessage(modelgateway.RoleUser, "hi"),
		},
	}
	resp, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.InputTokens != 100 || resp.Usage.OutputTokens != 20 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if resp.StopReason != string(brtypes.StopReasonEndTurn) {
		t.Fatalf("unexpected stop reason %q", resp.StopReason)
	}
	if mock.captured == nil || *mock.captured.ModelId != "anthropic.claude-3" {
		t.Fatalf("expected model id to be forwarded, got %+v", mock.captured)
	}
	if len(mock.captured.System) != 1 {
		t.Fatalf("expected system block to be carried separately, got %d", len(mock.captured.System))
	}
}

func TestComplete_NonMessageOutputIsEmptyCompletion(t *testing.T) {
	mock := &mockRuntime{output: &bedrockruntime.ConverseOutput{}}
	client, err := New(Options{Runtime: mock, DefaultModel: "anthropic.claude-3"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := &modelgateway.Request{Messages: []*modelgateway.Message{modelgateway.NewTextMessage(modelgateway.RoleUser, "hi")}}
	_, err = client.Complete(context.Background(), req)
	if !errors.Is(err, modelgateway.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestComplete_RuntimeErrorWrappedAsTransient(t *testing.T) {
	mock := &mockRuntime{err: errors.New("throttled")}
	client, err := New(Options{Runtime: mock, DefaultModel: "anthropic.claude-3"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := &modelgateway.Request{Messages: []*modelgateway.Message{modelgateway.NewTextMessage(modelgateway.RoleUser, "hi")}}
	_, err = client.Complete(context.Background(), req)
	if !modelgateway.IsTransient(err) {
		t.Fatalf("expected a transient error, got %v", err)
	}
}

func TestNew_RequiresRuntimeAndModel(t *testing.T) {
	if _, err := New(Options{DefaultModel: "m"}); err == nil {
		t.Fatal("expected an error for a missing runtime client")
	}
	if _, err := New(Options{Runtime: &mockRuntime{}}); err == nil {
		t.Fatal("expected an error for a missing default model")
	}
}
