package workingset

import (
	"strings"
	"testing"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

func textMsgs(pairs ...string) []*Message {
	var out []*Message
	role := modelgateway.RoleUser
	for _, p := range pairs {
		out = append(out, modelgateway.NewTextMessage(role, p))
		if role == modelgateway.RoleUser {
			role = modelgateway.RoleAssistant
		} else {
			role = modelgateway.RoleUser
		}
	}
	return out
}

func TestBuild_IncludesSystemPromptAndGoal(t *testing.T) {
	b := NewBuilder()
	out := b.Build(BuildInput{SystemPrompt: "be helpful", Goal: "add a part"})
	if len(out) != 2 {
		t.Fatalf("expected system prompt + goal, got %d messages", len(out))
	}
	if out[0].Role != modelgateway.RoleSystem || out[0].Text() != "be helpful" {
		t.Fatalf("unexpected first message: %+v", out[0])
	}
	if out[len(out)-1].Text() != "add a part" {
		t.Fatalf("expected goal last, got %q", out[len(out)-1].Text())
	}
}

func TestBuild_TrimsToRecentTurns(t *testing.T) {
	b := NewBuilder()
	b.RecentTurns = 2

	var turns []string
	for i := 0; i < 10; i++ {
		turns = append(turns, "turn")
	}
	out := b.Build(BuildInput{Turns: textMsgs(turns...)})
	if len(out) != 4 {
		t.Fatalf("expected 2 turns (4 messages) kept, got %d", len(out))
	}
}

func TestBuild_CapsToolResultsToRecentToolResultsAndTruncatesContent(t *testing.T) {
	b := NewBuilder()
	b.RecentToolResults = 1
	long := strings.Repeat("x", activeScriptCap+500)
	out := b.Build(BuildInput{
		ToolResults: []ToolResult{
			{ToolName: "get_active_script", Content: "old"},
			{ToolName: "get_active_script", Content: long},
		},
	})
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 tool result kept, got %d", len(out))
	}
	if !strings.Contains(out[0].Text(), "[truncated]") {
		t.Fatal("expected the kept tool result to be truncated")
	}
	if len(out[0].Text()) > activeScriptCap+1000 {
		t.Fatalf("tool result text exceeds cap: %d bytes", len(out[0].Text()))
	}
}

func TestBuild_IncludesWorkingSetBlockAndSummary(t *testing.T) {
	b := NewBuilder()
	out := b.Build(BuildInput{
		Summary:    &Summary{Goal: "finish the level"},
		CacheFacts: []CacheFact{{ToolName: "list_children", Fingerprint: "abc", Fresh: true}},
		WorldFacts: []WorldFact{{Path: "Workspace.Part", Version: 2, Hash: "deadbeef"}},
	})
	if len(out) != 2 {
		t.Fatalf("expected summary + working-set block, got %d", len(out))
	}
	if !strings.Contains(out[0].Text(), "finish the level") {
		t.Fatalf("expected summary to mention the goal, got %q", out[0].Text())
	}
	if !strings.Contains(out[1].Text(), "Workspace.Part") {
		t.Fatalf("expected working-set block to mention the world fact, got %q", out[1].Text())
	}
}

func TestBuild_WorldFactsCappedAtThirty(t *testing.T) {
	b := NewBuilder()
	facts := make([]WorldFact, 40)
	for i := range facts {
		facts[i] = WorldFact{Path: "p", Version: i}
	}
	block := b.renderWorkingSetBlock(nil, facts)
	if strings.Count(block, "- p v") > 30 {
		t.Fatalf("expected world facts capped at 30 entries")
	}
}

func TestEstimateTokens_Monotonic(t *testing.T) {
	b := NewBuilder()
	short := b.EstimateTokens([]*Message{modelgateway.NewTextMessage(modelgateway.RoleUser, "hi")})
	long := b.EstimateTokens([]*Message{modelgateway.NewTextMessage(modelgateway.RoleUser, strings.Repeat("hi", 1000))})
	if long <= short {
		t.Fatalf("expected longer text to estimate more tokens, short=%d long=%d", short, long)
	}
}
