package workingset

import (
	"context"
	"errors"
	"testing"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

type fakeSummarizer struct {
	summary *Summary
	err     error
	calls   int
	lastIn  []*Message
}

func (f *fakeSummarizer) Summarize(ctx context.Context, previous *Summary, turns []*Message) (*Summary, error) {
	f.calls++
	f.lastIn = turns
	return f.summary, f.err
}

func buildTurns(n int) []*Message {
	var out []*Message
	for i := 0; i < n; i++ {
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleUser, "q"))
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleAssistant, "a"))
	}
	return out
}

func TestShouldCompact_TriggersAt80PercentOfWindow(t *testing.T) {
	if ShouldCompact(TokenTotals{In: 79}, 100) {
		t.Fatal("should not trigger below 80% of window")
	}
	if !ShouldCompact(TokenTotals{In: 80}, 100) {
		t.Fatal("should trigger at exactly 80% of window")
	}
}

func TestShouldCompact_ZeroWindowNeverTriggers(t *testing.T) {
	if ShouldCompact(TokenTotals{In: 1000}, 0) {
		t.Fatal("a zero window must never trigger compaction")
	}
}

func TestCompact_NoopWhenUnderThreshold(t *testing.T) {
	b := NewBuilder()
	b.RecentTurns = 2
	msgs := buildTurns(10)
	summarizer := &fakeSummarizer{}
	kept, _, deleted, triggered, err := b.Compact(context.Background(), summarizer, msgs, nil, TokenTotals{In: 1}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if triggered {
		t.Fatal("compaction should not trigger under threshold")
	}
	if len(kept) != len(msgs) {
		t.Fatalf("expected all messages kept, got %d of %d", len(kept), len(msgs))
	}
	if deleted != (DeletedRange{}) {
		t.Fatalf("expected a zero deleted range, got %v", deleted)
	}
}

func TestCompact_FoldsOlderTurnsAndKeepsRecent(t *testing.T) {
	b := NewBuilder()
	b.RecentTurns = 2
	msgs := buildTurns(10) // 10 turns, 20 messages
	summarizer := &fakeSummarizer{summary: &Summary{Text: "folded"}}

	kept, summary, deleted, triggered, err := b.Compact(context.Background(), summarizer, msgs, nil, TokenTotals{In: 900}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !triggered {
		t.Fatal("expected compaction to trigger at 90% of window")
	}
	if len(kept) != 4 {
		t.Fatalf("expected the last 2 turns (4 messages) kept, got %d", len(kept))
	}
	if summary == nil || summary.Text != "folded" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if deleted != (DeletedRange{0, 8}) {
		t.Fatalf("expected deleted range [0,8), got %v", deleted)
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected summarizer to be called once, got %d", summarizer.calls)
	}
	if len(summarizer.lastIn) != 16 {
		t.Fatalf("expected 8 folded turns (16 messages) passed to summarizer, got %d", len(summarizer.lastIn))
	}
}

func TestCompact_TooFewTurnsIsNoop(t *testing.T) {
	b := NewBuilder()
	b.RecentTurns = 6
	msgs := buildTurns(3)
	summarizer := &fakeSummarizer{summary: &Summary{Text: "x"}}
	kept, _, _, triggered, err := b.Compact(context.Background(), summarizer, msgs, nil, TokenTotals{In: 900}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if triggered {
		t.Fatal("expected a no-op when turn count does not exceed RecentTurns")
	}
	if len(kept) != len(msgs) {
		t.Fatalf("expected all messages kept, got %d", len(kept))
	}
}

func TestCompact_SummarizerErrorPropagatesAndKeepsOriginal(t *testing.T) {
	b := NewBuilder()
	b.RecentTurns = 2
	msgs := buildTurns(10)
	summarizer := &fakeSummarizer{err: errors.New("provider down")}
	kept, summary, _, triggered, err := b.Compact(context.Background(), summarizer, msgs, nil, TokenTotals{In: 900}, 1000)
	if err == nil {
		t.Fatal("expected the summarizer error to propagate")
	}
	if triggered {
		t.Fatal("a failed compaction must not report triggered")
	}
	if len(kept) != len(msgs) {
		t.Fatal("a failed compaction must fall back to the original messages")
	}
	if summary != nil {
		t.Fatalf("expected nil summary on error, got %+v", summary)
	}
}

func TestModelSummarizer_Summarize(t *testing.T) {
	client := &stubClient{resp: &modelgateway.Response{Content: "a tidy summary"}}
	s := &ModelSummarizer{Client: client, Model: "claude-3.5-sonnet"}
	summary, err := s.Summarize(context.Background(), &Summary{Goal: "ship it"}, buildTurns(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Text != "a tidy summary" {
		t.Fatalf("unexpected summary text %q", summary.Text)
	}
	if summary.Goal != "ship it" {
		t.Fatalf("expected the prior goal carried forward, got %q", summary.Goal)
	}
}

type stubClient struct {
	resp *modelgateway.Response
	err  error
}

func (s *stubClient) Complete(ctx context.Context, req *modelgateway.Request) (*modelgateway.Response, error) {
	return s.resp, s.err
}
