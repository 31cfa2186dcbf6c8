package workingset

import (
	"context"
	"fmt"
	"strings"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// Summarizer produces an updated Summary covering the turns being folded
// away, optionally building on a previous summary.
type Summarizer interface {
	Summarize(ctx context.Context, previous *Summary, turns []*Message) (*Summary, error)
}

// ModelSummarizer implements Summarizer by asking a modelgateway.Client to
// produce prose, then wrapping it as a Summary's free-text Text field.
// Structured fields (AcceptedProposals, Fingerprints, Blockers) are left
// for the caller to carry forward explicitly, since only the orchestrator
// loop knows which proposals were actually accepted.
type ModelSummarizer struct {
	Client modelgateway.Client
	Model  string
}

func (s *ModelSummarizer) Summarize(ctx context.Context, previous *Summary, turns []*Message) (*Summary, error) {
	var sb strings.Builder
	if prev := previous.render(); prev != "" {
		sb.WriteString(prev)
		sb.WriteString("\n\n")
	}
	for _, m := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text())
	}

	req := &modelgateway.Request{
		Model: s.Model,
		Messages: []*modelgateway.Message{
			modelgateway.NewTextMessage(modelgateway.RoleUser, summaryPrompt(sb.String())),
		},
	}
	resp, err := s.Client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	next := &Summary{Text: strings.TrimSpace(resp.Content)}
	if previous != nil {
		next.Goal = previous.Goal
		next.AcceptedProposals = previous.AcceptedProposals
		next.Fingerprints = previous.Fingerprints
		next.Blockers = previous.Blockers
	}
	return next, nil
}

func summaryPrompt(conversation string) string {
	return "Summarize the conversation so far in 800-1200 tokens, covering the goal, " +
		"accepted proposals, resource fingerprints, and open blockers. Be thorough but terse.\n\n" +
		conversation
}

// CompactionThreshold is the fraction of the effective context window at
// which folding older turns into a summary triggers.
const CompactionThreshold = 0.8

// ShouldCompact reports whether the running token total has crossed the
// compaction threshold for the given effective window size.
func ShouldCompact(totals TokenTotals, window int) bool {
	if window <= 0 {
		return false
	}
	return float64(totals.Sum()) >= CompactionThreshold*float64(window)
}

// DeletedRange names the half-open turn-index range folded into a summary,
// mirroring conversationHistoryDeletedRange.
type DeletedRange [2]int

// Compact folds all turns older than the most recent RecentTurns into an
// updated summary via summarizer, returning the retained turns, the new
// summary, and the deleted range. It is a no-op (triggered=false) when the
// token totals have not crossed the compaction threshold, or when there
// are no turns old enough to fold.
func (b *Builder) Compact(ctx context.Context, summarizer Summarizer, msgs []*Message, previous *Summary, totals TokenTotals, window int) (kept []*Message, summary *Summary, deleted DeletedRange, triggered bool, err error) {
	if !ShouldCompact(totals, window) {
		return msgs, previous, DeletedRange{}, false, nil
	}

	turns := groupTurns(msgs)
	keepN := b.RecentTurns
	if keepN <= 0 {
		keepN = 6
	}
	if len(turns) <= keepN {
		return msgs, previous, DeletedRange{}, false, nil
	}

	splitIdx := len(turns) - keepN
	toCompress := turns[:splitIdx]
	toKeep := turns[splitIdx:]

	next, err := summarizer.Summarize(ctx, previous, flattenTurns(toCompress))
	if err != nil {
		return msgs, previous, DeletedRange{}, false, err
	}

	return flattenTurns(toKeep), next, DeletedRange{0, splitIdx}, true, nil
}
