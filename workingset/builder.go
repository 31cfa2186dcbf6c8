package workingset

import (
	"fmt"
	"strings"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// Builder assembles the ordered message list presented to a provider from
// the system prompt, current goal, recent turns, recent tool results, a
// working-set block of cache/world facts, and a summary of older turns.
// Build applies count caps only (RecentTurns, RecentToolResults, the
// tool-result length cap); it does not measure the result against a token
// budget or drop content to fit one.
type Builder struct {
	Estimator Estimator

	// RecentTurns is the number of most-recent user/assistant turns kept
	// verbatim (spec default N=6).
	RecentTurns int
	// RecentToolResults is the number of most-recent tool results kept
	// (spec default K=3).
	RecentToolResults int
}

// NewBuilder returns a Builder configured with the spec's defaults.
func NewBuilder() *Builder {
	return &Builder{
		Estimator:         CharEstimator{},
		RecentTurns:       6,
		RecentToolResults: 3,
	}
}

// BuildInput carries everything the builder needs to assemble a working
// set for a single provider call.
type BuildInput struct {
	SystemPrompt string
	// Goal is the latest user message text.
	Goal string
	// Turns is the full ordered conversation history (system messages
	// excluded), already trimmed to whatever Compact last produced.
	Turns       []*Message
	ToolResults []ToolResult
	CacheFacts  []CacheFact
	WorldFacts  []WorldFact
	Summary     *Summary
}

// Build assembles the ordered message list per the contract's priority
// order, applying the RecentTurns/RecentToolResults/activeScript caps.
func (b *Builder) Build(input BuildInput) []*Message {
	var out []*Message

	if input.SystemPrompt != "" {
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleSystem, input.SystemPrompt))
	}

	if summaryText := input.Summary.render(); summaryText != "" {
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleSystem, summaryText))
	}

	if block := b.renderWorkingSetBlock(input.CacheFacts, input.WorldFacts); block != "" {
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleSystem, block))
	}

	recentTurns := input.Turns
	if b.RecentTurns > 0 {
		turns := groupTurns(recentTurns)
		if len(turns) > b.RecentTurns {
			turns = turns[len(turns)-b.RecentTurns:]
		}
		recentTurns = flattenTurns(turns)
	}
	out = append(out, recentTurns...)

	results := input.ToolResults
	if b.RecentToolResults > 0 && len(results) > b.RecentToolResults {
		results = results[len(results)-b.RecentToolResults:]
	}
	for _, r := range results {
		text := fmt.Sprintf("TOOL_RESULT %s\n%s", r.ToolName, truncateToolResult(r.Content))
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleUser, text))
	}

	if input.Goal != "" {
		out = append(out, modelgateway.NewTextMessage(modelgateway.RoleUser, input.Goal))
	}

	return out
}

// renderWorkingSetBlock formats cache/world facts into a compact text
// block, capped at roughly 30 world facts per the contract.
func (b *Builder) renderWorkingSetBlock(cacheFacts []CacheFact, worldFacts []WorldFact) string {
	if len(cacheFacts) == 0 && len(worldFacts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[Working Set]\n")
	if len(cacheFacts) > 0 {
		sb.WriteString("Cache facts:\n")
		for _, f := range cacheFacts {
			fresh := "stale"
			if f.Fresh {
				fresh = "fresh"
			}
			fmt.Fprintf(&sb, "- %s @ %s: %s\n", f.ToolName, f.Fingerprint, fresh)
		}
	}
	if len(worldFacts) > 0 {
		facts := worldFacts
		const maxWorldFacts = 30
		if len(facts) > maxWorldFacts {
			facts = facts[len(facts)-maxWorldFacts:]
		}
		sb.WriteString("World facts:\n")
		for _, f := range facts {
			fmt.Fprintf(&sb, "- %s v%d (%s)\n", f.Path, f.Version, f.Hash)
		}
	}
	return strings.TrimSpace(sb.String())
}

// EstimateTokens sums the estimated token cost of a built working set.
func (b *Builder) EstimateTokens(msgs []*Message) int {
	total := 0
	for _, m := range msgs {
		total += b.Estimator.Estimate(m.Text())
	}
	return total
}
