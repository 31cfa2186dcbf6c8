// Package workingset assembles the ordered message list a provider call
// sees on a given turn — system prompt, current goal, recent history, tool
// results, and a compact snapshot of cache/world facts — and folds older
// turns into a running summary once the running token totals cross a
// share of the context window. Assembly itself applies count caps, not a
// token budget.
package workingset

import (
	"strings"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// Message is the working set's element type. It is exactly
// modelgateway.Message so a built working set can be handed to a
// modelgateway.Request without translation.
type Message = modelgateway.Message

// Estimator reports an approximate token cost for a string. Implementations
// need not be exact; the builder's budget logic depends only on
// monotonicity (more text never estimates fewer tokens), not precision, so
// a char-count heuristic can later be swapped for a real tokenizer without
// touching compaction logic.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator is the default char-count-based Estimator.
type CharEstimator struct{}

// Estimate approximates token count as roughly one token per four
// characters, plus one to keep empty strings non-zero.
func (CharEstimator) Estimate(text string) int {
	return len(text)/4 + 1
}

// ToolResult is a single recent tool invocation result eligible for
// inclusion in the working set.
type ToolResult struct {
	ToolName string
	Content  string
}

// CacheFact records whether a tool read is fresh against a given
// fingerprint, so the provider doesn't re-request data it already has.
type CacheFact struct {
	ToolName    string
	Fingerprint string
	Fresh       bool
}

// WorldFact is a scene-graph path the builder considers important enough
// to surface in the working-set block (version/hash, not full content).
type WorldFact struct {
	Path    string
	Version int
	Hash    string
}

// TokenTotals accumulates the running cost of a workflow's provider calls.
type TokenTotals struct {
	In          int
	Out         int
	CacheReads  int
	CacheWrites int
}

// Sum returns the combined token count used to evaluate the compaction
// trigger.
func (t TokenTotals) Sum() int { return t.In + t.Out + t.CacheReads + t.CacheWrites }

// Summary replaces older turns once compaction triggers: goal, accepted
// proposals, resource fingerprints, and open blockers, in 800-1200 tokens.
type Summary struct {
	Goal              string
	AcceptedProposals []string
	Fingerprints      map[string]string
	Blockers          []string
	Text              string
}

// render formats the summary as a single text block for inclusion in the
// working set.
func (s *Summary) render() string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[Conversation Summary]\n")
	if s.Goal != "" {
		sb.WriteString("Goal: ")
		sb.WriteString(s.Goal)
		sb.WriteString("\n")
	}
	if len(s.AcceptedProposals) > 0 {
		sb.WriteString("Accepted proposals:\n")
		for _, p := range s.AcceptedProposals {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	if len(s.Fingerprints) > 0 {
		sb.WriteString("Resource fingerprints:\n")
		for path, hash := range s.Fingerprints {
			sb.WriteString("- ")
			sb.WriteString(path)
			sb.WriteString(": ")
			sb.WriteString(hash)
			sb.WriteString("\n")
		}
	}
	if len(s.Blockers) > 0 {
		sb.WriteString("Open blockers:\n")
		for _, b := range s.Blockers {
			sb.WriteString("- ")
			sb.WriteString(b)
			sb.WriteString("\n")
		}
	}
	if s.Text != "" {
		sb.WriteString(s.Text)
	}
	return strings.TrimSpace(sb.String())
}

const activeScriptCap = 40000

// truncateToolResult caps a tool result's content, matching the
// activeScript.text cap from the contract this builder implements.
func truncateToolResult(content string) string {
	if len(content) <= activeScriptCap {
		return content
	}
	return content[:activeScriptCap] + "\n... [truncated]"
}
