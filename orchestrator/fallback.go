package orchestrator

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vector-copilot/orchestrator/diffengine"
	"github.com/vector-copilot/orchestrator/eventsink"
	"github.com/vector-copilot/orchestrator/proposals"
)

func newID() string { return uuid.NewString() }

// generateFallback implements the three-tier fallback generator of
// spec.md §4.7, tried in order, for a turn limit reached with no
// actionable tool produced. It is gated by Config.DisableFallbacks.
func (l *Loop) generateFallback(in ChatInput, ts *TaskState) ([]proposals.Proposal, error) {
	if l.Config.DisableFallbacks {
		return nil, ErrNoActionableTool
	}

	if p, ok := fallbackEditComment(in); ok {
		l.Sink.Push(ts.WorkflowID, eventsink.FallbackEdit("comment-prepend"))
		return []proposals.Proposal{p}, nil
	}
	if p, ok := fallbackRenameSelection(in); ok {
		l.Sink.Push(ts.WorkflowID, eventsink.FallbackObject("rename-selection"))
		return []proposals.Proposal{p}, nil
	}
	if p, ok := fallbackAssetSearch(in); ok {
		l.Sink.Push(ts.WorkflowID, eventsink.FallbackAsset("search"))
		return []proposals.Proposal{p}, nil
	}
	return nil, ErrNoActionableTool
}

// fallbackEditComment prepends a single-line comment referencing the
// user's message to the active script, when one is open.
func fallbackEditComment(in ChatInput) (proposals.Proposal, bool) {
	script := in.Context.ActiveScript
	if script == nil {
		return proposals.Proposal{}, false
	}
	comment := fmt.Sprintf("-- TODO (copilot): %s\n", strings.TrimSpace(in.Message))
	edit := diffengine.RangeEdit{
		Start: diffengine.Position{Line: 0, Character: 0},
		End:   diffengine.Position{Line: 0, Character: 0},
		Text:  comment,
	}
	after, err := diffengine.ApplyRangeEdits(script.Text, []diffengine.RangeEdit{edit})
	if err != nil {
		return proposals.Proposal{}, false
	}
	return proposals.Proposal{
		ID:   newID(),
		Kind: proposals.KindEdit,
		Edit: &proposals.EditProposal{
			Files: []proposals.EditFile{{
				Path:    script.Path,
				Diff:    proposals.Diff{Mode: "rangeEDITS", Edits: []diffengine.RangeEdit{edit}},
				Preview: &proposals.Preview{Unified: diffengine.Unified(script.Path, script.Text, after)},
				Safety:  proposals.Safety{BeforeHash: diffengine.Fingerprint(script.Text), BaseText: script.Text},
			}},
		},
	}, true
}

// fallbackRenameSelection renames the single selected instance by
// appending "_Warp" to its path's final segment.
func fallbackRenameSelection(in ChatInput) (proposals.Proposal, bool) {
	if len(in.Context.Selection) != 1 {
		return proposals.Proposal{}, false
	}
	path := in.Context.Selection[0].Path
	if path == "" {
		return proposals.Proposal{}, false
	}
	idx := strings.LastIndex(path, ".")
	base := path
	if idx >= 0 {
		base = path[idx+1:]
	}
	return proposals.Proposal{
		ID:   newID(),
		Kind: proposals.KindObjectOp,
		ObjectOp: &proposals.ObjectOpProposal{Ops: []proposals.Op{{
			Kind:           proposals.OpRenameInstance,
			RenameInstance: &proposals.RenameInstanceOp{Path: path, NewName: base + "_Warp"},
		}}},
	}, true
}

// fallbackAssetSearch emits a search_assets-shaped AssetOp using the user's
// message as the query, falling back to "button" when the message is
// blank.
func fallbackAssetSearch(in ChatInput) (proposals.Proposal, bool) {
	query := strings.TrimSpace(in.Message)
	if query == "" {
		query = "button"
	}
	return proposals.Proposal{
		ID:   newID(),
		Kind: proposals.KindAssetOp,
		AssetOp: &proposals.AssetOpProposal{Search: &proposals.SearchOp{
			Query: query,
			Limit: 6,
		}},
	}, true
}
