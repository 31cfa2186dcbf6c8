package proposals

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vector-copilot/orchestrator/diffengine"
	"github.com/vector-copilot/orchestrator/tools"
)

// defaultMaxAutoRepairDepth caps how many missing Workspace ancestors the
// mapper will auto-create ahead of a create_instance call. spec.md §9
// leaves the exact cap an open question; 8 is adopted as a generous but
// bounded value (see DESIGN.md).
const defaultMaxAutoRepairDepth = 8

// AssetCatalog is the optional external asset search backend. A nil
// catalog, or CatalogEnabled == false, routes search_assets through the
// manual-fallback signal instead of an AssetOp proposal; insert_asset and
// generate_asset_3d map to AssetOp proposals either way (spec.md §4.6/§4.7).
type AssetCatalog interface {
	Search(ctx context.Context, query string, tags []string, limit int) ([]Asset, error)
}

// Asset is a single catalog search hit.
type Asset struct {
	ID   string
	Name string
}

// WorkflowState is the subset of per-workflow counters the mapper needs to
// enforce the completion gate; the caller (orchestrator) owns the
// authoritative Task State and passes a read view in on every Map call.
type WorkflowState struct {
	ObjectOpsEmitted   int
	ScriptEditsEmitted int
	ScriptPolicyOptOut bool
}

// MapInput carries the chat/session context the mapper needs beyond the
// tool's own validated arguments.
type MapInput struct {
	ActiveScriptPath   string
	ActiveScriptText   string
	Selection          []SelectionEntry
	Scene              Snapshot
	State              WorkflowState
	CurrentUserMessage string
}

// Mapper implements the Proposal Mapper contract (spec.md §4.6).
type Mapper struct {
	Catalog            AssetCatalog
	CatalogEnabled     bool
	MaxAutoRepairDepth int
}

// NewMapper builds a Mapper with the spec's default auto-repair depth.
func NewMapper(catalog AssetCatalog, catalogEnabled bool) *Mapper {
	return &Mapper{Catalog: catalog, CatalogEnabled: catalogEnabled, MaxAutoRepairDepth: defaultMaxAutoRepairDepth}
}

// Map translates one validated tool invocation into zero or more
// proposals. manualFallback is true only for a disabled-catalog
// search_assets call, in which case proposals is empty and no error is
// returned — the caller emits the manual_fallback event itself.
func (m *Mapper) Map(ctx context.Context, name tools.Ident, args map[string]any, in MapInput) (proposals []Proposal, manualFallback bool, err error) {
	switch name {
	case "show_diff", "apply_edit":
		p, err := m.mapEdit(name, args, in)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "create_instance":
		p, err := m.mapCreateInstance(args, in)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "set_properties", "rename_instance", "delete_instance":
		p, err := m.mapInstanceOp(name, args, in)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "search_assets":
		return m.mapSearchAssets(ctx, args, in)

	case "insert_asset":
		p, err := m.mapInsertAsset(args)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "generate_asset_3d":
		p, err := m.mapGenerate3D(args)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "complete", "attempt_completion", "final_message":
		p, err := m.mapCompletion(name, args, in.State)
		if err != nil {
			return nil, false, err
		}
		return []Proposal{p}, false, nil

	case "message", "start_plan", "update_plan":
		return nil, false, nil

	default:
		return nil, false, &MappingError{Tool: name, Reason: "tool is not handled by the proposal mapper"}
	}
}

func newID() string { return uuid.NewString() }

func (m *Mapper) mapEdit(name tools.Ident, args map[string]any, in MapInput) (Proposal, error) {
	path, _ := stringArg(args, "path")
	if path == "" {
		path = in.ActiveScriptPath
	}
	if path == "" {
		return Proposal{}, &MappingError{Tool: name, Reason: "path is required and no active script is open"}
	}

	edits, err := parseRangeEdits(args["edits"])
	if err != nil {
		return Proposal{}, &MappingError{Tool: name, Reason: err.Error()}
	}

	baseText := in.ActiveScriptText
	afterText, err := diffengine.ApplyRangeEdits(baseText, edits)
	if err != nil {
		return Proposal{}, &MappingError{Tool: name, Reason: err.Error()}
	}

	return Proposal{
		ID:   newID(),
		Kind: KindEdit,
		Edit: &EditProposal{
			Files: []EditFile{{
				Path:    path,
				Diff:    Diff{Mode: "rangeEDITS", Edits: edits},
				Preview: &Preview{Unified: diffengine.Unified(path, baseText, afterText)},
				Safety:  Safety{BeforeHash: diffengine.Fingerprint(baseText), BaseText: baseText},
			}},
		},
	}, nil
}

func (m *Mapper) mapCreateInstance(args map[string]any, in MapInput) (Proposal, error) {
	className, _ := stringArg(args, "className")
	parentPath, _ := stringArg(args, "parentPath")
	parentPath = canonicalizePath(parentPath)
	props := normalizeProps(mapArg(args, "props"))

	var ops []Op
	for _, missing := range missingWorkspaceAncestors(in.Scene, parentPath, m.MaxAutoRepairDepth) {
		parent, name := splitPath(missing)
		ops = append(ops, Op{
			Kind: OpCreateInstance,
			CreateInstance: &CreateInstanceOp{
				ClassName:  "Model",
				ParentPath: parent,
				Props:      map[string]any{"Name": name},
			},
		})
	}
	ops = append(ops, Op{
		Kind: OpCreateInstance,
		CreateInstance: &CreateInstanceOp{
			ClassName:  className,
			ParentPath: parentPath,
			Props:      props,
		},
	})

	return Proposal{ID: newID(), Kind: KindObjectOp, ObjectOp: &ObjectOpProposal{Ops: ops}}, nil
}

func (m *Mapper) mapInstanceOp(name tools.Ident, args map[string]any, in MapInput) (Proposal, error) {
	path, _ := stringArg(args, "path")
	if path == "" {
		path = inferSinglePath(in.Selection)
	}
	if path == "" {
		return Proposal{}, &MappingError{Tool: name, Reason: "path is required and selection does not resolve to exactly one instance"}
	}
	path = canonicalizePath(path)

	var op Op
	switch name {
	case "set_properties":
		op = Op{Kind: OpSetProperties, SetProperties: &SetPropertiesOp{Path: path, Props: normalizeProps(mapArg(args, "props"))}}
	case "rename_instance":
		newName, _ := stringArg(args, "newName")
		op = Op{Kind: OpRenameInstance, RenameInstance: &RenameInstanceOp{Path: path, NewName: newName}}
	case "delete_instance":
		op = Op{Kind: OpDeleteInstance, DeleteInstance: &DeleteInstanceOp{Path: path}}
	}
	return Proposal{ID: newID(), Kind: KindObjectOp, ObjectOp: &ObjectOpProposal{Ops: []Op{op}}}, nil
}

func (m *Mapper) mapSearchAssets(ctx context.Context, args map[string]any, in MapInput) ([]Proposal, bool, error) {
	if m.Catalog == nil || !m.CatalogEnabled {
		return nil, true, nil
	}
	query, _ := stringArg(args, "query")
	if query == "" {
		query = in.CurrentUserMessage
	}
	if query == "" {
		return nil, false, &MappingError{Tool: "search_assets", Reason: "query is required"}
	}
	tags := stringsArg(args, "tags")
	limit := intArg(args, "limit", 6)

	if _, err := m.Catalog.Search(ctx, query, tags, limit); err != nil {
		return nil, false, fmt.Errorf("proposals: catalog search: %w", err)
	}

	return []Proposal{{
		ID:      newID(),
		Kind:    KindAssetOp,
		AssetOp: &AssetOpProposal{Search: &SearchOp{Query: query, Tags: tags, Limit: limit}},
	}}, false, nil
}

func (m *Mapper) mapInsertAsset(args map[string]any) (Proposal, error) {
	assetID, ok := floatArg(args, "assetId")
	if !ok {
		return Proposal{}, &MappingError{Tool: "insert_asset", Reason: "assetId is required and must be numeric"}
	}
	parentPath, _ := stringArg(args, "parentPath")
	return Proposal{
		ID:      newID(),
		Kind:    KindAssetOp,
		AssetOp: &AssetOpProposal{Insert: &InsertOp{AssetID: assetID, ParentPath: canonicalizePath(parentPath)}},
	}, nil
}

func (m *Mapper) mapGenerate3D(args map[string]any) (Proposal, error) {
	prompt, _ := stringArg(args, "prompt")
	if prompt == "" {
		return Proposal{}, &MappingError{Tool: "generate_asset_3d", Reason: "prompt is required"}
	}
	style, _ := stringArg(args, "style")
	budget, _ := floatArg(args, "budget")
	return Proposal{
		ID:   newID(),
		Kind: KindAssetOp,
		AssetOp: &AssetOpProposal{Generate3D: &Generate3DOp{
			Prompt: prompt,
			Tags:   stringsArg(args, "tags"),
			Style:  style,
			Budget: budget,
		}},
	}, nil
}

func (m *Mapper) mapCompletion(name tools.Ident, args map[string]any, state WorkflowState) (Proposal, error) {
	if state.ObjectOpsEmitted > 0 && state.ScriptEditsEmitted == 0 && !state.ScriptPolicyOptOut {
		return Proposal{}, &PolicyError{Reason: "completion withheld: geometry was created without an accompanying script edit"}
	}

	summary, _ := stringArg(args, "summary")
	if summary == "" {
		summary, _ = stringArg(args, "text")
	}
	if summary == "" {
		summary, _ = stringArg(args, "result")
	}

	c := &CompletionProposal{Summary: summary}
	if v, ok := floatArg(args, "confidence"); ok {
		c.Confidence = &v
	}
	return Proposal{ID: newID(), Kind: KindCompletion, Completion: c}, nil
}

// -- argument extraction helpers over a schema-validated args map --

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func intArg(args map[string]any, key string, def int) int {
	if f, ok := floatArg(args, key); ok {
		return int(f)
	}
	return def
}

func mapArg(args map[string]any, key string) map[string]any {
	v, _ := args[key].(map[string]any)
	return v
}

// stringsArg reads a string-list argument, accepting both the canonical
// decoded-JSON shape ([]any, as produced by tools.CoerceFlexibleArray
// ahead of schema validation) and a plain []string, since callers that
// build args by hand (tests, templates) are not required to go through
// coercion first.
func stringsArg(args map[string]any, key string) []string {
	switch raw := args[key].(type) {
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, len(raw))
		copy(out, raw)
		return out
	default:
		return nil
	}
}

func inferSinglePath(selection []SelectionEntry) string {
	if len(selection) != 1 {
		return ""
	}
	return selection[0].Path
}

func canonicalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "game.") || path == "game" {
		return path
	}
	return "game." + path
}

func splitPath(path string) (parent, name string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func parseRangeEdits(raw any) ([]diffengine.RangeEdit, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("edits must be an array")
	}
	edits := make([]diffengine.RangeEdit, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each edit must be an object")
		}
		start, err := parsePosition(obj["start"])
		if err != nil {
			return nil, fmt.Errorf("edit.start: %w", err)
		}
		end, err := parsePosition(obj["end"])
		if err != nil {
			return nil, fmt.Errorf("edit.end: %w", err)
		}
		text, _ := obj["text"].(string)
		edits = append(edits, diffengine.RangeEdit{Start: start, End: end, Text: text})
	}
	return edits, nil
}

func parsePosition(raw any) (diffengine.Position, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return diffengine.Position{}, fmt.Errorf("position must be an object")
	}
	line, _ := floatArg(obj, "line")
	character, _ := floatArg(obj, "character")
	return diffengine.Position{Line: int(line), Character: int(character)}, nil
}
