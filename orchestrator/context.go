package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vector-copilot/orchestrator/toolcache"
	"github.com/vector-copilot/orchestrator/tools"
)

// SceneNode is one scene-graph entry mirrored into chat context. It is
// richer than proposals.SceneEntry, which exists only to answer the
// Proposal Mapper's ancestor-existence check: context tools need the
// parent/child structure and a property bag to answer list_children and
// get_properties.
type SceneNode struct {
	Path       string
	ClassName  string
	Name       string
	ParentPath string
	Props      map[string]any
}

// sceneIndex is a bounded parent/child index built once per Run call from
// the chat input's scene snapshot.
type sceneIndex struct {
	byPath   map[string]SceneNode
	children map[string][]string
}

func buildSceneIndex(nodes []SceneNode) *sceneIndex {
	idx := &sceneIndex{byPath: make(map[string]SceneNode, len(nodes)), children: make(map[string][]string)}
	for _, n := range nodes {
		idx.byPath[n.Path] = n
		if n.ParentPath != "" {
			idx.children[n.ParentPath] = append(idx.children[n.ParentPath], n.Path)
		}
	}
	for _, list := range idx.children {
		sort.Strings(list)
	}
	return idx
}

// activeScriptTruncateChars bounds get_active_script's returned text,
// matching the working set's own activeScript cap so neither layer ever
// sees more than the other expects.
const activeScriptTruncateChars = 40000

// execContextTool answers one of the seven context tools (spec.md §4.7)
// purely from the chat input already attached to this turn: it never
// touches a filesystem, a live scene, or the provider.
func execContextTool(name tools.Ident, args map[string]any, chatCtx ChatContext, scene *sceneIndex) (map[string]any, error) {
	switch name {
	case "get_active_script":
		return execGetActiveScript(chatCtx), nil
	case "list_selection":
		return execListSelection(chatCtx), nil
	case "list_open_documents":
		return execListOpenDocuments(args, chatCtx), nil
	case "list_children":
		return execListChildren(args, scene)
	case "get_properties":
		return execGetProperties(args, scene)
	case "list_code_definition_names":
		return execListCodeDefinitionNames(args, chatCtx), nil
	case "search_files":
		return execSearchFiles(args, chatCtx), nil
	default:
		return nil, fmt.Errorf("orchestrator: %q is not a context tool", name)
	}
}

func execGetActiveScript(chatCtx ChatContext) map[string]any {
	if chatCtx.ActiveScript == nil {
		return map[string]any{"path": "", "text": "", "truncated": false}
	}
	text := chatCtx.ActiveScript.Text
	truncated := false
	if len(text) > activeScriptTruncateChars {
		text = text[:activeScriptTruncateChars]
		truncated = true
	}
	return map[string]any{"path": chatCtx.ActiveScript.Path, "text": text, "truncated": truncated}
}

func execListSelection(chatCtx ChatContext) map[string]any {
	items := make([]map[string]any, 0, len(chatCtx.Selection))
	for _, s := range chatCtx.Selection {
		items = append(items, map[string]any{"path": s.Path, "className": s.ClassName})
	}
	return map[string]any{"selection": items}
}

func execListOpenDocuments(args map[string]any, chatCtx ChatContext) map[string]any {
	maxCount := intFromFloat(args["maxCount"], 50)
	docs := chatCtx.OpenDocs
	truncated := false
	if len(docs) > maxCount {
		docs = docs[:maxCount]
		truncated = true
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return map[string]any{"openDocuments": paths, "truncated": truncated}
}

func execListChildren(args map[string]any, scene *sceneIndex) (map[string]any, error) {
	parentPath, _ := args["parentPath"].(string)
	if parentPath == "" {
		return nil, fmt.Errorf("orchestrator: list_children requires parentPath")
	}
	depth := intFromFloat(args["depth"], 1)
	maxNodes := intFromFloat(args["maxNodes"], 200)
	whitelist := stringSet(args["classWhitelist"])

	var out []map[string]any
	truncated := false
	var walk func(path string, level int)
	walk = func(path string, level int) {
		if level > depth {
			return
		}
		for _, childPath := range scene.children[path] {
			if len(out) >= maxNodes {
				truncated = true
				return
			}
			n := scene.byPath[childPath]
			if len(whitelist) == 0 || whitelist[n.ClassName] {
				out = append(out, map[string]any{
					"path":      n.Path,
					"className": n.ClassName,
					"name":      n.Name,
				})
			}
			walk(childPath, level+1)
		}
	}
	walk(parentPath, 1)
	return map[string]any{"children": out, "truncated": truncated}, nil
}

func execGetProperties(args map[string]any, scene *sceneIndex) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("orchestrator: get_properties requires path")
	}
	node, ok := scene.byPath[path]
	if !ok {
		return map[string]any{"path": path, "found": false}, nil
	}

	keys := stringSlice(args["keys"])
	includeAll, _ := args["includeAllAttributes"].(bool)
	maxBytes := intFromFloat(args["maxBytes"], 8000)

	props := map[string]any{}
	if len(keys) > 0 && !includeAll {
		for _, k := range keys {
			if v, ok := node.Props[k]; ok {
				props[k] = v
			}
		}
	} else {
		for k, v := range node.Props {
			props[k] = v
		}
	}

	truncated := false
	for approxSize(props) > maxBytes && len(props) > 0 {
		dropOneKey(props)
		truncated = true
	}

	return map[string]any{
		"path":      path,
		"found":     true,
		"className": node.ClassName,
		"props":     props,
		"truncated": truncated,
	}, nil
}

func execListCodeDefinitionNames(args map[string]any, chatCtx ChatContext) map[string]any {
	root, _ := args["root"].(string)
	limit := intFromFloat(args["limit"], 100)
	exts := stringSlice(args["exts"])

	var out []map[string]any
	for _, def := range chatCtx.CodeDefinitions {
		if root != "" && !strings.HasPrefix(def.File, root) {
			continue
		}
		if len(exts) > 0 && !hasAnyExt(def.File, exts) {
			continue
		}
		out = append(out, map[string]any{"file": def.File, "line": def.Line, "name": def.Name})
		if len(out) >= limit {
			break
		}
	}
	return map[string]any{"definitions": out}
}

func execSearchFiles(args map[string]any, chatCtx ChatContext) map[string]any {
	query, _ := args["query"].(string)
	root, _ := args["root"].(string)
	limit := intFromFloat(args["limit"], 50)
	exts := stringSlice(args["exts"])
	caseSensitive, _ := args["caseSensitive"].(bool)

	needle := query
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}

	var out []map[string]any
	for _, def := range chatCtx.CodeDefinitions {
		if root != "" && !strings.HasPrefix(def.File, root) {
			continue
		}
		if len(exts) > 0 && !hasAnyExt(def.File, exts) {
			continue
		}
		haystack := def.File + " " + def.Name
		if !caseSensitive {
			haystack = strings.ToLower(haystack)
		}
		if !strings.Contains(haystack, needle) {
			continue
		}
		out = append(out, map[string]any{"file": def.File, "line": def.Line, "name": def.Name})
		if len(out) >= limit {
			break
		}
	}
	return map[string]any{"matches": out}
}

func intFromFloat(v any, def int) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

// stringSlice reads a string-list arg produced by tools.CoerceFlexibleArray
// ([]any) or built by hand in tests/templates ([]string).
func stringSlice(v any) []string {
	switch raw := v.(type) {
	case []any:
		out := make([]string, 0, len(raw))
		for _, e := range raw {
			if s, ok := e.(string); ok {
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

func stringSet(v any) map[string]bool {
	list := stringSlice(v)
	if len(list) == 0 {
		return nil
	}
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}

func hasAnyExt(file string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(file, ext) {
			return true
		}
	}
	return false
}

// approxSize estimates the JSON-ish byte size of props for the maxBytes cap
// without paying for a real marshal on every trim iteration.
func approxSize(props map[string]any) int {
	total := 2
	for k, v := range props {
		total += len(k) + 8
		total += len(fmt.Sprintf("%v", v))
	}
	return total
}

func dropOneKey(props map[string]any) {
	for k := range props {
		delete(props, k)
		return
	}
}

// contextToolTTL returns the Tool-Result Cache TTL for a context tool,
// matching spec.md §4.9: code/script reads expire sooner than structure
// reads, since an open editor changes them more often.
func contextToolTTL(name tools.Ident) time.Duration {
	switch name {
	case "get_active_script", "list_code_definition_names", "search_files":
		return toolcache.CodeReadTTL
	default:
		return toolcache.DefaultTTL
	}
}

// runContextTool answers a validated context tool invocation, serving a
// fresh Tool-Result Cache hit when one exists and otherwise executing
// locally and populating the cache for the next call (spec.md §4.7/§4.9).
// A cache hit returns the stored payload again with "cached": true added;
// the loop reflects it in full like a fresh result, not as a shorter
// cache-fact note. Keys carry no fingerprint, so an entry is reused until
// its TTL expires.
func (l *Loop) runContextTool(ctx context.Context, name tools.Ident, args map[string]any, in ChatInput, ts *TaskState, scene *sceneIndex) (map[string]any, error) {
	key := toolcache.Key(name, args)

	if l.Cache != nil {
		if entry, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
			result := map[string]any{}
			for k, v := range entry.Value {
				result[k] = v
			}
			result["cached"] = true
			return result, nil
		}
	}

	result, err := execContextTool(name, args, in.Context, scene)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		_ = l.Cache.Set(ctx, key, result, contextToolTTL(name), "")
	}
	if l.Sessions != nil {
		_ = l.Sessions.SetLastTool(ctx, in.ProjectID, name, result)
	}
	return result, nil
}
