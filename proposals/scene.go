package proposals

import "strings"

// SelectionEntry is a single selected instance, the minimal shape the
// mapper needs to infer an omitted path (spec.md §4.6: set_properties,
// rename_instance, delete_instance infer path from a single selection).
type SelectionEntry struct {
	ClassName string
	Path      string
}

// SceneEntry is one bounded scene-snapshot row (spec.md §3.4's
// context.scene), used only to test ancestor existence for the
// missing-parent auto-repair.
type SceneEntry struct {
	Path      string
	ClassName string
}

// Snapshot is a bounded scene-graph view the mapper consults to decide
// which Workspace ancestors are missing.
type Snapshot struct {
	paths map[string]bool
}

// NewSnapshot builds a Snapshot from scene entries.
func NewSnapshot(entries []SceneEntry) Snapshot {
	paths := make(map[string]bool, len(entries))
	for _, e := range entries {
		paths[e.Path] = true
	}
	return Snapshot{paths: paths}
}

// Has reports whether path is present in the snapshot.
func (s Snapshot) Has(path string) bool { return s.paths[path] }

// missingWorkspaceAncestors returns the dotted ancestor paths of
// parentPath that are not present in the snapshot, in top-down order,
// scoped to parentPath values beginning with "game.Workspace.". It never
// returns more than maxDepth ancestors.
func missingWorkspaceAncestors(snapshot Snapshot, parentPath string, maxDepth int) []string {
	const prefix = "game.Workspace."
	if !strings.HasPrefix(parentPath, prefix) {
		return nil
	}
	rest := strings.TrimPrefix(parentPath, prefix)
	if rest == "" {
		return nil
	}
	segments := strings.Split(rest, ".")
	if len(segments) > maxDepth {
		segments = segments[:maxDepth]
	}

	var missing []string
	built := "game.Workspace"
	for _, seg := range segments {
		built = built + "." + seg
		if !snapshot.Has(built) {
			missing = append(missing, built)
		}
	}
	return missing
}
