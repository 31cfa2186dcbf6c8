// Package templates implements the deterministic template library (C8):
// a small set of recognized phrases that bypass the Provider Gateway
// entirely and emit a fixed proposal sequence, grounded on spec.md §4.7's
// bypass contract and the worked example in §8.3 (S1).
package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/vector-copilot/orchestrator/proposals"
)

func newID() string { return uuid.NewString() }

// Match checks message against the recognized template phrases and, on a
// match, returns the fixed proposal sequence for it. ok is false when no
// template recognizes the message, in which case the Plan/Act loop must
// fall through to the provider.
func Match(message string) (matched []proposals.Proposal, ok bool) {
	if rows, cols, found := matchGrid(message); found {
		return gridProposals(rows, cols), true
	}
	if matchFarmingScaffold(message) {
		return farmingScaffoldProposals(), true
	}
	return nil, false
}

var gridPattern = regexp.MustCompile(`(?i)\bgrid\s+(\d{1,2})\s*x\s*(\d{1,2})\b`)

func matchGrid(message string) (rows, cols int, ok bool) {
	m := gridPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, 0, false
	}
	var r, c int
	if _, err := fmt.Sscanf(m[1], "%d", &r); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(m[2], "%d", &c); err != nil {
		return 0, 0, false
	}
	if r <= 0 || c <= 0 || r > 32 || c > 32 {
		return 0, 0, false
	}
	return r, c, true
}

const gridCellSpacing = 4.0

// gridProposals builds the fixed ObjectOp sequence for spec.md §8.3 S1: one
// Model named "Grid" under game.Workspace, then one Part per cell named
// Cell_i_j, each anchored, sized 4x1x4, and placed on the grid at y=0.5.
func gridProposals(rows, cols int) []proposals.Proposal {
	out := make([]proposals.Proposal, 0, 1+rows*cols)
	out = append(out, objectOpProposal(proposals.Op{
		Kind: proposals.OpCreateInstance,
		CreateInstance: &proposals.CreateInstanceOp{
			ClassName:  "Model",
			ParentPath: "game.Workspace",
			Props:      map[string]any{"Name": "Grid"},
		},
	}))

	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			x := float64(i-1) * gridCellSpacing
			z := float64(j-1) * gridCellSpacing
			out = append(out, objectOpProposal(proposals.Op{
				Kind: proposals.OpCreateInstance,
				CreateInstance: &proposals.CreateInstanceOp{
					ClassName:  "Part",
					ParentPath: "game.Workspace.Grid",
					Props: map[string]any{
						"Name":     fmt.Sprintf("Cell_%d_%d", i, j),
						"Anchored": true,
						"Size":     map[string]any{"__t": "Vector3", "x": 4.0, "y": 1.0, "z": 4.0},
						"CFrame": map[string]any{
							"__t": "CFrame",
							"comps": []float64{
								x, 0.5, z,
								1, 0, 0,
								0, 1, 0,
								0, 0, 1,
							},
						},
					},
				},
			}))
		}
	}
	return out
}

var farmingPattern = regexp.MustCompile(`(?i)\bfarm(ing)?\s+scaffold\b`)

func matchFarmingScaffold(message string) bool {
	return farmingPattern.MatchString(message) || strings.Contains(strings.ToLower(message), "farming plot")
}

// farmingScaffoldProposals builds a small fixed starter layout: a Farm
// folder under game.Workspace holding a ground Part and four crop-row
// Parts, supplementing a feature the distilled spec names only as an
// example phrase without specifying its exact shape.
func farmingScaffoldProposals() []proposals.Proposal {
	out := []proposals.Proposal{
		objectOpProposal(proposals.Op{
			Kind: proposals.OpCreateInstance,
			CreateInstance: &proposals.CreateInstanceOp{
				ClassName:  "Folder",
				ParentPath: "game.Workspace",
				Props:      map[string]any{"Name": "Farm"},
			},
		}),
		objectOpProposal(proposals.Op{
			Kind: proposals.OpCreateInstance,
			CreateInstance: &proposals.CreateInstanceOp{
				ClassName:  "Part",
				ParentPath: "game.Workspace.Farm",
				Props: map[string]any{
					"Name":     "Ground",
					"Anchored": true,
					"Size":     map[string]any{"__t": "Vector3", "x": 40.0, "y": 1.0, "z": 40.0},
					"CFrame": map[string]any{
						"__t":   "CFrame",
						"comps": []float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
					},
					"Color": map[string]any{"__t": "Color3", "r": 0.35, "g": 0.25, "b": 0.1},
				},
			},
		}),
	}
	for row := 1; row <= 4; row++ {
		z := float64(row-1)*6 - 9
		out = append(out, objectOpProposal(proposals.Op{
			Kind: proposals.OpCreateInstance,
			CreateInstance: &proposals.CreateInstanceOp{
				ClassName:  "Part",
				ParentPath: "game.Workspace.Farm",
				Props: map[string]any{
					"Name":     fmt.Sprintf("CropRow_%d", row),
					"Anchored": true,
					"Size":     map[string]any{"__t": "Vector3", "x": 36.0, "y": 0.5, "z": 3.0},
					"CFrame": map[string]any{
						"__t":   "CFrame",
						"comps": []float64{0, 1.0, z, 1, 0, 0, 0, 1, 0, 0, 0, 1},
					},
					"Color": map[string]any{"__t": "Color3", "r": 0.2, "g": 0.55, "b": 0.15},
				},
			},
		}))
	}
	return out
}

func objectOpProposal(op proposals.Op) proposals.Proposal {
	return proposals.Proposal{
		ID:       newID(),
		Kind:     proposals.KindObjectOp,
		ObjectOp: &proposals.ObjectOpProposal{Ops: []proposals.Op{op}},
	}
}
