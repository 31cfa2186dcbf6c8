// Package proposals maps a validated tool invocation onto the Edit,
// ObjectOp, AssetOp, and Completion proposals the plugin-side consumer
// applies, enforcing the per-tool mapping rules, the missing-parent
// auto-repair, and the completion gate.
package proposals

import "github.com/vector-copilot/orchestrator/diffengine"

// Kind discriminates the single non-nil payload a Proposal carries.
type Kind string

const (
	KindEdit       Kind = "edit"
	KindObjectOp   Kind = "object_op"
	KindAssetOp    Kind = "asset_op"
	KindCompletion Kind = "completion"
)

// Proposal is a tagged union: exactly one of Edit/ObjectOp/AssetOp/Completion
// is non-nil, selected by Kind. It is one struct with a Kind discriminator
// (its only marker method, isProposal, is on Proposal itself) rather than a
// reflection-driven sum type, since the mapper always knows which payload
// it is building at construction time.
type Proposal struct {
	ID    string
	Kind  Kind
	Notes string

	Edit       *EditProposal
	ObjectOp   *ObjectOpProposal
	AssetOp    *AssetOpProposal
	Completion *CompletionProposal
}

func (p Proposal) isProposal() {}

// EditProposal carries one or more file-scoped range-edit previews.
type EditProposal struct {
	Files []EditFile
}

// EditFile is a single file's diff, preview, and safety fingerprint.
type EditFile struct {
	Path    string
	Diff    Diff
	Preview *Preview
	Safety  Safety
}

// Diff names the edit mode and the literal range edits applied.
type Diff struct {
	Mode  string
	Edits []diffengine.RangeEdit
}

// Preview carries a human-readable unified diff for display before apply.
type Preview struct {
	Unified string
}

// Safety carries the content fingerprints needed to detect drift between
// proposal generation and application.
type Safety struct {
	BeforeHash string
	BaseText   string
}

// ObjectOpProposal carries an ordered sequence of scene-graph operations.
type ObjectOpProposal struct {
	Ops []Op
}

// OpKind discriminates an Op's payload.
type OpKind string

const (
	OpCreateInstance OpKind = "create_instance"
	OpSetProperties  OpKind = "set_properties"
	OpRenameInstance OpKind = "rename_instance"
	OpDeleteInstance OpKind = "delete_instance"
)

// Op is a single scene-graph mutation. Exactly one of the payload fields
// matching Kind is populated.
type Op struct {
	Kind OpKind

	CreateInstance *CreateInstanceOp
	SetProperties  *SetPropertiesOp
	RenameInstance *RenameInstanceOp
	DeleteInstance *DeleteInstanceOp
}

type CreateInstanceOp struct {
	ClassName  string
	ParentPath string
	Props      map[string]any
}

type SetPropertiesOp struct {
	Path  string
	Props map[string]any
}

type RenameInstanceOp struct {
	Path    string
	NewName string
}

type DeleteInstanceOp struct {
	Path string
}

// AssetOpProposal carries at most one of a catalog search, a direct
// insert, or a generative request.
type AssetOpProposal struct {
	Search     *SearchOp
	Insert     *InsertOp
	Generate3D *Generate3DOp
}

type SearchOp struct {
	Query string
	Tags  []string
	Limit int
}

type InsertOp struct {
	AssetID    float64
	ParentPath string
}

type Generate3DOp struct {
	Prompt string
	Tags   []string
	Style  string
	Budget float64
}

// CompletionProposal signals the workflow's final answer.
type CompletionProposal struct {
	Summary    string
	Confidence *float64
}
