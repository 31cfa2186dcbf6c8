package proposals

// Structured-value wrappers recognized inside an Op's Props map (spec.md
// §6.4). Each marshals to a {"__t": "...", ...} object so the plugin-side
// consumer can distinguish a wrapped value from a plain number/string.

type Vector3 struct{ X, Y, Z float64 }

func (v Vector3) MarshalMap() map[string]any {
	return map[string]any{"__t": "Vector3", "x": v.X, "y": v.Y, "z": v.Z}
}

type Vector2 struct{ X, Y float64 }

func (v Vector2) MarshalMap() map[string]any {
	return map[string]any{"__t": "Vector2", "x": v.X, "y": v.Y}
}

// Color3 components are expected in [0, 1].
type Color3 struct{ R, G, B float64 }

func (c Color3) MarshalMap() map[string]any {
	return map[string]any{"__t": "Color3", "r": c.R, "g": c.G, "b": c.B}
}

type UDim struct {
	Scale  float64
	Offset float64
}

func (u UDim) MarshalMap() map[string]any {
	return map[string]any{"__t": "UDim", "scale": u.Scale, "offset": u.Offset}
}

type UDim2 struct{ X, Y UDim }

func (u UDim2) MarshalMap() map[string]any {
	return map[string]any{"__t": "UDim2", "x": u.X.MarshalMap(), "y": u.Y.MarshalMap()}
}

// CFrame carries the 12-component position+rotation-matrix encoding.
type CFrame struct{ Comps [12]float64 }

func (c CFrame) MarshalMap() map[string]any {
	comps := make([]float64, 12)
	copy(comps, c.Comps[:])
	return map[string]any{"__t": "CFrame", "comps": comps}
}

type EnumItem struct{ Enum, Name string }

func (e EnumItem) MarshalMap() map[string]any {
	return map[string]any{"__t": "EnumItem", "enum": e.Enum, "name": e.Name}
}

type BrickColor struct{ Name string }

func (b BrickColor) MarshalMap() map[string]any {
	return map[string]any{"__t": "BrickColor", "name": b.Name}
}

// InstanceRef is the Instance wrapper: a reference to another instance by
// canonical path, distinct from the Go proposals.Op types.
type InstanceRef struct{ Path string }

func (i InstanceRef) MarshalMap() map[string]any {
	return map[string]any{"__t": "Instance", "path": i.Path}
}

// wrapperMap is the subset of wrapper types a properties value can marshal
// through; used by normalizeProps to rewrite recognized shapes.
type wrapperMap interface {
	MarshalMap() map[string]any
}

// normalizeProps walks a props map, expanding wrapperMap values (and
// nested maps/slices) into their wire {"__t": ...} shape, and prefixing
// attribute-form keys with "@" are passed through unchanged (the caller
// is expected to have already applied that convention when building the
// map, per spec.md §6.4 — "@Health": 100 arrives as a literal key).
func normalizeProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case wrapperMap:
		return t.MarshalMap()
	case map[string]any:
		return normalizeProps(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
