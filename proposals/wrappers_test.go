package proposals

import (
	"reflect"
	"testing"
)

func TestVector3_MarshalMap(t *testing.T) {
	got := Vector3{X: 1, Y: 2, Z: 3}.MarshalMap()
	want := map[string]any{"__t": "Vector3", "x": 1.0, "y": 2.0, "z": 3.0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUDim2_MarshalMap_NestsComponents(t *testing.T) {
	got := UDim2{X: UDim{Scale: 0.5, Offset: 10}, Y: UDim{Scale: 1, Offset: 0}}.MarshalMap()
	x, ok := got["x"].(map[string]any)
	if !ok {
		t.Fatalf("expected x to be a nested map, got %T", got["x"])
	}
	if x["__t"] != "UDim" || x["scale"] != 0.5 || x["offset"] != 10.0 {
		t.Fatalf("unexpected nested x: %+v", x)
	}
}

func TestCFrame_MarshalMap_CopiesAllTwelveComponents(t *testing.T) {
	var comps [12]float64
	for i := range comps {
		comps[i] = float64(i)
	}
	got := CFrame{Comps: comps}.MarshalMap()
	list, ok := got["comps"].([]float64)
	if !ok || len(list) != 12 {
		t.Fatalf("expected a 12-element []float64, got %#v", got["comps"])
	}
	if list[11] != 11 {
		t.Fatalf("expected last component 11, got %v", list[11])
	}
}

func TestNormalizeProps_ExpandsWrapperValuesRecursively(t *testing.T) {
	props := map[string]any{
		"Position": Vector3{X: 1, Y: 2, Z: 3},
		"Color":    Color3{R: 1, G: 0, B: 0},
		"Nested": map[string]any{
			"Anchor": EnumItem{Enum: "NormalId", Name: "Top"},
		},
		"List": []any{BrickColor{Name: "Bright red"}, "plain"},
		"Plain": "unchanged",
	}
	out := normalizeProps(props)

	pos, ok := out["Position"].(map[string]any)
	if !ok || pos["__t"] != "Vector3" {
		t.Fatalf("expected Position expanded to Vector3 map, got %#v", out["Position"])
	}
	nested, ok := out["Nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected Nested to remain a map, got %T", out["Nested"])
	}
	anchor, ok := nested["Anchor"].(map[string]any)
	if !ok || anchor["__t"] != "EnumItem" {
		t.Fatalf("expected nested Anchor expanded, got %#v", nested["Anchor"])
	}
	list, ok := out["List"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected List preserved with 2 elements, got %#v", out["List"])
	}
	first, ok := list[0].(map[string]any)
	if !ok || first["__t"] != "BrickColor" {
		t.Fatalf("expected first list element expanded to BrickColor map, got %#v", list[0])
	}
	if list[1] != "plain" {
		t.Fatalf("expected second list element untouched, got %#v", list[1])
	}
	if out["Plain"] != "unchanged" {
		t.Fatalf("expected Plain untouched, got %#v", out["Plain"])
	}
}

func TestNormalizeProps_NilInputReturnsNil(t *testing.T) {
	if normalizeProps(nil) != nil {
		t.Fatal("expected nil props to remain nil")
	}
}
