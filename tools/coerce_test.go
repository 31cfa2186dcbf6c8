package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceFlexibleArray(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []any
	}{
		{"nil", nil, nil},
		{"string slice", []string{"a", "b", "a"}, []any{"a", "b"}},
		{"comma string", "a, b, c", []any{"a", "b", "c"}},
		{"whitespace string", "a b  c", []any{"a", "b", "c"}},
		{"json array string", `["a","b"]`, []any{"a", "b"}},
		{"single quoted json-like", `['a','b']`, []any{"a", "b"}},
		{"any slice mixed", []any{"a", float64(1), true}, []any{"a", "1", "true"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CoerceFlexibleArray(c.in)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestCoerceFlexibleArray_CapsAtMaxTags(t *testing.T) {
	many := make([]string, 0, maxTags+10)
	for i := 0; i < maxTags+10; i++ {
		many = append(many, string(rune('a'+i%26))+string(rune(i)))
	}
	got := CoerceFlexibleArray(many)
	assert.LessOrEqual(t, len(got), maxTags)
}

func TestApplyClamp(t *testing.T) {
	clamp := Clamp{Min: 1, Max: 10, HasMin: true, HasMax: true, Default: 5}
	assert.Equal(t, float64(5), applyClamp(nil, clamp))
	assert.Equal(t, float64(1), applyClamp(float64(-3), clamp))
	assert.Equal(t, float64(10), applyClamp(float64(999), clamp))
	assert.Equal(t, float64(7), applyClamp(float64(7), clamp))
	assert.Equal(t, float64(7), applyClamp("7", clamp))
	assert.Equal(t, float64(5), applyClamp("not-a-number", clamp))
}
