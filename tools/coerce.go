package tools

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// maxTags is the cap on flexible-array coercion applied to tag-like fields
// (spec.md §8.2: "max 16 tags").
const maxTags = 16

var quotedArrayItem = regexp.MustCompile(`'([^']*)'`)

// coerce applies alias renaming, object-string parsing, flexible array
// coercion, and numeric clamps to raw in before schema validation. It never
// mutates the caller's map.
func (s *Spec) coerce(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	for alias, canon := range s.Aliases {
		if v, ok := out[alias]; ok {
			if _, taken := out[canon]; !taken {
				out[canon] = v
			}
			delete(out, alias)
		}
	}
	for _, f := range s.JSONStringFields {
		if v, ok := out[f]; ok {
			if str, ok := v.(string); ok && str != "" {
				var obj any
				if err := json.Unmarshal([]byte(str), &obj); err == nil {
					out[f] = obj
				}
			}
		}
	}
	for _, f := range s.ArrayFields {
		if v, ok := out[f]; ok {
			out[f] = CoerceFlexibleArray(v)
		}
	}
	for field, clamp := range s.Clamps {
		out[field] = applyClamp(out[field], clamp)
	}
	return out
}

// CoerceFlexibleArray normalizes the three accepted shapes for array-typed
// tool arguments (spec.md §4.1, §8.2): a genuine list, a JSON-encoded
// string (including single-quoted JSON-like forms), or a comma/whitespace
// delimited plain string. Results are trimmed, de-duplicated (order
// preserved), and capped at maxTags entries. The return type is []any
// (not []string) because these args flow straight into
// santhosh-tekuri/jsonschema validation, which only recognizes the
// canonical decoded-JSON array shape.
func CoerceFlexibleArray(v any) []any {
	var items []string
	switch val := v.(type) {
	case []string:
		items = append(items, val...)
	case []any:
		for _, e := range val {
			if str, ok := e.(string); ok {
				items = append(items, str)
			} else if e != nil {
				items = append(items, stringifyScalar(e))
			}
		}
	case string:
		items = parseStringArray(val)
	default:
		return nil
	}
	return toAnySlice(dedupTrim(items))
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func parseStringArray(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		normalized := quotedArrayItem.ReplaceAllString(trimmed, `"$1"`)
		var out []string
		if err := json.Unmarshal([]byte(normalized), &out); err == nil {
			return out
		}
		var anyOut []any
		if err := json.Unmarshal([]byte(normalized), &anyOut); err == nil {
			result := make([]string, 0, len(anyOut))
			for _, e := range anyOut {
				if str, ok := e.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	if strings.Contains(trimmed, ",") {
		return strings.Split(trimmed, ",")
	}
	return strings.Fields(trimmed)
}

func dedupTrim(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
		if len(out) >= maxTags {
			break
		}
	}
	return out
}

func stringifyScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// applyClamp coerces numeric strings to numbers and clamps the result into
// [clamp.Min, clamp.Max] when those bounds are set. A missing/invalid value
// falls back to clamp.Default.
func applyClamp(v any, clamp Clamp) any {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return clamp.Default
		}
		f = parsed
	case nil:
		return clamp.Default
	default:
		return v
	}
	if clamp.HasMin && f < clamp.Min {
		f = clamp.Min
	}
	if clamp.HasMax && f > clamp.Max {
		f = clamp.Max
	}
	return f
}
