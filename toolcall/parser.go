package toolcall

import (
	"strings"

	"github.com/vector-copilot/orchestrator/tools"
)

// Parse extracts the single best tool invocation from free-form model
// text. It tries native JSON first, then falls back to the XML-like
// surface syntaxes (wrapped, child-tag, attribute, repeated-tag,
// self-closing). Callers treat ErrNoToolCall and ErrMultipleToolCalls as
// the two recoverable failure modes the Plan/Act loop reflects back to
// the model; any other error is also recoverable but carries less
// specific diagnostic value.
func Parse(text string) (tools.Invocation, error) {
	if name, args, ok := tryNativeJSON(text); ok {
		return tools.Invocation{Name: tools.Ident(name), Args: args}, nil
	}

	elements := topLevelElements(text)
	switch len(elements) {
	case 0:
		return tools.Invocation{}, ErrNoToolCall
	case 1:
		name, args, err := buildFromElement(elements[0], 0)
		if err != nil {
			return tools.Invocation{}, err
		}
		return tools.Invocation{Name: tools.Ident(name), Args: args}, nil
	default:
		return tools.Invocation{}, ErrMultipleToolCalls
	}
}

// tryNativeJSON looks for a JSON object in text shaped like
// {"name": "...", "arguments": {...}} (or "args"). Prose surrounding the
// object is tolerated: the object is located by scanning for the first
// balanced brace pair.
func tryNativeJSON(text string) (string, map[string]any, bool) {
	candidate := extractBalancedObject(text)
	if candidate == "" {
		return "", nil, false
	}
	v, ok := parseJSONLeaf(candidate)
	if !ok {
		return "", nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", nil, false
	}
	name, args, err := wrapperFromJSONObject(obj)
	if err != nil {
		return "", nil, false
	}
	return name, args, true
}

// extractBalancedObject returns the first top-level {...} substring of
// text, respecting string literals (so braces inside quoted strings don't
// confuse the balance count), or "" if none is found.
func extractBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
