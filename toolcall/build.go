package toolcall

import "strings"

const maxDepth = 5

var wrapperTags = map[string]bool{
	"tool_call":     true,
	"function_call": true,
	"action":        true,
}

// buildFromElement turns a scanned element into a canonical (name, args)
// pair, unwrapping recognized wrapper tags and handling attribute-form,
// child-tag-form, and repeated-child-tag-form arguments. depth guards
// against unbounded wrapper nesting (spec's depth-5 traversal cap).
func buildFromElement(el element, depth int) (string, map[string]any, error) {
	if depth > maxDepth {
		return "", nil, ErrMalformed
	}
	if wrapperTags[el.Name] {
		return unwrapWrapper(el, depth)
	}

	args := make(map[string]any, len(el.Attrs))
	for k, v := range el.Attrs {
		args[k] = coerceLeaf(v)
	}

	children := topLevelElements(el.Inner)
	if len(children) == 0 {
		if inner := strings.TrimSpace(el.Inner); inner != "" {
			if v, ok := parseJSONLeaf(inner); ok {
				if obj, ok := v.(map[string]any); ok {
					for k, val := range obj {
						args[k] = val
					}
				}
			}
		}
		return el.Name, args, nil
	}

	for name, group := range groupChildrenByName(children) {
		args[name] = childGroupValue(group, depth+1)
	}
	return el.Name, args, nil
}

// unwrapWrapper handles <tool_call>/<function_call>/<action>: either a
// direct JSON body, a {name, arguments} child pair, or a single nested
// tool tag to recurse into.
func unwrapWrapper(el element, depth int) (string, map[string]any, error) {
	inner := strings.TrimSpace(el.Inner)
	if v, ok := parseJSONLeaf(inner); ok {
		if obj, ok := v.(map[string]any); ok {
			return wrapperFromJSONObject(obj)
		}
	}

	children := topLevelElements(el.Inner)
	var nameChild, argsChild, innerInvocation *element
	for i := range children {
		switch children[i].Name {
		case "name":
			nameChild = &children[i]
		case "arguments", "args":
			argsChild = &children[i]
		default:
			innerInvocation = &children[i]
		}
	}
	if nameChild != nil {
		name := strings.TrimSpace(nameChild.Inner)
		args := map[string]any{}
		if argsChild != nil {
			if v, ok := parseJSONLeaf(argsChild.Inner); ok {
				if obj, ok := v.(map[string]any); ok {
					args = obj
				}
			} else {
				grand := topLevelElements(argsChild.Inner)
				for n, g := range groupChildrenByName(grand) {
					args[n] = childGroupValue(g, depth+1)
				}
			}
		}
		return name, args, nil
	}
	if innerInvocation != nil {
		return buildFromElement(*innerInvocation, depth+1)
	}
	return "", nil, ErrMalformed
}

func wrapperFromJSONObject(obj map[string]any) (string, map[string]any, error) {
	nameVal, ok := obj["name"].(string)
	if !ok {
		return "", nil, ErrMalformed
	}
	args := map[string]any{}
	switch a := obj["arguments"].(type) {
	case map[string]any:
		args = a
	default:
		if a, ok := obj["args"].(map[string]any); ok {
			args = a
		}
	}
	return nameVal, args, nil
}

// groupChildrenByName groups children by tag name, keeping document order
// within each group. It returns only the map, so the order in which
// callers range over the groups is not stable.
func groupChildrenByName(children []element) map[string][]element {
	groups := make(map[string][]element)
	for _, c := range children {
		groups[c.Name] = append(groups[c.Name], c)
	}
	return groups
}

// childGroupValue turns a same-named group of child elements into a
// value: a single child with its own subtree becomes a nested object or
// leaf; more than one child with the same tag name becomes an array
// (spec's "nested repeated tags -> array" rule).
func childGroupValue(group []element, depth int) any {
	if depth > maxDepth {
		return nil
	}
	if len(group) > 1 {
		arr := make([]any, len(group))
		for i, c := range group {
			arr[i] = elementValue(c, depth)
		}
		return arr
	}
	return elementValue(group[0], depth)
}

func elementValue(el element, depth int) any {
	grand := topLevelElements(el.Inner)
	if len(grand) == 0 {
		return coerceLeaf(el.Inner)
	}
	groups := groupChildrenByName(grand)
	if len(groups) == 1 {
		for _, g := range groups {
			// A single repeated child tag name (e.g. <tags><tag>a</tag>
			// <tag>b</tag></tags>) collapses straight to an array rather
			// than a one-key wrapper object (spec's "nested repeated
			// tags -> array" rule).
			if len(g) > 1 {
				return childGroupValue(g, depth+1)
			}
		}
	}
	obj := make(map[string]any, len(grand))
	for name, g := range groups {
		obj[name] = childGroupValue(g, depth+1)
	}
	return obj
}
