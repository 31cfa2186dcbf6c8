package toolcall

import (
	"regexp"
	"sort"
	"strings"
)

// element is one XML-like tag extracted from model text: a name, its
// attributes, and the raw (unparsed) inner content between open and close
// tags. Self-closing tags have an empty Inner.
type element struct {
	Name  string
	Attrs map[string]string
	Inner string
}

var (
	openTagRe  = regexp.MustCompile(`(?s)<([A-Za-z_][\w-]*)((?:\s+[\w-]+\s*=\s*"[^"]*")*)\s*(/?)>`)
	closeTagRe = regexp.MustCompile(`</([A-Za-z_][\w-]*)\s*>`)
	attrRe     = regexp.MustCompile(`([\w-]+)\s*=\s*"([^"]*)"`)
)

type tagToken struct {
	start, end int
	name       string
	attrsRaw   string
	selfClose  bool
	isClose    bool
}

// topLevelElements scans text for depth-0 XML-like elements: tags not
// nested inside any other tag that is itself still open. Text outside tags
// (prose before/after the tool call, per ALLOW_TEXT_BEFORE_TOOL) is
// ignored. Unbalanced or unrecognized markup is tolerated: it simply does
// not close an element, and dangling opens at EOF are dropped.
func topLevelElements(text string) []element {
	var tokens []tagToken
	for _, m := range openTagRe.FindAllStringSubmatchIndex(text, -1) {
		tokens = append(tokens, tagToken{
			start:     m[0],
			end:       m[1],
			name:      text[m[2]:m[3]],
			attrsRaw:  text[m[4]:m[5]],
			selfClose: m[6] != m[7],
		})
	}
	for _, m := range closeTagRe.FindAllStringSubmatchIndex(text, -1) {
		tokens = append(tokens, tagToken{
			start:   m[0],
			end:     m[1],
			name:    text[m[2]:m[3]],
			isClose: true,
		})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].start < tokens[j].start })

	type frame struct {
		tok        tagToken
		innerStart int
	}
	var stack []frame
	var out []element
	for _, t := range tokens {
		switch {
		case t.isClose:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.tok.name != t.name {
				// Mismatched close; tolerate by ignoring rather than
				// aborting the whole scan.
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				out = append(out, element{
					Name:  top.tok.name,
					Attrs: parseAttrs(top.tok.attrsRaw),
					Inner: text[top.innerStart:t.start],
				})
			}
		case t.selfClose:
			if len(stack) == 0 {
				out = append(out, element{Name: t.name, Attrs: parseAttrs(t.attrsRaw)})
			}
			// Self-closing tags nested inside an open top-level element
			// are left for the element's own child-tag parsing pass.
		default:
			stack = append(stack, frame{tok: t, innerStart: t.end})
		}
	}
	return out
}

func parseAttrs(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	attrs := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(raw, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}
