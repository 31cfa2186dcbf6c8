// Package diffengine applies range edits to script text, produces unified
// diffs for preview, and computes content fingerprints used to detect
// drift between the moment a script was read and the moment an edit is
// applied against it.
package diffengine

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// MaxEdits is the per-call cap on the number of range edits accepted in a
// single Edit proposal.
const MaxEdits = 20

// MaxInsertedChars is the cap on the total length of inserted text summed
// across all edits in a single call.
const MaxInsertedChars = 2000

// Position is a zero-based (line, character) location, matching the
// coordinate system most chat-UI editors report selections in.
type Position struct {
	Line      int
	Character int
}

// RangeEdit replaces the text between Start and End with Text.
type RangeEdit struct {
	Start Position
	End   Position
	Text  string
}

var (
	// ErrTooManyEdits is returned when more than MaxEdits edits are submitted.
	ErrTooManyEdits = errors.New("diffengine: too many edits")
	// ErrTooMuchText is returned when the sum of inserted text exceeds MaxInsertedChars.
	ErrTooMuchText = errors.New("diffengine: inserted text exceeds cap")
	// ErrOverlappingEdits is returned when two edits' ranges overlap.
	ErrOverlappingEdits = errors.New("diffengine: overlapping edits")
)

// ApplyRangeEdits validates and applies edits to text, returning the
// resulting text. Edits are applied in descending start-offset order so
// earlier edits' offsets are unaffected by later ones; the caller-visible
// order of edits (e.g. for diff preview) is unchanged, only application
// order is internal.
func ApplyRangeEdits(text string, edits []RangeEdit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	if len(edits) > MaxEdits {
		return "", ErrTooManyEdits
	}
	inserted := 0
	for _, e := range edits {
		inserted += len(e.Text)
	}
	if inserted > MaxInsertedChars {
		return "", ErrTooMuchText
	}

	lines := splitKeepEnds(text)
	offsets := make([]struct {
		start, end int
		text       string
	}, len(edits))
	for i, e := range edits {
		offsets[i].start = toOffset(lines, e.Start)
		offsets[i].end = toOffset(lines, e.End)
		offsets[i].text = e.Text
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i].start < offsets[j].start })
	for i := 1; i < len(offsets); i++ {
		if offsets[i].start < offsets[i-1].end {
			return "", ErrOverlappingEdits
		}
	}

	// Apply in descending start order so already-applied replacements
	// don't shift the offsets of edits still pending.
	result := text
	for i := len(offsets) - 1; i >= 0; i-- {
		o := offsets[i]
		result = result[:o.start] + o.text + result[o.end:]
	}
	return result, nil
}

// splitKeepEnds splits text into lines, keeping the trailing newline (if
// any) attached to each line so offset math stays simple.
func splitKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}

// toOffset converts a (line, character) position into an absolute byte
// offset into the text reconstructed from lines. Characters beyond the
// line's length clamp to the line end; lines beyond the text clamp to the
// text end.
func toOffset(lines []string, pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	offset := 0
	for i := 0; i < pos.Line && i < len(lines); i++ {
		offset += len(lines[i])
	}
	if pos.Line >= len(lines) {
		total := 0
		for _, l := range lines {
			total += len(l)
		}
		return total
	}
	line := lines[pos.Line]
	lineContent := strings.TrimRight(line, "\n")
	char := pos.Character
	if char < 0 {
		char = 0
	}
	if char > len(lineContent) {
		char = len(lineContent)
	}
	return offset + char
}

// Unified renders a line-mode diff between before and after under
// "---"/"+++" headers, prefixing each line with "+", "-" or " ". Every
// unchanged line is emitted as context: there are no "@@" hunk headers and
// context is not trimmed to a fixed number of lines. The exact text is
// cosmetic, not a wire contract.
func Unified(path, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lineArr := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArr)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", path, path)
	for _, d := range diffs {
		lines := strings.SplitAfter(d.Text, "\n")
		for _, l := range lines {
			if l == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				sb.WriteString("+" + l)
			case diffmatchpatch.DiffDelete:
				sb.WriteString("-" + l)
			default:
				sb.WriteString(" " + l)
			}
			if !strings.HasSuffix(l, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// Fingerprint returns the hex-encoded SHA-1 digest of text, used as
// beforeHash/afterHash in Edit proposal safety metadata.
func Fingerprint(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
