package diffengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRangeEdits_NoEditsRoundTrip(t *testing.T) {
	text := "print('hi')\n"
	out, err := ApplyRangeEdits(text, nil)
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestApplyRangeEdits_PrependsLine(t *testing.T) {
	text := "print('hi')\n"
	out, err := ApplyRangeEdits(text, []RangeEdit{
		{Start: Position{0, 0}, End: Position{0, 0}, Text: "-- note\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "-- note\nprint('hi')\n", out)
}

func TestApplyRangeEdits_RejectsOverlap(t *testing.T) {
	text := "abcdef\n"
	_, err := ApplyRangeEdits(text, []RangeEdit{
		{Start: Position{0, 0}, End: Position{0, 3}, Text: "X"},
		{Start: Position{0, 1}, End: Position{0, 4}, Text: "Y"},
	})
	assert.ErrorIs(t, err, ErrOverlappingEdits)
}

func TestApplyRangeEdits_RejectsTooManyEdits(t *testing.T) {
	text := "abc\n"
	edits := make([]RangeEdit, MaxEdits+1)
	for i := range edits {
		edits[i] = RangeEdit{Start: Position{0, 0}, End: Position{0, 0}, Text: ""}
	}
	_, err := ApplyRangeEdits(text, edits)
	assert.ErrorIs(t, err, ErrTooManyEdits)
}

func TestApplyRangeEdits_RejectsTooMuchInsertedText(t *testing.T) {
	text := "abc\n"
	_, err := ApplyRangeEdits(text, []RangeEdit{
		{Start: Position{0, 0}, End: Position{0, 0}, Text: strings.Repeat("x", MaxInsertedChars+1)},
	})
	assert.ErrorIs(t, err, ErrTooMuchText)
}

func TestApplyRangeEdits_MultipleNonOverlappingAppliedCorrectly(t *testing.T) {
	text := "one\ntwo\nthree\n"
	out, err := ApplyRangeEdits(text, []RangeEdit{
		{Start: Position{0, 0}, End: Position{0, 3}, Text: "ONE"},
		{Start: Position{2, 0}, End: Position{2, 5}, Text: "THREE"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ONE\ntwo\nTHREE\n", out)
}

func TestApplyRangeEdits_ClampsCharacterBeyondLineEnd(t *testing.T) {
	text := "abc\n"
	out, err := ApplyRangeEdits(text, []RangeEdit{
		{Start: Position{0, 0}, End: Position{0, 999}, Text: "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, "X\n", out)
}

func TestFingerprint_StableAndHex(t *testing.T) {
	a := Fingerprint("hello")
	b := Fingerprint("hello")
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
	assert.NotEqual(t, a, Fingerprint("world"))
}

func TestUnified_ContainsAddedLineMarker(t *testing.T) {
	before := "print('hi')\n"
	after := "-- note\nprint('hi')\n"
	out := Unified("Script", before, after)
	assert.Contains(t, out, "+-- note")
}
