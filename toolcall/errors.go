// Package toolcall extracts a single tool invocation from free-form model
// text: native JSON, a handful of wrapper tags, and several XML-like
// surface syntaxes, all folding to the same canonical (name, args) shape
// consumed by the tools registry.
package toolcall

import "errors"

// ErrNoToolCall is returned when no tool tag or JSON object could be
// extracted from the text at all.
var ErrNoToolCall = errors.New("toolcall: no tool call parsed")

// ErrMultipleToolCalls is returned when the text contains more than one
// top-level recognized tool tag. The loop counts this as a validation
// error rather than silently picking one.
var ErrMultipleToolCalls = errors.New("toolcall: more than one top-level tool call")

// ErrMalformed is returned when a tool tag or wrapper was found but its
// body could not be reconciled into a name/arguments pair (e.g. an empty
// wrapper, or a JSON body that doesn't parse after normalization).
var ErrMalformed = errors.New("toolcall: malformed tool call")
