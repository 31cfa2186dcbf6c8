// Package toolcache implements the Tool-Result Cache and per-session
// last-tool slot (spec.md §4.9): a TTL-bounded map from a normalized tool
// invocation key to its previously computed result, plus a heuristic
// continuation hint for Plan/Act hand-off, grounded on the teacher's
// memory.Store contract (agents/runtime/memory/memory.go) but specialized
// to the simpler "one cached value per key, explicit fingerprint
// invalidation" shape this orchestrator needs rather than a durable event
// log.
package toolcache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/vector-copilot/orchestrator/diffengine"
	"github.com/vector-copilot/orchestrator/tools"
)

// DefaultTTL is the default time a structure-read cache entry survives
// (spec.md §4.9: 10-60 minutes for structure reads).
const DefaultTTL = 20 * time.Minute

// CodeReadTTL is the shorter default for code reads while editors are
// active, since the underlying script text changes more often.
const CodeReadTTL = 2 * time.Minute

// Entry is one Tool-Result Cache row.
type Entry struct {
	Key         string
	Value       map[string]any
	CreatedAt   time.Time
	TTL         time.Duration
	Fingerprint string
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// Cache is the Tool-Result Cache contract. Implementations must be safe
// for concurrent use; a single workflow's loop is the only writer for its
// own keys, but the cache instance itself may be shared process-wide.
type Cache interface {
	// Get returns the cached entry for key if present and not expired. It
	// compares no fingerprint: the stored Fingerprint is returned as is,
	// and fingerprints only take part through the key that Key builds.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set stores value under key with the given TTL and fingerprint.
	Set(ctx context.Context, key string, value map[string]any, ttl time.Duration, fingerprint string) error
	// Invalidate removes the entry for key, if any.
	Invalidate(ctx context.Context, key string) error
}

// SessionSlot is the per-project last-tool heuristic continuation hint
// (spec.md §4.9): setLastTool/getSession.
type SessionSlot struct {
	ToolName string
	Result   map[string]any
	SetAt    time.Time
}

// SessionStore holds the last-tool slot per project.
type SessionStore interface {
	SetLastTool(ctx context.Context, projectID string, name tools.Ident, result map[string]any) error
	GetSession(ctx context.Context, projectID string) (SessionSlot, bool, error)
}

// Key builds the canonical Tool-Result Cache key: toolName|JSON-canonical(args)|fingerprints.
func Key(name tools.Ident, args map[string]any, fingerprints ...string) string {
	var b strings.Builder
	b.WriteString(string(name))
	b.WriteByte('|')
	b.WriteString(canonicalJSON(args))
	b.WriteByte('|')
	b.WriteString(strings.Join(fingerprints, ","))
	return b.String()
}

// canonicalJSON renders v with object keys sorted, so semantically equal
// argument maps always produce the same cache key regardless of Go map
// iteration order.
func canonicalJSON(v any) string {
	sorted := sortKeys(v)
	b, err := json.Marshal(sorted)
	if err != nil {
		return ""
	}
	return string(b)
}

func sortKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(t))
		for _, k := range keys {
			out = append(out, orderedEntry{Key: k, Value: sortKeys(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortKeys(e)
		}
		return out
	default:
		return v
	}
}

// orderedMap marshals as a JSON object with keys in insertion order,
// which sortKeys has already sorted lexicographically.
type orderedMap []orderedEntry

type orderedEntry struct {
	Key   string
	Value any
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Fingerprint hashes text (e.g. a beforeHash/afterHash/placeHash input)
// into the hex digest form that Key takes as a fingerprint. It
// reuses diffengine's fingerprint so a script's safety.beforeHash and its
// cache-key fingerprint are always computed the same way.
func Fingerprint(text string) string {
	return diffengine.Fingerprint(text)
}
