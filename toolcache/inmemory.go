package toolcache

import (
	"context"
	"sync"
	"time"

	"github.com/vector-copilot/orchestrator/tools"
)

// InMemory is a mutex-guarded map implementation of Cache and
// SessionStore, grounded on the teacher's in-process store shape
// (agents/runtime/memory.Store) but trimmed to the single-entry-per-key
// Tool-Result Cache contract rather than an append-only event log.
type InMemory struct {
	mu       sync.Mutex
	entries  map[string]Entry
	sessions map[string]SessionSlot
	now      func() time.Time
}

// NewInMemory builds an empty InMemory cache.
func NewInMemory() *InMemory {
	return &InMemory{
		entries:  make(map[string]Entry),
		sessions: make(map[string]SessionSlot),
		now:      time.Now,
	}
}

func (c *InMemory) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *InMemory) Set(_ context.Context, key string, value map[string]any, ttl time.Duration, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Key:         key,
		Value:       value,
		CreatedAt:   c.now(),
		TTL:         ttl,
		Fingerprint: fingerprint,
	}
	return nil
}

func (c *InMemory) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *InMemory) SetLastTool(_ context.Context, projectID string, name tools.Ident, result map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[projectID] = SessionSlot{ToolName: string(name), Result: result, SetAt: c.now()}
	return nil
}

func (c *InMemory) GetSession(_ context.Context, projectID string) (SessionSlot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[projectID]
	return s, ok, nil
}

var (
	_ Cache        = (*InMemory)(nil)
	_ SessionStore = (*InMemory)(nil)
)
