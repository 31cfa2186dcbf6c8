// Package redisstore adapts toolcache.Cache and toolcache.SessionStore onto
// Redis, so the Tool-Result Cache and per-project last-tool slot survive a
// single orchestrator process and are shared across workflow instances —
// grounded on the teacher's use of *redis.Client for TTL-backed mappings
// (registry/result_stream.go's ResultStreamManager).
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vector-copilot/orchestrator/toolcache"
	"github.com/vector-copilot/orchestrator/tools"
)

// Store implements toolcache.Cache and toolcache.SessionStore over a
// single *redis.Client, namespacing cache and session keys so they cannot
// collide with other consumers of the same Redis instance.
type Store struct {
	client *redis.Client
	prefix string
}

// New builds a Store. prefix namespaces every key it writes (e.g. "vector:").
func New(client *redis.Client, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) cacheKey(key string) string   { return s.prefix + "cache:" + key }
func (s *Store) sessionKey(projectID string) string { return s.prefix + "session:" + projectID }

type wireEntry struct {
	Value       map[string]any `json:"value"`
	CreatedAt   time.Time      `json:"createdAt"`
	TTL         time.Duration  `json:"ttl"`
	Fingerprint string         `json:"fingerprint"`
}

func (s *Store) Get(ctx context.Context, key string) (toolcache.Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.cacheKey(key)).Result()
	if err == redis.Nil {
		return toolcache.Entry{}, false, nil
	}
	if err != nil {
		return toolcache.Entry{}, false, err
	}
	var w wireEntry
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return toolcache.Entry{}, false, err
	}
	return toolcache.Entry{
		Key:         key,
		Value:       w.Value,
		CreatedAt:   w.CreatedAt,
		TTL:         w.TTL,
		Fingerprint: w.Fingerprint,
	}, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value map[string]any, ttl time.Duration, fingerprint string) error {
	w := wireEntry{Value: value, CreatedAt: time.Now(), TTL: ttl, Fingerprint: fingerprint}
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.cacheKey(key), payload, ttl).Err()
}

func (s *Store) Invalidate(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

type wireSession struct {
	ToolName string         `json:"toolName"`
	Result   map[string]any `json:"result"`
	SetAt    time.Time      `json:"setAt"`
}

func (s *Store) SetLastTool(ctx context.Context, projectID string, name tools.Ident, result map[string]any) error {
	w := wireSession{ToolName: string(name), Result: result, SetAt: time.Now()}
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.sessionKey(projectID), payload, 0).Err()
}

func (s *Store) GetSession(ctx context.Context, projectID string) (toolcache.SessionSlot, bool, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(projectID)).Result()
	if err == redis.Nil {
		return toolcache.SessionSlot{}, false, nil
	}
	if err != nil {
		return toolcache.SessionSlot{}, false, err
	}
	var w wireSession
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return toolcache.SessionSlot{}, false, err
	}
	return toolcache.SessionSlot{ToolName: w.ToolName, Result: w.Result, SetAt: w.SetAt}, true, nil
}

var (
	_ toolcache.Cache        = (*Store)(nil)
	_ toolcache.SessionStore = (*Store)(nil)
)
