// Package redisstream adapts eventsink.Sink onto Redis Streams so events and
// assistant-text chunks survive a single process and can be tailed by an
// opaque external consumer, grounded on the teacher's registry.ResultStreamManager
// (registry/result_stream.go) use of *redis.Client for per-key streams with a
// bounded TTL.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vector-copilot/orchestrator/eventsink"
)

// DefaultTTL bounds how long an idle stream key survives.
const DefaultTTL = 30 * time.Minute

// DefaultMaxLen caps a stream's length via approximate trimming (XADD
// MAXLEN ~), keeping write latency independent of stream history size.
const DefaultMaxLen = 5000

// Options configures Sink.
type Options struct {
	Client  *redis.Client
	TTL     time.Duration
	MaxLen  int64
	KeyFunc func(streamKey string) string
}

// Sink publishes eventsink lines and assistant-text chunks onto a Redis
// Stream keyed per workflow/project stream key. It satisfies
// eventsink.Sink; PushAssistantText/Push swallow Redis errors (logging is
// left to the caller via the Err* return channel pattern the teacher
// doesn't use here, since the contract is "must never block the loop" —
// a Redis outage degrades to dropped events, not a stalled workflow).
type Sink struct {
	client  *redis.Client
	ttl     time.Duration
	maxLen  int64
	keyFunc func(string) string
	onError func(streamKey string, err error)
}

type entryKind string

const (
	kindEvent     entryKind = "event"
	kindAssistant entryKind = "assistant"
)

type entry struct {
	Kind  entryKind             `json:"kind"`
	Line  string                `json:"line,omitempty"`
	Chunk *eventsink.AssistantText `json:"chunk,omitempty"`
}

// New builds a Sink. onError, if non-nil, is invoked asynchronously from a
// detached goroutine whenever a publish fails; it must not block.
func New(opts Options, onError func(streamKey string, err error)) (*Sink, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("redisstream: redis client is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = func(streamKey string) string { return "events:" + streamKey }
	}
	return &Sink{client: opts.Client, ttl: ttl, maxLen: maxLen, keyFunc: keyFunc, onError: onError}, nil
}

func (s *Sink) Push(streamKey, line string) {
	s.publish(streamKey, entry{Kind: kindEvent, Line: line})
}

func (s *Sink) PushAssistantText(streamKey string, chunk eventsink.AssistantText) {
	s.publish(streamKey, entry{Kind: kindAssistant, Chunk: &chunk})
}

// publish fires the XADD in its own goroutine: the loop that calls Push
// must never block on network I/O (spec.md §5).
func (s *Sink) publish(streamKey string, e entry) {
	go func() {
		payload, err := json.Marshal(e)
		if err != nil {
			s.reportError(streamKey, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		key := s.keyFunc(streamKey)
		if err := s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]any{"payload": string(payload)},
		}).Err(); err != nil {
			s.reportError(streamKey, err)
			return
		}
		s.client.Expire(ctx, key, s.ttl)
	}()
}

func (s *Sink) reportError(streamKey string, err error) {
	if s.onError != nil {
		s.onError(streamKey, err)
	}
}

var _ eventsink.Sink = (*Sink)(nil)
