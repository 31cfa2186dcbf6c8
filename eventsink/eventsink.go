// Package eventsink implements the non-blocking event fan-out contract the
// Plan/Act loop writes its textual event vocabulary to (spec.md §4.8): a
// push(streamKey, line) and pushAssistantText(streamKey, {phase, text}),
// FIFO per stream key, back-pressured rather than ever blocking the loop.
package eventsink

import (
	"strconv"
	"sync"
)

// Phase identifies where an assistant-text update sits in its delivery.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseUpdate Phase = "update"
	PhaseFinal  Phase = "final"
)

// AssistantText is a chunk of user-visible assistant prose, distinct from
// the textual event log (spec.md §4.8).
type AssistantText struct {
	Phase Phase
	Text  string
}

// Event is one line appended to a stream.
type Event struct {
	StreamKey string
	Line      string
}

// Sink is the contract the Plan/Act loop and its collaborators write
// through. Implementations must never block the caller.
type Sink interface {
	Push(streamKey, line string)
	PushAssistantText(streamKey string, chunk AssistantText)
}

// Subscriber receives events and assistant-text chunks for streams it has
// subscribed to, in FIFO order per stream key.
type Subscriber interface {
	Events() <-chan Event
	AssistantText() <-chan StreamedText
}

type StreamedText struct {
	StreamKey string
	Chunk     AssistantText
}

// Bus is the in-process fan-out implementation: Push/PushAssistantText
// enqueue onto per-subscriber bounded channels; a full channel drops the
// oldest pending item rather than blocking the writer (spec.md §5's
// suspension-point rule: the sink must never block provider progress).
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]*busSubscriber
	nextID      int
	bufferSize  int
	dropped     func(streamKey string)
}

type busSubscriber struct {
	events    chan Event
	assistant chan StreamedText
}

func (s *busSubscriber) Events() <-chan Event                { return s.events }
func (s *busSubscriber) AssistantText() <-chan StreamedText { return s.assistant }

// NewBus builds a Bus whose per-subscriber channels hold up to bufferSize
// pending items before dropping the oldest. onDrop, if non-nil, is called
// (synchronously, from the writer's goroutine) whenever an item is dropped
// — wire it to a metrics counter.
func NewBus(bufferSize int, onDrop func(streamKey string)) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{subscribers: make(map[int]*busSubscriber), bufferSize: bufferSize, dropped: onDrop}
}

// Subscribe registers a new listener and returns an unsubscribe func.
func (b *Bus) Subscribe() (Subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &busSubscriber{
		events:    make(chan Event, b.bufferSize),
		assistant: make(chan StreamedText, b.bufferSize),
	}
	b.subscribers[id] = sub
	return sub, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

func (b *Bus) Push(streamKey, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		ev := Event{StreamKey: streamKey, Line: line}
		select {
		case sub.events <- ev:
		default:
			select {
			case <-sub.events:
				if b.dropped != nil {
					b.dropped(streamKey)
				}
			default:
			}
			select {
			case sub.events <- ev:
			default:
			}
		}
	}
}

func (b *Bus) PushAssistantText(streamKey string, chunk AssistantText) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		st := StreamedText{StreamKey: streamKey, Chunk: chunk}
		select {
		case sub.assistant <- st:
		default:
			select {
			case <-sub.assistant:
				if b.dropped != nil {
					b.dropped(streamKey)
				}
			default:
			}
			select {
			case sub.assistant <- st:
			default:
			}
		}
	}
}

// textual event vocabulary (spec.md §4.8) — builders so call sites never
// hand-assemble the line format inconsistently.
func OrchestratorStart() string           { return "orchestrator.start" }
func ContextRequest(reason string) string { return "context.request " + reason }
func ToolParsed(name string) string       { return "tool.parsed " + name }
func ToolValid(name string) string        { return "tool.valid " + name }
func ToolResult(name string) string       { return "tool.result " + name }
func ProposalsMapped(name string, count int) string {
	return "proposals.mapped " + name + " count=" + strconv.Itoa(count)
}
func ProviderResponse(turn, chars int) string {
	return "provider.response turn=" + strconv.Itoa(turn) + " chars=" + strconv.Itoa(chars)
}
func ErrorValidation(name, msg string) string { return "error.validation " + name + " " + msg }
func ErrorProvider(msg string) string         { return "error.provider " + msg }
func Planning() string                        { return "planning…" }
func SearchAssetsDisabled() string            { return "search_assets.disabled" }
func FallbackEdit(detail string) string       { return "fallback.edit " + detail }
func FallbackObject(detail string) string     { return "fallback.object " + detail }
func FallbackAsset(detail string) string      { return "fallback.asset " + detail }
