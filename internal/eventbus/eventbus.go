// Package eventbus fans events out from the session manager and the control
// plane to every connected UI subscriber.
//
// Publish never blocks: each subscriber owns a bounded queue. A subscriber
// whose queue is full is evicted and its channel closed, so what it did
// receive is a gap-free prefix in publish order. UI subscribers react by
// reconnecting and reattaching through the session buffer.
package eventbus

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 256

// EventType identifies the kind of event.
type EventType string

const (
	// EventShellOutput carries one chunk read from a session's pty.
	EventShellOutput EventType = "shell-output"
	// EventShellExit reports that a session's process exited.
	EventShellExit EventType = "shell-exit"
	// EventControlAction carries a control-plane request awaiting a UI reply.
	EventControlAction EventType = "mcp-action"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      string          `json:"data,omitempty"`
	ExitCode  *int            `json:"exit_code,omitempty"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Name returns the UI-facing event name: session events are addressed by
// session id ("shell-output-<id>"), control actions are not.
func (e Event) Name() string {
	if e.SessionID == "" {
		return string(e.Type)
	}
	return string(e.Type) + "-" + e.SessionID
}

// Metrics holds bus counters.
type Metrics struct {
	EventsPublished    int64
	EventsDelivered    int64
	SubscribersEvicted int64
	SubscribersActive  int64
	SubscribersTotal   int64
}

// Bus is a broadcast event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	bufferSize  int
	closed      bool
	onEvict     func()

	published atomic.Int64
	delivered atomic.Int64
	evicted   atomic.Int64
	subsTotal atomic.Int64
}

// New creates a bus with the default subscriber queue length.
func New() *Bus {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer creates a bus whose subscribers queue up to size events.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{
		subscribers: make(map[uint64]chan Event),
		bufferSize:  size,
	}
}

// OnEvict registers a callback invoked whenever a subscriber is evicted for
// falling behind. Must be called before the bus is shared.
func (b *Bus) OnEvict(fn func()) *Bus {
	b.onEvict = fn
	return b
}

// Subscribe returns a channel of events and a function that cancels the
// subscription and closes the channel. On a closed bus the channel is
// returned already closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.subsTotal.Add(1)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(c)
			}
		})
	}
	return ch, unsub
}

// Publish delivers e to every subscriber without blocking. A subscriber that
// cannot take e is evicted.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.published.Add(1)
	for id, ch := range b.subscribers {
		select {
		case ch <- e:
			b.delivered.Add(1)
		default:
			delete(b.subscribers, id)
			close(ch)
			b.evicted.Add(1)
			if b.onEvict != nil {
				b.onEvict()
			}
		}
	}
}

// PublishOutput publishes a pty output chunk for a session.
func (b *Bus) PublishOutput(sessionID, data string) {
	b.Publish(Event{Type: EventShellOutput, SessionID: sessionID, Data: data})
}

// PublishExit publishes a session's process exit.
func (b *Bus) PublishExit(sessionID string, code int) {
	b.Publish(Event{Type: EventShellExit, SessionID: sessionID, ExitCode: &code})
}

// PublishAction publishes a control-plane action for the UI to answer.
func (b *Bus) PublishAction(action string, payload json.RawMessage) {
	b.Publish(Event{Type: EventControlAction, Action: action, Payload: payload})
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus) Metrics() Metrics {
	return Metrics{
		EventsPublished:    b.published.Load(),
		EventsDelivered:    b.delivered.Load(),
		SubscribersEvicted: b.evicted.Load(),
		SubscribersActive:  int64(b.SubscriberCount()),
		SubscribersTotal:   b.subsTotal.Load(),
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
