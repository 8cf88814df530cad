// Package events carries fire-and-forget notifications from the execution
// core to the UI boundary: collaboration prompts and per-call progress.
// Publishing never blocks the caller; slow consumers drop events rather
// than stalling tool execution.
package events

import (
	"sync"
	"time"
)

// Type categorizes events.
type Type string

// Event types emitted by the execution core.
const (
	TypeCollabPrompt    Type = "collab_prompt"
	TypeCollabResolved  Type = "collab_resolved"
	TypeProgress        Type = "progress"
	TypeSessionSpawned  Type = "session_spawned"
	TypeSessionClosed   Type = "session_closed"
	TypeExecutionResult Type = "execution_result"
)

// Event is a single notification.
type Event struct {
	Type      Type      `json:"type"`
	CallID    string    `json:"call_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives events. Implementations must not block.
type Sink interface {
	Publish(Event)
}

// Discard is a Sink that drops everything. Useful as a default and in tests.
type Discard struct{}

// Publish drops the event.
func (Discard) Publish(Event) {}

// Channel is a buffered, dropping Sink for UI consumers. When the buffer is
// full the event is discarded; progress events are observability, not
// control flow.
type Channel struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewChannel creates a Channel sink with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 64
	}
	return &Channel{ch: make(chan Event, buffer)}
}

// Publish enqueues the event, dropping it if the buffer is full or the
// sink is closed.
func (c *Channel) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
	}
}

// Events returns the receive side for consumers.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close stops the sink. Publish becomes a no-op; the channel is closed so
// ranging consumers terminate.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
