// Package audit records security-relevant interactions: tool calls, their
// results, authorization decisions, and collaboration outcomes. Events go
// to a JSONL stream and, optionally, a SQLite-backed history store.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"
	"unicode/utf8"
)

// EventType categorizes audit events.
type EventType string

// Audit event types covering all security-relevant interactions.
const (
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventAuthDecision EventType = "auth_decision"
	EventApproval     EventType = "approval"
	EventSessionOpen  EventType = "session_open"
	EventSessionClose EventType = "session_close"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	ToolName  string            `json:"tool_name,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LoggerConfig configures the audit logger.
type LoggerConfig struct {
	// Writer is the destination for JSONL output. If nil, events are only
	// dispatched to OnEvent and the store.
	Writer io.Writer

	// Store, if non-nil, receives every event for persistent history.
	Store *Store

	// OnEvent, if non-nil, is called for every event (used in tests).
	OnEvent func(Event)

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// Logger writes structured audit events as JSONL with optional SQLite
// persistence.
type Logger struct {
	writer  io.Writer
	store   *Store
	onEvent func(Event)
	now     func() time.Time
	mu      sync.Mutex
}

// NewLogger creates an audit logger with the given configuration.
func NewLogger(cfg LoggerConfig) *Logger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Logger{
		writer:  cfg.Writer,
		store:   cfg.Store,
		onEvent: cfg.OnEvent,
		now:     now,
	}
}

// Log writes an audit event. The timestamp is set automatically. Store
// write failures are swallowed: audit must never fail a tool call.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	event.Timestamp = l.now()
	event.Detail = Truncate(event.Detail)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.writer != nil {
		_ = json.NewEncoder(l.writer).Encode(event)
	}
	if l.store != nil {
		_ = l.store.Insert(event)
	}
}

// maxDetailLen is the maximum length of audit detail strings. Longer
// values are truncated to prevent log bloat from large tool outputs.
const maxDetailLen = 4096

// Truncate shortens a string to maxDetailLen, appending a truncation
// indicator. It walks back to a valid UTF-8 rune boundary to avoid
// splitting multi-byte characters when the cut falls mid-rune.
func Truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	i := maxDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
