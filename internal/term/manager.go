// Package term owns the lifecycle of persistent PTY shell sessions:
// process spawn, I/O, resize, and teardown including process-tree reaping.
// It is independent of authorization; the pipeline decides whether a call
// may reach it.
package term

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/flemzord/toolgate/internal/events"
)

var (
	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("terminal session not found")

	// ErrSessionNotActive is returned when an operation targets a session
	// that is spawning or shutting down.
	ErrSessionNotActive = errors.New("terminal session not active")

	// ErrSpawnFailed wraps PTY allocation or fork/exec failures. The
	// session stays absent and the caller may retry.
	ErrSpawnFailed = errors.New("terminal session spawn failed")
)

// defaultCloseGrace is how long a shell gets to exit voluntarily after
// SIGTERM before the tree kill.
const defaultCloseGrace = 100 * time.Millisecond

// Manager owns the live-session map. All mutation goes through its
// methods; the map lock is short-held and never spans a blocking wait.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	shell    string
	grace    time.Duration
	sink     events.Sink
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithShell overrides the shell binary used for new sessions.
func WithShell(shell string) Option {
	return func(m *Manager) { m.shell = shell }
}

// WithCloseGrace overrides the SIGTERM grace period.
func WithCloseGrace(grace time.Duration) Option {
	return func(m *Manager) { m.grace = grace }
}

// WithSink sets the notification sink for session lifecycle events.
func WithSink(sink events.Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// NewManager creates a session manager. The default shell is $SHELL,
// falling back to /bin/bash and then /bin/sh.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		shell:    defaultShell(),
		grace:    defaultCloseGrace,
		sink:     events.Discard{},
		logger:   logger.With("component", "term"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	if _, err := os.Stat("/bin/bash"); err == nil {
		return "/bin/bash"
	}
	return "/bin/sh"
}

// CreateOrReuse returns the live session for id, spawning one if absent.
// An existing session whose working directory differs from the request is
// closed and replaced, so the caller always gets a shell rooted where it
// asked.
func (m *Manager) CreateOrReuse(id, workingDir string) (*Session, error) {
	m.mu.Lock()
	existing, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		if existing.WorkingDir == workingDir && existing.alive() {
			existing.touch()
			return existing, nil
		}
		// Wrong directory or dead shell: tear down before respawning.
		m.closeSession(id, existing)
	}

	s := &Session{
		ID:         id,
		WorkingDir: workingDir,
		state:      StateSpawning,
		buf:        NewBuffer(),
		exited:     make(chan struct{}),
	}

	m.mu.Lock()
	if _, raced := m.sessions[id]; raced {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: concurrent create for %s", ErrSpawnFailed, id)
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if err := s.spawn(m.shell); err != nil {
		// Failed spawn leaves the id absent again; a retry is permitted.
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	m.logger.Info("session spawned", "session_id", id, "pid", s.PID(), "dir", workingDir)
	m.sink.Publish(events.Event{Type: events.TypeSessionSpawned, SessionID: id, Detail: workingDir})
	return s, nil
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// SendInput writes raw bytes, including control sequences, to the
// session's PTY master.
func (m *Manager) SendInput(id string, data []byte) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Output returns buffered output from the given index and the index for
// the next incremental read.
func (m *Manager) Output(id string, from int) ([]byte, int, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, 0, err
	}
	out, next := s.buf.ReadFrom(from)
	return out, next, nil
}

// Resize updates the session's terminal window size.
func (m *Manager) Resize(id string, rows, cols uint16) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.resize(rows, cols)
}

// Close terminates the session's shell (graceful, then tree kill) and
// removes it from the live map. A subsequent CreateOrReuse with the same
// id starts fresh.
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	m.closeSession(id, s)
	return nil
}

// KillSessionTree forcefully terminates the session's child and every
// descendant found under it, then closes the session. Used when a shell
// spawned long-running children (servers, watchers) that must not outlive
// the session.
func (m *Manager) KillSessionTree(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if pid := s.PID(); pid > 0 {
		killTree(pid)
	}
	m.closeSession(id, s)
	return nil
}

// CloseAll tears down every live session. Called on daemon shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if s, err := m.Get(id); err == nil {
			m.closeSession(id, s)
		}
	}
}

// ReapIdle closes sessions that have been unused for longer than maxIdle
// and returns how many were closed. Zero or negative maxIdle disables
// reaping.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.closeSession(s.ID, s)
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) closeSession(id string, s *Session) {
	s.close(m.grace)

	m.mu.Lock()
	if current, ok := m.sessions[id]; ok && current == s {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.logger.Info("session closed", "session_id", id)
	m.sink.Publish(events.Event{Type: events.TypeSessionClosed, SessionID: id})
}
