package term

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State of a PTY session. A session missing from the manager's map is
// Absent.
type State int

// Session lifecycle states: Absent → Spawning → Active → Closing → Closed.
const (
	StateSpawning State = iota + 1
	StateActive
	StateClosing
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "absent"
	}
}

// Session is one persistent shell attached to a pseudo-terminal. Sessions
// are conversation-scoped and outlive individual tool calls so shell state
// (cwd, environment, history) carries across turns. The manager owns every
// session exclusively; callers reference them by id only.
type Session struct {
	ID         string
	WorkingDir string

	mu       sync.Mutex
	state    State
	master   *os.File
	cmd      *exec.Cmd
	buf      *Buffer
	lastUsed time.Time
	exited   chan struct{}
}

// PID returns the child process id, or 0 before spawn completes.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// alive reports whether the shell process is still running. The state
// alone cannot answer this: a shell that exits on its own (typed "exit",
// killed externally) stays Active until someone observes the exit.
func (s *Session) alive() bool {
	if s.State() != StateActive {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// spawn forks the shell attached to a fresh PTY. In the child: chdir to the
// working directory, set terminal environment (color, UTF-8 locale), become
// the session leader with the slave as controlling terminal, exec an
// interactive shell. In the parent: keep the master and start the reader.
func (s *Session) spawn(shell string) error {
	master, slavePath, err := openPTY()
	if err != nil {
		return err
	}

	slave, err := os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		master.Close()
		return fmt.Errorf("open PTY slave %s: %w", slavePath, err)
	}

	cmd := exec.Command(shell, "-i")
	cmd.Dir = s.WorkingDir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"LANG=C.UTF-8",
	)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = slave PTY
	}

	if err := cmd.Start(); err != nil {
		slave.Close()
		master.Close()
		return fmt.Errorf("start shell %s: %w", shell, err)
	}
	// Close slave in parent — the child has its own copy via fd 0/1/2.
	slave.Close()

	s.mu.Lock()
	s.master = master
	s.cmd = cmd
	s.state = StateActive
	s.lastUsed = time.Now()
	s.mu.Unlock()

	// Reader: PTY master output → session buffer, until the slave side
	// closes (EIO on Linux when the shell exits).
	go func() {
		readBuffer := make([]byte, 4096)
		for {
			n, readErr := master.Read(readBuffer)
			if n > 0 {
				s.buf.Append(readBuffer[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	// Waiter: reap the child and record exit.
	go func() {
		_ = cmd.Wait()
		close(s.exited)
	}()

	return nil
}

// write sends raw bytes (including control sequences) to the PTY master.
func (s *Session) write(data []byte) error {
	s.mu.Lock()
	master := s.master
	state := s.state
	s.mu.Unlock()

	if state != StateActive || master == nil {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotActive, s.ID, state)
	}
	if _, err := master.Write(data); err != nil {
		return fmt.Errorf("write to session %s: %w", s.ID, err)
	}
	s.touch()
	return nil
}

// resize updates the PTY window size.
func (s *Session) resize(rows, cols uint16) error {
	s.mu.Lock()
	master := s.master
	state := s.state
	s.mu.Unlock()

	if state != StateActive || master == nil {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotActive, s.ID, state)
	}
	if err := setWindowSize(int(master.Fd()), rows, cols); err != nil {
		return fmt.Errorf("resize session %s: %w", s.ID, err)
	}
	s.touch()
	return nil
}

// close drives Closing → Closed: SIGTERM to the shell's process group, a
// short grace period for voluntary exit, then SIGKILL of the whole process
// tree. Kill failures are best-effort; the session still ends Closed since
// leaking a process is preferable to wedging the manager.
func (s *Session) close(grace time.Duration) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	master := s.master
	cmd := s.cmd
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		pid := cmd.Process.Pid
		// The shell is a session leader (Setsid), so the negative pid
		// signals its whole process group.
		_ = syscall.Kill(-pid, syscall.SIGTERM)

		select {
		case <-s.exited:
		case <-time.After(grace):
			killTree(pid)
			select {
			case <-s.exited:
			case <-time.After(grace):
			}
		}
	}

	if master != nil {
		master.Close()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.master = nil
	s.mu.Unlock()
}
