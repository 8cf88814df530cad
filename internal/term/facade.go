package term

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/flemzord/toolgate/internal/tool"
)

// runCommandTimeout bounds one-shot command execution.
const runCommandTimeout = 30 * time.Second

// FacadeName is the externally visible name of the terminal tool.
const FacadeName = "terminal_operations"

// Facade exposes the session manager as the consolidated
// "terminal_operations" tool.
type Facade struct {
	manager *Manager
}

// NewFacade wraps a manager.
func NewFacade(manager *Manager) *Facade {
	return &Facade{manager: manager}
}

// Tool returns the consolidated tool descriptor with all terminal
// operations declared. Session ids are derived from the calling
// conversation, so concurrent conversations get isolated shells.
func (f *Facade) Tool() *tool.Tool {
	return &tool.Tool{
		Descriptor: tool.Descriptor{
			Name:         FacadeName,
			Description:  "Persistent terminal sessions: run commands, send input, read output, manage the shell process.",
			Schema:       facadeSchema,
			Capability:   tool.CapabilityWrite,
			Consolidated: true,
		},
		Operations: []tool.Operation{
			{Name: "create_session", Capability: tool.CapabilityWrite, PathArg: "working_directory", Handler: f.createSession},
			{Name: "send_input", Capability: tool.CapabilityWrite, Handler: f.sendInput},
			{Name: "get_output", Capability: tool.CapabilityRead, Handler: f.getOutput},
			{Name: "get_history", Capability: tool.CapabilityRead, Handler: f.getHistory},
			{Name: "resize_session", Capability: tool.CapabilityWrite, Handler: f.resizeSession},
			{Name: "close_session", Capability: tool.CapabilityWrite, Handler: f.closeSession},
			{Name: "run_command", Capability: tool.CapabilityWrite, Handler: f.runCommand},
			{Name: "create_directory", Capability: tool.CapabilityWrite, PathArg: "path", Handler: f.createDirectory},
		},
	}
}

var facadeSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "operation": {
      "type": "string",
      "enum": ["create_session", "send_input", "get_output", "get_history", "resize_session", "close_session", "run_command", "create_directory"]
    },
    "working_directory": {"type": "string"},
    "input": {"type": "string"},
    "from_index": {"type": "integer"},
    "rows": {"type": "integer"},
    "cols": {"type": "integer"},
    "command": {"type": "string"},
    "path": {"type": "string"}
  },
  "required": ["operation"]
}`)

// SessionID derives the manager-level PTY session id from a conversation
// id. Exported so transports that address sessions by conversation (the
// gateway's terminal socket) resolve the same id the facade uses.
func SessionID(conversationID string) string {
	return "term-" + conversationID
}

func sessionID(call tool.CallContext) string {
	return SessionID(call.SessionID)
}

func (f *Facade) createSession(_ context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	dir := stringArg(args, "working_directory")
	if dir == "" {
		dir = call.WorkingDir
	}
	s, err := f.manager.CreateOrReuse(sessionID(call), dir)
	if err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: fmt.Sprintf("session %s active in %s (pid %d)", s.ID, s.WorkingDir, s.PID())}, nil
}

func (f *Facade) sendInput(_ context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	input := stringArg(args, "input")
	if input == "" {
		return tool.Output{}, fmt.Errorf("input argument required")
	}
	if err := f.manager.SendInput(sessionID(call), []byte(input)); err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: fmt.Sprintf("wrote %d bytes", len(input))}, nil
}

func (f *Facade) getOutput(_ context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	from := intArg(args, "from_index", 0)
	out, next, err := f.manager.Output(sessionID(call), from)
	if err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: fmt.Sprintf("next_index=%d\n%s", next, out)}, nil
}

func (f *Facade) getHistory(_ context.Context, _ map[string]any, call tool.CallContext) (tool.Output, error) {
	out, _, err := f.manager.Output(sessionID(call), 0)
	if err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: string(out)}, nil
}

func (f *Facade) resizeSession(_ context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	rows := intArg(args, "rows", 24)
	cols := intArg(args, "cols", 80)
	if err := f.manager.Resize(sessionID(call), uint16(rows), uint16(cols)); err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: fmt.Sprintf("resized to %dx%d", rows, cols)}, nil
}

func (f *Facade) closeSession(_ context.Context, _ map[string]any, call tool.CallContext) (tool.Output, error) {
	if err := f.manager.KillSessionTree(sessionID(call)); err != nil {
		return tool.Output{}, err
	}
	return tool.Output{Content: "session closed"}, nil
}

// runCommand executes a one-shot command in the session's working
// directory, bounded by a timeout. It does not type into the interactive
// shell: one-shot execution gives a clean exit status and unpolluted
// output, while the working directory still follows the session.
func (f *Facade) runCommand(ctx context.Context, args map[string]any, call tool.CallContext) (tool.Output, error) {
	command := stringArg(args, "command")
	if command == "" {
		return tool.Output{}, fmt.Errorf("command argument required")
	}

	dir := call.WorkingDir
	if s, err := f.manager.Get(sessionID(call)); err == nil {
		dir = s.WorkingDir
	}

	ctx, cancel := context.WithTimeout(ctx, runCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.manager.shell, "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return tool.Output{
			Content: fmt.Sprintf("%s\n%v", out, err),
			IsError: true,
		}, nil
	}
	return tool.Output{Content: string(out)}, nil
}

func (f *Facade) createDirectory(_ context.Context, args map[string]any, _ tool.CallContext) (tool.Output, error) {
	path := stringArg(args, "path")
	if path == "" {
		return tool.Output{}, fmt.Errorf("path argument required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return tool.Output{}, fmt.Errorf("create directory %s: %w", path, err)
	}
	return tool.Output{Content: "created " + path}, nil
}

// stringArg extracts a string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument. JSON numbers decode as float64;
// string digits are accepted for lenient clients.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
