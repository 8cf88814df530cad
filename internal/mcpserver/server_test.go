package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/toolgate/internal/pipeline"
	"github.com/flemzord/toolgate/internal/tool"
)

// fakeExecutor records calls and returns a scripted record.
type fakeExecutor struct {
	mu   sync.Mutex
	name string
	args map[string]any
	call tool.CallContext
	rec  pipeline.Record
}

func (f *fakeExecutor) ExecuteTool(_ context.Context, name string, args map[string]any, call tool.CallContext) pipeline.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	f.args = args
	f.call = call
	return f.rec
}

func newTestServer(t *testing.T, exec *fakeExecutor) *Server {
	t.Helper()

	registry := tool.NewRegistry()
	err := registry.Register(&tool.Tool{
		Descriptor: tool.Descriptor{
			Name:         "file_operations",
			Description:  "File operations.",
			Schema:       json.RawMessage(`{"type": "object"}`),
			Capability:   tool.CapabilityWrite,
			Consolidated: true,
		},
		Operations: []tool.Operation{
			{Name: "create_file", Capability: tool.CapabilityWrite, Handler: func(context.Context, map[string]any, tool.CallContext) (tool.Output, error) {
				return tool.Output{}, nil
			}},
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	return New(Config{
		Name:       "toolgate-test",
		Version:    "0.0.0",
		Registry:   registry,
		Executor:   exec,
		WorkingDir: "/workspace/proj",
	})
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestToolHandler_Success(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{rec: pipeline.Record{
		Success: true,
		Output:  tool.Output{Content: "created /workspace/proj/a.txt"},
	}}
	s := newTestServer(t, exec)

	res, err := s.toolHandler("file_operations")(context.Background(),
		callRequest("file_operations", map[string]any{"operation": "create_file", "path": "/workspace/proj/a.txt"}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("result marked as error: %+v", res)
	}

	if exec.name != "file_operations" {
		t.Errorf("tool name: got %q", exec.name)
	}
	if exec.args["operation"] != "create_file" {
		t.Errorf("args: got %v", exec.args)
	}
	if exec.call.WorkingDir != "/workspace/proj" {
		t.Errorf("working dir: got %q", exec.call.WorkingDir)
	}
	if !strings.HasPrefix(exec.call.CallID, "call-") {
		t.Errorf("call id: got %q", exec.call.CallID)
	}
}

func TestToolHandler_FailureBecomesToolError(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{rec: pipeline.Record{
		Success: false,
		Failure: pipeline.FailureAuthDenied,
		Output:  tool.Output{Content: "targets /etc/passwd, which is outside the working directory", IsError: true},
	}}
	s := newTestServer(t, exec)

	res, err := s.toolHandler("file_operations")(context.Background(),
		callRequest("file_operations", map[string]any{"operation": "create_file"}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("denied call should surface as a tool error, not a protocol error")
	}
}

func TestCallIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 100 {
		id := newCallID()
		if seen[id] {
			t.Fatalf("duplicate call id %q", id)
		}
		seen[id] = true
	}
}
