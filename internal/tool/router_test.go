package tool

import (
	"errors"
	"testing"
)

func consolidatedFixture(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	err := r.Register(&Tool{
		Descriptor: Descriptor{
			Name:         "file_operations",
			Capability:   CapabilityWrite,
			Consolidated: true,
		},
		Operations: []Operation{
			{Name: "read_file", Capability: CapabilityRead, PathArg: "path", Handler: noopHandler},
			{Name: "create_file", Capability: CapabilityWrite, PathArg: "path", Handler: noopHandler},
			{Name: "file_search", Capability: CapabilitySearch, Handler: noopHandler},
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(simpleTool("echo")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, base, op string
	}{
		{"file_operations.create_file", "file_operations", "create_file"},
		{"echo", "echo", ""},
		{"a.b.c", "a", "b.c"},
	}
	for _, tt := range tests {
		base, op := SplitName(tt.in)
		if base != tt.base || op != tt.op {
			t.Errorf("SplitName(%q): got (%q, %q), want (%q, %q)", tt.in, base, op, tt.base, tt.op)
		}
	}
}

func TestRouter_ResolvesDeclaredOperation(t *testing.T) {
	t.Parallel()

	router := NewRouter(consolidatedFixture(t))
	rt, err := router.Resolve("file_operations", "create_file")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rt.Capability != CapabilityWrite {
		t.Errorf("Capability: got %q, want %q", rt.Capability, CapabilityWrite)
	}
	if rt.PathArg() != "path" {
		t.Errorf("PathArg: got %q, want %q", rt.PathArg(), "path")
	}
	if rt.Handler() == nil {
		t.Error("Handler: got nil")
	}
}

func TestRouter_UnknownOperationIsValidationError(t *testing.T) {
	t.Parallel()

	router := NewRouter(consolidatedFixture(t))
	_, err := router.Resolve("file_operations", "format_disk")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Resolve: got %v, want ErrUnknownOperation", err)
	}
}

func TestRouter_MissingOperation(t *testing.T) {
	t.Parallel()

	router := NewRouter(consolidatedFixture(t))
	_, err := router.Resolve("file_operations", "")
	if !errors.Is(err, ErrMissingOperation) {
		t.Errorf("Resolve: got %v, want ErrMissingOperation", err)
	}
}

func TestRouter_OperationOnSimpleTool(t *testing.T) {
	t.Parallel()

	router := NewRouter(consolidatedFixture(t))
	_, err := router.Resolve("echo", "anything")
	if !errors.Is(err, ErrNotConsolidated) {
		t.Errorf("Resolve: got %v, want ErrNotConsolidated", err)
	}
}

func TestRouter_UnknownTool(t *testing.T) {
	t.Parallel()

	router := NewRouter(consolidatedFixture(t))
	_, err := router.Resolve("ghost", "")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Resolve: got %v, want ErrToolNotFound", err)
	}
}

func TestOperationKey(t *testing.T) {
	t.Parallel()

	if got := OperationKey("file_operations", "create_file"); got != "file_operations.create_file" {
		t.Errorf("OperationKey: got %q", got)
	}
	if got := OperationKey("echo", ""); got != "echo" {
		t.Errorf("OperationKey: got %q", got)
	}
}
