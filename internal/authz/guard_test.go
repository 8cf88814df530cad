package authz

import (
	"strings"
	"testing"
	"time"

	"github.com/flemzord/toolgate/internal/grant"
	"github.com/flemzord/toolgate/internal/tool"
)

func writeInput(path string) Input {
	return Input{
		Path:         path,
		WorkingDir:   "/workspace/x",
		SessionID:    "sess",
		OperationKey: "file_operations.create_file",
		Capability:   tool.CapabilityWrite,
	}
}

func TestGuard_UserInitiatedAlwaysAllowed(t *testing.T) {
	t.Parallel()

	g := NewGuard(grant.NewStore())
	in := writeInput("/etc/config.txt")
	in.UserInitiated = true

	d := g.Decide(in)
	if !d.Allowed {
		t.Errorf("Decide: got denied (%s), want allowed for user-initiated call", d.Reason)
	}
}

func TestGuard_InsideWorkingDirectory(t *testing.T) {
	t.Parallel()

	g := NewGuard(grant.NewStore())

	tests := []struct {
		path string
		want bool
	}{
		{"/workspace/x/a.txt", true},
		{"/workspace/x", true},
		{"/workspace/x/sub/dir/b.txt", true},
		{"/workspace/x/../x/c.txt", true},
		{"/workspace/x-evil/a.txt", false},
		{"/workspace/x/../y/a.txt", false},
		{"/etc/config.txt", false},
	}
	for _, tt := range tests {
		d := g.Decide(writeInput(tt.path))
		if d.Allowed != tt.want {
			t.Errorf("Decide(%q): got allowed=%v (%s), want %v", tt.path, d.Allowed, d.Reason, tt.want)
		}
	}
}

// Read and search operations never consult the grant store, even for paths
// far outside the boundary.
func TestGuard_ReadAndSearchBypass(t *testing.T) {
	t.Parallel()

	// A nil-free store that would panic if consulted is not constructible;
	// instead verify that no one-time grant is consumed by a read decision.
	store := grant.NewStore()
	store.Grant("sess", "file_operations.read_file", time.Minute, true)
	g := NewGuard(store)

	in := Input{
		Path:         "/etc/passwd",
		WorkingDir:   "/workspace/x",
		SessionID:    "sess",
		OperationKey: "file_operations.read_file",
		Capability:   tool.CapabilityRead,
	}
	if d := g.Decide(in); !d.Allowed {
		t.Fatalf("Decide: read got denied (%s)", d.Reason)
	}

	// The one-time grant must still be there: the read path never touched it.
	if !store.IsActive("sess", "file_operations.read_file") {
		t.Error("read decision consumed a grant; reads must bypass the store")
	}

	in.Capability = tool.CapabilitySearch
	in.OperationKey = "file_operations.grep_search"
	if d := g.Decide(in); !d.Allowed {
		t.Errorf("Decide: search got denied (%s)", d.Reason)
	}
}

func TestGuard_GrantSatisfiesOutsideWrite(t *testing.T) {
	t.Parallel()

	store := grant.NewStore()
	g := NewGuard(store)

	in := writeInput("/etc/config.txt")
	if d := g.Decide(in); d.Allowed {
		t.Fatal("Decide: outside write allowed without a grant")
	}

	store.Grant("sess", "file_operations.create_file", time.Minute, true)
	d := g.Decide(in)
	if !d.Allowed {
		t.Fatalf("Decide: got denied (%s), want allowed via grant", d.Reason)
	}
	if d.Reason != "previously authorized" {
		t.Errorf("Reason: got %q, want %q", d.Reason, "previously authorized")
	}

	// The one-time grant was consumed by the allowed decision.
	if d := g.Decide(in); d.Allowed {
		t.Error("Decide: second write allowed, want denial after one-time grant consumption")
	}
}

func TestGuard_DenialNamesPathAndBoundary(t *testing.T) {
	t.Parallel()

	g := NewGuard(grant.NewStore())
	d := g.Decide(writeInput("/etc/config.txt"))
	if d.Allowed {
		t.Fatal("Decide: got allowed, want denial")
	}
	if !strings.Contains(d.Reason, "/etc/config.txt") || !strings.Contains(d.Reason, "/workspace/x") {
		t.Errorf("Reason must name the path and the boundary, got %q", d.Reason)
	}
}

func TestGuard_WriteWithoutPathAllowed(t *testing.T) {
	t.Parallel()

	g := NewGuard(grant.NewStore())
	in := writeInput("")
	if d := g.Decide(in); !d.Allowed {
		t.Errorf("Decide: got denied (%s), want allowed for pathless write", d.Reason)
	}
}
