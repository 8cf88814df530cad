// Package authz implements the path-based authorization guard. The working
// directory is the trust boundary: write operations targeting paths inside
// it run without consent, everything else needs an active grant or a human
// approval round-trip.
package authz

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flemzord/toolgate/internal/grant"
	"github.com/flemzord/toolgate/internal/tool"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	// Allowed is true when the operation may run now.
	Allowed bool

	// Reason explains the decision. For denials it names the offending
	// path and the boundary, phrased so the agent can act on it.
	Reason string
}

// Input carries everything the guard needs for one decision.
type Input struct {
	// Path is the filesystem path the operation targets. Empty when the
	// operation declares no path argument.
	Path string

	// WorkingDir is the session's trust boundary.
	WorkingDir string

	// SessionID keys grant lookups.
	SessionID string

	// OperationKey is the dotted operation identifier
	// (e.g. "file_operations.create_file").
	OperationKey string

	// UserInitiated marks calls triggered directly by a human.
	UserInitiated bool

	// Capability classifies the operation.
	Capability tool.Capability
}

// Guard is a stateless policy evaluator over a grant store.
type Guard struct {
	grants *grant.Store
}

// NewGuard creates a guard consulting the given grant store.
func NewGuard(grants *grant.Store) *Guard {
	return &Guard{grants: grants}
}

// Decide evaluates one operation.
//
// Read and search operations bypass the guard entirely, regardless of path.
// This is an intentional policy choice favoring ergonomics over strict
// least-privilege for read access, preserved from the originating system;
// narrowing it would change observable behavior.
func (g *Guard) Decide(in Input) Decision {
	if in.UserInitiated {
		return Decision{Allowed: true, Reason: "user-initiated"}
	}

	switch in.Capability {
	case tool.CapabilityRead, tool.CapabilitySearch:
		return Decision{Allowed: true, Reason: "read access is not path-restricted"}
	}

	if in.Path == "" {
		// Write operations without a path argument (e.g. resizing a
		// terminal session) have nothing to compare against the boundary.
		return Decision{Allowed: true, Reason: "no filesystem target"}
	}

	if insideBoundary(in.Path, in.WorkingDir) {
		return Decision{Allowed: true, Reason: "inside working directory"}
	}

	if g.grants.IsActive(in.SessionID, in.OperationKey) {
		return Decision{Allowed: true, Reason: "previously authorized"}
	}

	return Decision{
		Allowed: false,
		Reason: fmt.Sprintf(
			"%s targets %q, which is outside the working directory %q; ask the user for permission to proceed",
			in.OperationKey, in.Path, in.WorkingDir),
	}
}

// insideBoundary reports whether path is equal to, or a descendant of,
// workingDir after both are made absolute and cleaned. Prefix comparison is
// separator-aware so /workspace-evil does not pass for /workspace.
func insideBoundary(path, workingDir string) bool {
	if workingDir == "" {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(workingDir)
	if err != nil {
		return false
	}
	if absPath == absDir {
		return true
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator))
}
