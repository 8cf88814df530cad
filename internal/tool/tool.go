// Package tool defines tool descriptors, the registry, and the operation
// router for toolgate. Tools are the primary security boundary: every action
// an agent takes goes through a registered tool, and every write operation
// passes the authorization guard before it runs.
package tool

import (
	"context"
	"encoding/json"
)

// Capability declares what kind of access an operation requires.
// It drives the authorization decision: only write operations are
// checked against the working-directory boundary.
type Capability string

// Capability values.
const (
	CapabilityRead     Capability = "read"
	CapabilityWrite    Capability = "write"
	CapabilitySearch   Capability = "search"
	CapabilityBlocking Capability = "blocking"
)

// CallContext identifies the conversation and trust level of a tool call.
type CallContext struct {
	// CallID is the unique identifier of this tool call, used to correlate
	// collaboration requests with their responses.
	CallID string

	// SessionID is the conversation-scoped session identifier. Grants and
	// PTY sessions are keyed by it.
	SessionID string

	// WorkingDir is the trust boundary for path-based authorization.
	WorkingDir string

	// UserInitiated marks calls triggered directly by a human. They bypass
	// the authorization guard entirely.
	UserInitiated bool
}

// Output is the result of a tool execution.
type Output struct {
	// Content is the output text from the tool.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}

// Handler executes a single operation with parsed arguments.
type Handler func(ctx context.Context, args map[string]any, call CallContext) (Output, error)

// Operation describes one operation of a consolidated tool.
type Operation struct {
	// Name is the operation identifier (e.g. "create_session").
	Name string

	// Capability classifies the operation for the authorization guard.
	Capability Capability

	// PathArg names the argument carrying a filesystem path, or "" when the
	// operation does not touch the filesystem. The guard resolves this
	// argument against the working-directory boundary.
	PathArg string

	// Handler runs the operation.
	Handler Handler
}

// Descriptor is the immutable metadata of a registered tool.
type Descriptor struct {
	// Name is the unique tool identifier.
	Name string

	// Description is a human-readable summary of what the tool does.
	Description string

	// Schema is a JSON Schema describing the tool's parameters.
	Schema json.RawMessage

	// Capability is the tool-level access class. For consolidated tools it
	// is advisory; the per-operation capability is authoritative.
	Capability Capability

	// Consolidated marks tools that fan out to sub-operations via an
	// "operation" argument.
	Consolidated bool
}

// Tool couples a descriptor with its implementation. Simple tools set
// Execute; consolidated tools declare Operations and leave Execute nil.
type Tool struct {
	Descriptor

	// Execute runs a simple (non-consolidated) tool.
	Execute Handler

	// Operations lists the sub-operations of a consolidated tool, in
	// declaration order.
	Operations []Operation
}

// Operation returns the named sub-operation, or false if the tool does not
// declare it.
func (t *Tool) Operation(name string) (Operation, bool) {
	for _, op := range t.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// OperationNames returns the declared operation names in declaration order.
func (t *Tool) OperationNames() []string {
	names := make([]string, 0, len(t.Operations))
	for _, op := range t.Operations {
		names = append(names, op.Name)
	}
	return names
}
