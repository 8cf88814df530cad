package tool

import (
	"fmt"
	"strings"
)

// SplitName splits a dotted tool name ("facade.operation") into a base tool
// name and an operation. A name without a dot returns an empty operation.
func SplitName(name string) (base, operation string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// OperationKey builds the grant/authorization key for a tool operation,
// e.g. "file_operations.create_file". Simple tools use their bare name.
func OperationKey(toolName, operation string) string {
	if operation == "" {
		return toolName
	}
	return toolName + "." + operation
}

// Route describes a resolved dispatch target: the tool, the operation (for
// consolidated tools), and the effective capability.
type Route struct {
	Tool       *Tool
	Op         Operation
	HasOp      bool
	Capability Capability
}

// Handler returns the handler that executes this route.
func (rt Route) Handler() Handler {
	if rt.HasOp {
		return rt.Op.Handler
	}
	return rt.Tool.Execute
}

// PathArg returns the name of the argument carrying a filesystem path for
// this route, or "" when none is declared.
func (rt Route) PathArg() string {
	if rt.HasOp {
		return rt.Op.PathArg
	}
	return ""
}

// Router resolves (tool, operation) pairs against a registry. It validates
// the operation against the facade's declared set; unsupported values are a
// validation error, not a fallback.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Resolve looks up the tool and, for consolidated tools, the operation.
func (r *Router) Resolve(toolName, operation string) (Route, error) {
	t, err := r.registry.Get(toolName)
	if err != nil {
		return Route{}, err
	}

	if !t.Consolidated {
		if operation != "" {
			return Route{}, fmt.Errorf("%w: %s", ErrNotConsolidated, toolName)
		}
		return Route{Tool: t, Capability: t.Capability}, nil
	}

	if operation == "" {
		return Route{}, fmt.Errorf("%w: %s", ErrMissingOperation, toolName)
	}
	op, ok := t.Operation(operation)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s.%s (supported: %s)",
			ErrUnknownOperation, toolName, operation, strings.Join(t.OperationNames(), ", "))
	}
	return Route{Tool: t, Op: op, HasOp: true, Capability: op.Capability}, nil
}
