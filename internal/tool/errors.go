package tool

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrNoCapability is returned when a tool declares no capability.
	ErrNoCapability = errors.New("tool must declare a capability")

	// ErrNoOperations is returned when a consolidated tool declares no
	// sub-operations.
	ErrNoOperations = errors.New("consolidated tool must declare operations")

	// ErrMissingHandler is returned when a simple tool has no Execute
	// handler or an operation has no handler.
	ErrMissingHandler = errors.New("tool handler must not be nil")

	// ErrUnknownOperation is returned when a consolidated tool is invoked
	// with an operation it does not declare. This is a validation error,
	// never a routing fallback.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNotConsolidated is returned when an operation is supplied for a
	// tool that does not fan out to sub-operations.
	ErrNotConsolidated = errors.New("tool has no operations")

	// ErrMissingOperation is returned when a consolidated tool is invoked
	// without an operation.
	ErrMissingOperation = errors.New("operation argument required")
)
