package tool

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds registered tools in insertion order. Order is significant:
// the tool list is rendered into the calling agent's prompt, and a stable
// order keeps prompt prefixes cache-friendly across turns.
// It is instance-based (not global) for better testability.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry. The descriptor is validated:
// non-empty name, declared capability, a handler for simple tools, and at
// least one operation (each with a handler) for consolidated tools.
func (r *Registry) Register(t *Tool) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyToolName
	}
	if t.Capability == "" {
		return fmt.Errorf("%w: %s", ErrNoCapability, name)
	}
	if t.Consolidated {
		if len(t.Operations) == 0 {
			return fmt.Errorf("%w: %s", ErrNoOperations, name)
		}
		for _, op := range t.Operations {
			if op.Handler == nil {
				return fmt.Errorf("%w: %s.%s", ErrMissingHandler, name, op.Name)
			}
			if op.Capability == "" {
				return fmt.Errorf("%w: %s.%s", ErrNoCapability, name, op.Name)
			}
		}
	} else if t.Execute == nil {
		return fmt.Errorf("%w: %s", ErrMissingHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	t.Name = name
	r.order = append(r.order, name)
	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Descriptors returns all registered tool descriptors in insertion order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		descriptors = append(descriptors, r.tools[name].Descriptor)
	}
	return descriptors
}

// Names returns all registered tool names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
