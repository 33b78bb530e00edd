// Package memory provides in-memory storage implementations.
package memory

import (
	"sync"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// ToolRegistry is an in-memory implementation of tool.Registry keyed by
// sanitized name and ordered by first registration.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]tool.Tool
	order []string
}

// NewToolRegistry creates a registry holding the given tools.
func NewToolRegistry(tools ...tool.Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]tool.Tool)}
	for _, t := range tools {
		_ = r.Register(t)
	}
	return r
}

// Filter selects which catalog entries a registry accepts. Names in both
// lists are matched after sanitization.
type Filter struct {
	Enabled  []string
	Disabled []string
}

func (f Filter) allows(name string) bool {
	key := tool.SanitizeName(name)
	for _, d := range f.Disabled {
		if tool.SanitizeName(d) == key {
			return false
		}
	}
	if len(f.Enabled) == 0 {
		return true
	}
	for _, e := range f.Enabled {
		if tool.SanitizeName(e) == key {
			return true
		}
	}
	return false
}

// NewToolRegistryFrom registers the subset of catalog allowed by filter.
func NewToolRegistryFrom(catalog []tool.Tool, filter Filter) *ToolRegistry {
	r := NewToolRegistry()
	for _, t := range catalog {
		if t == nil || !filter.allows(t.Name()) {
			continue
		}
		_ = r.Register(t)
	}
	return r
}

// Register adds a tool, replacing an existing tool with the same sanitized
// name in place.
func (r *ToolRegistry) Register(t tool.Tool) error {
	if t == nil || t.Name() == "" {
		return tool.ErrEmptyName
	}
	key := tool.SanitizeName(t.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[key]; !exists {
		r.order = append(r.order, key)
	}
	r.tools[key] = t
	return nil
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[tool.SanitizeName(name)]
	return t, ok
}

// List returns all registered tools in registration order.
func (r *ToolRegistry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]tool.Tool, 0, len(r.order))
	for _, key := range r.order {
		tools = append(tools, r.tools[key])
	}
	return tools
}

// Names returns the sanitized names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Has checks if a tool is registered.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
