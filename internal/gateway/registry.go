package gateway

import (
	"strings"
)

// Registry maps gateway names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own name.
func (r *Registry) Register(adapter Adapter) {
	if adapter == nil {
		return
	}
	r.adapters[strings.ToLower(strings.TrimSpace(adapter.Name()))] = adapter
}

// Resolve returns the adapter for a gateway name.
func (r *Registry) Resolve(name string) (Adapter, bool) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}
