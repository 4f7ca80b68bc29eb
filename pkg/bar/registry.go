package bar

import (
	"fmt"
	"sync"
)

// Registry holds module specs in display order. It is safe for concurrent
// use, though in practice registration happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	specs []Spec
	index map[string]int
}

// NewRegistry returns an empty registry ready for module registration.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register appends a spec to the display order. It returns an error if the
// spec has no module or a module with the same name is already registered.
func (r *Registry) Register(s Spec) error {
	if s.Module == nil {
		return fmt.Errorf("bar: spec without module")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Module.Name()
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("bar: module %q already registered", name)
	}

	r.index[name] = len(r.specs)
	r.specs = append(r.specs, s)
	return nil
}

// Get returns the spec for the named module, or false if not registered.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Specs returns the registered specs in display order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Names returns the module names in display order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Module.Name()
	}
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
