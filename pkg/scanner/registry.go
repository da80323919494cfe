package scanner

import (
	"fmt"
	"sync"
)

// Registry is a name-keyed, insertion-ordered collection of scanners.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]ServiceScanner
}

// NewRegistry creates an empty scanner registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]ServiceScanner),
	}
}

// Register adds a scanner, rejecting duplicate service names.
func (r *Registry) Register(s ServiceScanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.ServiceName()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("scanner %q already registered", name)
	}
	r.byName[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns the scanner for a service name.
func (r *Registry) Get(name string) (ServiceScanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Has reports whether a service name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// GetAll returns all scanners in registration order.
func (r *Registry) GetAll() []ServiceScanner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceScanner, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// ServiceNames returns the registered names in registration order.
func (r *Registry) ServiceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
