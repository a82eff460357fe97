package backends

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs a backend instance from its resolved configuration.
type Factory func(cfg Config) (Backend, error)

// Registry maps dotted BACKEND identifiers to factories. It replaces the
// dynamic import-by-string resolution of the original configuration scheme
// with an explicit mapping populated at wiring time.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under a dotted identifier. Duplicate identifiers
// return an error.
func (r *Registry) Register(identifier string, factory Factory) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return fmt.Errorf("backends: identifier is required")
	}
	if factory == nil {
		return fmt.Errorf("backends: factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[identifier]; exists {
		return fmt.Errorf("backends: %q already registered", identifier)
	}

	r.factories[identifier] = factory
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(identifier string, factory Factory) {
	if err := r.Register(identifier, factory); err != nil {
		panic(err)
	}
}

// Resolve retrieves the factory registered under an identifier.
func (r *Registry) Resolve(identifier string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[identifier]
	if !ok {
		return nil, fmt.Errorf("backends: %q is not a registered backend", identifier)
	}
	return factory, nil
}

// List returns a sorted list of registered identifiers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identifiers := make([]string, 0, len(r.factories))
	for identifier := range r.factories {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

// Has reports whether an identifier is registered.
func (r *Registry) Has(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[identifier]
	return ok
}
