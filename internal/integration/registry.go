package integration

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the running integration instances by name.
type Registry struct {
	instances map[string]Integration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty integration instance registry
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]Integration),
	}
}

// Register adds an instance. Empty and duplicate names are rejected.
func (r *Registry) Register(name string, instance Integration) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("instance %q is already registered", name)
	}

	r.instances[name] = instance
	return nil
}

// Get returns the instance registered under name.
func (r *Registry) Get(name string) (Integration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, exists := r.instances[name]
	return instance, exists
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Remove deletes name and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.instances[name]
	if exists {
		delete(r.instances, name)
	}

	return exists
}
