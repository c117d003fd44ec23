package integration

import (
	"fmt"
	"sort"
	"sync"
)

// IntegrationFactory builds an instance from its name and the key/value
// settings produced by config.Config.Integrations.
type IntegrationFactory func(name string, settings map[string]interface{}) (Integration, error)

// FactoryRegistry maps integration types to factories. Integration packages
// register themselves from init():
//
//	func init() {
//	  integration.RegisterFactory("box", NewBoxIntegration)
//	}
type FactoryRegistry struct {
	factories map[string]IntegrationFactory
	mu        sync.RWMutex
}

var defaultRegistry = NewFactoryRegistry()

// NewFactoryRegistry creates a new empty factory registry
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{
		factories: make(map[string]IntegrationFactory),
	}
}

// Register adds a factory. Empty and duplicate types are rejected.
func (r *FactoryRegistry) Register(integrationType string, factory IntegrationFactory) error {
	if integrationType == "" {
		return fmt.Errorf("integration type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %q cannot be nil", integrationType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[integrationType]; exists {
		return fmt.Errorf("integration type %q is already registered", integrationType)
	}

	r.factories[integrationType] = factory
	return nil
}

// Get returns the factory for integrationType.
func (r *FactoryRegistry) Get(integrationType string) (IntegrationFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[integrationType]
	return factory, exists
}

// List returns the registered types, sorted.
func (r *FactoryRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	sort.Strings(types)
	return types
}

// RegisterFactory registers with the process-wide registry.
func RegisterFactory(integrationType string, factory IntegrationFactory) error {
	return defaultRegistry.Register(integrationType, factory)
}

// GetFactory looks up a factory in the process-wide registry.
func GetFactory(integrationType string) (IntegrationFactory, bool) {
	return defaultRegistry.Get(integrationType)
}

// ListFactories returns all types in the process-wide registry.
func ListFactories() []string {
	return defaultRegistry.List()
}
