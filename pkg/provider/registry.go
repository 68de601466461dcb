package provider

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Factory constructs a provider instance. Factories run lazily on first
// Resolve, so expensive setup (credential exchange, connection pools) is
// deferred until the provider is actually used.
type Factory func(ctx context.Context) (Provider, error)

// Registry maps provider identifiers to factories and caches resolved
// instances. Construct one per application; there is no package-level
// default.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// Register adds a factory under the given identifier. Registering the same
// identifier twice is an error so wiring mistakes surface at startup.
func (r *Registry) Register(id string, factory Factory) error {
	if factory == nil {
		return ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, id)
	}
	r.factories[id] = factory
	return nil
}

// Resolve returns the provider registered under id, constructing it on
// first use and caching the instance. Concurrent resolves of the same id
// may race the factory; the first stored instance wins.
func (r *Registry) Resolve(ctx context.Context, id string) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.instances[id]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}

	p, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to construct provider %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.instances[id]; ok {
		return cached, nil
	}
	r.instances[id] = p
	return p, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for id := range r.factories {
		names = append(names, id)
	}
	slices.Sort(names)
	return names
}
