package storage

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gezibash/netbridge/internal/observability"
)

// Factory creates a backend of type T from a configuration map.
type Factory[T any] func(ctx context.Context, config map[string]string) (T, error)

// DefaultsFunc returns the default configuration for a backend.
type DefaultsFunc func() map[string]string

type entry[T any] struct {
	factory  Factory[T]
	defaults DefaultsFunc
}

// Registry maps backend names to factories. Backend packages register
// themselves from init so that a blank import is enough to enable them.
type Registry[T any] struct {
	kind string

	mu      sync.RWMutex
	entries map[string]entry[T]
}

// NewRegistry creates an empty registry. kind names the family of backends
// ("filesink", "offsetstore") in errors and logs.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]entry[T])}
}

// Register adds a backend factory under name.
// Panics if a backend with the same name is already registered.
func (r *Registry[T]) Register(name string, factory Factory[T], defaults DefaultsFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("%s backend %q already registered", r.kind, name))
	}
	r.entries[name] = entry[T]{factory: factory, defaults: defaults}
}

// Defaults returns the default configuration for a backend, or nil.
func (r *Registry[T]) Defaults(name string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok || e.defaults == nil {
		return nil
	}
	return e.defaults()
}

// List returns the sorted names of all registered backends.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered returns true if a backend with the given name is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// New creates a backend by name. config is merged over the backend defaults.
func (r *Registry[T]) New(ctx context.Context, name string, config map[string]string, metrics *observability.Metrics) (backend T, err error) {
	op, ctx := observability.StartOperation(ctx, metrics, r.kind+".new")
	defer func() { op.End(err) }()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		err = NewConfigError(name, "", fmt.Sprintf("unknown %s backend %q (available: %v)", r.kind, name, r.List()))
		return backend, err
	}

	var defaults map[string]string
	if e.defaults != nil {
		defaults = e.defaults()
	}

	backend, err = e.factory(ctx, MergeConfig(defaults, config))
	if err != nil {
		return backend, withBackend(name, err)
	}

	slog.DebugContext(ctx, "backend created", "kind", r.kind, "backend", name)
	return backend, nil
}
