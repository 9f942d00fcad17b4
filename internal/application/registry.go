// Package application holds the service registry, the gateways that expose
// allow-listed slices of it, and the reload protocol that swaps a service's
// routes without serving stale handlers mid-transition.
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jcanyelles/mosaic/internal/domain"
)

// Registry is the process-wide table of committed services. It is built
// once at boot, injected by reference into every gateway that needs it, and
// rebuilt from scratch on restart; nothing is persisted.
type Registry struct {
	mu         sync.Mutex
	services   map[string]*domain.ServiceDescriptor
	inFlight   map[string]*inFlightLoad
	allowLists map[string]map[string]struct{}
	logger     *slog.Logger
}

// inFlightLoad deduplicates concurrent loads of one name: the first caller
// runs the load, everyone else waits on done and shares the same result.
type inFlightLoad struct {
	done chan struct{}
	desc *domain.ServiceDescriptor
	err  error
}

func NewRegistry() *Registry {
	return &Registry{
		services:   make(map[string]*domain.ServiceDescriptor),
		inFlight:   make(map[string]*inFlightLoad),
		allowLists: make(map[string]map[string]struct{}),
		logger:     slog.Default(),
	}
}

// Service returns the committed descriptor for a name, if any.
func (r *Registry) Service(name string) (*domain.ServiceDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.services[name]
	return desc, ok
}

// Services returns the names of every committed service.
func (r *Registry) Services() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	return names
}

// Internal calls a service's local handler directly, bypassing routing.
func (r *Registry) Internal(ctx context.Context, name string, args ...any) (any, error) {
	r.mu.Lock()
	desc, ok := r.services[name]
	r.mu.Unlock()

	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	if desc.Local == nil {
		return nil, domain.ErrNoLocalHandler
	}
	return desc.Local(ctx, args...)
}

// SetAccess replaces the allow-list stored under a gateway key. The set is
// shared by every gateway created with that key, so a gateway re-created
// across a reload reattaches to the same allow-list.
func (r *Registry) SetAccess(key string, names ...string) {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowLists[key] = set
}

// Allowed reports whether a gateway key may reach a service.
func (r *Registry) Allowed(key, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.allowLists[key][name]
	return ok
}

// Access returns the service names currently allowed for a gateway key.
func (r *Registry) Access(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.allowLists[key]))
	for name := range r.allowLists[key] {
		names = append(names, name)
	}
	return names
}
