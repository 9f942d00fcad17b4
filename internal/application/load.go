package application

import (
	"context"
	"slices"

	"github.com/jcanyelles/mosaic/internal/domain"
)

// loadStackKey carries the "currently loading" name stack through the
// context, so a load hook that re-enters Load (a dependency loading its own
// dependencies) is still covered by cycle detection.
type loadStackKey struct{}

func loadStack(ctx context.Context) []string {
	stack, _ := ctx.Value(loadStackKey{}).([]string)
	return stack
}

func pushLoadStack(ctx context.Context, name string) context.Context {
	stack := loadStack(ctx)
	next := make([]string, len(stack), len(stack)+1)
	copy(next, stack)
	return context.WithValue(ctx, loadStackKey{}, append(next, name))
}

// Load commits a service descriptor to the registry. Loading an
// already-committed name is a no-op that returns the committed descriptor;
// the load hook never runs twice for one name. Concurrent loads of one
// not-yet-committed name converge on a single in-flight load whose result
// (success or failure) every caller shares.
func (r *Registry) Load(ctx context.Context, desc *domain.ServiceDescriptor) (*domain.ServiceDescriptor, error) {
	name := desc.Name

	stack := loadStack(ctx)
	if slices.Contains(stack, name) {
		return nil, &domain.CircularDependencyError{Chain: append(slices.Clone(stack), name)}
	}

	r.mu.Lock()
	if committed, ok := r.services[name]; ok {
		r.mu.Unlock()
		return committed, nil
	}
	if fl, ok := r.inFlight[name]; ok {
		r.mu.Unlock()
		return r.await(ctx, fl)
	}
	fl := &inFlightLoad{done: make(chan struct{})}
	r.inFlight[name] = fl
	r.mu.Unlock()

	err := r.load(pushLoadStack(ctx, name), desc)

	r.mu.Lock()
	if err == nil {
		r.services[name] = desc
		fl.desc = desc
	}
	fl.err = err
	// a racing Reload may already have dropped the entry
	if r.inFlight[name] == fl {
		delete(r.inFlight, name)
	}
	r.mu.Unlock()
	close(fl.done)

	if err != nil {
		r.logger.Error("service load failed", "service", name, "error", err)
		return nil, err
	}

	r.logger.Info("service loaded", "service", name, "dependencies", len(desc.DependsOn))
	return desc, nil
}

// load orders the service after its dependencies and runs its load hook.
// Dependencies are never loaded on demand: each one must already be
// committed or currently in flight, otherwise the whole call fails.
func (r *Registry) load(ctx context.Context, desc *domain.ServiceDescriptor) error {
	stack := loadStack(ctx)

	for _, dep := range desc.DependsOn {
		if slices.Contains(stack, dep) {
			return &domain.CircularDependencyError{Chain: append(slices.Clone(stack), dep)}
		}

		r.mu.Lock()
		if _, ok := r.services[dep]; ok {
			r.mu.Unlock()
			continue
		}
		fl, ok := r.inFlight[dep]
		r.mu.Unlock()

		if !ok {
			return &domain.DependencyNotFoundError{Service: desc.Name, Dependency: dep}
		}
		if _, err := r.await(ctx, fl); err != nil {
			return &domain.DependencyNotFoundError{Service: desc.Name, Dependency: dep}
		}
	}

	if desc.OnLoad != nil {
		if err := desc.OnLoad(ctx); err != nil {
			return &domain.ServiceLoadFailedError{Service: desc.Name, Err: err}
		}
	}
	return nil
}

func (r *Registry) await(ctx context.Context, fl *inFlightLoad) (*domain.ServiceDescriptor, error) {
	select {
	case <-fl.done:
		return fl.desc, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
