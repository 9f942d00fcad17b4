package application

import (
	"context"

	"github.com/jcanyelles/mosaic/internal/domain"
)

// Reload tears a committed service down: cleanup hook, router reset, then
// removal from the committed and in-flight tables. It is a no-op for
// unknown names. A cleanup failure is logged and does not abort the reload;
// a broken cleanup must never leave a stale service un-removable. Once the
// router is reset, requests that raced the reload fail with RouteNotFound
// instead of reaching a torn-down handler.
func (r *Registry) Reload(ctx context.Context, name string) error {
	r.mu.Lock()
	desc, ok := r.services[name]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if desc.OnCleanup != nil {
		if err := desc.OnCleanup(ctx); err != nil {
			r.logger.Warn("service cleanup failed during reload", "service", name, "error", err)
		}
	}

	if desc.Tree != nil {
		if router := desc.Tree.Router(); router != nil {
			router.Reset()
		}
	}

	r.mu.Lock()
	delete(r.services, name)
	delete(r.inFlight, name)
	r.mu.Unlock()

	r.logger.Info("service unloaded", "service", name)
	return nil
}

// ReloadController adapts the registry to the two-callback contract an
// external hot-reload trigger expects: dispose the old module, then accept
// the replacement descriptor. The trigger mechanism itself (file watcher,
// RPC, signal) lives outside this package.
type ReloadController struct {
	registry *Registry
}

func NewReloadController(registry *Registry) *ReloadController {
	return &ReloadController{registry: registry}
}

// Dispose runs the teardown half of a reload for the named service.
func (c *ReloadController) Dispose(ctx context.Context, name string) error {
	return c.registry.Reload(ctx, name)
}

// Accept registers the replacement descriptor produced by the trigger. It
// must be called after Dispose has completed for the same name.
func (c *ReloadController) Accept(ctx context.Context, desc *domain.ServiceDescriptor) (*domain.ServiceDescriptor, error) {
	return c.registry.Load(ctx, desc)
}

// Hooks returns the dispose/accept pair in closure form for triggers that
// take plain callbacks.
func (c *ReloadController) Hooks() (
	dispose func(ctx context.Context, name string) error,
	accept func(ctx context.Context, desc *domain.ServiceDescriptor) (*domain.ServiceDescriptor, error),
) {
	return c.Dispose, c.Accept
}
