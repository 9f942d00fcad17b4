package routing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jcanyelles/mosaic/internal/domain"
)

type compiledRoute struct {
	meta    *CompiledMeta
	method  string
	handler domain.Handler
}

type nestedMount struct {
	prefix string
	meta   *CompiledMeta
	child  *Router
}

// Router dispatches requests over a table of compiled routes and nested
// mounts. Mounts are always evaluated before local routes; both tables are
// kept in a stable priority-descending order that is recomputed lazily,
// exactly once after a mutation.
type Router struct {
	mu sync.RWMutex

	routes map[string][]*compiledRoute // keyed by method, registration order
	mounts []*nestedMount

	// memoized sorted views; nil means dirty
	sortedRoutes map[string][]*compiledRoute
	sortedMounts []*nestedMount
}

func NewRouter() *Router {
	return &Router{
		routes:       make(map[string][]*compiledRoute),
		sortedRoutes: make(map[string][]*compiledRoute),
	}
}

// Add registers a handler for one method and template and invalidates the
// method's sorted view.
func (r *Router) Add(method, template string, handler domain.Handler) {
	meta := Compile(template)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[method] = append(r.routes[method], &compiledRoute{
		meta:    meta,
		method:  method,
		handler: handler,
	})
	r.sortedRoutes[method] = nil
}

// Use registers the handler under every supported method.
func (r *Router) Use(template string, handler domain.Handler) {
	for _, method := range domain.Methods {
		r.Add(method, template, handler)
	}
}

// Mount attaches a child router under a prefix. The prefix may itself carry
// parameter segments; their bindings are merged into requests descending
// into the child.
func (r *Router) Mount(prefix string, child *Router) {
	prefix = normalizePrefix(prefix)
	meta := Compile(prefix)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounts = append(r.mounts, &nestedMount{prefix: prefix, meta: meta, child: child})
	r.sortedMounts = nil
}

// Discard removes routes by exact template. Without a method it drops any
// mount registered under that exact prefix and any route with that template
// regardless of method; with a method it drops only the template+method
// pair.
func (r *Router) Discard(templateOrPrefix string, method ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(method) > 0 {
		r.discardRoute(templateOrPrefix, method[0])
		return
	}

	prefix := normalizePrefix(templateOrPrefix)
	kept := r.mounts[:0]
	for _, m := range r.mounts {
		if m.prefix == prefix {
			r.sortedMounts = nil
			continue
		}
		kept = append(kept, m)
	}
	r.mounts = kept

	for m := range r.routes {
		r.discardRoute(templateOrPrefix, m)
	}
}

func (r *Router) discardRoute(template, method string) {
	kept := r.routes[method][:0]
	for _, route := range r.routes[method] {
		if route.meta.Template == template {
			r.sortedRoutes[method] = nil
			continue
		}
		kept = append(kept, route)
	}
	r.routes[method] = kept
}

// Reset atomically drops every route and mount. Requests arriving after a
// reset fail with RouteNotFound instead of reaching a torn-down handler.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = make(map[string][]*compiledRoute)
	r.mounts = nil
	r.sortedRoutes = make(map[string][]*compiledRoute)
	r.sortedMounts = nil
}

// Handle resolves a request: nested mounts first in priority order, then
// local routes for the request's method. The first structural match wins;
// ties fall back to registration order.
func (r *Router) Handle(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	path := normalizePath(req.Path)

	for _, m := range r.mountView() {
		params, rest, ok := m.meta.MatchPrefix(path)
		if !ok {
			continue
		}
		return m.child.Handle(ctx, req.WithPath(rest, params))
	}

	for _, route := range r.routeView(req.Method) {
		params, ok := route.meta.MatchRoute(path)
		if !ok {
			continue
		}
		return route.handler(ctx, req.WithPath(path, params))
	}

	return nil, &domain.RouteNotFoundError{Method: req.Method, Path: path}
}

// mountView returns the priority-sorted mount table, re-sorting at most
// once after a mutation. The returned slice is never mutated in place, so a
// single Handle call observes one consistent snapshot.
func (r *Router) mountView() []*nestedMount {
	r.mu.RLock()
	view := r.sortedMounts
	empty := len(r.mounts) == 0
	r.mu.RUnlock()
	if view != nil || empty {
		return view
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sortedMounts == nil {
		view = make([]*nestedMount, len(r.mounts))
		copy(view, r.mounts)
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].meta.Priority > view[j].meta.Priority
		})
		r.sortedMounts = view
	}
	return r.sortedMounts
}

func (r *Router) routeView(method string) []*compiledRoute {
	r.mu.RLock()
	view := r.sortedRoutes[method]
	empty := len(r.routes[method]) == 0
	r.mu.RUnlock()
	if view != nil || empty {
		return view
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sortedRoutes[method] == nil {
		view = make([]*compiledRoute, len(r.routes[method]))
		copy(view, r.routes[method])
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].meta.Priority > view[j].meta.Priority
		})
		r.sortedRoutes[method] = view
	}
	return r.sortedRoutes[method]
}

// normalizePath collapses a single trailing slash and guarantees a leading
// one; "/" stays "/".
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	p = strings.TrimSuffix(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func normalizePrefix(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}
