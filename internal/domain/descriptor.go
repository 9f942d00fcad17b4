package domain

import "context"

// RouteResolver is the routing engine a service can hang its route tree on.
// It is satisfied by routing.Router; the registry only needs dispatch and
// the ability to tear the tree down during a reload.
type RouteResolver interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
	Reset()
}

// TreeKind discriminates the closed set of route tree shapes a service may
// register. The shape is resolved once at registration time, never
// re-inspected per request.
type TreeKind int

const (
	TreeKindRouter TreeKind = iota
	TreeKindHandler
	TreeKindMethodMap
)

// RouteTree is the tagged variant of a service's dispatch target: a full
// router, a single handler for every method and path, or a per-method
// handler map.
type RouteTree struct {
	kind      TreeKind
	router    RouteResolver
	handler   Handler
	methodMap map[string]Handler
}

func TreeRouter(r RouteResolver) *RouteTree {
	return &RouteTree{kind: TreeKindRouter, router: r}
}

func TreeHandler(h Handler) *RouteTree {
	return &RouteTree{kind: TreeKindHandler, handler: h}
}

func TreeMethodMap(m map[string]Handler) *RouteTree {
	return &RouteTree{kind: TreeKindMethodMap, methodMap: m}
}

func (t *RouteTree) Kind() TreeKind { return t.kind }

// Router returns the underlying resolver, or nil for non-router trees.
func (t *RouteTree) Router() RouteResolver {
	if t == nil || t.kind != TreeKindRouter {
		return nil
	}
	return t.router
}

// Dispatch routes a service-relative request through the tree.
func (t *RouteTree) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	switch t.kind {
	case TreeKindRouter:
		return t.router.Handle(ctx, req)
	case TreeKindHandler:
		return t.handler(ctx, req)
	case TreeKindMethodMap:
		h, ok := t.methodMap[req.Method]
		if !ok {
			return nil, &MethodNotAllowedError{Method: req.Method, Path: req.Path}
		}
		return h(ctx, req)
	default:
		return nil, &ServiceUnavailableError{}
	}
}

// LoadHook runs once when a service is committed to the registry.
type LoadHook func(ctx context.Context) error

// CleanupHook runs while a service is being reloaded, before its routes are
// torn down. A failing cleanup is logged and does not abort the reload.
type CleanupHook func(ctx context.Context) error

// LocalHandler is a service's in-process entry point, callable through
// Registry.Internal without touching the route tree.
type LocalHandler func(ctx context.Context, args ...any) (any, error)

// ServiceDescriptor is the named bundle a module registers: its route tree,
// lifecycle hooks and the services it must be loaded after. Identity is the
// name; a committed descriptor is never mutated, only replaced through a
// full reload.
type ServiceDescriptor struct {
	Name      string
	Tree      *RouteTree
	DependsOn []string
	OnLoad    LoadHook
	OnCleanup CleanupHook
	Local     LocalHandler
}
