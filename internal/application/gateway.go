package application

import (
	"context"
	"strings"

	"github.com/jcanyelles/mosaic/internal/domain"
)

// DefaultGatewayKey is used when a gateway's creator does not supply an
// explicit key.
const DefaultGatewayKey = "default"

// Selector reads the target service name off an inbound request.
type Selector func(req *domain.Request) string

// PathParamSelector picks the service name from a bound path parameter,
// conventionally the first segment of the gateway's own route.
func PathParamSelector(param string) Selector {
	return func(req *domain.Request) string {
		return req.Params[param]
	}
}

// QuerySelector picks the service name from a query parameter.
func QuerySelector(key string) Selector {
	return func(req *domain.Request) string {
		return req.Query.Get(key)
	}
}

// Gateway is a keyed, allow-listed entry point into the registry. Gateways
// sharing a key share one allow-list; gateways with distinct keys are fully
// isolated from each other.
type Gateway struct {
	registry *Registry
	key      string
	selector Selector
	basePath string
}

type GatewayOption func(*Gateway)

// WithBasePath sets the prefix the gateway strips before computing the
// service-relative path, e.g. "/api".
func WithBasePath(base string) GatewayOption {
	return func(g *Gateway) {
		g.basePath = strings.TrimSuffix(base, "/")
	}
}

func NewGateway(registry *Registry, key string, selector Selector, opts ...GatewayOption) *Gateway {
	if key == "" {
		key = DefaultGatewayKey
	}
	g := &Gateway{
		registry: registry,
		key:      key,
		selector: selector,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key returns the gateway's allow-list key.
func (g *Gateway) Key() string { return g.key }

// Access replaces the allow-list for this gateway's key.
func (g *Gateway) Access(names ...string) {
	g.registry.SetAccess(g.key, names...)
}

// Dispatch resolves the target service, enforces the allow-list, rewrites
// the request to be service-relative and hands it to the service's route
// tree. Handler errors that are not part of the routing taxonomy propagate
// unchanged to the transport adapter.
func (g *Gateway) Dispatch(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	name := g.selector(req)
	if name == "" || !g.registry.Allowed(g.key, name) {
		return nil, &domain.ForbiddenError{Service: name}
	}

	desc, ok := g.registry.Service(name)
	if !ok || desc.Tree == nil {
		return nil, &domain.ServiceUnavailableError{Service: name}
	}

	return desc.Tree.Dispatch(ctx, g.serviceRelative(req, name))
}

// serviceRelative strips the gateway's base path and the service name
// segment off the inbound path; whatever remains (defaulting to "/") is the
// path the service's own route tree resolves.
func (g *Gateway) serviceRelative(req *domain.Request, name string) *domain.Request {
	path := req.Path
	if g.basePath != "" {
		path = strings.TrimPrefix(path, g.basePath)
	}
	path = strings.TrimPrefix(path, "/"+name)
	if path == "" {
		path = "/"
	}
	return req.WithPath(path, nil)
}
