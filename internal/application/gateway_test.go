package application

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/jcanyelles/mosaic/internal/domain"
	"github.com/jcanyelles/mosaic/internal/routing"
)

func gatewayRequest(service, rest string) *domain.Request {
	path := "/api/" + service + rest
	return &domain.Request{
		Method:       http.MethodGet,
		Path:         path,
		OriginalPath: path,
		Params:       map[string]string{"service": service},
	}
}

func loadRouterService(t *testing.T, registry *Registry, name string, routes map[string]string) {
	t.Helper()
	router := routing.NewRouter()
	for template, tag := range routes {
		router.Add(http.MethodGet, template, okHandler(tag))
	}
	desc := &domain.ServiceDescriptor{Name: name, Tree: domain.TreeRouter(router)}
	if _, err := registry.Load(context.Background(), desc); err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
}

func TestGateway_Dispatch(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{
		"/":     "users-root",
		"/[id]": "users-one",
	})

	gw := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	gw.Access("users")

	tests := []struct {
		rest string
		want string
	}{
		{"", "users-root"},
		{"/", "users-root"},
		{"/42", "users-one"},
	}

	for _, tt := range tests {
		resp, err := gw.Dispatch(context.Background(), gatewayRequest("users", tt.rest))
		if err != nil {
			t.Fatalf("dispatch %q: %v", tt.rest, err)
		}
		if string(resp.Body) != tt.want {
			t.Errorf("dispatch %q routed to %q, want %q", tt.rest, resp.Body, tt.want)
		}
	}
}

func TestGateway_ForbiddenOffAllowList(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{"/": "users"})

	gw := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))

	_, err := gw.Dispatch(context.Background(), gatewayRequest("users", "/"))
	var forbidden *domain.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestGateway_AccessReplaces(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{"/": "users"})
	loadRouterService(t, registry, "orders", map[string]string{"/": "orders"})

	gw := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	gw.Access("users", "orders")
	gw.Access("orders")

	if _, err := gw.Dispatch(context.Background(), gatewayRequest("users", "/")); err == nil {
		t.Error("access() must replace the allow-list, not append to it")
	}
	if _, err := gw.Dispatch(context.Background(), gatewayRequest("orders", "/")); err != nil {
		t.Errorf("orders should remain allowed: %v", err)
	}
}

func TestGateway_KeysAreIsolated(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{"/": "users"})
	loadRouterService(t, registry, "admin", map[string]string{"/": "admin"})

	public := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	internal := NewGateway(registry, "internal", PathParamSelector("service"), WithBasePath("/api"))
	public.Access("users")
	internal.Access("admin")

	if _, err := public.Dispatch(context.Background(), gatewayRequest("admin", "/")); err == nil {
		t.Error("admin must be forbidden on the public gateway")
	}
	if _, err := internal.Dispatch(context.Background(), gatewayRequest("users", "/")); err == nil {
		t.Error("users must be forbidden on the internal gateway")
	}
}

func TestGateway_SameKeyReattaches(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{"/": "users"})

	first := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	first.Access("users")

	// a gateway re-created after a reload shares the key's allow-list
	second := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	if _, err := second.Dispatch(context.Background(), gatewayRequest("users", "/")); err != nil {
		t.Errorf("re-created gateway should reattach to the allow-list: %v", err)
	}
}

func TestGateway_ServiceUnavailable(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	if _, err := registry.Load(ctx, &domain.ServiceDescriptor{Name: "headless"}); err != nil {
		t.Fatal(err)
	}

	gw := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	gw.Access("headless")

	_, err := gw.Dispatch(ctx, gatewayRequest("headless", "/"))
	var unavailable *domain.ServiceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ServiceUnavailableError, got %v", err)
	}
}

func TestGateway_MethodMapTree(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	desc := &domain.ServiceDescriptor{
		Name: "ping",
		Tree: domain.TreeMethodMap(map[string]domain.Handler{
			http.MethodGet: okHandler("pong"),
		}),
	}
	if _, err := registry.Load(ctx, desc); err != nil {
		t.Fatal(err)
	}

	gw := NewGateway(registry, "public", PathParamSelector("service"), WithBasePath("/api"))
	gw.Access("ping")

	resp, err := gw.Dispatch(ctx, gatewayRequest("ping", "/"))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "pong" {
		t.Errorf("unexpected body %q", resp.Body)
	}

	post := gatewayRequest("ping", "/")
	post.Method = http.MethodPost
	_, err = gw.Dispatch(ctx, post)
	var notAllowed *domain.MethodNotAllowedError
	if !errors.As(err, &notAllowed) {
		t.Fatalf("expected MethodNotAllowedError, got %v", err)
	}
}

func TestGateway_QuerySelector(t *testing.T) {
	registry := NewRegistry()
	loadRouterService(t, registry, "users", map[string]string{"/": "users"})

	gw := NewGateway(registry, "q", QuerySelector("svc"))
	gw.Access("users")

	req := &domain.Request{
		Method: http.MethodGet,
		Path:   "/users",
		Query:  url.Values{"svc": {"users"}},
	}
	resp, err := gw.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "users" {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestGateway_DefaultKey(t *testing.T) {
	registry := NewRegistry()
	gw := NewGateway(registry, "", PathParamSelector("service"))
	if gw.Key() != DefaultGatewayKey {
		t.Errorf("empty key should fall back to %q, got %q", DefaultGatewayKey, gw.Key())
	}
}
