// Package system is the built-in introspection service every mosaic binary
// ships with: it reports uptime, the committed service list and the routes
// reachable through the gateway.
package system

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/jcanyelles/mosaic/internal/application"
	"github.com/jcanyelles/mosaic/internal/domain"
	"github.com/jcanyelles/mosaic/internal/respond"
	"github.com/jcanyelles/mosaic/internal/routing"
)

const Name = "system"

type info struct {
	Version  string   `json:"version"`
	Uptime   string   `json:"uptime"`
	Services []string `json:"services"`
}

// Provider builds the system service descriptor. The registry handle is
// captured, not copied: the service always reports live state.
func Provider(registry *application.Registry, version string, start time.Time) application.Provider {
	return func() *domain.ServiceDescriptor {
		router := routing.NewRouter()

		router.Add(http.MethodGet, "/", func(context.Context, *domain.Request) (*domain.Response, error) {
			return respond.JSON(http.StatusOK, info{
				Version:  version,
				Uptime:   time.Since(start).Truncate(time.Second).String(),
				Services: sortedServices(registry),
			})
		})

		router.Add(http.MethodGet, "/services", func(context.Context, *domain.Request) (*domain.Response, error) {
			return respond.JSON(http.StatusOK, map[string][]string{
				"services": sortedServices(registry),
			})
		})

		router.Add(http.MethodGet, "/services/[name]", func(_ context.Context, req *domain.Request) (*domain.Response, error) {
			name := req.Param("name")
			if _, ok := registry.Service(name); !ok {
				return respond.JSON(http.StatusNotFound, map[string]string{
					"error":   "unknown_service",
					"service": name,
				})
			}
			return respond.JSON(http.StatusOK, map[string]string{"service": name, "status": "loaded"})
		})

		router.Add(http.MethodGet, "/ping", func(context.Context, *domain.Request) (*domain.Response, error) {
			return respond.Text(http.StatusOK, "pong"), nil
		})

		return &domain.ServiceDescriptor{
			Name: Name,
			Tree: domain.TreeRouter(router),
			Local: func(context.Context, ...any) (any, error) {
				return sortedServices(registry), nil
			},
		}
	}
}

func sortedServices(registry *application.Registry) []string {
	names := registry.Services()
	sort.Strings(names)
	return names
}
