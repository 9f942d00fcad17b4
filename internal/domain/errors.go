package domain

import (
	"fmt"
	"strings"
)

var (
	ErrServiceNotFound = fmt.Errorf("service not found")
	ErrNoLocalHandler  = fmt.Errorf("service has no local handler")
)

// RouteNotFoundError is returned when neither a nested mount nor a local
// route matched the request. Method and path are safe to expose.
type RouteNotFoundError struct {
	Method string
	Path   string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

// ForbiddenError is returned when the resolved service is not on the
// gateway's allow-list. It deliberately carries nothing beyond the name.
type ForbiddenError struct {
	Service string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("service %q is not accessible through this gateway", e.Service)
}

// ServiceUnavailableError is returned when a committed service has no route
// tree to dispatch into.
type ServiceUnavailableError struct {
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service %q has no route tree", e.Service)
}

// MethodNotAllowedError is returned by per-method handler maps that lack an
// entry for the request's method.
type MethodNotAllowedError struct {
	Method string
	Path   string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed for %s", e.Method, e.Path)
}

// DependencyNotFoundError is fatal at load time: a declared dependency is
// neither committed nor currently loading.
type DependencyNotFoundError struct {
	Service    string
	Dependency string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("service %q depends on %q which is not registered", e.Service, e.Dependency)
}

// CircularDependencyError is fatal at load time: the dependency chain
// re-entered a name that is already loading.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular service dependency: %s", strings.Join(e.Chain, " -> "))
}

// ServiceLoadFailedError wraps a load hook failure; the service is not
// committed and every caller awaiting the same load observes this error.
type ServiceLoadFailedError struct {
	Service string
	Err     error
}

func (e *ServiceLoadFailedError) Error() string {
	return fmt.Sprintf("service %q failed to load: %v", e.Service, e.Err)
}

func (e *ServiceLoadFailedError) Unwrap() error { return e.Err }
