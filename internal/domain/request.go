package domain

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Handler is the leaf of every route tree: it receives a service-relative
// request and produces a response or an error.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Methods lists every HTTP method a route can be registered under.
var Methods = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodHead,
	http.MethodOptions,
}

// Request is the transport-agnostic view of an inbound request. Path is
// rewritten as the request descends through gateways and nested mounts;
// OriginalPath always keeps the path as the transport adapter received it.
type Request struct {
	Method       string
	Path         string
	OriginalPath string
	Params       map[string]string
	Query        url.Values
	Header       http.Header
	Body         io.Reader
}

// Param returns the named path parameter, or "" if it was never bound.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// WithPath derives a request with a rewritten path and extra path
// parameters merged in. The parameter map is copied so the caller's request
// stays untouched; later writes win, which gives innermost bindings
// precedence during mount descent. Header, query and body are shared.
func (r *Request) WithPath(path string, params map[string]string) *Request {
	merged := make(map[string]string, len(r.Params)+len(params))
	for k, v := range r.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	derived := *r
	derived.Path = path
	derived.Params = merged
	return &derived
}

// Response is what a handler returns to the transport adapter.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// SetHeader sets a response header, allocating the header map on first use.
func (r *Response) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
}
