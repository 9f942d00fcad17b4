// Package client is a small helper for talking to a mosaic gateway over
// HTTP: it builds gateway-shaped URLs ({base}/{service}/{path}) and wraps
// the admin surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	gatewayURL string
	basePath   string
	adminToken string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithAdminToken attaches the bearer token required by the admin surface.
func WithAdminToken(token string) Option {
	return func(c *Client) {
		c.adminToken = token
	}
}

func WithBasePath(base string) Option {
	return func(c *Client) {
		c.basePath = strings.TrimSuffix(base, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(gatewayURL string, opts ...Option) *Client {
	c := &Client{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		basePath:   "/api",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends one request through the gateway to a service-relative path
// and returns the raw response. The caller owns closing the body.
func (c *Client) Call(ctx context.Context, method, service, path string, query url.Values, body io.Reader) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.gatewayURL + c.basePath + "/" + service + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.logger.Debug("gateway call", "method", method, "service", service, "path", path)
	return c.httpClient.Do(req)
}

// CallJSON performs Call and decodes a JSON response body into out.
func (c *Client) CallJSON(ctx context.Context, method, service, path string, query url.Values, out any) error {
	resp, err := c.Call(ctx, method, service, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %d for %s %s%s", resp.StatusCode, method, service, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListServices returns the names committed in the registry.
func (c *Client) ListServices(ctx context.Context) ([]string, error) {
	var payload struct {
		Services []string `json:"services"`
	}
	if err := c.admin(ctx, http.MethodGet, "/internal/registry/services", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Services, nil
}

// SetAccess replaces the allow-list for a gateway key.
func (c *Client) SetAccess(ctx context.Context, key string, services ...string) error {
	body := map[string][]string{"services": services}
	return c.admin(ctx, http.MethodPut, "/internal/registry/gateways/"+key+"/access", body, nil)
}

// Reload triggers the dispose/accept cycle for a service.
func (c *Client) Reload(ctx context.Context, name string) error {
	return c.admin(ctx, http.MethodPost, "/internal/registry/reload/"+name, nil, nil)
}

func (c *Client) admin(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.gatewayURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("admin endpoint returned %d for %s %s", resp.StatusCode, method, path)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
