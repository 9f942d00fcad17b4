package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestCall_BuildsGatewayURL(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Call(context.Background(), http.MethodGet, "users", "42/profile", url.Values{"full": {"1"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if gotPath != "/api/users/42/profile" {
		t.Errorf("path = %q, want %q", gotPath, "/api/users/42/profile")
	}
	if gotQuery != "full=1" {
		t.Errorf("query = %q, want %q", gotQuery, "full=1")
	}
}

func TestCallJSON_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	var out map[string]string
	if err := c.CallJSON(context.Background(), http.MethodGet, "system", "/", nil, &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" {
		t.Errorf("decoded %v", out)
	}
}

func TestCallJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.CallJSON(context.Background(), http.MethodGet, "users", "/", nil, &struct{}{}); err == nil {
		t.Error("expected an error for a 403 response")
	}
}

func TestAdmin_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string][]string{"services": {"users"}})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAdminToken("secret"))
	services, err := c.ListServices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if len(services) != 1 || services[0] != "users" {
		t.Errorf("services = %v", services)
	}
}

func TestSetAccess_SendsReplacementList(t *testing.T) {
	var gotBody map[string][]string
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.SetAccess(context.Background(), "public", "users", "orders"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut || gotPath != "/internal/registry/gateways/public/access" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if len(gotBody["services"]) != 2 {
		t.Errorf("body = %v", gotBody)
	}
}
