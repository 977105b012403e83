package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"hiring_edge/internal/config"
)

func TestProxyForwardsPathAndHost(t *testing.T) {
	t.Parallel()

	var gotPath, gotForwardedHost string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotForwardedHost = r.Header.Get("X-Forwarded-Host")
		w.Write([]byte("ok"))
	}))
	t.Cleanup(backend.Close)

	h, err := New(config.BackendConfig{BaseURL: backend.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/_subdomain/acme/careers", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotPath != "/_subdomain/acme/careers" {
		t.Errorf("backend saw path %q", gotPath)
	}
	if gotForwardedHost != "acme.example.com" {
		t.Errorf("X-Forwarded-Host = %q", gotForwardedHost)
	}
}

func TestProxyBackendDown(t *testing.T) {
	t.Parallel()

	var failed []string
	h, err := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(endpoint string) { failed = append(failed, endpoint) })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/jobs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if len(failed) != 1 {
		t.Errorf("error hook calls = %v", failed)
	}
}
