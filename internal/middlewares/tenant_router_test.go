package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hiring_edge/internal/routing"
	"hiring_edge/internal/session"
	"hiring_edge/internal/tenant"
)

func newTenantRouterHandler(t *testing.T, cfg *TenantRouterConfig) (http.Handler, *string) {
	t.Helper()

	var servedPath string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Engine == nil {
		cfg.Engine = routing.NewEngine(routing.DefaultTables(), "default")
	}

	return TenantRouter(cfg)(next), &servedPath
}

func authCookies(r *http.Request, subdomain string) {
	r.AddCookie(&http.Cookie{Name: session.CookieAccessToken, Value: "tok"})
	r.AddCookie(&http.Cookie{
		Name:  session.CookieHint,
		Value: session.EncodeHint(session.Hint{CompanySubdomain: subdomain}),
	})
}

func TestTenantRouterAllowSetsStateHeaders(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{})

	// Anonymous visitor on a tenant's public job board.
	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/jobs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *served != "/jobs" {
		t.Fatalf("served path = %q, want /jobs", *served)
	}
	if got := w.Header().Get("X-Current-Subdomain"); got != "acme" {
		t.Errorf("X-Current-Subdomain = %q, want acme", got)
	}

	// Signed-in visitor on the apex site.
	r = httptest.NewRequest(http.MethodGet, "http://example.com/about", nil)
	authCookies(r, "")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-User-Authenticated"); got != "true" {
		t.Errorf("X-User-Authenticated = %q, want true", got)
	}
}

func TestTenantRouterIgnoresSubdomainHeaderOnPageRoutes(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{})

	// A spoofed header on an apex page route must not conjure tenant
	// context: the root stays the apex root, not a tenant careers page.
	r := httptest.NewRequest(http.MethodGet, "http://www.example.com/", nil)
	r.Header.Set(tenant.SubdomainHeader, "acme")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *served != "/" {
		t.Fatalf("served path = %q, want /", *served)
	}
	if got := w.Header().Get("X-Current-Subdomain"); got != "" {
		t.Errorf("X-Current-Subdomain = %q, want empty", got)
	}
}

func TestTenantRouterRedirectsProtectedWithoutSession(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{})

	r := httptest.NewRequest(http.MethodGet, "http://www.example.com/employer/jobs", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/login?redirect=/employer/jobs" {
		t.Errorf("Location = %q", got)
	}
	if *served != "" {
		t.Errorf("next handler should not run, served %q", *served)
	}
}

func TestTenantRouterRewritesMemberPath(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{})

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/dashboard", nil)
	authCookies(r, "acme")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *served != "/acme/dashboard" {
		t.Fatalf("served path = %q, want /acme/dashboard", *served)
	}
}

func TestTenantRouterRewritesAnonymousCareersPage(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{})

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/careers", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if *served != routing.InternalPrefix+"/acme/careers" {
		t.Fatalf("served path = %q", *served)
	}
	if got := w.Header().Get("X-Current-Subdomain"); got != "acme" {
		t.Errorf("X-Current-Subdomain = %q, want acme", got)
	}
}

func TestTenantRouterUnknownSubdomainDegradesToNoTenant(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{
		Directory: tenant.StaticDirectory{},
	})

	r := httptest.NewRequest(http.MethodGet, "http://ghost.example.com/jobs", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *served != "/jobs" {
		t.Fatalf("served path = %q, want /jobs", *served)
	}
	if got := w.Header().Get("X-Current-Subdomain"); got != "" {
		t.Errorf("X-Current-Subdomain = %q, want empty", got)
	}
}

type failingDirectory struct{}

func (failingDirectory) Lookup(ctx context.Context, slug string) (tenant.Company, bool, error) {
	return tenant.Company{}, false, errors.New("db down")
}

func TestTenantRouterDirectoryErrorFailsOpen(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{
		Directory: failingDirectory{},
	})

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/dashboard", nil)
	authCookies(r, "acme")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if *served != "/acme/dashboard" {
		t.Fatalf("served path = %q, directory errors should keep the resolved tenant", *served)
	}
}

func TestTenantRouterRedirectPreservesQuery(t *testing.T) {
	t.Parallel()

	h, _ := newTenantRouterHandler(t, &TenantRouterConfig{})

	// Signed-in user hitting the apex root carries the query to the tenant
	// home.
	r := httptest.NewRequest(http.MethodGet, "http://example.com/?src=mail", nil)
	authCookies(r, "acme")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://acme.example.com?src=mail" {
		t.Errorf("Location = %q", got)
	}
}

func TestTenantRouterOnDecisionHook(t *testing.T) {
	t.Parallel()

	var outcomes []string
	h, _ := newTenantRouterHandler(t, &TenantRouterConfig{
		OnDecision: func(outcome string) { outcomes = append(outcomes, outcome) },
	})

	r := httptest.NewRequest(http.MethodGet, "http://www.example.com/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if len(outcomes) != 1 || outcomes[0] != "allow" {
		t.Fatalf("outcomes = %v, want [allow]", outcomes)
	}
}

func TestTenantRouterSkipper(t *testing.T) {
	t.Parallel()

	h, served := newTenantRouterHandler(t, &TenantRouterConfig{
		Skipper: func(r *http.Request) bool { return r.URL.Path == "/metrics" },
	})

	r := httptest.NewRequest(http.MethodGet, "http://acme.example.com/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if *served != "/metrics" {
		t.Fatalf("served path = %q, want /metrics untouched", *served)
	}
	if got := w.Header().Get("X-Current-Subdomain"); got != "" {
		t.Errorf("skipped request should not gain routing headers, got %q", got)
	}
}
