package routing

import (
	"testing"

	"hiring_edge/internal/session"
	"hiring_edge/internal/tenant"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultTables(), "default")
}

// request assembles an engine request the way the middleware does:
// tenant from the hostname, class from the tables.
func request(e *Engine, hostname, path string, sig session.Signal) Request {
	return Request{
		Hostname: hostname,
		Path:     path,
		Tenant:   tenant.Resolve(hostname),
		Session:  sig,
		Class:    e.Tables().Classify(path),
	}
}

func authenticated(tenantOfRecord string, onboarded *bool) session.Signal {
	return session.Signal{
		HasAccessTokenCookie: true,
		IsAuthenticated:      true,
		TenantOfRecord:       tenantOfRecord,
		OnboardingCompleted:  onboarded,
	}
}

func boolPtr(v bool) *bool { return &v }

func TestDecideScenarios(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	tests := []struct {
		name     string
		hostname string
		path     string
		session  session.Signal
		want     Decision
	}{
		{
			name:     "public home on localhost without session",
			hostname: "localhost",
			path:     "/",
			want:     Decision{Kind: KindAllow},
		},
		{
			name:     "anonymous tenant careers page rewrites internally",
			hostname: "acme.localhost",
			path:     "/careers",
			want:     Decision{Kind: KindRewrite, InternalPath: "/_subdomain/acme/careers"},
		},
		{
			name:     "protected route without session redirects to login",
			hostname: "localhost",
			path:     "/employer",
			want:     Decision{Kind: KindRedirect, Location: "/login?redirect=/employer"},
		},
		{
			name:     "member browsing own tenant rewrites under slug",
			hostname: "acme.example.com",
			path:     "/dashboard",
			session:  authenticated("acme", boolPtr(true)),
			want:     Decision{Kind: KindRewrite, InternalPath: "/acme/dashboard"},
		},
		{
			name:     "signed-in user on apex root redirects to tenant home",
			hostname: "example.com",
			path:     "/",
			session:  authenticated("acme", boolPtr(true)),
			want:     Decision{Kind: KindRedirect, Location: "https://acme.example.com"},
		},
		{
			name:     "membership mismatch redirects to login",
			hostname: "acme.example.com",
			path:     "/",
			session:  authenticated("beta", boolPtr(true)),
			want:     Decision{Kind: KindRedirect, Location: "/login"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := e.Decide(request(e, tc.hostname, tc.path, tc.session))
			if got.Kind != tc.want.Kind {
				t.Fatalf("kind = %s, want %s (decision %+v)", got.Kind, tc.want.Kind, got)
			}
			if got.Location != tc.want.Location {
				t.Errorf("location = %q, want %q", got.Location, tc.want.Location)
			}
			if got.InternalPath != tc.want.InternalPath {
				t.Errorf("internal path = %q, want %q", got.InternalPath, tc.want.InternalPath)
			}
		})
	}
}

func TestDecideRewriteIdempotence(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	inputs := []struct {
		hostname string
		path     string
		session  session.Signal
	}{
		{"acme.example.com", "/careers", session.Signal{}},
		{"acme.example.com", "/", session.Signal{}},
		{"acme.example.com", "/employer/jobs", authenticated("", nil)},
	}

	for _, in := range inputs {
		first := e.Decide(request(e, in.hostname, in.path, in.session))
		if first.Kind != KindRewrite {
			t.Fatalf("Decide(%s %s) = %s, want rewrite", in.hostname, in.path, first.Kind)
		}

		// Feeding the rewritten path back in must allow, never rewrite a
		// rewrite.
		second := e.Decide(request(e, in.hostname, first.InternalPath, in.session))
		if second.Kind != KindAllow {
			t.Fatalf("second pass on %q = %s, want allow", first.InternalPath, second.Kind)
		}
	}
}

func TestDecideProtectedWithoutSession(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	for _, p := range []string{"/employer", "/employer/jobs/5", "/company/settings"} {
		got := e.Decide(request(e, "www.example.com", p, session.Signal{}))
		if got.Kind != KindRedirect {
			t.Fatalf("Decide(%q) = %s, want redirect", p, got.Kind)
		}
		if want := "/login?redirect=" + p; got.Location != want {
			t.Errorf("Decide(%q) location = %q, want %q", p, got.Location, want)
		}
	}
}

func TestDecideAuthOnlyRoutes(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	for _, p := range []string{"/login", "/register", "/forgot-password"} {
		got := e.Decide(request(e, "example.com", p, authenticated("acme", boolPtr(true))))
		if got.Kind != KindRedirect || got.Location != "/" {
			t.Errorf("authenticated Decide(%q) = %+v, want redirect to /", p, got)
		}

		got = e.Decide(request(e, "example.com", p, session.Signal{}))
		if got.Kind != KindAllow {
			t.Errorf("anonymous Decide(%q) = %+v, want allow", p, got)
		}
	}

	// Auth pages stay reachable on tenant hostnames too.
	got := e.Decide(request(e, "acme.example.com", "/login", session.Signal{}))
	if got.Kind != KindAllow {
		t.Errorf("anonymous tenant Decide(/login) = %+v, want allow", got)
	}
}

func TestDecideUnauthenticatedTenantGuard(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	// Unlisted paths default to public on the apex, but a tenant host
	// requires explicit public-table membership.
	for _, p := range []string{"/dashboard", "/settings", "/candidates/5"} {
		got := e.Decide(request(e, "acme.example.com", p, session.Signal{}))
		if got.Kind != KindRedirect || got.Location != "/login" {
			t.Fatalf("Decide(%s) = %+v, want redirect to /login", p, got)
		}
	}

	// Public routes on a tenant host stay reachable.
	got := e.Decide(request(e, "acme.example.com", "/jobs", session.Signal{}))
	if got.Kind != KindAllow {
		t.Fatalf("Decide(/jobs) = %+v, want allow", got)
	}
	if got.Headers[HeaderCurrentSubdomain] != "acme" {
		t.Errorf("expected %s header, got %v", HeaderCurrentSubdomain, got.Headers)
	}
}

func TestDecideLocalDevRewrite(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	got := e.Decide(request(e, "acme.localhost", "/dashboard", authenticated("acme", boolPtr(true))))
	if got.Kind != KindRewrite || got.InternalPath != "/acme/dashboard" {
		t.Fatalf("Decide = %+v, want rewrite to /acme/dashboard", got)
	}

	// No tenant of record falls back to the configured default slug.
	got = e.Decide(request(e, "acme.localhost", "/dashboard", authenticated("", nil)))
	if got.Kind != KindRewrite || got.InternalPath != "/default/dashboard" {
		t.Fatalf("Decide = %+v, want rewrite to /default/dashboard", got)
	}

	// Auth paths are exempt from the dev rewrite.
	got = e.Decide(request(e, "acme.localhost", "/login", authenticated("acme", boolPtr(true))))
	if got.Kind != KindRedirect || got.Location != "/" {
		t.Fatalf("Decide(/login) = %+v, want redirect to /", got)
	}
}

func TestDecideEmployerPassthroughUnknownMembership(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	got := e.Decide(request(e, "acme.example.com", "/employer/jobs", authenticated("", nil)))
	if got.Kind != KindRewrite || got.InternalPath != "/_subdomain/acme/employer/jobs" {
		t.Fatalf("Decide = %+v, want rewrite to /_subdomain/acme/employer/jobs", got)
	}
}

func TestDecideOnboardingGate(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	got := e.Decide(request(e, "example.com", "/jobs", authenticated("", boolPtr(false))))
	if got.Kind != KindRedirect || got.Location != "/company/onboarding" {
		t.Fatalf("Decide = %+v, want redirect to onboarding", got)
	}

	// The onboarding page itself is never gated.
	got = e.Decide(request(e, "example.com", "/company/onboarding", authenticated("", boolPtr(false))))
	if got.Kind != KindAllow {
		t.Fatalf("Decide(onboarding path) = %+v, want allow", got)
	}
}

func TestDecideEmployerAreaRequiresTenant(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	// Even with a session, the employer area needs a tenant hostname.
	got := e.Decide(request(e, "example.com", "/employer/jobs", authenticated("acme", boolPtr(true))))
	if got.Kind != KindRedirect || got.Location != "/login?redirect=/employer/jobs" {
		t.Fatalf("Decide = %+v, want login redirect", got)
	}
}

func TestDecideExcludedAlwaysAllows(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	for _, p := range []string{"/api/jobs", "/static/app.css", "/logo.png"} {
		got := e.Decide(request(e, "acme.example.com", p, session.Signal{}))
		if got.Kind != KindAllow {
			t.Errorf("Decide(%q) = %s, want allow", p, got.Kind)
		}
	}
}

func TestDecideFallbackHeaders(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	got := e.Decide(request(e, "example.com", "/about", authenticated("", nil)))
	if got.Kind != KindAllow {
		t.Fatalf("Decide = %+v, want allow", got)
	}
	if got.Headers[HeaderUserAuthenticated] != "true" {
		t.Errorf("expected %s header, got %v", HeaderUserAuthenticated, got.Headers)
	}
}

func TestDecideDevRootRedirectUsesHTTP(t *testing.T) {
	t.Parallel()

	e := newTestEngine()

	got := e.Decide(request(e, "localhost:3000", "/", authenticated("acme", boolPtr(true))))
	if got.Kind != KindRedirect || got.Location != "http://acme.localhost:3000" {
		t.Fatalf("Decide = %+v, want redirect to http://acme.localhost:3000", got)
	}
}
