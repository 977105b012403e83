package tenant

import (
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		hostname   string
		subdomain  string
		isLocalDev bool
	}{
		{"bare localhost", "localhost", "", true},
		{"localhost with port", "localhost:3000", "", true},
		{"tenant on localhost", "acme.localhost", "acme", true},
		{"tenant on localhost with port", "acme.localhost:3000", "acme", true},
		{"empty label before localhost", ".localhost", "", true},
		{"apex domain", "example.com", "", false},
		{"www is not a tenant", "www.example.com", "", false},
		{"tenant subdomain", "acme.example.com", "acme", false},
		{"tenant with port", "acme.example.com:8443", "acme", false},
		{"uppercase host", "ACME.Example.COM", "acme", false},
		{"ipv4 literal", "127.0.0.1", "", false},
		{"ipv4 literal with port", "192.168.1.10:8080", "", false},
		{"deep subdomain takes first label", "a.b.example.com", "a", false},
		{"trailing dot", "acme.example.com.", "acme", false},
		{"empty hostname", "", "", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Resolve(tc.hostname)
			if got.Subdomain != tc.subdomain {
				t.Errorf("Resolve(%q).Subdomain = %q, want %q", tc.hostname, got.Subdomain, tc.subdomain)
			}
			if got.IsLocalDev != tc.isLocalDev {
				t.Errorf("Resolve(%q).IsLocalDev = %v, want %v", tc.hostname, got.IsLocalDev, tc.isLocalDev)
			}
		})
	}
}

func TestResolveNoTenantEquivalence(t *testing.T) {
	t.Parallel()

	// The subdomain is empty exactly for the apex, www, localhost, and IP
	// literal hostnames.
	for _, h := range []string{"localhost", "example.com", "www.example.com", "10.0.0.1"} {
		if ctx := Resolve(h); ctx.HasTenant() {
			t.Errorf("Resolve(%q) resolved tenant %q, want none", h, ctx.Subdomain)
		}
	}
	for _, h := range []string{"acme.example.com", "acme.localhost", "a.b.example.com"} {
		if ctx := Resolve(h); !ctx.HasTenant() {
			t.Errorf("Resolve(%q) resolved no tenant, want one", h)
		}
	}
}

func TestFromRequestHeaderOverride(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://example.com/api/jobs", nil)
	if got := FromRequest(r); got.HasTenant() {
		t.Fatalf("expected no tenant without override, got %q", got.Subdomain)
	}

	r.Header.Set(SubdomainHeader, "Acme ")
	got := FromRequest(r)
	if got.Subdomain != "acme" {
		t.Fatalf("expected override tenant acme, got %q", got.Subdomain)
	}

	// The override wins even when the hostname itself carries a tenant.
	r = httptest.NewRequest("GET", "http://beta.example.com/api/jobs", nil)
	r.Header.Set(SubdomainHeader, "acme")
	if got := FromRequest(r); got.Subdomain != "acme" {
		t.Fatalf("expected override to take precedence, got %q", got.Subdomain)
	}
}
