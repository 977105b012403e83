package routing

import (
	"strings"
	"sync/atomic"
)

const (
	loginPath = "/login"

	// employerPrefix marks the employer area, which needs a tenant on the
	// hostname in addition to a session.
	employerPrefix = "/employer"
)

// Engine is the ordered-precedence routing decision core. Decisions are
// pure: any number of requests may be decided concurrently. The route
// tables behind it can be swapped atomically, and each decision sees one
// consistent snapshot.
type Engine struct {
	tables atomic.Pointer[Tables]

	// defaultTenantSlug is used for the local-dev rewrite when an
	// authenticated user has no tenant of record.
	defaultTenantSlug string
}

// NewEngine builds an engine over route tables. defaultTenantSlug may be
// empty, in which case "default" is used.
func NewEngine(tables *Tables, defaultTenantSlug string) *Engine {
	if tables == nil {
		tables = DefaultTables()
	}
	if defaultTenantSlug == "" {
		defaultTenantSlug = "default"
	}
	e := &Engine{defaultTenantSlug: defaultTenantSlug}
	e.tables.Store(tables)
	return e
}

// Tables exposes the engine's current route tables (for classification by
// the hosting layer).
func (e *Engine) Tables() *Tables {
	return e.tables.Load()
}

// ReplaceTables swaps in a new set of route tables. In-flight decisions
// keep the snapshot they started with.
func (e *Engine) ReplaceTables(tables *Tables) {
	if tables == nil {
		return
	}
	e.tables.Store(tables)
}

// Decide evaluates the request against the rule sequence and returns
// exactly one decision. Rules run top to bottom, first match wins, and the
// final fallback always matches. The function never fails: malformed input
// has already degraded to "no tenant" during resolution.
func (e *Engine) Decide(req Request) Decision {
	p := NormalizePath(req.Path)
	t := req.Tenant
	s := req.Session

	// Excluded paths (assets, API, framework internals) are not this
	// engine's business; tolerate and pass them through.
	if req.Class == ClassExcluded {
		return allow(nil)
	}

	// Already-rewritten internal paths bypass all tenant logic so a
	// rewrite is never rewritten twice.
	if req.Class == ClassTenantInternal {
		return allow(e.stateHeaders(t.Subdomain, s.IsAuthenticated))
	}

	if t.HasTenant() {
		if d, ok := e.decideTenant(req, p); ok {
			return d
		}
	}

	// Auth-only routes: block signed-in users, admit everyone else.
	if req.Class == ClassAuthOnly {
		if s.IsAuthenticated {
			return redirect("/")
		}
		return allow(nil)
	}

	if req.Class == ClassProtected {
		// The employer area needs a tenant hostname even with a session.
		if !t.HasTenant() && hasPathPrefix(p, employerPrefix) {
			return redirect(loginPath + "?redirect=" + p)
		}
		if !s.IsAuthenticated {
			return redirect(loginPath + "?redirect=" + p)
		}
	}

	// Onboarding nudge, advisory hint only.
	if onboarding := e.tables.Load().OnboardingPath; s.IsAuthenticated && s.OnboardingCompleted != nil && !*s.OnboardingCompleted && p != onboarding {
		return redirect(onboarding)
	}

	// Signed-in user landing on the apex root: send them home. The query
	// string travels along.
	if s.IsAuthenticated && s.TenantOfRecord != "" && p == "/" && !t.HasTenant() {
		return Decision{
			Kind:          KindRedirect,
			Location:      tenantURL(s.TenantOfRecord, req.Hostname, t.IsLocalDev),
			PreserveQuery: true,
		}
	}

	return allow(e.stateHeaders(t.Subdomain, s.IsAuthenticated))
}

// decideTenant evaluates the tenant-hostname rules. The second return is
// false when none matched and evaluation falls through to the general
// rules.
func (e *Engine) decideTenant(req Request, p string) (Decision, bool) {
	t := req.Tenant
	s := req.Session
	onAuthPath := req.Class == ClassAuthOnly

	if !s.IsAuthenticated {
		// Tenant root and careers pages are public-by-tenant.
		if p == "/" || p == "/careers" {
			return rewrite(e.careersPath(t.Subdomain, p), e.stateHeaders(t.Subdomain, false)), true
		}
		// Classification defaults unlisted paths to public for apex
		// traffic; a tenant hostname is stricter. Anything outside the
		// explicit public tables needs a session here.
		if !e.tables.Load().Public[p] && !onAuthPath {
			return redirect(loginPath), true
		}
		return Decision{}, false
	}

	// Local-dev convenience: keep the multi-tenant loop working without
	// real DNS subdomains.
	if t.IsLocalDev && !onAuthPath {
		slug := s.TenantOfRecord
		if slug == "" {
			slug = e.defaultTenantSlug
		}
		return rewrite(joinTenantPath(slug, p), e.stateHeaders(t.Subdomain, true)), true
	}

	// A signed-in user may not silently browse a tenant they are not a
	// member of.
	if s.TenantOfRecord != "" && s.TenantOfRecord != t.Subdomain && !onAuthPath {
		return redirect(loginPath), true
	}

	if s.TenantOfRecord != "" && s.TenantOfRecord == t.Subdomain && !onAuthPath {
		return rewrite(joinTenantPath(t.Subdomain, p), e.stateHeaders(t.Subdomain, true)), true
	}

	// Membership unknown: employer pages still resolve to the tenant's
	// internal namespace.
	if hasPathPrefix(p, employerPrefix) {
		return rewrite(InternalPrefix+"/"+t.Subdomain+p, e.stateHeaders(t.Subdomain, true)), true
	}

	if p == "/" || p == "/careers" {
		return rewrite(e.careersPath(t.Subdomain, p), e.stateHeaders(t.Subdomain, true)), true
	}

	return Decision{}, false
}

// careersPath maps the tenant root and careers pages into the internal
// namespace.
func (e *Engine) careersPath(subdomain, p string) string {
	if p == "/careers" {
		return InternalPrefix + "/" + subdomain + "/careers"
	}
	return InternalPrefix + "/" + subdomain + "/"
}

// joinTenantPath prefixes a normalized path with the tenant slug:
// ("acme", "/dashboard") -> "/acme/dashboard".
func joinTenantPath(slug, p string) string {
	if p == "/" {
		return "/" + slug + "/"
	}
	return "/" + slug + p
}

// tenantURL builds the absolute URL for a tenant's home
// ("acme", "example.com") -> "https://acme.example.com".
func tenantURL(slug, hostname string, localDev bool) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	scheme := "https"
	if localDev || host == "localhost" || strings.HasPrefix(host, "localhost:") {
		scheme = "http"
	}
	return scheme + "://" + slug + "." + host
}

func (e *Engine) stateHeaders(subdomain string, authenticated bool) map[string]string {
	if subdomain == "" && !authenticated {
		return nil
	}
	h := make(map[string]string, 2)
	if subdomain != "" {
		h[HeaderCurrentSubdomain] = subdomain
	}
	if authenticated {
		h[HeaderUserAuthenticated] = "true"
	}
	return h
}
