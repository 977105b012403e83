// Package tenant resolves company subdomains from request hostnames.
package tenant

import (
	"net"
	"net/http"
	"strings"
)

// SubdomainHeader is the explicit override header internal API callers may
// send when a reverse proxy has already rewritten the original Host.
const SubdomainHeader = "X-Company-Subdomain"

// Context identifies the tenant (if any) addressed by a hostname.
type Context struct {
	// Subdomain is the tenant slug, empty when the request targets the
	// apex domain, www, bare localhost, or an IP literal.
	Subdomain string

	// IsLocalDev reports whether the hostname is localhost or a
	// *.localhost alias used for local multi-tenant development.
	IsLocalDev bool
}

// HasTenant reports whether a tenant subdomain was resolved.
func (c Context) HasTenant() bool {
	return c.Subdomain != ""
}

// Resolve parses a hostname into a tenant context.
//
// Malformed input never errors: anything unparseable degrades to
// "no tenant" so the apex site is served.
func Resolve(hostname string) Context {
	host := normalizeHost(hostname)

	if host == "" {
		return Context{}
	}

	if host == "localhost" {
		return Context{IsLocalDev: true}
	}

	if isIPv4Literal(host) {
		return Context{}
	}

	if suffix, ok := strings.CutSuffix(host, ".localhost"); ok {
		// "acme.localhost" -> acme; an empty label is no tenant, not an error.
		return Context{Subdomain: lastLabel(suffix), IsLocalDev: true}
	}

	labels := strings.Split(host, ".")
	if len(labels) >= 3 && labels[0] != "www" && labels[0] != "" {
		return Context{Subdomain: labels[0]}
	}

	return Context{}
}

// FromRequest resolves the tenant for an HTTP request, honoring the
// X-Company-Subdomain override when present. The override serves
// same-origin API calls relayed through the proxy; callers gating page
// routes must use Resolve on the hostname instead, since the header is
// client-controlled.
func FromRequest(r *http.Request) Context {
	ctx := Resolve(r.Host)
	if override := strings.ToLower(strings.TrimSpace(r.Header.Get(SubdomainHeader))); override != "" {
		ctx.Subdomain = override
	}
	return ctx
}

// normalizeHost lower-cases the hostname and strips any port suffix.
func normalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if host == "" {
		return ""
	}

	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		host = h
	}

	return strings.TrimSuffix(host, ".")
}

// lastLabel returns the label immediately preceding the stripped
// ".localhost" suffix ("acme" for "acme.localhost").
func lastLabel(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// isIPv4Literal reports whether host is a dotted-quad IPv4 address.
func isIPv4Literal(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil && strings.Count(host, ".") == 3
}
