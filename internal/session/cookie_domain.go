// Package session derives the per-request session signal from cookies and
// owns the cookie scoping rules shared by the routing middleware and the
// auth endpoints.
package session

import (
	"net"
	"strings"
)

// CookieDomain derives the Domain attribute required for session cookies on
// the given hostname. An empty result means host-only (no Domain attribute).
//
// Every place that writes or clears session cookies must use this one
// function; deriving the domain independently per call site is how
// "logged in on one subdomain, logged out on another" bugs happen.
func CookieDomain(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	if host == "" || host == "localhost" {
		return ""
	}

	if host == ".localhost" || strings.HasSuffix(host, ".localhost") {
		return ".localhost"
	}

	if ip := net.ParseIP(host); ip != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}

	// Share across subdomains of the registrable domain:
	// acme.example.com -> .example.com
	return "." + strings.Join(labels[len(labels)-2:], ".")
}
