package routing

import (
	"hiring_edge/internal/session"
	"hiring_edge/internal/tenant"
)

// Response headers attached to allowed and rewritten requests.
const (
	HeaderCurrentSubdomain  = "X-Current-Subdomain"
	HeaderUserAuthenticated = "X-User-Authenticated"
)

// DecisionKind discriminates the routing decision variants.
type DecisionKind int

const (
	// KindAllow passes the request through unchanged.
	KindAllow DecisionKind = iota

	// KindRedirect sends the client to Location.
	KindRedirect

	// KindRewrite dispatches internally to InternalPath without changing
	// the client-visible URL.
	KindRewrite
)

func (k DecisionKind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindRedirect:
		return "redirect"
	case KindRewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// Decision is the single routing outcome for one request. Exactly one
// variant is produced; the zero value is a plain Allow.
type Decision struct {
	Kind DecisionKind

	// Location is the redirect target (relative or absolute). Only set
	// for KindRedirect.
	Location string

	// PreserveQuery appends the original query string to Location.
	PreserveQuery bool

	// InternalPath is the rewrite target. Only set for KindRewrite; the
	// original query string always survives a rewrite.
	InternalPath string

	// Headers are merged into the eventual response.
	Headers map[string]string
}

// Request is the immutable per-request input to the decision engine,
// assembled by the hosting HTTP layer.
type Request struct {
	// Hostname as received (port allowed; normalization happens during
	// tenant resolution).
	Hostname string

	// Path is the normalized request path with a leading slash.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Tenant is the resolved tenant context for Hostname.
	Tenant tenant.Context

	// Session is the extracted session signal.
	Session session.Signal

	// Class is the route classification of Path.
	Class RouteClass
}

func allow(headers map[string]string) Decision {
	return Decision{Kind: KindAllow, Headers: headers}
}

func redirect(location string) Decision {
	return Decision{Kind: KindRedirect, Location: location}
}

func rewrite(internalPath string, headers map[string]string) Decision {
	return Decision{Kind: KindRewrite, InternalPath: internalPath, Headers: headers}
}
