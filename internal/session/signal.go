package session

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Cookie names forming the session contract with the backend identity
// service. The edge never validates token contents; presence is the only
// signal read here.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"

	// CookieHint is a non-HttpOnly, client-visible hint written at login.
	// It is advisory only: used for UX redirects, never for security
	// decisions.
	CookieHint = "sessionHint"
)

// Hint carries the advisory client-visible session hints.
type Hint struct {
	// CompanySubdomain is the tenant the session was issued for.
	CompanySubdomain string `json:"companySubdomain,omitempty"`

	// OnboardingCompleted is nil when unknown.
	OnboardingCompleted *bool `json:"onboardingCompleted,omitempty"`
}

// Signal is the coarse, unverified authentication signal for one request.
type Signal struct {
	// HasAccessTokenCookie reports presence of the accessToken cookie.
	HasAccessTokenCookie bool

	// IsAuthenticated is a presence check only. Signature and expiry are
	// the backend's job; a 401 from the backend is the authoritative
	// failure signal and is handled by the calling layer.
	IsAuthenticated bool

	// OnboardingCompleted is advisory; nil when no hint was present.
	OnboardingCompleted *bool

	// TenantOfRecord is the advisory tenant slug from the hint cookie.
	TenantOfRecord string
}

// Extract derives the session signal from the set of cookie names present
// on the request plus the parsed hint (which may be the zero value).
func Extract(cookieNames map[string]bool, hint Hint) Signal {
	present := cookieNames[CookieAccessToken]
	return Signal{
		HasAccessTokenCookie: present,
		IsAuthenticated:      present,
		OnboardingCompleted:  hint.OnboardingCompleted,
		TenantOfRecord:       hint.CompanySubdomain,
	}
}

// FromRequest builds the session signal straight from an HTTP request.
func FromRequest(r *http.Request) Signal {
	names := make(map[string]bool)
	for _, c := range r.Cookies() {
		names[c.Name] = true
	}
	return Extract(names, HintFromRequest(r))
}

// HintFromRequest parses the advisory hint cookie. Malformed or missing
// hints yield the zero Hint.
func HintFromRequest(r *http.Request) Hint {
	c, err := r.Cookie(CookieHint)
	if err != nil || c.Value == "" {
		return Hint{}
	}
	return ParseHint(c.Value)
}

// ParseHint decodes a (possibly URL-escaped) JSON hint cookie value.
func ParseHint(value string) Hint {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}

	var h Hint
	if err := json.Unmarshal([]byte(value), &h); err != nil {
		return Hint{}
	}
	return h
}

// EncodeHint serializes a hint for the cookie value. A marshal failure
// yields the empty string so a broken hint is never written.
func EncodeHint(h Hint) string {
	b, err := json.Marshal(h)
	if err != nil {
		return ""
	}
	return url.QueryEscape(string(b))
}
