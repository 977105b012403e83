package session

import (
	"net/http"
	"time"
)

// CookieWriter writes and clears the session cookies using the shared
// cookie-domain rules. One instance is configured at startup and shared by
// the login, logout, and refresh handlers.
type CookieWriter struct {
	// Secure marks cookies HTTPS-only. Off for local development.
	Secure bool

	// AccessTokenTTL and RefreshTokenTTL bound cookie lifetimes. The
	// backend remains authoritative for actual token expiry.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SetAuth writes the token cookies and the advisory hint for the domain
// derived from hostname.
func (cw CookieWriter) SetAuth(w http.ResponseWriter, hostname, accessToken, refreshToken string, hint Hint) {
	domain := CookieDomain(hostname)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieAccessToken,
		Value:    accessToken,
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(cw.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cw.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if refreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieRefreshToken,
			Value:    refreshToken,
			Domain:   domain,
			Path:     "/",
			MaxAge:   int(cw.RefreshTokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   cw.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if encoded := EncodeHint(hint); encoded != "" {
		// Client-visible on purpose: the SPA reads it for UX redirects.
		http.SetCookie(w, &http.Cookie{
			Name:     CookieHint,
			Value:    encoded,
			Domain:   domain,
			Path:     "/",
			MaxAge:   int(cw.RefreshTokenTTL.Seconds()),
			HttpOnly: false,
			Secure:   cw.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ClearAuth expires all session cookies. The Domain attribute must match
// the one used when setting, and clearing goes out as Max-Age=0.
func (cw CookieWriter) ClearAuth(w http.ResponseWriter, hostname string) {
	domain := CookieDomain(hostname)

	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieHint} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Domain:   domain,
			Path:     "/",
			MaxAge:   -1, // serialized as Max-Age=0
			Expires:  time.Unix(0, 0),
			HttpOnly: name != CookieHint,
			Secure:   cw.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
