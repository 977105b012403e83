package middlewares

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"hiring_edge/internal/session"
)

// CSRFConfig holds configuration for the double-submit CSRF check on the
// cookie-authenticated endpoints.
type CSRFConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Skipper defines a function to skip CSRF protection for specific
	// requests. Return true to skip.
	Skipper func(r *http.Request) bool

	// CookieName is the client-readable token cookie.
	CookieName string

	// HeaderName carries the echoed token on mutating requests.
	HeaderName string

	// TokenLength in bytes before encoding.
	TokenLength int

	// CookieSecure marks the token cookie HTTPS-only.
	CookieSecure bool

	// ErrorHandler handles rejected requests.
	ErrorHandler func(w http.ResponseWriter, r *http.Request)
}

// DefaultCSRFConfig returns the default CSRF configuration.
func DefaultCSRFConfig() *CSRFConfig {
	return &CSRFConfig{
		CookieName:   "csrf_token",
		HeaderName:   "X-CSRF-Token",
		TokenLength:  32,
		CookieSecure: true,
	}
}

// CSRF implements the double-submit cookie pattern. Safe methods mint a
// token cookie scoped to the shared cookie domain, so all tenant
// subdomains present the same token. Mutating methods must echo the
// cookie value in the header; the browser's same-origin policy keeps the
// cookie unreadable cross-site, which is what makes the echo a proof.
func CSRF(config *CSRFConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultCSRFConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.CookieName == "" {
		config.CookieName = "csrf_token"
	}
	if config.HeaderName == "" {
		config.HeaderName = "X-CSRF-Token"
	}
	if config.TokenLength <= 0 {
		config.TokenLength = 32
	}

	errorHandler := config.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "CSRF token missing or invalid", http.StatusForbidden)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				if _, err := r.Cookie(config.CookieName); err != nil {
					issueToken(w, r, config, logger)
				}
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(config.CookieName)
			if err != nil || cookie.Value == "" {
				logger.Warn("csrf token cookie missing",
					"method", r.Method,
					"path", r.URL.Path,
					"client_ip", getClientIP(r),
				)
				errorHandler(w, r)
				return
			}

			header := r.Header.Get(config.HeaderName)
			if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				logger.Warn("csrf token mismatch",
					"method", r.Method,
					"path", r.URL.Path,
					"client_ip", getClientIP(r),
				)
				errorHandler(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func issueToken(w http.ResponseWriter, r *http.Request, config *CSRFConfig, logger *slog.Logger) {
	raw := make([]byte, config.TokenLength)
	if _, err := rand.Read(raw); err != nil {
		logger.Error("csrf token generation failed", "error", err)
		return
	}

	// Client-readable: the SPA copies the value into the header.
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Domain:   session.CookieDomain(r.Host),
		Path:     "/",
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
