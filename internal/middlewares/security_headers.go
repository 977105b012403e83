package middlewares

import (
	"log/slog"
	"net/http"
	"strconv"
)

// SecurityConfig holds configuration for security headers middleware
type SecurityConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// ContentTypeNosniff prevents browsers from MIME-sniffing
	// Default: "nosniff"
	ContentTypeNosniff string

	// XFrameOptions prevents clickjacking attacks
	// Values: "DENY", "SAMEORIGIN", "ALLOW-FROM uri"
	// Default: "SAMEORIGIN"
	XFrameOptions string

	// HSTSMaxAge sets HTTP Strict Transport Security max age
	// Default: 31536000 (1 year)
	HSTSMaxAge int

	// HSTSIncludeSubdomains includes subdomains in HSTS policy.
	// Tenant sites live on subdomains, so this defaults to true.
	HSTSIncludeSubdomains bool

	// HSTSPreload enables HSTS preload list inclusion
	// Default: false
	HSTSPreload bool

	// ReferrerPolicy controls referrer information
	// Default: "strict-origin-when-cross-origin"
	ReferrerPolicy string

	// PermissionsPolicy controls browser features
	PermissionsPolicy string

	// CrossOriginOpenerPolicy controls cross-origin windows
	// Default: "same-origin"
	CrossOriginOpenerPolicy string

	// CrossOriginResourcePolicy controls cross-origin resource sharing.
	// "same-site" so shared assets stay loadable across tenant subdomains.
	CrossOriginResourcePolicy string

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool
}

// DefaultSecurityConfig returns a default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "SAMEORIGIN",
		HSTSMaxAge:                31536000, // 1 year
		HSTSIncludeSubdomains:     true,
		HSTSPreload:               false,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		PermissionsPolicy:         "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-site",
		Skipper:                   nil,
	}
}

// Security returns a middleware that sets security headers
func Security(config *SecurityConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("security headers middleware initialized",
		"hsts_max_age", config.HSTSMaxAge,
		"hsts_include_subdomains", config.HSTSIncludeSubdomains,
		"x_frame_options", config.XFrameOptions,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// X-Content-Type-Options
			if config.ContentTypeNosniff != "" {
				w.Header().Set("X-Content-Type-Options", config.ContentTypeNosniff)
			}

			// X-Frame-Options
			if config.XFrameOptions != "" {
				w.Header().Set("X-Frame-Options", config.XFrameOptions)
			}

			// Strict-Transport-Security (only for HTTPS)
			if r.TLS != nil && config.HSTSMaxAge > 0 {
				value := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
				if config.HSTSIncludeSubdomains {
					value += "; includeSubDomains"
				}
				if config.HSTSPreload {
					value += "; preload"
				}
				w.Header().Set("Strict-Transport-Security", value)
			}

			// Referrer-Policy
			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}

			// Permissions-Policy
			if config.PermissionsPolicy != "" {
				w.Header().Set("Permissions-Policy", config.PermissionsPolicy)
			}

			// Cross-Origin-Opener-Policy
			if config.CrossOriginOpenerPolicy != "" {
				w.Header().Set("Cross-Origin-Opener-Policy", config.CrossOriginOpenerPolicy)
			}

			// Cross-Origin-Resource-Policy
			if config.CrossOriginResourcePolicy != "" {
				w.Header().Set("Cross-Origin-Resource-Policy", config.CrossOriginResourcePolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
