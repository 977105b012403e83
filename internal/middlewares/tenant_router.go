package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"hiring_edge/internal/routing"
	"hiring_edge/internal/session"
	"hiring_edge/internal/tenant"
)

// TenantRouterConfig holds configuration for the tenant routing middleware.
type TenantRouterConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Engine makes the routing decision. Required.
	Engine *routing.Engine

	// Directory verifies resolved subdomains against registered tenants.
	// Optional: when nil, any resolved subdomain is trusted. Unknown
	// subdomains degrade to no tenant; directory errors fail open and the
	// resolved subdomain is kept.
	Directory tenant.Directory

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// OnDecision is called with the decision outcome ("allow", "redirect",
	// "rewrite"). Optional metrics hook.
	OnDecision func(outcome string)
}

// TenantRouter returns the middleware that resolves the tenant, extracts
// the session signal, classifies the path, asks the engine for a decision
// and applies it. Redirects use 307 so the method and body survive;
// rewrites swap the URL path before calling the next handler.
func TenantRouter(config *TenantRouterConfig) func(next http.Handler) http.Handler {
	if config == nil || config.Engine == nil {
		panic("middlewares: TenantRouter requires an engine")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := config.Engine

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			path := routing.NormalizePath(r.URL.Path)
			class := engine.Tables().Classify(path)

			// The subdomain header override exists for same-origin API
			// calls relayed through the proxy. Page routes resolve from
			// the hostname alone, so an external client cannot spoof
			// tenant context into a routing decision.
			var tc tenant.Context
			if class == routing.ClassExcluded {
				tc = tenant.FromRequest(r)
			} else {
				tc = tenant.Resolve(r.Host)
			}

			if tc.HasTenant() && config.Directory != nil {
				_, known, err := config.Directory.Lookup(r.Context(), tc.Subdomain)
				switch {
				case err != nil:
					logger.Warn("tenant directory unavailable, trusting resolved subdomain",
						"subdomain", tc.Subdomain,
						"error", err,
					)
				case !known:
					logger.Debug("unknown subdomain, treating as no tenant",
						"subdomain", tc.Subdomain,
						"host", r.Host,
					)
					tc.Subdomain = ""
				}
			}

			decision := engine.Decide(routing.Request{
				Hostname: r.Host,
				Path:     path,
				Query:    r.URL.RawQuery,
				Tenant:   tc,
				Session:  session.FromRequest(r),
				Class:    class,
			})

			if config.OnDecision != nil {
				config.OnDecision(decision.Kind.String())
			}

			for k, v := range decision.Headers {
				w.Header().Set(k, v)
			}

			switch decision.Kind {
			case routing.KindRedirect:
				location := decision.Location
				if decision.PreserveQuery && r.URL.RawQuery != "" {
					if strings.Contains(location, "?") {
						location += "&" + r.URL.RawQuery
					} else {
						location += "?" + r.URL.RawQuery
					}
				}
				logger.Debug("routing redirect",
					"host", r.Host,
					"path", path,
					"location", location,
				)
				http.Redirect(w, r, location, http.StatusTemporaryRedirect)

			case routing.KindRewrite:
				logger.Debug("routing rewrite",
					"host", r.Host,
					"path", path,
					"internal_path", decision.InternalPath,
				)
				r.URL.Path = decision.InternalPath
				r.URL.RawPath = ""
				next.ServeHTTP(w, r)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
