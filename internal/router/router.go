package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hiring_edge/internal/cache"
	"hiring_edge/internal/config"
	authhandlers "hiring_edge/internal/handlers/auth"
	"hiring_edge/internal/middlewares"
	"hiring_edge/internal/observability"
	"hiring_edge/internal/routing"
	"hiring_edge/internal/tenant"
)

// Deps carries everything the router wires together. Only Config, Engine
// and Proxy are required; nil optional fields disable their feature.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger

	// Engine decides routing; Directory verifies subdomains (optional).
	Engine    *routing.Engine
	Directory tenant.Directory

	// Cache backs the login rate limiter (optional, memory fallback).
	Cache cache.Cache

	// Auth serves the session endpoints; Proxy serves everything else.
	Auth  *authhandlers.Handler
	Proxy http.Handler

	// Metrics and RoutingMetrics are optional collectors.
	Metrics        *observability.Metrics
	RoutingMetrics *observability.RoutingMetrics

	// Health powers /health, /ready and /live.
	Health *observability.HealthConfig
}

// New assembles the edge's HTTP handler: operational endpoints first, then
// the auth endpoints, then the catch-all tenant-routed proxy.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Outer chain: every response carries a request id and security
	// headers, every request is logged and metered.
	r.Use(observability.RequestID(&observability.RequestIDConfig{Logger: logger}))
	r.Use(middlewares.Logger(&middlewares.LoggerConfig{
		Logger:             logger,
		SkipPaths:          []string{"/health", "/ready", "/live", "/metrics", "/favicon.ico"},
		IncludeUserAgent:   true,
		IncludeQueryParams: true,
	}))
	r.Use(middlewares.Recovery(&middlewares.RecoveryConfig{
		Logger:      logger,
		Development: d.Config.IsDevelopment(),
	}))
	r.Use(middlewares.Security(securityConfig(d.Config, logger)))
	r.Use(middlewares.CORS(corsConfig(d.Config, logger)))

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware(observability.DefaultMetricsConfig("hiring_edge")))
	}

	// Operational endpoints bypass tenant routing entirely.
	r.Get("/health", observability.HealthHandler(d.Health))
	r.Get("/ready", observability.ReadinessHandler(d.Health))
	r.Get("/live", observability.LivenessHandler(d.Health))
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	// Session endpoints. Login gets a per-IP limiter so credential
	// stuffing cannot ride the shared edge.
	r.Route("/api/auth", func(ar chi.Router) {
		if d.Config.Auth.CSRFProtection {
			ar.Use(middlewares.CSRF(&middlewares.CSRFConfig{
				Logger:       logger,
				CookieSecure: d.Config.Auth.SecureCookies,
			}))
		}
		ar.With(loginLimiter(d, logger)).Post("/login", d.Auth.Login)
		ar.Post("/logout", d.Auth.Logout)
		ar.Post("/refresh", d.Auth.Refresh)
	})

	// Everything else flows through the decision engine into the proxy.
	tenantRouter := middlewares.TenantRouter(&middlewares.TenantRouterConfig{
		Logger:     logger,
		Engine:     d.Engine,
		Directory:  d.Directory,
		OnDecision: decisionObserver(d.RoutingMetrics),
	})
	r.With(middlewares.Timeout(middlewares.ProxyTimeout(d.Config.Backend.Timeout)), tenantRouter).
		Handle("/*", d.Proxy)

	return r
}

func loginLimiter(d Deps, logger *slog.Logger) func(http.Handler) http.Handler {
	var cfg *middlewares.RateLimitConfig
	if d.Cache != nil {
		cfg = middlewares.WithCache(d.Cache, 10, 0.5)
	} else {
		cfg = middlewares.PerIP(10, 0.5)
	}
	cfg.Logger = logger
	cfg.Message = "Too many login attempts"
	return middlewares.RateLimit(cfg)
}

func decisionObserver(rm *observability.RoutingMetrics) func(string) {
	if rm == nil {
		return nil
	}
	return rm.ObserveDecision
}

func securityConfig(cfg *config.Config, logger *slog.Logger) *middlewares.SecurityConfig {
	sc := middlewares.DefaultSecurityConfig()
	sc.Logger = logger
	if cfg.IsDevelopment() {
		sc.HSTSMaxAge = 0
	}
	return sc
}

func corsConfig(cfg *config.Config, logger *slog.Logger) *middlewares.CORSConfig {
	cc := middlewares.DefaultCORSConfig()
	cc.Logger = logger
	cc.AllowOrigins = cfg.CORS.AllowedOrigins
	cc.AllowMethods = cfg.CORS.AllowedMethods
	cc.AllowHeaders = cfg.CORS.AllowedHeaders
	cc.AllowCredentials = cfg.CORS.AllowCredentials
	cc.MaxAge = cfg.CORS.MaxAge
	return cc
}
