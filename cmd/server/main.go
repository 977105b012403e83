package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hiring_edge/internal/cache"
	"hiring_edge/internal/config"
	authhandlers "hiring_edge/internal/handlers/auth"
	"hiring_edge/internal/handlers/proxy"
	"hiring_edge/internal/observability"
	"hiring_edge/internal/router"
	"hiring_edge/internal/routing"
	"hiring_edge/internal/server"
	"hiring_edge/internal/session"
	"hiring_edge/internal/tasks"
	"hiring_edge/internal/tenant"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	observability.SetVersion(cfg.App.Version)

	var resources []server.Resource

	// Database is optional: without it the tenant directory is disabled
	// and any resolved subdomain is trusted.
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		pool, err = config.NewPool(&cfg.Database, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		resources = append(resources, server.NewDatabaseResource("postgres", pool))
	}

	store := buildCache(cfg, logger)
	resources = append(resources, server.NewCacheResource("cache", store))

	var directory tenant.Directory
	if pool != nil {
		directory = tenant.NewSQLDirectory(pool, store, cfg.Tenancy.DirectoryTTL, logger)
	}

	tables, err := loadTables(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load route tables: %v", err)
	}
	engine := routing.NewEngine(tables, cfg.Tenancy.DefaultSlug)

	if cfg.Routes.TablesFile != "" && cfg.Routes.ReloadInterval > 0 {
		scheduler := tasks.NewScheduler(logger)
		reloader := tasks.NewTablesReloader(cfg.Routes.TablesFile, engine, logger)
		scheduler.Register(reloader.Task(cfg.Routes.ReloadInterval))
		scheduler.Start(context.Background())
		resources = append(resources, server.NewCustomResource("task-scheduler", func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		}))
	}

	cookies := session.CookieWriter{
		Secure:          cfg.Auth.SecureCookies,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}

	metrics := observability.NewMetrics(observability.DefaultMetricsConfig("hiring_edge"))
	routingMetrics := observability.NewRoutingMetrics("hiring_edge")

	authHandler := authhandlers.NewHandler(cfg.Backend, cookies, logger)
	authHandler.OnUpstreamError = func(endpoint string) {
		routingMetrics.UpstreamErrors.WithLabelValues(endpoint).Inc()
	}

	upstream, err := proxy.New(cfg.Backend, logger, func(endpoint string) {
		routingMetrics.UpstreamErrors.WithLabelValues(endpoint).Inc()
	})
	if err != nil {
		log.Fatalf("Failed to build backend proxy: %v", err)
	}

	health := &observability.HealthConfig{
		Logger:       logger,
		DatabasePool: pool,
		CheckTimeout: 5 * time.Second,
		CustomChecks: map[string]observability.HealthCheck{
			"cache":   observability.RedisHealthCheck(store.Ping),
			"backend": observability.BackendHealthCheck(cfg.Backend.BaseURL+"/health", nil),
		},
		IncludeSystemInfo: true,
	}

	handler := router.New(router.Deps{
		Config:         cfg,
		Logger:         logger,
		Engine:         engine,
		Directory:      directory,
		Cache:          store,
		Auth:           authHandler,
		Proxy:          upstream,
		Metrics:        metrics,
		RoutingMetrics: routingMetrics,
		Health:         health,
	})

	srvConfig := server.DefaultConfig(":" + cfg.Server.Port)
	srvConfig.Logger = logger
	if cfg.TLS.Enabled {
		srvConfig.TLSCertFile = cfg.TLS.CertFile
		srvConfig.TLSKeyFile = cfg.TLS.KeyFile
	}

	logger.Info("starting tenant edge",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"domain", cfg.Server.Domain,
		"backend", cfg.Backend.BaseURL,
		"directory_enabled", directory != nil,
	)

	if err := server.Start(handler, srvConfig, resources); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// buildCache prefers Redis and falls back to the in-process cache, so a
// single-node deployment needs no extra infrastructure.
func buildCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemoryCache(nil)
	}

	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Addr = cfg.Redis.Addr
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.Logger = logger

	store, err := cache.NewRedisCache(redisCfg)
	if err != nil {
		logger.Warn("redis unreachable, using in-memory cache", "error", err)
		return cache.NewMemoryCache(nil)
	}

	if err := store.Ping(context.Background()); err != nil {
		logger.Warn("redis ping failed, using in-memory cache", "error", err)
		return cache.NewMemoryCache(nil)
	}

	return store
}

func loadTables(cfg *config.Config, logger *slog.Logger) (*routing.Tables, error) {
	if cfg.Routes.TablesFile == "" {
		logger.Info("using built-in route tables")
		return routing.DefaultTables(), nil
	}

	logger.Info("loading route tables", "file", cfg.Routes.TablesFile)
	return routing.LoadTables(cfg.Routes.TablesFile)
}
