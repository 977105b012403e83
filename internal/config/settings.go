package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete edge configuration, loaded once at startup.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	TLS      TLSConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Tenancy  TenancyConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Routes   RoutesConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Version     string
	Environment string // development, staging, production
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     string
	Protocol string // http or https
	Domain   string // apex domain served by this edge
}

// TLSConfig holds TLS certificate settings.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig holds the tenant directory database settings.
type DatabaseConfig struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// RedisConfig holds Redis settings; empty Addr means in-memory caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BackendConfig points at the identity/API backend the auth endpoints
// proxy to.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TenancyConfig holds tenant resolution settings.
type TenancyConfig struct {
	// DefaultSlug is the fallback tenant for the local-dev rewrite when a
	// session has no tenant of record.
	DefaultSlug string

	// DirectoryTTL bounds how long tenant directory lookups are cached.
	DirectoryTTL time.Duration
}

// AuthConfig holds session cookie settings.
type AuthConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SecureCookies   bool

	// CSRFProtection enables the double-submit check on the auth
	// endpoints. On by default in production.
	CSRFProtection bool
}

// CORSConfig holds CORS middleware settings for the API routes.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RoutesConfig points at the externally configured route tables.
type RoutesConfig struct {
	// TablesFile is an optional YAML file overriding the compiled-in
	// route tables.
	TablesFile string

	// ReloadInterval enables periodic reloading of TablesFile when
	// positive. Zero disables reloading.
	ReloadInterval time.Duration
}

// Load reads configuration from environment variables (and .env if
// present). Missing required values fail here, at startup, never per
// request.
func Load(logger *slog.Logger) (*Config, error) {
	godotenv.Load()

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("loading edge configuration")

	cfg := &Config{}

	loadAppConfig(&cfg.App, logger)
	if err := loadServerConfig(&cfg.Server, logger); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	loadTLSConfig(&cfg.TLS, logger)
	loadDatabaseConfig(&cfg.Database, logger)
	loadRedisConfig(&cfg.Redis, logger)
	if err := loadBackendConfig(&cfg.Backend); err != nil {
		return nil, fmt.Errorf("failed to load backend config: %w", err)
	}
	loadTenancyConfig(&cfg.Tenancy)
	loadAuthConfig(&cfg.Auth, cfg)
	loadCORSConfig(&cfg.CORS, logger)
	cfg.Routes.TablesFile = os.Getenv("ROUTE_TABLES_FILE")
	cfg.Routes.ReloadInterval = time.Duration(getEnvAsInt("ROUTE_TABLES_RELOAD_SECONDS", 0)) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"port", cfg.Server.Port,
		"domain", cfg.Server.Domain,
	)

	return cfg, nil
}

func loadAppConfig(cfg *AppConfig, logger *slog.Logger) {
	cfg.Version = os.Getenv("VERSION")
	if cfg.Version == "" {
		cfg.Version = "0.0.0-dev"
	}

	cfg.Environment = os.Getenv("ENV")
	if cfg.Environment == "" {
		cfg.Environment = "development"
		logger.Warn("ENV not set, using default", "default", cfg.Environment)
	}
}

func loadServerConfig(cfg *ServerConfig, logger *slog.Logger) error {
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		return fmt.Errorf("PORT environment variable is required")
	}

	cfg.Protocol = os.Getenv("PROTOCOL")
	if cfg.Protocol == "" {
		cfg.Protocol = "http"
	}

	cfg.Domain = os.Getenv("DOMAIN")
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
		logger.Warn("DOMAIN not set, using default", "default", cfg.Domain)
	}

	return nil
}

func loadTLSConfig(cfg *TLSConfig, logger *slog.Logger) {
	cfg.CertFile = os.Getenv("TLS_CERT_FILE")
	cfg.KeyFile = os.Getenv("TLS_KEY_FILE")
	cfg.Enabled = cfg.CertFile != "" && cfg.KeyFile != ""

	if cfg.Enabled {
		logger.Info("TLS enabled", "cert_file", cfg.CertFile)
	}
}

func loadDatabaseConfig(cfg *DatabaseConfig, logger *slog.Logger) {
	cfg.URL = os.Getenv("DB_URL")
	if cfg.URL == "" {
		logger.Warn("DB_URL not set, tenant directory lookups disabled")
	}

	cfg.MaxConns = getEnvAsInt32("DB_MAX_CONNS", 10)
	cfg.MinConns = getEnvAsInt32("DB_MIN_CONNS", 2)
	cfg.HealthCheckPeriod = time.Duration(getEnvAsInt32("DB_HEALTH_CHECK_PERIOD_SECONDS", 60)) * time.Second
	cfg.MaxConnLifetime = time.Duration(getEnvAsInt32("DB_MAX_CONN_LIFETIME_MINUTES", 0)) * time.Minute
	cfg.MaxConnIdleTime = time.Duration(getEnvAsInt32("DB_MAX_CONN_IDLE_TIME_MINUTES", 0)) * time.Minute
	cfg.ConnectTimeout = 10 * time.Second
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Second
}

func loadRedisConfig(cfg *RedisConfig, logger *slog.Logger) {
	cfg.Addr = os.Getenv("REDIS_ADDR")
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	cfg.DB = getEnvAsInt("REDIS_DB", 0)

	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not set, falling back to in-memory cache")
	}
}

func loadBackendConfig(cfg *BackendConfig) error {
	cfg.BaseURL = strings.TrimSuffix(os.Getenv("BACKEND_BASE_URL"), "/")
	if cfg.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL environment variable is required")
	}

	cfg.Timeout = time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second
	return nil
}

func loadTenancyConfig(cfg *TenancyConfig) {
	cfg.DefaultSlug = os.Getenv("TENANCY_DEFAULT_SLUG")
	if cfg.DefaultSlug == "" {
		cfg.DefaultSlug = "default"
	}
	cfg.DirectoryTTL = time.Duration(getEnvAsInt("TENANCY_DIRECTORY_TTL_SECONDS", 300)) * time.Second
}

func loadAuthConfig(cfg *AuthConfig, root *Config) {
	cfg.AccessTokenTTL = time.Duration(getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 168)) * time.Hour
	cfg.SecureCookies = getEnvAsBool("AUTH_SECURE_COOKIES", root.IsProduction())
	cfg.CSRFProtection = getEnvAsBool("AUTH_CSRF_ENABLED", root.IsProduction())
}

func loadCORSConfig(cfg *CORSConfig, logger *slog.Logger) {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins, ",")
	} else {
		cfg.AllowedOrigins = []string{"*"}
		logger.Warn("CORS_ALLOWED_ORIGINS not set, allowing all origins (not recommended for production)")
	}

	if methods := os.Getenv("CORS_ALLOWED_METHODS"); methods != "" {
		cfg.AllowedMethods = splitAndTrim(methods, ",")
	} else {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	}

	if headers := os.Getenv("CORS_ALLOWED_HEADERS"); headers != "" {
		cfg.AllowedHeaders = splitAndTrim(headers, ",")
	} else {
		cfg.AllowedHeaders = []string{"Content-Type", "Authorization", "X-Requested-With", "X-Company-Subdomain"}
	}

	cfg.AllowCredentials = getEnvAsBool("CORS_ALLOW_CREDENTIALS", true)
	cfg.MaxAge = getEnvAsInt("CORS_MAX_AGE", 3600)
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate rejects configuration this edge cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if c.IsProduction() && len(c.CORS.AllowedOrigins) == 1 && c.CORS.AllowedOrigins[0] == "*" {
		return fmt.Errorf("CORS wildcard origin (*) is not allowed in production")
	}
	if c.IsProduction() && !c.Auth.SecureCookies {
		return fmt.Errorf("secure cookies are required in production")
	}
	return nil
}

// Helper functions

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsInt32(key string, defaultVal int32) int32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return int32(parsed)
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
