package middlewares

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"hiring_edge/internal/tenant"
)

// responseWriter wraps http.ResponseWriter to capture response details for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

// WriteHeader captures the status code for logging
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures response size for logging
func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += int64(n)
	return n, err
}

// Hijack implements the http.Hijacker interface for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("the ResponseWriter doesn't support Hijacker")
	}
	return hijacker.Hijack()
}

// LoggerConfig holds configuration options for the HTTP request logger middleware.
// Request and response bodies are never logged here: auth payloads flow through
// this edge and tokens must not reach the logs.
type LoggerConfig struct {
	Logger             *slog.Logger // Structured logger instance (stdlib)
	SkipPaths          []string     // Paths to skip logging (e.g., health checks)
	IncludeUserAgent   bool         // Whether to include User-Agent header
	IncludeQueryParams bool         // Whether to include query parameters
}

// DefaultLoggerConfig creates a production-ready logger configuration with sensible defaults
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Logger:             slog.Default(),
		SkipPaths:          []string{"/health", "/ready", "/metrics", "/favicon.ico"},
		IncludeUserAgent:   true,
		IncludeQueryParams: true,
	}
}

// Logger creates an HTTP logging middleware that captures request/response details
func Logger(config *LoggerConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipPath(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()

			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrappedWriter, r)

			requestDuration := time.Since(startTime)

			logFields := buildLogFields(r, wrappedWriter, requestDuration, config)
			logRequest(config.Logger, wrappedWriter.statusCode, logFields)
		})
	}
}

// shouldSkipPath checks if the given path should be skipped from logging
func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

// buildLogFields creates structured log fields from request and response data
func buildLogFields(r *http.Request, rw *responseWriter, duration time.Duration, config *LoggerConfig) []any {
	fields := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.statusCode,
		"latency_ms", duration.Milliseconds(),
		"client_ip", r.RemoteAddr,
		"host", r.Host,
		"response_size", rw.bytesWritten,
	}

	if tc := tenant.FromRequest(r); tc.HasTenant() {
		fields = append(fields, "tenant", tc.Subdomain)
	}

	if config.IncludeQueryParams && len(r.URL.RawQuery) > 0 {
		fields = append(fields, "query", r.URL.RawQuery)
	}

	if config.IncludeUserAgent {
		if userAgent := r.Header.Get("User-Agent"); userAgent != "" {
			fields = append(fields, "user_agent", userAgent)
		}
	}

	return fields
}

// logRequest logs the request with appropriate level based on status code
func logRequest(logger *slog.Logger, statusCode int, fields []any) {
	switch {
	case statusCode >= 500:
		logger.Error("server error", fields...)
	case statusCode >= 400:
		logger.Warn("client error", fields...)
	default:
		logger.Info("request handled", fields...)
	}
}
