package middlewares

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// TimeoutConfig holds configuration for timeout middleware
type TimeoutConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Timeout duration for requests
	// Default: 30 seconds
	Timeout time.Duration

	// Message to return when timeout occurs
	// Default: "Request timeout"
	Message string

	// StatusCode to return when timeout occurs
	// Default: 504 (Gateway Timeout)
	StatusCode int

	// ErrorHandler handles timeout errors
	// Default: returns JSON error response
	ErrorHandler func(w http.ResponseWriter, r *http.Request)

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// OnTimeout is called when a timeout occurs
	OnTimeout func(r *http.Request, duration time.Duration)

	// SkipTimeoutForPaths defines paths that should not have timeout applied
	SkipTimeoutForPaths []string
}

// DefaultTimeoutConfig returns a default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Timeout:             30 * time.Second,
		Message:             "Request timeout",
		StatusCode:          http.StatusGatewayTimeout,
		ErrorHandler:        defaultTimeoutErrorHandler,
		SkipTimeoutForPaths: []string{"/health", "/ready", "/metrics"},
	}
}

// defaultTimeoutErrorHandler is the default timeout error handler
func defaultTimeoutErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusGatewayTimeout)

	response := map[string]interface{}{
		"error":     "Request Timeout",
		"message":   "The upstream took too long to respond",
		"timestamp": time.Now().Unix(),
	}

	json.NewEncoder(w).Encode(response)
}

// Timeout returns a timeout middleware. The request context is cancelled
// when the deadline passes so the proxy transport aborts the upstream call.
func Timeout(config *TimeoutConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultTimeoutConfig()
	}

	// Set defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.StatusCode <= 0 {
		config.StatusCode = http.StatusGatewayTimeout
	}
	if config.Message == "" {
		config.Message = "Request timeout"
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultTimeoutErrorHandler
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// Skip timeout for specific paths
			for _, path := range config.SkipTimeoutForPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()

			r = r.WithContext(ctx)

			done := make(chan struct{})
			start := time.Now()

			go func() {
				defer close(done)
				next.ServeHTTP(w, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				duration := time.Since(start)

				logger.Warn("request timeout",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", duration.String(),
					"timeout", config.Timeout.String(),
				)

				if config.OnTimeout != nil {
					config.OnTimeout(r, duration)
				}

				config.ErrorHandler(w, r)
			}
		})
	}
}

// ProxyTimeout creates a timeout configuration sized for proxied page loads
func ProxyTimeout(timeout time.Duration) *TimeoutConfig {
	config := DefaultTimeoutConfig()
	config.Timeout = timeout
	return config
}
