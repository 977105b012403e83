package middlewares

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// RecoveryConfig holds configuration for recovery middleware
type RecoveryConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// DisableStackTrace disables stack trace in panic recovery
	// Default: false
	DisableStackTrace bool

	// Recovery function that handles the panic
	RecoveryHandler func(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte)

	// Development mode provides more detailed error responses
	// Default: false (should be true only in development)
	Development bool
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:            nil, // Will use slog.Default()
		Skipper:           nil,
		DisableStackTrace: false,
		RecoveryHandler:   defaultRecoveryHandler,
		Development:       false,
	}
}

// defaultRecoveryHandler is the default recovery handler
func defaultRecoveryHandler(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	response := map[string]interface{}{
		"error":   "Internal Server Error",
		"message": "An unexpected error occurred",
	}

	json.NewEncoder(w).Encode(response)
}

// developmentRecoveryHandler provides detailed error information for development
func developmentRecoveryHandler(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	response := map[string]interface{}{
		"error":      "Internal Server Error",
		"message":    fmt.Sprintf("Panic: %v", err),
		"stack":      string(stack),
		"method":     r.Method,
		"path":       r.URL.Path,
		"timestamp":  time.Now().Format(time.RFC3339),
		"request_id": r.Header.Get("X-Request-ID"),
	}

	json.NewEncoder(w).Encode(response)
}

// Recovery returns a recovery middleware that recovers from panics
func Recovery(config *RecoveryConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	// Set defaults
	if config.RecoveryHandler == nil {
		if config.Development {
			config.RecoveryHandler = developmentRecoveryHandler
		} else {
			config.RecoveryHandler = defaultRecoveryHandler
		}
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

			defer func() {
				if err := recover(); err != nil {
					var stack []byte
					if !config.DisableStackTrace {
						stack = debug.Stack()
					}

					logAttrs := []any{
						"method", r.Method,
						"path", r.URL.Path,
						"client_ip", getClientIP(r),
						"error", fmt.Sprintf("%v", err),
					}

					if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
						logAttrs = append(logAttrs, "request_id", requestID)
					}

					if !config.DisableStackTrace {
						logAttrs = append(logAttrs, "stack", string(stack))
					}

					logger.Error("panic recovered", logAttrs...)

					config.RecoveryHandler(w, r, err, stack)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
