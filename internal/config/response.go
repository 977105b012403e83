package config

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the standard JSON error shape for the API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// RespondError sends a standard JSON error response.
func RespondError(w http.ResponseWriter, statusCode int, message string, details string, logger *slog.Logger) {
	if logger != nil {
		logger.Error("responding with error",
			"status_code", statusCode,
			"message", message,
			"details", details,
		)
	}

	RespondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Details: details,
	})
}

// RespondUnauthorized is a helper for 401 responses.
func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "Unauthorized",
		Message: message,
	})
}

// RespondBadGateway is a helper for 502 responses when the backend is
// unreachable.
func RespondBadGateway(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusBadGateway, ErrorResponse{
		Error:   "Bad Gateway",
		Message: message,
	})
}
