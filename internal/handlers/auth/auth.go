package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hiring_edge/internal/config"
	"hiring_edge/internal/session"
)

// maxBodySize caps auth request bodies; login payloads are small.
const maxBodySize = 1 << 20

// Handler proxies the auth endpoints to the backend identity service and
// owns the session cookies. Tokens never reach the browser as JSON: the
// backend's token response is translated into HttpOnly cookies here.
type Handler struct {
	Backend config.BackendConfig
	Client  *http.Client
	Cookies session.CookieWriter
	Logger  *slog.Logger

	// OnUpstreamError is an optional metrics hook called with the endpoint
	// name when the backend call fails.
	OnUpstreamError func(endpoint string)
}

// NewHandler builds the auth handler with a timeout-bounded client.
func NewHandler(backend config.BackendConfig, cookies session.CookieWriter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := backend.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		Backend: backend,
		Client:  &http.Client{Timeout: timeout},
		Cookies: cookies,
		Logger:  logger,
	}
}

// tokenResponse is the backend's shape for login and refresh responses.
type tokenResponse struct {
	AccessToken         string          `json:"accessToken"`
	RefreshToken        string          `json:"refreshToken"`
	User                json.RawMessage `json:"user,omitempty"`
	CompanySubdomain    string          `json:"companySubdomain,omitempty"`
	OnboardingCompleted *bool           `json:"onboardingCompleted,omitempty"`
}

// sessionResponse is what the browser gets back: the token fields are
// stripped, everything else passes through.
type sessionResponse struct {
	User                json.RawMessage `json:"user,omitempty"`
	CompanySubdomain    string          `json:"companySubdomain,omitempty"`
	OnboardingCompleted *bool           `json:"onboardingCompleted,omitempty"`
}

// Login handles POST /api/auth/login. The credentials body is forwarded to
// the backend; on success the tokens become cookies scoped to the request's
// hostname and the hint cookie records the tenant of record.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		config.RespondError(w, http.StatusBadRequest, "Invalid request body", err.Error(), h.Logger)
		return
	}

	resp, err := h.forward(r, "/auth/login", body, "")
	if err != nil {
		h.upstreamError(w, "login", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.relayError(w, resp, "login")
		return
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil || tokens.AccessToken == "" {
		config.RespondBadGateway(w, "Malformed response from identity service")
		return
	}

	hint := session.Hint{
		CompanySubdomain:    tokens.CompanySubdomain,
		OnboardingCompleted: tokens.OnboardingCompleted,
	}
	h.Cookies.SetAuth(w, r.Host, tokens.AccessToken, tokens.RefreshToken, hint)

	h.Logger.Info("login succeeded",
		"host", r.Host,
		"tenant", tokens.CompanySubdomain,
	)

	config.RespondJSON(w, http.StatusOK, sessionResponse{
		User:                tokens.User,
		CompanySubdomain:    tokens.CompanySubdomain,
		OnboardingCompleted: tokens.OnboardingCompleted,
	})
}

// Logout handles POST /api/auth/logout. The backend call is best effort:
// the cookies are cleared even when the backend is down, so the browser
// session always ends.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := ""
	if c, err := r.Cookie(session.CookieAccessToken); err == nil {
		accessToken = c.Value
	}

	if accessToken != "" {
		resp, err := h.forward(r, "/auth/logout", nil, accessToken)
		if err != nil {
			h.Logger.Warn("logout backend call failed", "error", err)
			if h.OnUpstreamError != nil {
				h.OnUpstreamError("logout")
			}
		} else {
			resp.Body.Close()
		}
	}

	h.Cookies.ClearAuth(w, r.Host)
	config.RespondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Refresh handles POST /api/auth/refresh. The refresh token cookie is
// exchanged for a new token pair; both cookies rotate.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(session.CookieRefreshToken)
	if err != nil || c.Value == "" {
		config.RespondUnauthorized(w, "No refresh token")
		return
	}

	payload, _ := json.Marshal(map[string]string{"refreshToken": c.Value})

	resp, err := h.forward(r, "/auth/refresh", payload, "")
	if err != nil {
		h.upstreamError(w, "refresh", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A rejected refresh token is a dead session.
		h.Cookies.ClearAuth(w, r.Host)
		h.relayError(w, resp, "refresh")
		return
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil || tokens.AccessToken == "" {
		config.RespondBadGateway(w, "Malformed response from identity service")
		return
	}

	hint := session.Hint{
		CompanySubdomain:    tokens.CompanySubdomain,
		OnboardingCompleted: tokens.OnboardingCompleted,
	}
	h.Cookies.SetAuth(w, r.Host, tokens.AccessToken, tokens.RefreshToken, hint)

	config.RespondJSON(w, http.StatusOK, sessionResponse{
		User:                tokens.User,
		CompanySubdomain:    tokens.CompanySubdomain,
		OnboardingCompleted: tokens.OnboardingCompleted,
	})
}

// forward issues a POST to the backend, carrying the request id for
// tracing and an optional bearer token.
func (h *Handler) forward(r *http.Request, path string, body []byte, bearer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.Backend.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return h.Client.Do(req)
}

// relayError passes the backend's status and body through to the browser.
func (h *Handler) relayError(w http.ResponseWriter, resp *http.Response, endpoint string) {
	h.Logger.Warn("identity service rejected request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
	)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		w.Write(body)
	}
}

func (h *Handler) upstreamError(w http.ResponseWriter, endpoint string, err error) {
	h.Logger.Error("identity service unreachable",
		"endpoint", endpoint,
		"error", err,
	)
	if h.OnUpstreamError != nil {
		h.OnUpstreamError(endpoint)
	}
	config.RespondBadGateway(w, "Identity service unavailable")
}
