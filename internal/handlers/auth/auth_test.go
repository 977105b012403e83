package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hiring_edge/internal/config"
	"hiring_edge/internal/session"
)

func newTestHandler(t *testing.T, backend http.HandlerFunc) *Handler {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	return NewHandler(
		config.BackendConfig{BaseURL: srv.URL, Timeout: 2 * time.Second},
		session.CookieWriter{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func cookieByName(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestLoginSetsScopedCookies(t *testing.T) {
	t.Parallel()

	onboarded := true
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("backend path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":         "at-1",
			"refreshToken":        "rt-1",
			"user":                map[string]string{"email": "x@acme.test"},
			"companySubdomain":    "acme",
			"onboardingCompleted": onboarded,
		})
	})

	r := httptest.NewRequest(http.MethodPost, "http://acme.example.com/api/auth/login",
		strings.NewReader(`{"email":"x@acme.test","password":"pw"}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	cookies := w.Result().Cookies()

	// The serializer strips the leading dot from ".example.com", and
	// cookies parsed back from the response carry the on-wire form.
	access := cookieByName(t, cookies, session.CookieAccessToken)
	if access.Value != "at-1" || !access.HttpOnly || access.Domain != "example.com" {
		t.Errorf("access cookie = %+v", access)
	}

	refresh := cookieByName(t, cookies, session.CookieRefreshToken)
	if refresh.Value != "rt-1" || !refresh.HttpOnly {
		t.Errorf("refresh cookie = %+v", refresh)
	}

	hint := cookieByName(t, cookies, session.CookieHint)
	if hint.HttpOnly {
		t.Error("hint cookie must be client-visible")
	}
	parsed := session.ParseHint(hint.Value)
	if parsed.CompanySubdomain != "acme" || parsed.OnboardingCompleted == nil || !*parsed.OnboardingCompleted {
		t.Errorf("hint = %+v", parsed)
	}

	// Tokens must not leak into the response body.
	if body := w.Body.String(); strings.Contains(body, "at-1") || strings.Contains(body, "rt-1") {
		t.Errorf("token leaked into body: %s", body)
	}
}

func TestLoginRelaysBackendRejection(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	r := httptest.NewRequest(http.MethodPost, "http://example.com/api/auth/login",
		strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Errorf("no cookies expected, got %v", w.Result().Cookies())
	}
}

func TestLoginBackendDown(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	h.Backend.BaseURL = "http://127.0.0.1:1"
	var failed []string
	h.OnUpstreamError = func(endpoint string) { failed = append(failed, endpoint) }

	r := httptest.NewRequest(http.MethodPost, "http://example.com/api/auth/login",
		strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Login(w, r)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if len(failed) != 1 || failed[0] != "login" {
		t.Errorf("upstream error hook = %v", failed)
	}
}

func TestLogoutClearsCookiesEvenWhenBackendDown(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	h.Backend.BaseURL = "http://127.0.0.1:1"

	r := httptest.NewRequest(http.MethodPost, "http://acme.example.com/api/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieAccessToken, Value: "at-1"})
	w := httptest.NewRecorder()

	h.Logout(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	cookies := w.Result().Cookies()
	for _, name := range []string{session.CookieAccessToken, session.CookieRefreshToken, session.CookieHint} {
		c := cookieByName(t, cookies, name)
		if c.MaxAge >= 0 && !c.Expires.Before(time.Now()) {
			t.Errorf("cookie %q not expired: %+v", name, c)
		}
		if c.Domain != "example.com" {
			t.Errorf("cookie %q domain = %q, clearing must reuse the set domain", name, c.Domain)
		}
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["refreshToken"] != "rt-old" {
			t.Errorf("refresh token forwarded = %q", req["refreshToken"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":      "at-new",
			"refreshToken":     "rt-new",
			"companySubdomain": "acme",
		})
	})

	r := httptest.NewRequest(http.MethodPost, "http://acme.example.com/api/auth/refresh", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieRefreshToken, Value: "rt-old"})
	w := httptest.NewRecorder()

	h.Refresh(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if c := cookieByName(t, cookies, session.CookieAccessToken); c.Value != "at-new" {
		t.Errorf("access cookie = %q, want at-new", c.Value)
	}
	if c := cookieByName(t, cookies, session.CookieRefreshToken); c.Value != "rt-new" {
		t.Errorf("refresh cookie = %q, want rt-new", c.Value)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})

	r := httptest.NewRequest(http.MethodPost, "http://example.com/api/auth/refresh", nil)
	w := httptest.NewRecorder()

	h.Refresh(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRefreshRejectionEndsSession(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	r := httptest.NewRequest(http.MethodPost, "http://acme.example.com/api/auth/refresh", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieRefreshToken, Value: "rt-stale"})
	w := httptest.NewRecorder()

	h.Refresh(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	c := cookieByName(t, w.Result().Cookies(), session.CookieRefreshToken)
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("stale refresh cookie should be cleared, got %+v", c)
	}
}
