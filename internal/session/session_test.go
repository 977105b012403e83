package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCookieDomain(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"localhost":             "",
		"localhost:3000":        "",
		"acme.localhost":        ".localhost",
		"acme.localhost:3000":   ".localhost",
		"127.0.0.1":             "",
		"192.168.1.10:8080":     "",
		"example.com":           ".example.com",
		"acme.example.com":      ".example.com",
		"a.b.example.com":       ".example.com",
		"ACME.Example.COM:8443": ".example.com",
		"":                      "",
	}

	for hostname, want := range tests {
		if got := CookieDomain(hostname); got != want {
			t.Errorf("CookieDomain(%q) = %q, want %q", hostname, got, want)
		}
	}
}

func TestCookieDomainIdempotent(t *testing.T) {
	t.Parallel()

	for _, h := range []string{"localhost", "acme.localhost", "acme.example.com"} {
		first := CookieDomain(h)
		for i := 0; i < 3; i++ {
			if got := CookieDomain(h); got != first {
				t.Fatalf("CookieDomain(%q) not stable: %q then %q", h, first, got)
			}
		}
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	sig := Extract(map[string]bool{CookieAccessToken: true}, Hint{})
	if !sig.IsAuthenticated || !sig.HasAccessTokenCookie {
		t.Fatalf("expected authenticated signal, got %+v", sig)
	}

	sig = Extract(map[string]bool{"other": true}, Hint{CompanySubdomain: "acme"})
	if sig.IsAuthenticated {
		t.Fatalf("expected unauthenticated signal, got %+v", sig)
	}
	if sig.TenantOfRecord != "acme" {
		t.Fatalf("expected tenant hint to carry over, got %q", sig.TenantOfRecord)
	}
}

func TestHintRoundTrip(t *testing.T) {
	t.Parallel()

	done := true
	encoded := EncodeHint(Hint{CompanySubdomain: "acme", OnboardingCompleted: &done})

	got := ParseHint(encoded)
	if got.CompanySubdomain != "acme" {
		t.Fatalf("expected companySubdomain acme, got %q", got.CompanySubdomain)
	}
	if got.OnboardingCompleted == nil || !*got.OnboardingCompleted {
		t.Fatalf("expected onboardingCompleted true, got %v", got.OnboardingCompleted)
	}
}

func TestParseHintMalformed(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"", "not-json", "%zz", `{"companySubdomain":5}`} {
		if got := ParseHint(v); got != (Hint{}) {
			t.Errorf("ParseHint(%q) = %+v, want zero hint", v, got)
		}
	}
}

func TestSignalFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://acme.example.com/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "opaque"})
	r.AddCookie(&http.Cookie{Name: CookieHint, Value: EncodeHint(Hint{CompanySubdomain: "acme"})})

	sig := FromRequest(r)
	if !sig.IsAuthenticated {
		t.Fatal("expected authenticated signal")
	}
	if sig.TenantOfRecord != "acme" {
		t.Fatalf("expected tenantOfRecord acme, got %q", sig.TenantOfRecord)
	}
}

func TestCookieWriterSetAndClear(t *testing.T) {
	t.Parallel()

	cw := CookieWriter{Secure: true, AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: 7 * 24 * time.Hour}

	w := httptest.NewRecorder()
	cw.SetAuth(w, "acme.example.com", "at", "rt", Hint{CompanySubdomain: "acme"})

	cookies := w.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieHint} {
		c, ok := byName[name]
		if !ok {
			t.Fatalf("cookie %s not set", name)
		}
		if c.Domain != "example.com" && c.Domain != ".example.com" {
			t.Errorf("cookie %s domain = %q, want .example.com", name, c.Domain)
		}
		if !c.Secure {
			t.Errorf("cookie %s should be Secure", name)
		}
	}
	if !byName[CookieAccessToken].HttpOnly {
		t.Error("accessToken must be HttpOnly")
	}
	if byName[CookieHint].HttpOnly {
		t.Error("hint cookie must stay client-visible")
	}

	w = httptest.NewRecorder()
	cw.ClearAuth(w, "acme.example.com")
	for _, raw := range w.Header().Values("Set-Cookie") {
		if !strings.Contains(raw, "Max-Age=0") {
			t.Errorf("clearing cookie must use Max-Age=0, got %q", raw)
		}
		if !strings.Contains(strings.ToLower(raw), "domain=example.com") &&
			!strings.Contains(strings.ToLower(raw), "domain=.example.com") {
			t.Errorf("clearing cookie must reuse the set domain, got %q", raw)
		}
	}
}
