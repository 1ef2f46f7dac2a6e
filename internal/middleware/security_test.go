package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Security Headers Middleware Tests
// =============================================================================

func serveWithSecurity(isSecure bool, storageOrigin string) *httptest.ResponseRecorder {
	mw := NewSecurityHeadersMiddleware(isSecure, storageOrigin)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasets", nil))
	return rec
}

func TestSecurityHeadersMiddleware_SetsHeaders(t *testing.T) {
	rec := serveWithSecurity(false, "")

	expected := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
		"Vary":                   "HX-Request",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set outside production")
	}
}

func TestSecurityHeadersMiddleware_HSTSInProduction(t *testing.T) {
	rec := serveWithSecurity(true, "")

	if !strings.Contains(rec.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Errorf("expected HSTS header, got %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestSecurityHeadersMiddleware_CSP(t *testing.T) {
	csp := serveWithSecurity(false, "").Header().Get("Content-Security-Policy")

	for _, want := range []string{
		"default-src 'self'",
		"script-src 'self' https://unpkg.com",
		"style-src 'self' 'unsafe-inline'",
		"frame-ancestors 'none'",
	} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP should contain %q, got %q", want, csp)
		}
	}
	if strings.Contains(csp, "script-src 'self' https://unpkg.com 'unsafe-inline'") {
		t.Error("inline scripts should not be allowed")
	}
}

func TestSecurityHeadersMiddleware_CSPAllowsStorageOrigin(t *testing.T) {
	csp := serveWithSecurity(false, "https://files.example.com").Header().Get("Content-Security-Policy")

	if !strings.Contains(csp, "img-src 'self' data: https://files.example.com") {
		t.Errorf("img-src should include storage origin, got %q", csp)
	}
	if !strings.Contains(csp, "connect-src 'self' https://files.example.com") {
		t.Errorf("connect-src should include storage origin, got %q", csp)
	}
}
