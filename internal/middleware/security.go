package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware adds HTTP security headers to all responses.
type SecurityHeadersMiddleware struct {
	isSecure bool   // Enable HTTPS-only headers (production)
	csp      string // Content-Security-Policy value
}

// NewSecurityHeadersMiddleware creates a new security headers middleware.
// storageOrigin is added to img-src and connect-src so document downloads and
// previews from object storage are allowed; pass "" for local storage.
func NewSecurityHeadersMiddleware(isSecure bool, storageOrigin string) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
		csp:      buildCSP(storageOrigin),
	}
}

// Handler returns middleware that sets security headers on all responses.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		h.Set("Content-Security-Policy", m.csp)
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Pages and their htmx partials share URLs; caches must key on the header.
		h.Add("Vary", "HX-Request")

		next.ServeHTTP(w, r)
	})
}

// buildCSP constructs the Content-Security-Policy header value for the
// server-rendered UI (htmx from unpkg, Tailwind inline styles).
func buildCSP(storageOrigin string) string {
	extra := ""
	if storageOrigin = strings.TrimSpace(storageOrigin); storageOrigin != "" {
		extra = " " + storageOrigin
	}

	directives := []string{
		"default-src 'self'",
		"script-src 'self' https://unpkg.com",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:" + extra,
		"font-src 'self'",
		"connect-src 'self'" + extra,
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
