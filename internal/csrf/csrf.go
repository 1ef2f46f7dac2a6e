// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// A random token is set in a cookie and echoed by every unsafe request,
// either in the X-CSRF-Token header (htmx requests) or the csrf_token form
// field. Other origins can make the browser send the cookie but cannot read
// it, so they cannot echo it.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "csrf_token"

	// FormFieldName is the name of the CSRF token form field.
	FormFieldName = "csrf_token"

	// HeaderName is the request header htmx sends the token in.
	HeaderName = "X-CSRF-Token"

	// TokenLength is the number of random bytes for the token.
	TokenLength = 32

	// CookieMaxAge is the lifetime of the CSRF cookie in seconds.
	CookieMaxAge = 12 * 3600
)

// =============================================================================
// Tokens
// =============================================================================

// GenerateToken returns 32 random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the cookie token with the submitted token in
// constant time.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// ValidateRequest checks the submitted token against the cookie. The header
// is preferred; the form field is read only when the header is absent.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.FormValue(FormFieldName)
	}
	return ValidateToken(cookie.Value, submitted)
}

// SetCookie sets the CSRF token cookie. It is not HttpOnly so htmx pages can
// copy it into request headers.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetTokenFromRequest returns the token cookie value, or "".
func GetTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken returns the request's token, issuing a new cookie when there is
// none.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if token := GetTokenFromRequest(r); token != "" {
		return token, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	SetCookie(w, token, isSecure)
	return token, nil
}

// =============================================================================
// Context
// =============================================================================

type tokenKey struct{}

// WithToken stores the token for templates rendered later in the request.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the token stored by the middleware, or "".
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// =============================================================================
// Middleware
// =============================================================================

// Middleware issues tokens on safe requests and rejects unsafe requests
// that do not echo the cookie.
type Middleware struct {
	isSecure bool
	logger   *slog.Logger
}

// NewMiddleware creates CSRF middleware. isSecure marks the cookie Secure.
func NewMiddleware(isSecure bool, logger *slog.Logger) *Middleware {
	return &Middleware{isSecure: isSecure, logger: logger}
}

// Protect wraps next with token issuing and validation.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := EnsureToken(w, r, m.isSecure)
			if err != nil {
				m.logger.Error("failed to generate csrf token", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
			return
		}

		if !ValidateRequest(r) {
			m.logger.Warn("csrf token mismatch",
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), GetTokenFromRequest(r))))
	})
}
