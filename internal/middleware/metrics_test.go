package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Metrics Auth Middleware Tests
// =============================================================================

func TestMetricsAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		setAuth    func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "valid credentials",
			username:   "prom",
			password:   "scrape",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("prom", "scrape") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing credentials",
			username:   "prom",
			password:   "scrape",
			setAuth:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong password",
			username:   "prom",
			password:   "scrape",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("prom", "nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong username",
			username:   "prom",
			password:   "scrape",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("grafana", "scrape") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer instead of basic",
			username:   "prom",
			password:   "scrape",
			setAuth:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth disabled",
			setAuth:    func(r *http.Request) {},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMetricsAuthMiddleware(tt.username, tt.password)
			wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("# HELP datadeck_http_requests_total"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			tt.setAuth(req)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if !strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Basic ") {
					t.Errorf("expected Basic challenge, got %q", rec.Header().Get("WWW-Authenticate"))
				}
				if strings.Contains(rec.Body.String(), "datadeck_") {
					t.Error("metrics leaked in unauthorized response")
				}
			}
		})
	}
}
