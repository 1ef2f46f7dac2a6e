package csrf

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Token(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	m := NewMiddleware(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return m.Protect(next), &seen
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 44)
	assert.NotEqual(t, a, b)
}

func TestValidateToken(t *testing.T) {
	assert.True(t, ValidateToken("abc", "abc"))
	assert.False(t, ValidateToken("abc", "abd"))
	assert.False(t, ValidateToken("", ""))
	assert.False(t, ValidateToken("abc", ""))
}

func TestProtect_GetIssuesToken(t *testing.T) {
	h, seen := newProtected(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasets", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, *seen)
}

func TestProtect_GetReusesExistingToken(t *testing.T) {
	h, seen := newProtected(t)

	req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "existing", *seen)
}

func TestProtect_PostRequiresToken(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		body   string
		status int
	}{
		{
			name:   "no cookie",
			setup:  func(r *http.Request) {},
			status: http.StatusForbidden,
		},
		{
			name: "header matches",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
				r.Header.Set(HeaderName, "tok")
			},
			status: http.StatusNoContent,
		},
		{
			name: "form field matches",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			},
			body:   url.Values{FormFieldName: {"tok"}}.Encode(),
			status: http.StatusNoContent,
		},
		{
			name: "mismatch",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
				r.Header.Set(HeaderName, "other")
			},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newProtected(t)
			req := httptest.NewRequest(http.MethodPost, "/datasets/x/documents/batch", strings.NewReader(tt.body))
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
