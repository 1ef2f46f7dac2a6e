package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/datasets", "/datasets"},
		{"/datasets/550e8400-e29b-41d4-a716-446655440000/documents", "/datasets/{id}/documents"},
		{
			"/datasets/550e8400-e29b-41d4-a716-446655440000/documents/6ba7b810-9dad-11d1-80b4-00c04fd430c8/download",
			"/datasets/{id}/documents/{id}/download",
		},
		{
			"/pipelines/550e8400-e29b-41d4-a716-446655440000/input-fields/customer_name",
			"/pipelines/{id}/input-fields/{variable}",
		},
		{"/pipelines/550e8400-e29b-41d4-a716-446655440000/input-fields", "/pipelines/{id}/input-fields"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/datasets/{id}/documents", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasets/550e8400-e29b-41d4-a716-446655440000/documents", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	before := testutil.ToFloat64(counter)

	Middleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, before, testutil.ToFloat64(counter))
}
