package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/percussion/tenantd/kit/prom/promtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Test_normalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "root", path: "/", expected: "/"},
		{name: "health", path: "/health", expected: "/health"},
		{name: "tenants collection", path: "/api/v1/tenants", expected: "/api/v1/tenants"},
		{name: "tenant id", path: "/api/v1/tenants/acme", expected: "/api/v1/tenants/:id"},
		{name: "tenant subresource", path: "/api/v1/tenants/acme/authorization", expected: "/api/v1/tenants/:id/authorization"},
		{name: "cache entry", path: "/api/v1/tenantcache/acme", expected: "/api/v1/tenantcache/:id"},
		{name: "cache scavenge", path: "/api/v1/tenantcache/scavenge", expected: "/api/v1/tenantcache/scavenge"},
		{name: "proxied content", path: "/site/pages/index.html", expected: "/:proxy"},
		{name: "unclean", path: "api/v1/tenants/acme/", expected: "/api/v1/tenants/:id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizePath(tt.path))
		})
	}
}

func TestCors(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("nextHandler"))
	})

	tests := []struct {
		name            string
		method          string
		origin          string
		expectedStatus  int
		expectedHeaders map[string]string
	}{
		{
			name:           "OPTIONS without Origin",
			method:         "OPTIONS",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "OPTIONS with Origin",
			method:         "OPTIONS",
			origin:         "http://myapp.com",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "GET with Origin",
			method:         "GET",
			origin:         "http://anotherapp.com",
			expectedStatus: http.StatusOK,
			expectedHeaders: map[string]string{
				"Access-Control-Allow-Origin": "http://anotherapp.com",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svr := SkipOptions(SetCORS(nextHandler))

			r := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			svr.ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			for k, v := range tt.expectedHeaders {
				assert.Equal(t, v, w.Header().Get(k))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(RequestIDHeader, "given")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "given", w.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	req, dur := NewRequestMetrics("tenantd")
	reg.MustRegister(req, dur)

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), Metrics("platform", req, dur), Logging(zaptest.NewLogger(t)))

	r := httptest.NewRequest("GET", "/api/v1/tenants/acme", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	h.ServeHTTP(httptest.NewRecorder(), r)

	mfs := promtest.MustGather(t, reg)
	v := promtest.CounterValue(t, mfs, "tenantd_http_requests_total", map[string]string{
		"handler":       "platform",
		"method":        "GET",
		"path":          "/api/v1/tenants/:id",
		"status":        "4XX",
		"response_code": "403",
		"user_agent":    "Chrome",
	})
	assert.Equal(t, 1.0, v)
}

func TestStatusResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStatusResponseWriter(rec)
	assert.Equal(t, http.StatusOK, w.Code())
	assert.Equal(t, "2XX", w.StatusCodeClass())

	w.WriteHeader(http.StatusServiceUnavailable)
	n, err := w.Write([]byte("down"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, w.ResponseBytes())
	assert.Equal(t, "5XX", w.StatusCodeClass())
}
