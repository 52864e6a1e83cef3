package http_test

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/percussion/tenantd"
	tenanthttp "github.com/percussion/tenantd/http"
	"github.com/percussion/tenantd/inmem"
	"github.com/percussion/tenantd/kit/prom"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"github.com/percussion/tenantd/mock"
	"github.com/percussion/tenantd/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const adminToken = "s3cret"

func newPlatformBackend(t *testing.T) tenanthttp.PlatformBackend {
	t.Helper()

	entries := map[string]*tenantd.CacheEntry{
		"acme": {Authorization: tenantd.Authorization{TenantID: "acme", Status: tenantd.StatusAuthorized, Source: tenantd.SourceRegistry}},
	}
	log := zaptest.NewLogger(t)
	reg := prom.NewRegistry(log)
	reqs, durs := kithttp.NewRequestMetrics("tenantd")
	reg.MustRegister(reqs, durs)

	return tenanthttp.PlatformBackend{
		Log:              log,
		MetricsHandler:   reg.HTTPHandler(),
		RequestMetrics:   reqs,
		RequestDurations: durs,
		TenantCache:      newTestCache(entries, nil),
		TenantService:    tenant.NewService(tenant.NewStore(inmem.NewKVStore())),
		UsageService:     &mock.UsageService{},
		AdminToken:       adminToken,
	}
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestPlatformHandler_Health(t *testing.T) {
	tenantd.SetBuildInfo("1.2.3", "abc", "today")
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	w := serve(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"tenantd","status":"pass","version":"1.2.3"}`, w.Body.String())
}

func TestPlatformHandler_Metrics(t *testing.T) {
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	serve(h, http.MethodGet, "/health", nil)
	w := serve(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenantd_http_requests_total")
}

func TestPlatformHandler_NotFound(t *testing.T) {
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	w := serve(h, http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", w.Header().Get(kithttp.PlatformErrorCodeHeader))
	assert.Contains(t, w.Body.String(), "path not found")
}

func TestPlatformHandler_Me(t *testing.T) {
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	w := serve(h, http.MethodGet, tenanthttp.MePath, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, tenanthttp.MePath, http.Header{"perc-tid": {"nobody"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, http.MethodGet, tenanthttp.MePath+"?perc-tid=acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var a tenantd.Authorization
	require.NoError(t, json.NewDecoder(w.Body).Decode(&a))
	assert.Equal(t, "acme", a.TenantID)
	assert.Equal(t, tenantd.StatusAuthorized, a.Status)
	assert.Equal(t, tenantd.SourceRegistry, a.Source)
	assert.Equal(t, "acme", w.Header().Get("perc-tid"))
}

func TestPlatformHandler_AdminGuard(t *testing.T) {
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	for _, path := range []string{"/api/v1/tenantcache", "/api/v1/tenants", "/api/v1/usage"} {
		w := serve(h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = serve(h, http.MethodGet, path, http.Header{"Authorization": {"Token wrong"}})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := serve(h, http.MethodGet, "/api/v1/tenantcache", http.Header{"Authorization": {"Token " + adminToken}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":[],"count":0}`, w.Body.String())
}

func TestPlatformHandler_Gzip(t *testing.T) {
	h := tenanthttp.NewPlatformHandler(newPlatformBackend(t))

	w := serve(h, http.MethodGet, "/api/v1/tenants", http.Header{
		"Authorization":   {"Token " + adminToken},
		"Accept-Encoding": {"gzip"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	// small bodies are written uncompressed
	assert.Contains(t, []string{"", "gzip"}, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))

	if w.Header().Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		_, err = io.ReadAll(zr)
		require.NoError(t, err)
	}
}

func TestPlatformHandler_Gateway(t *testing.T) {
	var got struct {
		path   string
		tenant string
		host   string
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.tenant = r.Header.Get("perc-tid")
		got.host = r.Host
		_, _ = w.Write([]byte("upstream says hi"))
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	b := newPlatformBackend(t)
	b.Upstream = u
	h := tenanthttp.NewPlatformHandler(b)

	w := serve(h, http.MethodGet, "/content/page?perc-tid=acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "upstream says hi", w.Body.String())
	assert.Equal(t, "/content/page", got.path)
	assert.Equal(t, "acme", got.tenant)
	assert.Equal(t, u.Host, got.host)

	w = serve(h, http.MethodGet, "/content/page", http.Header{"perc-tid": {"nobody"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the health check stays outside the filter
	w = serve(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlatformHandler_GatewayUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	upstream.Close()

	b := newPlatformBackend(t)
	b.Upstream = u
	h := tenanthttp.NewPlatformHandler(b)

	w := serve(h, http.MethodGet, "/content/page", http.Header{"perc-tid": {"acme"}})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "upstream unavailable"))
}

func TestPlatformHandler_RecordsUsage(t *testing.T) {
	b := newPlatformBackend(t)
	usage := &mock.UsageService{}
	b.UsageService = usage
	h := tenanthttp.NewPlatformHandler(b)

	serve(h, http.MethodGet, tenanthttp.MePath, http.Header{"perc-tid": {"acme"}})
	serve(h, http.MethodGet, tenanthttp.MePath, http.Header{"perc-tid": {"nobody"}})

	assert.Equal(t, []mock.RecordedRequest{
		{TenantID: "acme", Allowed: true},
		{TenantID: "nobody", Allowed: false},
	}, usage.Requests())

}
