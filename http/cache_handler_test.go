package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/cache"
	tenanthttp "github.com/percussion/tenantd/http"
	"github.com/percussion/tenantd/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCacheServer(t *testing.T) (*httptest.Server, *cache.SimpleCache, *mock.Authorizer) {
	t.Helper()

	a := mock.NewAuthorizer()
	c := cache.NewSimpleCache(a, cache.NewConfig())
	h := tenanthttp.NewCacheHandler(zaptest.NewLogger(t), c)

	r := chi.NewRouter()
	r.Mount(h.Prefix(), h)
	s := httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s, c, a
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var r *http.Request
	var err error
	if body == "" {
		r, err = http.NewRequest(method, url, nil)
	} else {
		r, err = http.NewRequest(method, url, strings.NewReader(body))
	}
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCacheHandler(t *testing.T) {
	s, c, a := newCacheServer(t)
	ctx := context.Background()
	base := s.URL + "/api/v1/tenantcache"

	t.Run("lookup authorizes and caches", func(t *testing.T) {
		resp := do(t, http.MethodGet, base+"/acme", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var e tenantd.CacheEntry
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
		assert.Equal(t, "acme", e.TenantID)
		assert.Equal(t, tenantd.StatusAuthorized, e.Status)
		assert.Equal(t, int64(0), e.Hits)

		resp = do(t, http.MethodGet, base+"/acme", "")
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
		assert.Equal(t, int64(1), e.Hits)
		assert.Equal(t, 1, a.Calls())
	})

	t.Run("list entries", func(t *testing.T) {
		do(t, http.MethodGet, base+"/beta", "")

		resp := do(t, http.MethodGet, base+"/", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Entries []tenantd.CacheEntry `json:"entries"`
			Count   int                  `json:"count"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 2, body.Count)
		require.Len(t, body.Entries, 2)
		assert.Equal(t, "acme", body.Entries[0].TenantID)
		assert.Equal(t, "beta", body.Entries[1].TenantID)
	})

	t.Run("put overrides the decision", func(t *testing.T) {
		resp := do(t, http.MethodPut, base+"/acme", `{"status":"suspended","reason":"billing"}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		e, err := c.Lookup(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenantd.StatusSuspended, e.Status)
		assert.Equal(t, "billing", e.Reason)
		assert.Equal(t, tenantd.SourceManual, e.Source)
	})

	t.Run("put rejects an unknown status", func(t *testing.T) {
		resp := do(t, http.MethodPut, base+"/acme", `{"status":"maybe"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = do(t, http.MethodPut, base+"/acme", `{"status":"authorized","extra":1}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete entry", func(t *testing.T) {
		resp := do(t, http.MethodDelete, base+"/beta", "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, 1, c.Len())

		resp = do(t, http.MethodDelete, base+"/beta", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("scavenge", func(t *testing.T) {
		resp := do(t, http.MethodPost, base+"/scavenge", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Removed int `json:"removed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 0, body.Removed)
	})

	t.Run("delete all", func(t *testing.T) {
		resp := do(t, http.MethodDelete, base+"/", "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, 0, c.Len())
	})
}
