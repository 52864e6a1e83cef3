package tenant_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/inmem"
	"github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"github.com/percussion/tenantd/mock"
	"github.com/percussion/tenantd/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticIssuer struct {
	issued []*tenantd.Authorization
}

func (s *staticIssuer) Issue(a *tenantd.Authorization) (string, error) {
	s.issued = append(s.issued, a)
	return "token-" + a.TenantID, nil
}

func initHTTPTenantHandler(t *testing.T, issuer tenant.TokenIssuer, usage tenantd.UsageService) (*httptest.Server, tenantd.TenantService) {
	t.Helper()

	st := tenant.NewStore(inmem.NewKVStore())
	st.IDGen = mock.NewSequentialIDGenerator("tenant")
	svc := tenant.NewService(st)

	h := tenant.NewHTTPTenantHandler(zaptest.NewLogger(t), svc, issuer, usage)
	r := chi.NewRouter()
	r.Mount(h.Prefix(), h)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestTenantHandler_CRUD(t *testing.T) {
	srv, _ := initHTTPTenantHandler(t, nil, nil)
	base := srv.URL + "/api/v1/tenants"

	resp := doJSON(t, http.MethodPost, base, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var created tenantd.Tenant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "tenant-1", created.ID)
	assert.Equal(t, tenantd.TenantActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	resp = doJSON(t, http.MethodPost, base, map[string]string{"id": "beta", "name": "Beta", "status": "suspended"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base, map[string]string{"name": "acme"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, errors.EConflict, resp.Header.Get(kithttp.PlatformErrorCodeHeader))

	resp = doJSON(t, http.MethodGet, base+"?status=suspended", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Tenants []*tenantd.Tenant `json:"tenants"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Tenants, 1)
	assert.Equal(t, "beta", list.Tenants[0].ID)
	assert.Equal(t, 1, list.Total)

	resp = doJSON(t, http.MethodGet, base+"?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Tenants, 1)
	assert.Equal(t, 2, list.Total)

	resp = doJSON(t, http.MethodPatch, base+"/beta", map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated tenantd.Tenant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, tenantd.TenantActive, updated.Status)

	resp = doJSON(t, http.MethodGet, base+"/beta", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, base+"/beta", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, base+"/beta", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTenantHandler_InvalidRequests(t *testing.T) {
	srv, _ := initHTTPTenantHandler(t, nil, nil)
	base := srv.URL + "/api/v1/tenants"

	tests := []struct {
		name   string
		method string
		url    string
		body   interface{}
		status int
	}{
		{name: "empty name", method: http.MethodPost, url: base, body: map[string]string{"name": " "}, status: http.StatusBadRequest},
		{name: "unknown status", method: http.MethodPost, url: base, body: map[string]string{"name": "x", "status": "paused"}, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, url: base, body: map[string]string{"name": "x", "color": "red"}, status: http.StatusBadRequest},
		{name: "bad id", method: http.MethodPost, url: base, body: map[string]string{"id": "a b", "name": "x"}, status: http.StatusBadRequest},
		{name: "empty patch", method: http.MethodPatch, url: base + "/acme", body: map[string]string{}, status: http.StatusBadRequest},
		{name: "bad status filter", method: http.MethodGet, url: base + "?status=paused", status: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, url: base + "?limit=1000", status: http.StatusBadRequest},
		{name: "patch missing", method: http.MethodPatch, url: base + "/missing", body: map[string]string{"name": "y"}, status: http.StatusNotFound},
		{name: "delete missing", method: http.MethodDelete, url: base + "/missing", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestTenantHandler_Authorization(t *testing.T) {
	t.Run("not enabled without an issuer", func(t *testing.T) {
		srv, _ := initHTTPTenantHandler(t, nil, nil)
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/tenants/acme/authorization", nil)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("issues a token for the registry decision", func(t *testing.T) {
		issuer := &staticIssuer{}
		srv, svc := initHTTPTenantHandler(t, issuer, nil)
		require.NoError(t, svc.CreateTenant(context.Background(), &tenantd.Tenant{ID: "acme", Name: "Acme", Status: tenantd.TenantSuspended}))

		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/tenants/acme/authorization", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body tenant.AuthorizationResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "token-acme", body.Token)
		assert.Equal(t, tenantd.StatusSuspended, body.Authorization.Status)
		assert.Equal(t, "tenant is suspended", body.Authorization.Reason)
		require.Len(t, issuer.issued, 1)

		resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/tenants/missing/authorization", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTenantHandler_Usage(t *testing.T) {
	t.Run("not enabled without a usage service", func(t *testing.T) {
		srv, _ := initHTTPTenantHandler(t, nil, nil)
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/tenants/acme/usage", nil)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("reports usage", func(t *testing.T) {
		usage := &mock.UsageService{
			FindUsageFn: func(ctx context.Context, tenantID string) (*tenantd.Usage, error) {
				return &tenantd.Usage{TenantID: tenantID, Allowed: 3, Denied: 1}, nil
			},
		}
		srv, _ := initHTTPTenantHandler(t, nil, usage)

		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/tenants/acme/usage", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var u tenantd.Usage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
		assert.Equal(t, "acme", u.TenantID)
		assert.Equal(t, int64(3), u.Allowed)
		assert.Equal(t, int64(1), u.Denied)
	})
}
