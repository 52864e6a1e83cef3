package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/percussion/tenantd"
	tenanthttp "github.com/percussion/tenantd/http"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestUsageHandler(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	flushed := 0
	svc := &mock.UsageService{
		FindUsagesFn: func(ctx context.Context) ([]*tenantd.Usage, error) {
			return []*tenantd.Usage{
				{TenantID: "acme", Allowed: 3, Denied: 1, FirstSeenAt: t0, LastSeenAt: t0.Add(time.Minute)},
			}, nil
		},
		FlushFn: func(ctx context.Context) error {
			flushed++
			if flushed > 1 {
				return &errors.Error{Code: errors.EUnavailable, Msg: "database is locked"}
			}
			return nil
		},
	}
	h := tenanthttp.NewUsageHandler(zaptest.NewLogger(t), svc)
	assert.Equal(t, "/api/v1/usage", h.Prefix())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Usage []tenantd.Usage `json:"usage"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Usage, 1)
	assert.Equal(t, "acme", body.Usage[0].TenantID)
	assert.Equal(t, int64(3), body.Usage[0].Allowed)
	assert.True(t, t0.Equal(body.Usage[0].FirstSeenAt))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/flush", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/flush", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUsageHandler_Empty(t *testing.T) {
	svc := &mock.UsageService{
		FindUsagesFn: func(ctx context.Context) ([]*tenantd.Usage, error) { return nil, nil },
	}
	h := tenanthttp.NewUsageHandler(zaptest.NewLogger(t), svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"usage":[]}`, w.Body.String())
}
