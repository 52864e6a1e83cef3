package cache_test

import (
	"context"
	"testing"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/cache"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kit/prom/promtest"
	"github.com/percussion/tenantd/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetrics(t *testing.T) {
	m := mock.NewTenantCache()
	m.LookupFn = func(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error) {
		return nil, &errors.Error{Code: errors.EUnavailable, Msg: "down"}
	}

	reg := prometheus.NewRegistry()
	c := cache.NewMetrics(reg, cache.NewLogger(zaptest.NewLogger(t), m))
	ctx := context.Background()

	_, err := c.Lookup(ctx, "acme")
	require.Error(t, err)
	require.NoError(t, c.Put(ctx, &tenantd.Authorization{TenantID: "acme"}))
	require.NoError(t, c.Invalidate(ctx, "acme"))
	require.NoError(t, c.InvalidateAll(ctx))
	_, err = c.Entries(ctx)
	require.NoError(t, err)
	_, err = c.Scavenge(ctx)
	require.NoError(t, err)

	mfs := promtest.MustGather(t, reg)
	for _, method := range []string{"lookup", "put", "invalidate", "invalidate_all", "entries", "scavenge"} {
		v := promtest.CounterValue(t, mfs, "tenantd_tenantcache_call_total", map[string]string{"method": method})
		assert.Equal(t, 1.0, v, method)
	}
	v := promtest.CounterValue(t, mfs, "tenantd_tenantcache_error_total", map[string]string{
		"method": "lookup",
		"code":   errors.EUnavailable,
	})
	assert.Equal(t, 1.0, v)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, cache.NewConfig().Validate())

	tests := []struct {
		name string
		mod  func(*cache.Config)
	}{
		{name: "zero ttl", mod: func(c *cache.Config) { c.TTL = 0 }},
		{name: "negative negative ttl", mod: func(c *cache.Config) { c.NegativeTTL = -1 }},
		{name: "zero scavenge interval", mod: func(c *cache.Config) { c.ScavengeInterval = 0 }},
		{name: "negative grace", mod: func(c *cache.Config) { c.StaleGrace = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cache.NewConfig()
			tt.mod(&c)
			assert.Equal(t, errors.EInvalid, errors.ErrorCode(c.Validate()))
		})
	}

	c := cache.NewConfig()
	c.NegativeTTL = 0
	c.StaleGrace = 0
	assert.NoError(t, c.Validate(), "negative caching and stale grace may be disabled")
}
