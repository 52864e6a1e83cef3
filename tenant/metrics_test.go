package tenant_test

import (
	"context"
	"testing"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/inmem"
	"github.com/percussion/tenantd/kit/prom/promtest"
	"github.com/percussion/tenantd/tenant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Collect(t *testing.T) {
	ctx := context.Background()
	st := tenant.NewStore(inmem.NewKVStore())
	svc := tenant.NewService(st)

	reg := prometheus.NewRegistry()
	reg.MustRegister(st)

	mfs := promtest.MustGather(t, reg)
	assert.Equal(t, float64(0), promtest.CounterValue(t, mfs, "tenantd_tenants", map[string]string{"status": "active"}))

	for _, tn := range []*tenantd.Tenant{
		{ID: "acme", Name: "acme"},
		{ID: "beta", Name: "beta"},
		{ID: "gamma", Name: "gamma", Status: tenantd.TenantSuspended},
	} {
		require.NoError(t, svc.CreateTenant(ctx, tn))
	}

	mfs = promtest.MustGather(t, reg)
	assert.Equal(t, float64(2), promtest.CounterValue(t, mfs, "tenantd_tenants", map[string]string{"status": "active"}))
	assert.Equal(t, float64(1), promtest.CounterValue(t, mfs, "tenantd_tenants", map[string]string{"status": "suspended"}))
	assert.Equal(t, float64(0), promtest.CounterValue(t, mfs, "tenantd_tenants", map[string]string{"status": "disabled"}))
}
