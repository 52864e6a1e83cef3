package tenant

import (
	"context"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/metric"
	"github.com/prometheus/client_golang/prometheus"
)

var _ tenantd.TenantService = (*Metrics)(nil)

// Metrics records RED metrics for the tenant service.
type Metrics struct {
	// RED metrics
	rec *metric.REDClient

	tenantService tenantd.TenantService
}

// NewMetrics returns a metrics service middleware for the Tenant Service.
func NewMetrics(reg prometheus.Registerer, s tenantd.TenantService, opts ...metric.ClientOptFn) *Metrics {
	return &Metrics{
		rec:           metric.New(reg, "tenant", opts...),
		tenantService: s,
	}
}

func (m *Metrics) FindTenantByID(ctx context.Context, id string) (*tenantd.Tenant, error) {
	rec := m.rec.Record("find_tenant_by_id")
	t, err := m.tenantService.FindTenantByID(ctx, id)
	return t, rec(err)
}

func (m *Metrics) FindTenant(ctx context.Context, filter tenantd.TenantFilter) (*tenantd.Tenant, error) {
	rec := m.rec.Record("find_tenant")
	t, err := m.tenantService.FindTenant(ctx, filter)
	return t, rec(err)
}

func (m *Metrics) FindTenants(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) ([]*tenantd.Tenant, int, error) {
	rec := m.rec.Record("find_tenants")
	ts, n, err := m.tenantService.FindTenants(ctx, filter, opt...)
	return ts, n, rec(err)
}

func (m *Metrics) CreateTenant(ctx context.Context, t *tenantd.Tenant) error {
	rec := m.rec.Record("create_tenant")
	err := m.tenantService.CreateTenant(ctx, t)
	return rec(err)
}

func (m *Metrics) UpdateTenant(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error) {
	rec := m.rec.Record("update_tenant")
	t, err := m.tenantService.UpdateTenant(ctx, id, upd)
	return t, rec(err)
}

func (m *Metrics) DeleteTenant(ctx context.Context, id string) error {
	rec := m.rec.Record("delete_tenant")
	err := m.tenantService.DeleteTenant(ctx, id)
	return rec(err)
}
