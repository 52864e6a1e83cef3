package cache

import (
	"context"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/metric"
	"github.com/prometheus/client_golang/prometheus"
)

var _ tenantd.TenantCache = (*Metrics)(nil)

// Metrics records RED metrics for every TenantCache call.
type Metrics struct {
	// RED metrics
	rec *metric.REDClient

	cache tenantd.TenantCache
}

// NewMetrics returns a metrics service middleware for the tenant cache.
func NewMetrics(reg prometheus.Registerer, c tenantd.TenantCache, opts ...metric.ClientOptFn) *Metrics {
	return &Metrics{
		rec:   metric.New(reg, "tenantcache", opts...),
		cache: c,
	}
}

func (m *Metrics) Lookup(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error) {
	rec := m.rec.Record("lookup")
	e, err := m.cache.Lookup(ctx, tenantID)
	return e, rec(err)
}

func (m *Metrics) Put(ctx context.Context, a *tenantd.Authorization) error {
	rec := m.rec.Record("put")
	return rec(m.cache.Put(ctx, a))
}

func (m *Metrics) Invalidate(ctx context.Context, tenantID string) error {
	rec := m.rec.Record("invalidate")
	return rec(m.cache.Invalidate(ctx, tenantID))
}

func (m *Metrics) InvalidateAll(ctx context.Context) error {
	rec := m.rec.Record("invalidate_all")
	return rec(m.cache.InvalidateAll(ctx))
}

func (m *Metrics) Entries(ctx context.Context) ([]*tenantd.CacheEntry, error) {
	rec := m.rec.Record("entries")
	es, err := m.cache.Entries(ctx)
	return es, rec(err)
}

func (m *Metrics) Scavenge(ctx context.Context) (int, error) {
	rec := m.rec.Record("scavenge")
	n, err := m.cache.Scavenge(ctx)
	return n, rec(err)
}
