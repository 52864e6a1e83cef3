package tenant

import (
	"context"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kv"
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*Store)(nil)

var tenantsDesc = prometheus.NewDesc(
	"tenantd_tenants",
	"Number of registered tenants by status",
	[]string{"status"}, nil)

// Describe implements prometheus.Collector.
func (s *Store) Describe(ch chan<- *prometheus.Desc) {
	ch <- tenantsDesc
}

// Collect reports the number of tenants in each status. Nothing is
// reported when the registry cannot be read.
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	counts := map[tenantd.TenantStatus]int{
		tenantd.TenantActive:    0,
		tenantd.TenantSuspended: 0,
		tenantd.TenantDisabled:  0,
	}

	ctx := context.Background()
	err := s.View(ctx, func(tx kv.Tx) error {
		ts, err := s.ListTenants(ctx, tx)
		if err != nil {
			return err
		}
		for _, t := range ts {
			counts[t.Status]++
		}
		return nil
	})
	if err != nil {
		return
	}

	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(tenantsDesc, prometheus.GaugeValue, float64(n), string(status))
	}
}
