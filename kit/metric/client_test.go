package metric_test

import (
	"errors"
	"testing"

	"github.com/percussion/tenantd/kit/metric"
	perrors "github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kit/prom/promtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestREDClientRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metric.New(reg, "tenant_cache", metric.WithSuffix("test"))

	assert.NoError(t, rec.Record("lookup")(nil))
	err := rec.Record("lookup")(&perrors.Error{Code: perrors.EUnavailable})
	assert.Equal(t, perrors.EUnavailable, perrors.ErrorCode(err))
	_ = rec.Record("lookup")(errors.New("plain"))

	mfs := promtest.MustGather(t, reg)
	assert.Equal(t, 3.0, promtest.CounterValue(t, mfs, "tenantd_tenant_cache_test_call_total", map[string]string{"method": "lookup"}))
	assert.Equal(t, 1.0, promtest.CounterValue(t, mfs, "tenantd_tenant_cache_test_error_total", map[string]string{"method": "lookup", "code": perrors.EUnavailable}))
	assert.Equal(t, 1.0, promtest.CounterValue(t, mfs, "tenantd_tenant_cache_test_error_total", map[string]string{"method": "lookup", "code": perrors.EInternal}))

	h := promtest.MustFindMetric(t, mfs, "tenantd_tenant_cache_test_duration", map[string]string{"method": "lookup"})
	assert.Equal(t, uint64(3), h.GetHistogram().GetSampleCount())
}
