package bolt

import (
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*KVStore)(nil)

var (
	readsDesc = prometheus.NewDesc(
		"tenantd_boltdb_reads_total",
		"Total number of read transactions on the tenant registry",
		nil, nil)

	writesDesc = prometheus.NewDesc(
		"tenantd_boltdb_writes_total",
		"Total number of page writes to the tenant registry",
		nil, nil)

	openReadsDesc = prometheus.NewDesc(
		"tenantd_boltdb_open_reads",
		"Number of read transactions currently open",
		nil, nil)
)

// Describe implements prometheus.Collector.
func (s *KVStore) Describe(ch chan<- *prometheus.Desc) {
	ch <- readsDesc
	ch <- writesDesc
	ch <- openReadsDesc
}

// Collect implements prometheus.Collector. A closed store reports nothing.
func (s *KVStore) Collect(ch chan<- prometheus.Metric) {
	if s.db == nil {
		return
	}
	stats := s.db.Stats()
	ch <- prometheus.MustNewConstMetric(readsDesc, prometheus.CounterValue, float64(stats.TxN))
	ch <- prometheus.MustNewConstMetric(writesDesc, prometheus.CounterValue, float64(stats.TxStats.Write))
	ch <- prometheus.MustNewConstMetric(openReadsDesc, prometheus.GaugeValue, float64(stats.OpenTxN))
}
