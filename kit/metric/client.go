package metric

import (
	"fmt"
	"time"

	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// REDClient is a metrics client for collecting RED metrics
// (rate, errors, duration) for the methods of a service.
type REDClient struct {
	metrics []metricCollector
}

// ClientOptFn is an option used by a metric middleware.
type ClientOptFn func(*clientOpts)

type clientOpts struct {
	namespace string
	subsystem string
	suffix    string
}

// WithSuffix appends a suffix to the subsystem name of the collected metrics.
func WithSuffix(suffix string) ClientOptFn {
	return func(opts *clientOpts) {
		opts.suffix = suffix
	}
}

// WithNamespace overrides the default "tenantd" namespace.
func WithNamespace(ns string) ClientOptFn {
	return func(opts *clientOpts) {
		opts.namespace = ns
	}
}

// New creates a new REDClient for the service and registers its collectors
// with reg.
func New(reg prometheus.Registerer, service string, opts ...ClientOptFn) *REDClient {
	opt := clientOpts{
		namespace: "tenantd",
		subsystem: service,
	}
	for _, o := range opts {
		o(&opt)
	}
	if opt.suffix != "" {
		opt.subsystem = fmt.Sprintf("%s_%s", opt.subsystem, opt.suffix)
	}

	client := &REDClient{
		metrics: []metricCollector{
			newCounterMetric(opt),
			newErrorMetric(opt),
			newHistogramMetric(opt),
		},
	}
	reg.MustRegister(client.collectors()...)
	return client
}

// Record returns a record fn that is called on any given return err. If an error is encountered
// it will register the err metric. The err is never altered.
func (c *REDClient) Record(method string) func(error) error {
	start := time.Now()
	return func(err error) error {
		for _, m := range c.metrics {
			m.record(method, err, time.Since(start))
		}
		return err
	}
}

func (c *REDClient) collectors() []prometheus.Collector {
	var out []prometheus.Collector
	for _, m := range c.metrics {
		out = append(out, m.collector())
	}
	return out
}

type metricCollector interface {
	record(method string, err error, dur time.Duration)
	collector() prometheus.Collector
}

type counterMetric struct {
	vec *prometheus.CounterVec
}

func newCounterMetric(opt clientOpts) *counterMetric {
	return &counterMetric{
		vec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opt.namespace,
			Subsystem: opt.subsystem,
			Name:      "call_total",
			Help:      "Number of calls",
		}, []string{"method"}),
	}
}

func (c *counterMetric) record(method string, _ error, _ time.Duration) {
	c.vec.With(prometheus.Labels{"method": method}).Inc()
}

func (c *counterMetric) collector() prometheus.Collector { return c.vec }

type errorMetric struct {
	vec *prometheus.CounterVec
}

func newErrorMetric(opt clientOpts) *errorMetric {
	return &errorMetric{
		vec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opt.namespace,
			Subsystem: opt.subsystem,
			Name:      "error_total",
			Help:      "Number of errors encountered",
		}, []string{"method", "code"}),
	}
}

func (e *errorMetric) record(method string, err error, _ time.Duration) {
	if err == nil {
		return
	}
	e.vec.With(prometheus.Labels{
		"method": method,
		"code":   errors.ErrorCode(err),
	}).Inc()
}

func (e *errorMetric) collector() prometheus.Collector { return e.vec }

type histogramMetric struct {
	vec *prometheus.HistogramVec
}

func newHistogramMetric(opt clientOpts) *histogramMetric {
	return &histogramMetric{
		vec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opt.namespace,
			Subsystem: opt.subsystem,
			Name:      "duration",
			Help:      "Duration of calls",
		}, []string{"method"}),
	}
}

func (h *histogramMetric) record(method string, _ error, dur time.Duration) {
	h.vec.With(prometheus.Labels{"method": method}).Observe(dur.Seconds())
}

func (h *histogramMetric) collector() prometheus.Collector { return h.vec }
