// Package prom provides the prometheus registry shared by every tenantd service.
package prom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Registry embeds a prometheus.Registry and reports gather errors through zap.
type Registry struct {
	*prometheus.Registry

	log *zap.Logger
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry(log *zap.Logger) *Registry {
	r := &Registry{
		Registry: prometheus.NewRegistry(),
		log:      log,
	}
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// HTTPHandler returns the handler that serves the registry in the exposition format.
func (r *Registry) HTTPHandler() http.Handler {
	opts := promhttp.HandlerOpts{
		ErrorLog:      promLogger{r: r},
		ErrorHandling: promhttp.ContinueOnError,
	}
	return promhttp.HandlerFor(r.Registry, opts)
}

// promLogger satisfies promhttp.Logger.
type promLogger struct {
	r *Registry
}

func (pl promLogger) Println(v ...interface{}) {
	pl.r.log.Sugar().Info(v...)
}
