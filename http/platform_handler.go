package http

import (
	"net/http"
	"net/url"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	tenantcontext "github.com/percussion/tenantd/context"
	"github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"github.com/percussion/tenantd/tenant"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// MetricsPath exposes the prometheus registry.
	MetricsPath = "/metrics"
	// HealthPath answers liveness checks.
	HealthPath = "/health"
	// MePath returns the caller's tenant authorization.
	MePath = "/api/v1/me"
)

// PlatformBackend is every service the platform handler routes to.
type PlatformBackend struct {
	Log *zap.Logger

	// MetricsHandler serves MetricsPath. RequestMetrics and RequestDurations
	// record every request when set.
	MetricsHandler   http.Handler
	RequestMetrics   *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec

	TenantCache   tenantd.TenantCache
	TenantService tenantd.TenantService
	TokenIssuer   tenant.TokenIssuer
	UsageService  tenantd.UsageService

	Filter *TenantSecurityFilter

	// AdminToken guards the admin API when set.
	AdminToken string

	// Upstream turns on gateway mode: every path outside the API is
	// filtered and proxied to it.
	Upstream *url.URL
}

// PlatformHandler is the root handler of tenantd.
type PlatformHandler struct {
	chi.Router
	api     *kithttp.API
	log     *zap.Logger
	handler http.Handler
}

// NewPlatformHandler routes the API, the admin API and, in gateway mode, the
// upstream proxy.
func NewPlatformHandler(b PlatformBackend) *PlatformHandler {
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &PlatformHandler{
		api: kithttp.NewAPI(kithttp.WithLog(log)),
		log: log,
	}

	mws := []func(http.Handler) http.Handler{
		kithttp.RequestID,
		kithttp.Trace("platform"),
	}
	if b.RequestMetrics != nil && b.RequestDurations != nil {
		mws = append(mws, kithttp.Metrics("platform", b.RequestMetrics, b.RequestDurations))
	}
	mws = append(mws,
		kithttp.Logging(log.With(zap.String("handler", "platform"))),
		kithttp.SkipOptions,
		kithttp.SetCORS,
	)

	r := chi.NewRouter()
	r.Use(mws...)

	r.NotFound(h.handleNotFound)
	r.Get(HealthPath, HealthHandler)
	if b.MetricsHandler != nil {
		r.Handle(MetricsPath, b.MetricsHandler)
	}

	filter := b.Filter
	if filter == nil {
		filter = NewTenantSecurityFilter(log, b.TenantCache, b.UsageService, NewTenantFilterConfig())
	}
	r.Group(func(r chi.Router) {
		r.Use(filter.Middleware)
		r.Get(MePath, h.handleGetMe)

		if b.Upstream != nil {
			gw := NewGateway(log.With(zap.String("handler", "gateway")), b.Upstream, filter.config.HeaderName)
			r.Handle("/*", gw)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(AdminTokenGuard(h.api, b.AdminToken))

		ch := NewCacheHandler(log.With(zap.String("handler", "tenantcache")), b.TenantCache)
		r.Mount(ch.Prefix(), ch)

		if b.TenantService != nil {
			th := tenant.NewHTTPTenantHandler(log.With(zap.String("handler", "tenant")), b.TenantService, b.TokenIssuer, b.UsageService)
			r.Mount(th.Prefix(), th)
		}

		if b.UsageService != nil {
			uh := NewUsageHandler(log.With(zap.String("handler", "usage")), b.UsageService)
			r.Mount(uh.Prefix(), uh)
		}
	})

	h.Router = r
	h.handler = gziphandler.GzipHandler(r)
	return h
}

// ServeHTTP compresses responses for clients that accept gzip.
func (h *PlatformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *PlatformHandler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.api.Err(w, r, &errors.Error{
		Code: errors.ENotFound,
		Msg:  "path not found",
	})
}

// handleGetMe is the HTTP handler for the GET /api/v1/me route.
func (h *PlatformHandler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	a, err := tenantcontext.GetAuthorization(r.Context())
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, a)
}

// HealthHandler answers liveness checks.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"name":"tenantd","status":"pass","version":"` + tenantd.GetBuildInfo().Version + `"}` + "\n"))
}
