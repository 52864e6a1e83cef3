package http

import (
	"net/http"
	"strings"

	"github.com/percussion/tenantd"
	tenantcontext "github.com/percussion/tenantd/context"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kit/tracing"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"go.uber.org/zap"
)

const (
	// DefaultTenantHeader is the request header carrying the tenant id.
	DefaultTenantHeader = "perc-tid"
	// DefaultTenantParam is the query parameter carrying the tenant id when
	// the header is absent.
	DefaultTenantParam = "perc-tid"
	// StaleAuthorizationHeader is set on responses served on an authorization
	// that outlived its TTL because the authorizer was unavailable.
	StaleAuthorizationHeader = "X-Tenant-Auth-Stale"
)

// TenantFilterConfig configures a TenantSecurityFilter.
type TenantFilterConfig struct {
	HeaderName    string   `toml:"header-name"`
	ParamName     string   `toml:"param-name"`
	ExcludedPaths []string `toml:"excluded-paths"`
}

// NewTenantFilterConfig returns the default filter configuration.
func NewTenantFilterConfig() TenantFilterConfig {
	return TenantFilterConfig{
		HeaderName: DefaultTenantHeader,
		ParamName:  DefaultTenantParam,
	}
}

// TenantSecurityFilter rejects requests whose tenant is missing or not
// authorized, and puts the authorization of the others on the request context.
type TenantSecurityFilter struct {
	log    *zap.Logger
	api    *kithttp.API
	cache  tenantd.TenantCache
	usage  tenantd.UsageService
	config TenantFilterConfig
}

// NewTenantSecurityFilter returns a filter answering from cache. usage may be nil.
func NewTenantSecurityFilter(log *zap.Logger, cache tenantd.TenantCache, usage tenantd.UsageService, config TenantFilterConfig) *TenantSecurityFilter {
	if config.HeaderName == "" {
		config.HeaderName = DefaultTenantHeader
	}
	if config.ParamName == "" {
		config.ParamName = DefaultTenantParam
	}
	return &TenantSecurityFilter{
		log:    log,
		api:    kithttp.NewAPI(kithttp.WithLog(log)),
		cache:  cache,
		usage:  usage,
		config: config,
	}
}

// TenantID extracts the tenant id from the header, falling back to the query
// parameter.
func (f *TenantSecurityFilter) TenantID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(f.config.HeaderName)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get(f.config.ParamName))
}

func (f *TenantSecurityFilter) excluded(p string) bool {
	for _, ex := range f.config.ExcludedPaths {
		ex = strings.TrimSuffix(ex, "/")
		if ex == "" {
			continue
		}
		if p == ex || strings.HasPrefix(p, ex+"/") {
			return true
		}
	}
	return false
}

// Middleware wraps next with the filter.
func (f *TenantSecurityFilter) Middleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if f.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		id := f.TenantID(r)
		if id == "" {
			f.api.Err(w, r, &errors.Error{
				Code: errors.EUnauthorized,
				Msg:  "tenant id is required",
			})
			return
		}

		ctx := r.Context()
		entry, err := f.cache.Lookup(ctx, id)
		if err != nil {
			f.api.Err(w, r, err)
			return
		}

		allowed := entry.Allowed()
		if f.usage != nil {
			f.usage.RecordRequest(ctx, entry.TenantID, allowed)
		}

		if !allowed {
			msg := entry.Reason
			if msg == "" {
				msg = "tenant " + string(entry.Status)
			}
			f.log.Debug("Tenant request denied",
				zap.String("tenant_id", entry.TenantID),
				zap.String("status", string(entry.Status)),
				zap.String("reason", entry.Reason))
			f.api.Err(w, r, &errors.Error{
				Code: errors.EForbidden,
				Msg:  msg,
			})
			return
		}

		w.Header().Set(f.config.HeaderName, entry.TenantID)
		if entry.Stale {
			w.Header().Set(StaleAuthorizationHeader, "true")
		}

		tracing.TagTenant(ctx, entry.TenantID)
		a := entry.Authorization
		r = r.WithContext(tenantcontext.SetAuthorization(ctx, &a))
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
