package http

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	tenantcontext "github.com/percussion/tenantd/context"
	"github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"go.uber.org/zap"
)

// NewGateway returns a reverse proxy to upstream. Requests that passed the
// tenant filter are forwarded with the tenant id in tenantHeader, even when
// the client sent it as a query parameter.
func NewGateway(log *zap.Logger, upstream *url.URL, tenantHeader string) http.Handler {
	api := kithttp.NewAPI(kithttp.WithLog(log))
	proxy := httputil.NewSingleHostReverseProxy(upstream)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = upstream.Host
		if id, err := tenantcontext.GetTenantID(req.Context()); err == nil {
			req.Header.Set(tenantHeader, id)
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		api.Err(w, r, &errors.Error{
			Code: errors.EUnavailable,
			Msg:  "upstream unavailable",
			Err:  err,
		})
	}
	proxy.ErrorLog = zap.NewStdLog(log)

	return proxy
}
