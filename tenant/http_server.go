package tenant

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"go.uber.org/zap"
)

// TokenIssuer signs an authorization so another node can verify it.
type TokenIssuer interface {
	Issue(a *tenantd.Authorization) (string, error)
}

// TenantHandler serves the tenant registry admin API.
type TenantHandler struct {
	chi.Router
	api      *kithttp.API
	log      *zap.Logger
	svc      tenantd.TenantService
	issuer   TokenIssuer
	usageSvc tenantd.UsageService
}

const (
	prefixTenants = "/api/v1/tenants"
)

// NewHTTPTenantHandler constructs a new http server for tenants. issuer and
// usage may be nil, in which case their routes answer not implemented.
func NewHTTPTenantHandler(log *zap.Logger, svc tenantd.TenantService, issuer TokenIssuer, usage tenantd.UsageService) *TenantHandler {
	svr := &TenantHandler{
		api:      kithttp.NewAPI(kithttp.WithLog(log)),
		log:      log,
		svc:      svc,
		issuer:   issuer,
		usageSvc: usage,
	}

	r := chi.NewRouter()
	r.Use(
		middlewareNoCache,
	)

	r.Route("/", func(r chi.Router) {
		r.Post("/", svr.handlePostTenant)
		r.Get("/", svr.handleGetTenants)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", svr.handleGetTenant)
			r.Patch("/", svr.handlePatchTenant)
			r.Delete("/", svr.handleDeleteTenant)
			r.Get("/authorization", svr.handleGetAuthorization)
			r.Get("/usage", svr.handleGetUsage)
		})
	})

	svr.Router = r
	return svr
}

// Prefix is the path the handler is mounted at.
func (h *TenantHandler) Prefix() string {
	return prefixTenants
}

func middlewareNoCache(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

type postTenantRequest struct {
	ID          string               `json:"id,omitempty"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Status      tenantd.TenantStatus `json:"status,omitempty"`
}

func (r postTenantRequest) OK() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameisEmpty
	}
	if r.Status != "" && !r.Status.Valid() {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "invalid tenant status " + string(r.Status),
		}
	}
	return nil
}

// handlePostTenant is the HTTP handler for the POST /api/v1/tenants route.
func (h *TenantHandler) handlePostTenant(w http.ResponseWriter, r *http.Request) {
	var req postTenantRequest
	if err := h.api.DecodeJSON(r.Body, &req); err != nil {
		h.api.Err(w, r, err)
		return
	}

	t := &tenantd.Tenant{
		ID:          strings.TrimSpace(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	}
	if err := h.svc.CreateTenant(r.Context(), t); err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Debug("Tenant created", zap.String("tenant_id", t.ID))

	h.api.Respond(w, r, http.StatusCreated, t)
}

type tenantsResponse struct {
	Tenants []*tenantd.Tenant `json:"tenants"`
	Total   int               `json:"total"`
}

// handleGetTenants is the HTTP handler for the GET /api/v1/tenants route.
func (h *TenantHandler) handleGetTenants(w http.ResponseWriter, r *http.Request) {
	opts, err := tenantd.DecodeFindOptions(r)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	var filter tenantd.TenantFilter
	qp := r.URL.Query()
	if name := qp.Get("name"); name != "" {
		filter.Name = &name
	}
	if status := qp.Get("status"); status != "" {
		s := tenantd.TenantStatus(status)
		if !s.Valid() {
			h.api.Err(w, r, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "invalid tenant status " + status,
			})
			return
		}
		filter.Status = &s
	}

	ts, n, err := h.svc.FindTenants(r.Context(), filter, *opts)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, tenantsResponse{Tenants: ts, Total: n})
}

// handleGetTenant is the HTTP handler for the GET /api/v1/tenants/:id route.
func (h *TenantHandler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.FindTenantByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, t)
}

type patchTenantRequest tenantd.TenantUpdate

func (r patchTenantRequest) OK() error {
	if r.Name == nil && r.Description == nil && r.Status == nil {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "update must set at least one field",
		}
	}
	if r.Status != nil && !r.Status.Valid() {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "invalid tenant status " + string(*r.Status),
		}
	}
	return nil
}

// handlePatchTenant is the HTTP handler for the PATCH /api/v1/tenants/:id route.
func (h *TenantHandler) handlePatchTenant(w http.ResponseWriter, r *http.Request) {
	var req patchTenantRequest
	if err := h.api.DecodeJSON(r.Body, &req); err != nil {
		h.api.Err(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	t, err := h.svc.UpdateTenant(r.Context(), id, tenantd.TenantUpdate(req))
	if err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Debug("Tenant updated", zap.String("tenant_id", id))

	h.api.Respond(w, r, http.StatusOK, t)
}

// handleDeleteTenant is the HTTP handler for the DELETE /api/v1/tenants/:id route.
func (h *TenantHandler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteTenant(r.Context(), id); err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Debug("Tenant deleted", zap.String("tenant_id", id))

	h.api.Respond(w, r, http.StatusNoContent, nil)
}

// AuthorizationResponse is the body of GET /api/v1/tenants/:id/authorization.
type AuthorizationResponse struct {
	Token         string                 `json:"token"`
	Authorization *tenantd.Authorization `json:"authorization"`
}

// handleGetAuthorization is the HTTP handler for the GET /api/v1/tenants/:id/authorization route.
// It answers from the registry only, never from a cache.
func (h *TenantHandler) handleGetAuthorization(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		h.api.Err(w, r, &errors.Error{
			Code: errors.ENotImplemented,
			Msg:  "authorization tokens are not enabled; set a signing key",
		})
		return
	}

	t, err := h.svc.FindTenantByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	a := AuthorizationFor(t)
	token, err := h.issuer.Issue(a)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, AuthorizationResponse{Token: token, Authorization: a})
}

// handleGetUsage is the HTTP handler for the GET /api/v1/tenants/:id/usage route.
func (h *TenantHandler) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	if h.usageSvc == nil {
		h.api.Err(w, r, &errors.Error{
			Code: errors.ENotImplemented,
			Msg:  "usage tracking is not enabled",
		})
		return
	}

	u, err := h.usageSvc.FindUsage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, u)
}
