package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"go.uber.org/zap"
)

const prefixTenantCache = "/api/v1/tenantcache"

// CacheHandler serves the tenant cache admin API.
type CacheHandler struct {
	chi.Router
	api   *kithttp.API
	log   *zap.Logger
	cache tenantd.TenantCache
}

// NewCacheHandler returns a handler for c.
func NewCacheHandler(log *zap.Logger, c tenantd.TenantCache) *CacheHandler {
	h := &CacheHandler{
		api:   kithttp.NewAPI(kithttp.WithLog(log)),
		log:   log,
		cache: c,
	}

	r := chi.NewRouter()
	r.Use(middlewareNoCache)

	r.Route("/", func(r chi.Router) {
		r.Get("/", h.handleGetEntries)
		r.Delete("/", h.handleDeleteAll)
		r.Post("/scavenge", h.handlePostScavenge)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetEntry)
			r.Put("/", h.handlePutEntry)
			r.Delete("/", h.handleDeleteEntry)
		})
	})

	h.Router = r
	return h
}

// Prefix is the path the handler is mounted at.
func (h *CacheHandler) Prefix() string {
	return prefixTenantCache
}

func middlewareNoCache(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

type cacheEntriesResponse struct {
	Entries []*tenantd.CacheEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// handleGetEntries is the HTTP handler for the GET /api/v1/tenantcache route.
func (h *CacheHandler) handleGetEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.cache.Entries(r.Context())
	if err != nil {
		h.api.Err(w, r, err)
		return
	}
	if entries == nil {
		entries = []*tenantd.CacheEntry{}
	}

	h.api.Respond(w, r, http.StatusOK, cacheEntriesResponse{Entries: entries, Count: len(entries)})
}

// handleDeleteAll is the HTTP handler for the DELETE /api/v1/tenantcache route.
func (h *CacheHandler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.InvalidateAll(r.Context()); err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Info("Tenant cache cleared")

	h.api.Respond(w, r, http.StatusNoContent, nil)
}

type scavengeResponse struct {
	Removed int `json:"removed"`
}

// handlePostScavenge is the HTTP handler for the POST /api/v1/tenantcache/scavenge route.
func (h *CacheHandler) handlePostScavenge(w http.ResponseWriter, r *http.Request) {
	n, err := h.cache.Scavenge(r.Context())
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, scavengeResponse{Removed: n})
}

// handleGetEntry is the HTTP handler for the GET /api/v1/tenantcache/:id route.
// It looks the tenant up through the cache, authorizing it when needed.
func (h *CacheHandler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.cache.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, e)
}

type putEntryRequest struct {
	Status tenantd.AuthorizationStatus `json:"status"`
	Reason string                      `json:"reason,omitempty"`
}

func (r putEntryRequest) OK() error {
	if !r.Status.Valid() {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "invalid authorization status " + string(r.Status),
		}
	}
	return nil
}

// handlePutEntry is the HTTP handler for the PUT /api/v1/tenantcache/:id route.
// It overrides the cached decision for a tenant until the entry expires.
func (h *CacheHandler) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	var req putEntryRequest
	if err := h.api.DecodeJSON(r.Body, &req); err != nil {
		h.api.Err(w, r, err)
		return
	}

	a := &tenantd.Authorization{
		TenantID: strings.TrimSpace(chi.URLParam(r, "id")),
		Status:   req.Status,
		Reason:   req.Reason,
		Source:   tenantd.SourceManual,
	}
	if err := h.cache.Put(r.Context(), a); err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Info("Tenant authorization set manually",
		zap.String("tenant_id", a.TenantID),
		zap.String("status", string(a.Status)))

	h.api.Respond(w, r, http.StatusNoContent, nil)
}

// handleDeleteEntry is the HTTP handler for the DELETE /api/v1/tenantcache/:id route.
func (h *CacheHandler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.cache.Invalidate(r.Context(), id); err != nil {
		h.api.Err(w, r, err)
		return
	}
	h.log.Debug("Tenant cache entry invalidated", zap.String("tenant_id", id))

	h.api.Respond(w, r, http.StatusNoContent, nil)
}
