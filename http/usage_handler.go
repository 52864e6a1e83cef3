package http

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/percussion/tenantd"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"go.uber.org/zap"
)

const prefixUsage = "/api/v1/usage"

// UsageHandler serves per-tenant request counts.
type UsageHandler struct {
	chi.Router
	api   *kithttp.API
	log   *zap.Logger
	usage tenantd.UsageService
}

// NewUsageHandler returns a handler for svc.
func NewUsageHandler(log *zap.Logger, svc tenantd.UsageService) *UsageHandler {
	h := &UsageHandler{
		api:   kithttp.NewAPI(kithttp.WithLog(log)),
		log:   log,
		usage: svc,
	}

	r := chi.NewRouter()
	r.Use(middlewareNoCache)
	r.Get("/", h.handleGetUsages)
	r.Post("/flush", h.handlePostFlush)

	h.Router = r
	return h
}

// Prefix is the path the handler is mounted at.
func (h *UsageHandler) Prefix() string {
	return prefixUsage
}

type usagesResponse struct {
	Usage []*tenantd.Usage `json:"usage"`
}

// handleGetUsages is the HTTP handler for the GET /api/v1/usage route.
func (h *UsageHandler) handleGetUsages(w http.ResponseWriter, r *http.Request) {
	us, err := h.usage.FindUsages(r.Context())
	if err != nil {
		h.api.Err(w, r, err)
		return
	}
	if us == nil {
		us = []*tenantd.Usage{}
	}

	h.api.Respond(w, r, http.StatusOK, usagesResponse{Usage: us})
}

// handlePostFlush is the HTTP handler for the POST /api/v1/usage/flush route.
func (h *UsageHandler) handlePostFlush(w http.ResponseWriter, r *http.Request) {
	if err := h.usage.Flush(r.Context()); err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusNoContent, nil)
}
