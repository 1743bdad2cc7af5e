package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// Handler exposes base price endpoints.
type Handler struct {
	service *Service
	logger  zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	Logger  zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, logger: cfg.Logger}
}

type bulkRequest struct {
	Items []PriceInput `json:"items"`
}

// List handles GET /api/v1/prices/base.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Get handles GET /api/v1/prices/base/{code}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	article, err := h.service.GetArticle(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, article)
}

// Upsert handles POST /api/v1/prices/base.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in PriceInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	article, err := h.service.Upsert(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, article)
}

// Bulk handles POST /api/v1/prices/base/bulk. The response is 200 even when
// some items fail; callers inspect the per-item results.
func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req bulkRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if len(req.Items) == 0 {
		common.WriteError(w, h.logger, common.Validation("items must not be empty"))
		return
	}
	common.Data(w, http.StatusOK, h.service.BulkUpsert(r.Context(), req.Items))
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}
