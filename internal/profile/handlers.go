package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// Handler exposes profile administration endpoints.
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

// List handles GET /api/v1/profiles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListProfiles(r.Context())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Get handles GET /api/v1/profiles/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// Save handles POST /api/v1/profiles, upserting the profile and its rules.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var in SaveInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	detail, err := h.service.SaveProfile(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// Delete handles DELETE /api/v1/profiles/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertRule handles POST /api/v1/profiles/{id}/rules.
func (h *Handler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	var in RuleInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	rule, err := h.service.AddOrUpdateRule(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rule)
}

// RemoveRule handles DELETE /api/v1/profiles/{id}/rules?code=&minQty=.
func (h *Handler) RemoveRule(w http.ResponseWriter, r *http.Request) {
	minQty, err := common.QueryInt(r, "minQty", 1)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	err = h.service.RemoveRule(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("code"), minQty)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkApply handles POST /api/v1/profiles/{id}/rules/bulk.
func (h *Handler) BulkApply(w http.ResponseWriter, r *http.Request) {
	var in BulkInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	in.ProfileID = chi.URLParam(r, "id")
	result, err := h.service.BulkApplyRules(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}
