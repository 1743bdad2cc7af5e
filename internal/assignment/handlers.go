package assignment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// Handler exposes client assignment endpoints.
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

type assignRequest struct {
	ClientID   string   `json:"clientId"`
	ProfileID  string   `json:"profileId"`
	ProfileIDs []string `json:"profileIds"`
}

// Summaries handles GET /api/v1/profiles/assignments.
func (h *Handler) Summaries(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListSummaries(r.Context())
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Assign handles POST /api/v1/profiles/assign. A profileIds list replaces the
// client's whole set; a single profileId is added to it.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if req.ProfileIDs != nil {
		ids, err := h.service.SetAssignments(r.Context(), req.ClientID, req.ProfileIDs)
		if err != nil {
			common.WriteError(w, h.logger, err)
			return
		}
		common.Data(w, http.StatusOK, map[string]any{"clientId": req.ClientID, "profileIds": ids})
		return
	}
	if err := h.service.AssignProfile(r.Context(), req.ClientID, req.ProfileID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"clientId": req.ClientID, "profileId": req.ProfileID})
}

// Unassign handles POST /api/v1/profiles/unassign.
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if err := h.service.UnassignProfile(r.Context(), req.ClientID, req.ProfileID); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Effective handles GET /api/v1/clients/{clientId}/profiles?extra=.
func (h *Handler) Effective(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.EffectiveProfiles(r.Context(), chi.URLParam(r, "clientId"), common.SplitCSV(r.URL.Query().Get("extra")))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, profiles)
}
