package special

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// Handler exposes special price endpoints.
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

type replaceRequest struct {
	ClientID string      `json:"clientId"`
	Items    []RuleInput `json:"items"`
}

// List handles GET /api/v1/special-prices/{clientId}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListByClient(r.Context(), chi.URLParam(r, "clientId"))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rules)
}

// Override handles GET /api/v1/special-prices/{clientId}/override?code=.
func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	rule, err := h.service.GetOverride(r.Context(), chi.URLParam(r, "clientId"), r.URL.Query().Get("code"))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rule)
}

// Upsert handles POST /api/v1/special-prices.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	rule, err := h.service.UpsertOverride(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rule)
}

// Replace handles POST /api/v1/special-prices/profile, replacing the
// client's whole special rule set.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	rules, err := h.service.ReplaceClientRules(r.Context(), req.ClientID, req.Items)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, rules)
}

// Delete handles DELETE /api/v1/special-prices/{clientId}. With ?code= only
// that article's rule is removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")
	if code := strings.TrimSpace(r.URL.Query().Get("code")); code != "" {
		if err := h.service.DeleteOverride(r.Context(), clientID, code); err != nil {
			common.WriteError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	n, err := h.service.DeleteClient(r.Context(), clientID)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"clientId": clientID, "deleted": n})
}
