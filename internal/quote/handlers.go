package quote

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// Handler exposes the price calculation endpoint.
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

// Calculate handles GET /api/v1/prices/calculate?code=&qty=&clientId=&extra=&exclude=.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	qty, err := common.QueryInt(r, "qty", 1)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	res, err := h.service.Calculate(r.Context(), Request{
		Code:     query.Get("code"),
		Quantity: qty,
		ClientID: query.Get("clientId"),
		Extra:    common.SplitCSV(query.Get("extra")),
		Exclude:  common.SplitCSV(query.Get("exclude")),
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}
