package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{
		logger:   logger,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quota-thresholds", h.handleGetThresholds)
	r.Put("/quota-thresholds", h.handleSetThresholds)
	r.Get("/billing-defaults", h.handleGetDefaults)
	r.Put("/billing-defaults", h.handleSetDefaults)
}

func (h *Handler) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	th, err := h.store.QuotaThresholds(r.Context())
	if err != nil {
		h.logger.Error("settings read failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, th)
}

type thresholdsRequest struct {
	Green  int `json:"green" validate:"required,gt=0"`
	Yellow int `json:"yellow" validate:"gte=0"`
}

func (h *Handler) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	th := billing.QuotaThresholds{Green: req.Green, Yellow: req.Yellow}
	if err := h.store.SetQuotaThresholds(r.Context(), th); err != nil {
		if errors.Is(err, ErrInvalidThresholds) {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		h.logger.Error("settings write failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("quota thresholds updated", "green", th.Green, "yellow", th.Yellow)
	httpx.JSON(w, http.StatusOK, th)
}

func (h *Handler) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.BillingDefaults(r.Context())
	if err != nil {
		h.logger.Error("settings read failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

type defaultsRequest struct {
	MarkupSharePercent        float64 `json:"markup_share_percent" validate:"gte=0,lte=100"`
	BaseCostForBilling        float64 `json:"base_cost_for_billing" validate:"gte=0"`
	EurToSekRate              float64 `json:"eur_to_sek_rate" validate:"gte=0"`
	FinancingPercent          float64 `json:"financing_percent" validate:"gte=0,lte=100"`
	CustomerPriceInclTax      float64 `json:"customer_price_incl_tax" validate:"gte=0"`
	GreenTechDeductionPercent float64 `json:"green_tech_deduction_percent" validate:"gte=0,lte=100"`
}

func (h *Handler) handleSetDefaults(w http.ResponseWriter, r *http.Request) {
	var req defaultsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	d := billing.Defaults{
		MarkupSharePercent:        req.MarkupSharePercent,
		BaseCostForBilling:        req.BaseCostForBilling,
		EurToSekRate:              req.EurToSekRate,
		FinancingPercent:          req.FinancingPercent,
		CustomerPriceInclTax:      req.CustomerPriceInclTax,
		GreenTechDeductionPercent: req.GreenTechDeductionPercent,
	}
	if err := h.store.SetBillingDefaults(r.Context(), d); err != nil {
		h.logger.Error("settings write failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("billing defaults updated")
	merged, err := h.store.BillingDefaults(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, merged)
}
