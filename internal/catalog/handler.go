package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleArchive)
	r.Get("/provisions/{orgID}", h.handleProvisions)
	r.Put("/provisions/{orgID}/{id}", h.handleSetProvision)
	r.Delete("/provisions/{orgID}/{id}", h.handleDeleteProvision)
}

type productRequest struct {
	Type                      string  `json:"type" validate:"required,oneof=solar battery solar_battery"`
	Name                      string  `json:"name" validate:"required,max=200"`
	BasePriceInclTax          float64 `json:"base_price_incl_tax" validate:"gte=0"`
	MaterialCostEur           float64 `json:"material_cost_eur" validate:"gte=0"`
	GreenTechDeductionPercent float64 `json:"green_tech_deduction_percent" validate:"gte=0,lte=100"`
}

func (req productRequest) toInput() ProductInput {
	return ProductInput{
		Type:                      billing.InterestType(req.Type),
		Name:                      req.Name,
		BasePriceInclTax:          req.BasePriceInclTax,
		MaterialCostEur:           req.MaterialCostEur,
		GreenTechDeductionPercent: req.GreenTechDeductionPercent,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	products, err := h.service.List(r.Context(), includeArchived)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Archive(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProvisions(w http.ResponseWriter, r *http.Request) {
	orgID, err := urlID(r, "orgID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	provisions, err := h.service.Provisions(r.Context(), orgID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if provisions == nil {
		provisions = []Provision{}
	}
	httpx.JSON(w, http.StatusOK, provisions)
}

type provisionRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) handleSetProvision(w http.ResponseWriter, r *http.Request) {
	orgID, err := urlID(r, "orgID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	productID, err := urlID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req provisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	p, err := h.service.SetProvision(r.Context(), orgID, productID, req.Amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeleteProvision(w http.ResponseWriter, r *http.Request) {
	orgID, err := urlID(r, "orgID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	productID, err := urlID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.DeleteProvision(r.Context(), orgID, productID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func urlID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrInvalidType):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("catalog request failed", "error", err)
		httpx.RespondError(w, err)
	}
}
