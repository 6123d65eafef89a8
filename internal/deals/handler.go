package deals

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
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/breakdown", h.handleBreakdown)
}

type dealRequest struct {
	LeadID                int64   `json:"lead_id" validate:"required,gt=0"`
	OrganizationID        int64   `json:"organization_id" validate:"required,gt=0"`
	CloserID              int64   `json:"closer_id" validate:"gte=0"`
	ProductID             *int64  `json:"product_id"`
	CustomProductName     string  `json:"custom_product_name" validate:"max=200"`
	CustomProductPrice    float64 `json:"custom_product_price" validate:"gte=0"`
	CustomMaterialCostEur float64 `json:"custom_material_cost_eur" validate:"gte=0"`
	NumPropertyOwners     int     `json:"num_property_owners" validate:"gte=0"`
	PipelineStatus        string  `json:"pipeline_status" validate:"omitempty,oneof=open won lost"`
}

func (req dealRequest) toInput() DealInput {
	return DealInput{
		LeadID:                req.LeadID,
		OrganizationID:        req.OrganizationID,
		CloserID:              req.CloserID,
		ProductID:             req.ProductID,
		CustomProductName:     req.CustomProductName,
		CustomProductPrice:    req.CustomProductPrice,
		CustomMaterialCostEur: req.CustomMaterialCostEur,
		NumPropertyOwners:     req.NumPropertyOwners,
		PipelineStatus:        PipelineStatus(req.PipelineStatus),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rawOrg := r.URL.Query().Get("organization_id")
	orgID, err := strconv.ParseInt(rawOrg, 10, 64)
	if err != nil || orgID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	status := PipelineStatus(r.URL.Query().Get("status"))
	out, err := h.service.ListByOrganization(r.Context(), orgID, status)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if out == nil {
		out = []Deal{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	deal, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, deal)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	deal, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req dealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	deal, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	breakdown, err := h.service.Breakdown(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, billing.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNoProduct):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("deals request failed", "error", err)
		httpx.RespondError(w, err)
	}
}
