package leads

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/platform/httpx"
)

// Handler manages lead endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.archive)
	r.Post("/{id}/assignments", h.assign)
	r.Delete("/{id}/assignments/{orgID}", h.unassign)
	r.Post("/{id}/credits", h.requestCredit)
	r.Post("/credits/{creditID}/approve", h.approveCredit)
	r.Post("/credits/{creditID}/deny", h.denyCredit)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrDuplicate, err))
	case errors.Is(err, ErrInvalidInterest), errors.Is(err, ErrArchived), errors.Is(err, ErrCreditResolved):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	default:
		httpx.RespondError(w, err)
	}
}

type createLeadRequest struct {
	Name            string  `json:"name" validate:"required,min=2"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Phone           string  `json:"phone"`
	Address         string  `json:"address"`
	InterestType    string  `json:"interest_type" validate:"required,oneof=solar battery solar_battery"`
	OpenerID        int64   `json:"opener_id" validate:"required,min=1"`
	DateSent        string  `json:"date_sent"`
	OrganizationIDs []int64 `json:"organization_ids" validate:"omitempty,dive,min=1"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var dateSent time.Time
	if req.DateSent != "" {
		var err error
		dateSent, err = time.Parse("2006-01-02", req.DateSent)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_sent must be YYYY-MM-DD")
			return
		}
	}

	lead, err := h.service.Create(r.Context(), CreateLeadInput{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Address:         req.Address,
		InterestType:    billing.InterestType(req.InterestType),
		OpenerID:        req.OpenerID,
		DateSent:        dateSent,
		OrganizationIDs: req.OrganizationIDs,
	})
	if err != nil {
		h.logger.Error("create lead", slog.Any("error", err))
		respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err := time.Parse("2006-01", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month must be YYYY-MM")
			return
		}
		filter.Month = &month
	}
	if raw := r.URL.Query().Get("organization_id"); raw != "" {
		filter.OrganizationID, _ = strconv.ParseInt(raw, 10, 64)
	}
	filter.InterestType = billing.InterestType(r.URL.Query().Get("interest"))
	if raw := r.URL.Query().Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}

	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list leads", slog.Any("error", err))
		respondServiceError(w, err)
		return
	}
	if out == nil {
		out = []Lead{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return
	}
	lead, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return
	}
	if err := h.service.Archive(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	OrganizationID int64 `json:"organization_id" validate:"required,min=1"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Assign(r.Context(), id, req.OrganizationID); err != nil {
		h.logger.Error("assign lead", slog.Any("error", err), slog.Int64("lead_id", id))
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return
	}
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid organization id")
		return
	}
	if err := h.service.Unassign(r.Context(), id, orgID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type creditRequestBody struct {
	OrganizationID int64  `json:"organization_id" validate:"required,min=1"`
	Reason         string `json:"reason" validate:"required,min=3"`
}

func (h *Handler) requestCredit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return
	}
	var req creditRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	credit, err := h.service.RequestCredit(r.Context(), id, req.OrganizationID, req.Reason)
	if err != nil {
		h.logger.Error("request credit", slog.Any("error", err), slog.Int64("lead_id", id))
		respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, credit)
}

func (h *Handler) approveCredit(w http.ResponseWriter, r *http.Request) {
	h.resolveCredit(w, r, true)
}

func (h *Handler) denyCredit(w http.ResponseWriter, r *http.Request) {
	h.resolveCredit(w, r, false)
}

func (h *Handler) resolveCredit(w http.ResponseWriter, r *http.Request, approve bool) {
	creditID, err := strconv.ParseInt(chi.URLParam(r, "creditID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credit id")
		return
	}
	if err := h.service.ResolveCredit(r.Context(), creditID, approve); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
