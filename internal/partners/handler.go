package partners

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

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
	r.Get("/quotas", h.handleQuotas)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleArchive)
	r.Get("/{id}/price-history", h.handleHistory)
	r.Put("/{id}/price-history", h.handleReplaceHistory)
	r.Get("/{id}/cost-segments", h.handleSegments)
	r.Put("/{id}/cost-segments", h.handleReplaceSegments)
}

type organizationRequest struct {
	Name                        string  `json:"name" validate:"required,max=200"`
	PricePerSolarDeal           float64 `json:"price_per_solar_deal" validate:"gte=0"`
	PricePerBatteryDeal         float64 `json:"price_per_battery_deal" validate:"gte=0"`
	PricePerSiteVisit           float64 `json:"price_per_site_visit" validate:"gte=0"`
	BillingModel                string  `json:"billing_model" validate:"required,oneof=fixed above_cost"`
	CompanyMarkupSharePercent   float64 `json:"company_markup_share_percent" validate:"gte=0,lte=100"`
	BaseCostForBilling          float64 `json:"base_cost_for_billing" validate:"gte=0"`
	EurToSekRate                float64 `json:"eur_to_sek_rate" validate:"gte=0"`
	LfFinansPercent             float64 `json:"lf_finans_percent" validate:"gte=0,lte=100"`
	DefaultCustomerPriceInclTax float64 `json:"default_customer_price_incl_tax" validate:"gte=0"`
	IsSalesConsultant           bool    `json:"is_sales_consultant"`
	SalesConsultantLeadType     string  `json:"sales_consultant_lead_type" validate:"omitempty,oneof=solar battery solar_battery"`
	MonthlyQuota                int     `json:"monthly_quota" validate:"gte=0"`
}

func (req organizationRequest) toInput() OrganizationInput {
	return OrganizationInput{
		Name:                        req.Name,
		PricePerSolarDeal:           req.PricePerSolarDeal,
		PricePerBatteryDeal:         req.PricePerBatteryDeal,
		PricePerSiteVisit:           req.PricePerSiteVisit,
		BillingModel:                billing.BillingModel(req.BillingModel),
		CompanyMarkupSharePercent:   req.CompanyMarkupSharePercent,
		BaseCostForBilling:          req.BaseCostForBilling,
		EurToSekRate:                req.EurToSekRate,
		LfFinansPercent:             req.LfFinansPercent,
		DefaultCustomerPriceInclTax: req.DefaultCustomerPriceInclTax,
		IsSalesConsultant:           req.IsSalesConsultant,
		SalesConsultantLeadType:     billing.InterestType(req.SalesConsultantLeadType),
		MonthlyQuota:                req.MonthlyQuota,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	orgs, err := h.service.List(r.Context(), includeArchived)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if orgs == nil {
		orgs = []Organization{}
	}
	httpx.JSON(w, http.StatusOK, orgs)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	org, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	org, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req organizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	org, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
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

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	records, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	views := make([]historyRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, historyRecordView{
			PricePerSolarDeal:   rec.PricePerSolarDeal,
			PricePerBatteryDeal: rec.PricePerBatteryDeal,
			EffectiveFrom:       rec.EffectiveFrom,
			EffectiveUntil:      rec.EffectiveUntil,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

type historyRecordView struct {
	PricePerSolarDeal   float64    `json:"price_per_solar_deal"`
	PricePerBatteryDeal float64    `json:"price_per_battery_deal"`
	EffectiveFrom       time.Time  `json:"effective_from"`
	EffectiveUntil      *time.Time `json:"effective_until,omitempty"`
}

type historyRecordRequest struct {
	PricePerSolarDeal   float64    `json:"price_per_solar_deal" validate:"gte=0"`
	PricePerBatteryDeal float64    `json:"price_per_battery_deal" validate:"gte=0"`
	EffectiveFrom       time.Time  `json:"effective_from" validate:"required"`
	EffectiveUntil      *time.Time `json:"effective_until"`
}

func (h *Handler) handleReplaceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var reqs []historyRecordRequest
	if err := httpx.DecodeJSON(r, &reqs); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	records := make([]billing.PriceHistoryRecord, 0, len(reqs))
	for _, rec := range reqs {
		if err := h.validate.Struct(rec); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		records = append(records, billing.PriceHistoryRecord{
			OrganizationID:      id,
			PricePerSolarDeal:   rec.PricePerSolarDeal,
			PricePerBatteryDeal: rec.PricePerBatteryDeal,
			EffectiveFrom:       rec.EffectiveFrom,
			EffectiveUntil:      rec.EffectiveUntil,
		})
	}
	if err := h.service.ReplaceHistory(r.Context(), id, records); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSegments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	segments, err := h.service.Segments(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if segments == nil {
		segments = []billing.CostSegment{}
	}
	httpx.JSON(w, http.StatusOK, segments)
}

type segmentRequest struct {
	Name   string  `json:"name" validate:"required,max=100"`
	Amount float64 `json:"amount" validate:"gte=0"`
	IsEur  bool    `json:"is_eur"`
}

func (h *Handler) handleReplaceSegments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var reqs []segmentRequest
	if err := httpx.DecodeJSON(r, &reqs); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	segments := make([]billing.CostSegment, 0, len(reqs))
	for _, req := range reqs {
		if err := h.validate.Struct(req); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		segments = append(segments, billing.CostSegment{Name: req.Name, Amount: req.Amount, IsEur: req.IsEur})
	}
	if err := h.service.ReplaceSegments(r.Context(), id, segments); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQuotas(w http.ResponseWriter, r *http.Request) {
	var month time.Time
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		month = parsed
	}
	reports, err := h.service.QuotaOverview(r.Context(), month)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if reports == nil {
		reports = []QuotaReport{}
	}
	httpx.JSON(w, http.StatusOK, reports)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrInvalidModel), errors.Is(err, ErrConsultantLeadType),
		errors.Is(err, ErrHistoryOverlap), errors.Is(err, ErrHistoryUnsorted),
		errors.Is(err, ErrOpenEndedNotLast):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("partners request failed", "error", err)
		httpx.RespondError(w, err)
	}
}
