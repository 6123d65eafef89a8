// Package billinghttp exposes the invoicing overview, line export and
// what-if breakdown endpoints.
package billinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/billing/export"
	"github.com/voltlead/voltlead/internal/platform/httpx"
)

var monthRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

const requestTimeout = 5 * time.Second

// BillingService defines the service contract used by the handler.
type BillingService interface {
	InvoicingOverview(ctx context.Context, billingMonth time.Time) (billing.Aggregation, error)
	WhatIfBreakdown(ctx context.Context, req billing.WhatIfRequest) (billing.Breakdown, error)
}

// Handler coordinates HTTP requests for the billing surfaces.
type Handler struct {
	logger   *slog.Logger
	service  BillingService
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the billing HTTP handler.
func NewHandler(logger *slog.Logger, service BillingService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type orgTotalsView struct {
	OrganizationID   int64   `json:"organization_id"`
	OrganizationName string  `json:"organization_name"`
	LeadCount        int     `json:"lead_count"`
	GrossValue       float64 `json:"gross_value"`
	CreditedCount    int     `json:"credited_count"`
	CreditedValue    float64 `json:"credited_value"`
}

type overviewView struct {
	BillingMonth  string          `json:"billing_month"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Organizations []orgTotalsView `json:"organizations"`
	TotalValue    float64         `json:"total_value"`
	TotalCredited float64         `json:"total_credited"`
}

type lineView struct {
	Date         string  `json:"date"`
	LeadID       int64   `json:"lead_id"`
	LeadName     string  `json:"lead_name"`
	Organization string  `json:"organization"`
	Interest     string  `json:"interest"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
}

func (h *Handler) billingMonth(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return h.now(), nil
	}
	if !monthRegex.MatchString(raw) {
		return time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", httpx.ErrValidation)
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", httpx.ErrValidation, raw)
	}
	return month, nil
}

func (h *Handler) overview(ctx context.Context, month time.Time) (billing.Aggregation, error) {
	key := month.Format("2006-01")
	result, err, _ := singleflightOverview(ctx, key, func(ctx context.Context) (interface{}, error) {
		return h.service.InvoicingOverview(ctx, month)
	})
	if err != nil {
		return billing.Aggregation{}, err
	}
	return result.(billing.Aggregation), nil
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	month, err := h.billingMonth(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	agg, err := h.overview(ctx, month)
	if err != nil {
		h.logger.Error("invoicing overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	view := overviewView{
		BillingMonth:  month.Format("2006-01"),
		PeriodStart:   agg.Period.Start.Format("2006-01-02"),
		PeriodEnd:     agg.Period.End.Format("2006-01-02"),
		Organizations: []orgTotalsView{},
		TotalValue:    agg.TotalValue,
		TotalCredited: agg.TotalCredited,
	}
	for _, row := range agg.OrganizationsSorted() {
		view.Organizations = append(view.Organizations, orgTotalsView{
			OrganizationID:   row.OrganizationID,
			OrganizationName: row.OrganizationName,
			LeadCount:        row.LeadCount,
			GrossValue:       row.GrossValue,
			CreditedCount:    row.CreditedCount,
			CreditedValue:    row.CreditedValue,
		})
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleLines(w http.ResponseWriter, r *http.Request) {
	month, err := h.billingMonth(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	agg, err := h.overview(ctx, month)
	if err != nil {
		h.logger.Error("invoicing lines", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	lines := make([]lineView, 0, len(agg.Lines))
	for _, line := range agg.Lines {
		lines = append(lines, lineView{
			Date:         line.DateSent.Format("2006-01-02"),
			LeadID:       line.LeadID,
			LeadName:     line.LeadName,
			Organization: line.OrganizationName,
			Interest:     string(line.InterestType),
			Amount:       line.Amount,
			Status:       string(line.Status),
		})
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	month, err := h.billingMonth(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	agg, err := h.overview(ctx, month)
	if err != nil {
		h.logger.Error("invoicing export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoicing-%s.csv", month.Format("2006-01")))
	var writeErr error
	if r.URL.Query().Get("view") == "lines" {
		writeErr = export.WriteInvoiceLinesCSV(w, agg)
	} else {
		writeErr = export.WriteInvoiceOverviewCSV(w, agg)
	}
	if writeErr != nil {
		h.logger.Error("write invoicing csv", slog.Any("error", writeErr))
	}
}

type breakdownRequest struct {
	OrganizationID    int64   `json:"organization_id" validate:"omitempty,min=1"`
	ProductID         int64   `json:"product_id" validate:"omitempty,min=1"`
	TotalPriceInclTax float64 `json:"total_price_incl_tax"`
	NumPropertyOwners int     `json:"num_property_owners" validate:"omitempty,min=0,max=100"`
}

func (h *Handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	breakdown, err := h.service.WhatIfBreakdown(r.Context(), billing.WhatIfRequest{
		OrganizationID:    req.OrganizationID,
		ProductID:         req.ProductID,
		TotalPriceInclTax: req.TotalPriceInclTax,
		NumPropertyOwners: req.NumPropertyOwners,
	})
	if err != nil {
		h.logger.Error("what-if breakdown", slog.Any("error", err))
		httpx.RespondError(w, mapStoreError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, billing.ErrNotFound) {
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err)
	}
	return err
}
