package billinghttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlead/voltlead/internal/billing"
)

type stubService struct {
	months []time.Time
	agg    billing.Aggregation
	err    error
}

func (s *stubService) InvoicingOverview(ctx context.Context, month time.Time) (billing.Aggregation, error) {
	s.months = append(s.months, month)
	return s.agg, s.err
}

func (s *stubService) WhatIfBreakdown(ctx context.Context, req billing.WhatIfRequest) (billing.Breakdown, error) {
	engine := billing.NewEngine(billing.StandardDefaults())
	return engine.ComputeBreakdown(billing.BreakdownInput{
		TotalPriceInclTax: req.TotalPriceInclTax,
		NumPropertyOwners: req.NumPropertyOwners,
	}), s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testAggregation() billing.Aggregation {
	orgs := map[int64]billing.Organization{
		1: {ID: 1, Name: "Solkraft Nord AB", PricePerSolarDeal: 500},
	}
	leads := []billing.Lead{
		{ID: 1, Name: "Anna Berg", InterestType: billing.InterestSolar,
			DateSent:        time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			OrganizationIDs: []int64{1}},
	}
	return billing.Aggregate(leads, orgs, billing.InvoicePeriod(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
}

func newTestRouter(svc BillingService) http.Handler {
	h := NewHandler(testLogger(), svc)
	h.WithNow(func() time.Time { return time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	r.Route("/billing", h.MountRoutes)
	return r
}

func TestHandleOverview(t *testing.T) {
	svc := &stubService{agg: testAggregation()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoicing?month=2024-04", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		BillingMonth  string  `json:"billing_month"`
		PeriodStart   string  `json:"period_start"`
		TotalValue    float64 `json:"total_value"`
		Organizations []struct {
			OrganizationName string  `json:"organization_name"`
			GrossValue       float64 `json:"gross_value"`
		} `json:"organizations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "2024-04", view.BillingMonth)
	assert.Equal(t, "2024-03-01", view.PeriodStart)
	assert.Equal(t, 500.0, view.TotalValue)
	require.Len(t, view.Organizations, 1)
	assert.Equal(t, "Solkraft Nord AB", view.Organizations[0].OrganizationName)
}

func TestHandleOverviewDefaultsToCurrentMonth(t *testing.T) {
	svc := &stubService{agg: testAggregation()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoicing", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.months, 1)
	assert.Equal(t, time.April, svc.months[0].Month())
}

func TestHandleOverviewRejectsBadMonth(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoicing?month=April", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLines(t *testing.T) {
	svc := &stubService{agg: testAggregation()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoicing/lines?month=2024-04", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var lines []struct {
		LeadName string  `json:"lead_name"`
		Amount   float64 `json:"amount"`
		Status   string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "billed", lines[0].Status)
}

func TestHandleExportCSV(t *testing.T) {
	svc := &stubService{agg: testAggregation()}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoicing/export.csv?month=2024-04", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoicing-2024-04.csv")
	assert.Contains(t, rec.Body.String(), "Solkraft Nord AB")
}

func TestHandleBreakdown(t *testing.T) {
	router := newTestRouter(&stubService{})

	body := strings.NewReader(`{"total_price_incl_tax": 78000, "num_property_owners": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/billing/breakdown", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var breakdown billing.Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	assert.Equal(t, 62400.0, breakdown.PriceExTax)
	assert.Equal(t, 37830.0, breakdown.Deduction)
}

func TestHandleBreakdownRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/billing/breakdown", strings.NewReader(`{"organization_id": -1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
