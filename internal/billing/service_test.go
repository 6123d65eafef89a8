package billing

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	leads      []Lead
	orgs       map[int64]Organization
	products   map[int64]*Product
	sales      map[int64]*Sale
	provisions map[[2]int64]float64
	snapshots  []InvoiceSnapshot

	listLeadsError error
	listOrgsError  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orgs:       make(map[int64]Organization),
		products:   make(map[int64]*Product),
		sales:      make(map[int64]*Sale),
		provisions: make(map[[2]int64]float64),
	}
}

func (m *mockRepository) ListLeadsByPeriod(ctx context.Context, period Period) ([]Lead, error) {
	if m.listLeadsError != nil {
		return nil, m.listLeadsError
	}
	var out []Lead
	for _, lead := range m.leads {
		if period.Contains(lead.DateSent) {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (m *mockRepository) ListOrganizations(ctx context.Context) (map[int64]Organization, error) {
	if m.listOrgsError != nil {
		return nil, m.listOrgsError
	}
	return m.orgs, nil
}

func (m *mockRepository) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (m *mockRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) GetProductProvision(ctx context.Context, orgID, productID int64) (*float64, error) {
	if amount, ok := m.provisions[[2]int64{orgID, productID}]; ok {
		return &amount, nil
	}
	return nil, nil
}

func (m *mockRepository) SaveInvoiceSnapshots(ctx context.Context, snapshots []InvoiceSnapshot) error {
	m.snapshots = append(m.snapshots[:0], snapshots...)
	return nil
}

func (m *mockRepository) CountLeadsByOrganization(ctx context.Context, period Period) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, lead := range m.leads {
		if !period.Contains(lead.DateSent) {
			continue
		}
		for _, orgID := range lead.OrganizationIDs {
			counts[orgID]++
		}
	}
	return counts, nil
}

func newTestService(repo *mockRepository) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(logger, repo, NewEngine(StandardDefaults()))
}

func TestInvoicingOverviewAggregatesPrecedingMonth(t *testing.T) {
	repo := newMockRepository()
	repo.orgs = testOrgs()
	repo.leads = marchLeads()
	svc := newTestService(repo)

	agg, err := svc.InvoicingOverview(context.Background(), date(2024, time.April, 10))
	require.NoError(t, err)

	assert.Equal(t, 2250.0, agg.TotalValue)
	assert.Len(t, agg.PerOrganization, 2)
	// The April lead belongs to the next billing month.
	assert.Len(t, agg.Lines, 4)
}

func TestInvoicingOverviewPropagatesStoreErrors(t *testing.T) {
	repo := newMockRepository()
	repo.listOrgsError = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.InvoicingOverview(context.Background(), date(2024, time.April, 10))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDealBreakdownWithCatalogProduct(t *testing.T) {
	repo := newMockRepository()
	repo.orgs[1] = aboveCostOrg()
	repo.products[7] = &Product{ID: 7, Type: InterestSolar, BasePriceInclTax: 78000, MaterialCostEur: 6150, GreenTechDeductionPercent: 48.5}
	productID := int64(7)
	repo.sales[3] = &Sale{ID: 3, LeadID: 1, OrganizationID: 1, ProductID: &productID, NumPropertyOwners: 1, PipelineStatus: "won"}
	svc := newTestService(repo)

	b, err := svc.DealBreakdown(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, -30590.0, b.BillableAmount)
	assert.Equal(t, 37830.0, b.Deduction)
}

func TestDealBreakdownCustomProduct(t *testing.T) {
	repo := newMockRepository()
	repo.orgs[1] = aboveCostOrg()
	repo.sales[4] = &Sale{
		ID: 4, LeadID: 2, OrganizationID: 1,
		CustomProductName: "Hybrid kit", CustomProductPrice: 100000, CustomMaterialCostEur: 1000,
		NumPropertyOwners: 2, PipelineStatus: "won",
	}
	svc := newTestService(repo)

	b, err := svc.DealBreakdown(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, b.TotalPriceInclTax)
	assert.Equal(t, 11000.0, b.MaterialCostSek)
}

func TestDealBreakdownUsesProvisionUnderFixedModel(t *testing.T) {
	repo := newMockRepository()
	org := aboveCostOrg()
	org.BillingModel = BillingFixed
	repo.orgs[1] = org
	repo.products[7] = &Product{ID: 7, BasePriceInclTax: 100000}
	repo.provisions[[2]int64{1, 7}] = 5000
	productID := int64(7)
	repo.sales[5] = &Sale{ID: 5, OrganizationID: 1, ProductID: &productID, NumPropertyOwners: 1}
	svc := newTestService(repo)

	b, err := svc.DealBreakdown(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, b.UsedProvision)
	assert.Equal(t, 5000.0, b.PartnerShare)
}

func TestDealBreakdownUnknownSale(t *testing.T) {
	svc := newTestService(newMockRepository())
	_, err := svc.DealBreakdown(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWhatIfBreakdownDefaultsWithoutAnchors(t *testing.T) {
	svc := newTestService(newMockRepository())

	b, err := svc.WhatIfBreakdown(context.Background(), WhatIfRequest{})
	require.NoError(t, err)
	assert.Equal(t, 78000.0, b.TotalPriceInclTax)
	assert.Equal(t, 62400.0, b.PriceExTax)
}

func TestRunInvoiceSnapshotStoresPerOrganizationRows(t *testing.T) {
	repo := newMockRepository()
	repo.orgs = testOrgs()
	repo.leads = marchLeads()
	svc := newTestService(repo)
	svc.WithNow(func() time.Time { return date(2024, time.April, 1) })

	count, err := svc.RunInvoiceSnapshot(context.Background(), date(2024, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.snapshots, 2)
	assert.Equal(t, date(2024, time.March, 1), repo.snapshots[0].PeriodStart)
	assert.Equal(t, date(2024, time.April, 1), repo.snapshots[0].GeneratedAt)
}
