package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort defines the read side the billing service depends on.
type RepositoryPort interface {
	ListLeadsByPeriod(ctx context.Context, period Period) ([]Lead, error)
	ListOrganizations(ctx context.Context) (map[int64]Organization, error)
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)
	GetProductProvision(ctx context.Context, orgID, productID int64) (*float64, error)
	SaveInvoiceSnapshots(ctx context.Context, snapshots []InvoiceSnapshot) error
	CountLeadsByOrganization(ctx context.Context, period Period) (map[int64]int, error)
}

// Service orchestrates store reads around the pure billing core.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	engine *Engine
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, engine *Engine) *Service {
	return &Service{logger: logger, repo: repo, engine: engine, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// InvoicingOverview aggregates the invoiced leads for a billing month:
// the leads of the immediately preceding calendar month.
func (s *Service) InvoicingOverview(ctx context.Context, billingMonth time.Time) (Aggregation, error) {
	period := InvoicePeriod(billingMonth)

	var (
		leads []Lead
		orgs  map[int64]Organization
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.repo.ListLeadsByPeriod(gctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		orgs, err = s.repo.ListOrganizations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Aggregation{}, fmt.Errorf("billing: invoicing overview: %w", err)
	}

	return Aggregate(leads, orgs, period), nil
}

// DealBreakdown computes the commission breakdown for a recorded sale.
func (s *Service) DealBreakdown(ctx context.Context, saleID int64) (Breakdown, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("billing: load sale %d: %w", saleID, err)
	}

	org, err := s.repo.GetOrganization(ctx, sale.OrganizationID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("billing: load organization %d: %w", sale.OrganizationID, err)
	}

	in := BreakdownInput{
		NumPropertyOwners: sale.NumPropertyOwners,
		Organization:      *org,
		CostSegments:      org.CostSegments,
	}

	if sale.CustomProductName != "" {
		in.CustomProduct = &CustomProduct{
			Name:            sale.CustomProductName,
			PriceInclTax:    sale.CustomProductPrice,
			MaterialCostEur: sale.CustomMaterialCostEur,
		}
		in.TotalPriceInclTax = sale.CustomProductPrice
	} else if sale.ProductID != nil {
		product, err := s.repo.GetProduct(ctx, *sale.ProductID)
		if err != nil {
			return Breakdown{}, fmt.Errorf("billing: load product %d: %w", *sale.ProductID, err)
		}
		in.Product = product
		in.TotalPriceInclTax = product.BasePriceInclTax

		if org.BillingModel == BillingFixed {
			provision, err := s.repo.GetProductProvision(ctx, org.ID, product.ID)
			if err != nil {
				return Breakdown{}, fmt.Errorf("billing: load provision: %w", err)
			}
			in.ProductProvision = provision
		}
	}

	return s.engine.ComputeBreakdown(in), nil
}

// WhatIfRequest is the ad-hoc calculator input: an optional organization
// and product to anchor configuration, plus manual overrides.
type WhatIfRequest struct {
	OrganizationID    int64
	ProductID         int64
	TotalPriceInclTax float64
	NumPropertyOwners int
}

// WhatIfBreakdown runs the calculator against stored configuration
// without requiring a recorded sale.
func (s *Service) WhatIfBreakdown(ctx context.Context, req WhatIfRequest) (Breakdown, error) {
	in := BreakdownInput{
		TotalPriceInclTax: req.TotalPriceInclTax,
		NumPropertyOwners: req.NumPropertyOwners,
	}

	if req.OrganizationID != 0 {
		org, err := s.repo.GetOrganization(ctx, req.OrganizationID)
		if err != nil {
			return Breakdown{}, fmt.Errorf("billing: load organization %d: %w", req.OrganizationID, err)
		}
		in.Organization = *org
		in.CostSegments = org.CostSegments
	}
	if req.ProductID != 0 {
		product, err := s.repo.GetProduct(ctx, req.ProductID)
		if err != nil {
			return Breakdown{}, fmt.Errorf("billing: load product %d: %w", req.ProductID, err)
		}
		in.Product = product
		if in.TotalPriceInclTax == 0 {
			in.TotalPriceInclTax = product.BasePriceInclTax
		}
		if req.OrganizationID != 0 && in.Organization.BillingModel == BillingFixed {
			provision, err := s.repo.GetProductProvision(ctx, req.OrganizationID, req.ProductID)
			if err != nil {
				return Breakdown{}, fmt.Errorf("billing: load provision: %w", err)
			}
			in.ProductProvision = provision
		}
	}

	return s.engine.ComputeBreakdown(in), nil
}

// RunInvoiceSnapshot aggregates the billing month and stores one
// snapshot row per organization. Idempotent for a given period.
func (s *Service) RunInvoiceSnapshot(ctx context.Context, billingMonth time.Time) (int, error) {
	agg, err := s.InvoicingOverview(ctx, billingMonth)
	if err != nil {
		return 0, err
	}

	generatedAt := s.now()
	snapshots := make([]InvoiceSnapshot, 0, len(agg.PerOrganization))
	for _, totals := range agg.OrganizationsSorted() {
		snapshots = append(snapshots, InvoiceSnapshot{
			OrganizationID: totals.OrganizationID,
			PeriodStart:    agg.Period.Start,
			LeadCount:      totals.LeadCount,
			GrossValue:     totals.GrossValue,
			CreditedCount:  totals.CreditedCount,
			CreditedValue:  totals.CreditedValue,
			GeneratedAt:    generatedAt,
		})
	}
	if err := s.repo.SaveInvoiceSnapshots(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("billing: save snapshots: %w", err)
	}

	s.logger.Info("invoice snapshot stored",
		slog.Time("period_start", agg.Period.Start),
		slog.Int("organizations", len(snapshots)),
		slog.Float64("total_value", agg.TotalValue))
	return len(snapshots), nil
}
