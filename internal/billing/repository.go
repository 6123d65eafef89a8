package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("billing: not found")

// Repository provides the PostgreSQL read side for the billing core plus
// invoice snapshot persistence. Everything the core computes over is
// materialized here before any pure function runs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLeadsByPeriod returns leads sent inside the period with their
// organization assignments and credit requests attached.
func (r *Repository) ListLeadsByPeriod(ctx context.Context, period Period) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, interest_type, date_sent FROM leads WHERE date_sent >= $1 AND date_sent < $2 AND archived_at IS NULL ORDER BY date_sent, id`, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	index := make(map[int64]int)
	var ids []int64
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.InterestType, &lead.DateSent); err != nil {
			return nil, err
		}
		index[lead.ID] = len(leads)
		ids = append(ids, lead.ID)
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}

	assignRows, err := r.pool.Query(ctx, `SELECT lead_id, organization_id FROM lead_organizations WHERE lead_id = ANY($1) ORDER BY lead_id, organization_id`, ids)
	if err != nil {
		return nil, err
	}
	defer assignRows.Close()
	for assignRows.Next() {
		var leadID, orgID int64
		if err := assignRows.Scan(&leadID, &orgID); err != nil {
			return nil, err
		}
		if i, ok := index[leadID]; ok {
			leads[i].OrganizationIDs = append(leads[i].OrganizationIDs, orgID)
		}
	}
	if err := assignRows.Err(); err != nil {
		return nil, err
	}

	creditRows, err := r.pool.Query(ctx, `SELECT id, lead_id, organization_id, status FROM credit_requests WHERE lead_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer creditRows.Close()
	for creditRows.Next() {
		var cr CreditRequest
		if err := creditRows.Scan(&cr.ID, &cr.LeadID, &cr.OrganizationID, &cr.Status); err != nil {
			return nil, err
		}
		if i, ok := index[cr.LeadID]; ok {
			leads[i].Credits = append(leads[i].Credits, cr)
		}
	}
	if err := creditRows.Err(); err != nil {
		return nil, err
	}

	return leads, nil
}

// ListOrganizations returns all non-archived organizations keyed by ID,
// with price history and cost segments attached.
func (r *Repository) ListOrganizations(ctx context.Context) (map[int64]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, archived_at IS NOT NULL, price_per_solar_deal, price_per_battery_deal, price_per_site_visit, billing_model, company_markup_share_percent, base_cost_for_billing, eur_to_sek_rate, lf_finans_percent, default_customer_price_incl_tax, is_sales_consultant, COALESCE(sales_consultant_lead_type, '') FROM organizations WHERE archived_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make(map[int64]Organization)
	var ids []int64
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Archived, &org.PricePerSolarDeal, &org.PricePerBatteryDeal, &org.PricePerSiteVisit, &org.BillingModel, &org.CompanyMarkupSharePercent, &org.BaseCostForBilling, &org.EurToSekRate, &org.LfFinansPercent, &org.DefaultCustomerPriceInclTax, &org.IsSalesConsultant, &org.SalesConsultantLeadType); err != nil {
			return nil, err
		}
		orgs[org.ID] = org
		ids = append(ids, org.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return orgs, nil
	}

	histRows, err := r.pool.Query(ctx, `SELECT id, organization_id, price_per_solar_deal, price_per_battery_deal, effective_from, effective_until FROM price_history WHERE organization_id = ANY($1) ORDER BY organization_id, effective_from`, ids)
	if err != nil {
		return nil, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var rec PriceHistoryRecord
		if err := histRows.Scan(&rec.ID, &rec.OrganizationID, &rec.PricePerSolarDeal, &rec.PricePerBatteryDeal, &rec.EffectiveFrom, &rec.EffectiveUntil); err != nil {
			return nil, err
		}
		if org, ok := orgs[rec.OrganizationID]; ok {
			org.PriceHistory = append(org.PriceHistory, rec)
			orgs[rec.OrganizationID] = org
		}
	}
	if err := histRows.Err(); err != nil {
		return nil, err
	}

	segRows, err := r.pool.Query(ctx, `SELECT id, organization_id, name, amount, is_eur FROM cost_segments WHERE organization_id = ANY($1) ORDER BY organization_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer segRows.Close()
	for segRows.Next() {
		var seg CostSegment
		if err := segRows.Scan(&seg.ID, &seg.OrganizationID, &seg.Name, &seg.Amount, &seg.IsEur); err != nil {
			return nil, err
		}
		if org, ok := orgs[seg.OrganizationID]; ok {
			org.CostSegments = append(org.CostSegments, seg)
			orgs[seg.OrganizationID] = org
		}
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	return orgs, nil
}

// GetOrganization loads one organization with price history and cost
// segments, archived or not.
func (r *Repository) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, archived_at IS NOT NULL, price_per_solar_deal, price_per_battery_deal, price_per_site_visit, billing_model, company_markup_share_percent, base_cost_for_billing, eur_to_sek_rate, lf_finans_percent, default_customer_price_incl_tax, is_sales_consultant, COALESCE(sales_consultant_lead_type, '') FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.Archived, &org.PricePerSolarDeal, &org.PricePerBatteryDeal, &org.PricePerSiteVisit, &org.BillingModel, &org.CompanyMarkupSharePercent, &org.BaseCostForBilling, &org.EurToSekRate, &org.LfFinansPercent, &org.DefaultCustomerPriceInclTax, &org.IsSalesConsultant, &org.SalesConsultantLeadType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	histRows, err := r.pool.Query(ctx, `SELECT id, organization_id, price_per_solar_deal, price_per_battery_deal, effective_from, effective_until FROM price_history WHERE organization_id = $1 ORDER BY effective_from`, id)
	if err != nil {
		return nil, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var rec PriceHistoryRecord
		if err := histRows.Scan(&rec.ID, &rec.OrganizationID, &rec.PricePerSolarDeal, &rec.PricePerBatteryDeal, &rec.EffectiveFrom, &rec.EffectiveUntil); err != nil {
			return nil, err
		}
		org.PriceHistory = append(org.PriceHistory, rec)
	}
	if err := histRows.Err(); err != nil {
		return nil, err
	}

	segRows, err := r.pool.Query(ctx, `SELECT id, organization_id, name, amount, is_eur FROM cost_segments WHERE organization_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer segRows.Close()
	for segRows.Next() {
		var seg CostSegment
		if err := segRows.Scan(&seg.ID, &seg.OrganizationID, &seg.Name, &seg.Amount, &seg.IsEur); err != nil {
			return nil, err
		}
		org.CostSegments = append(org.CostSegments, seg)
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	return &org, nil
}

// GetProduct loads one catalog product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, type, name, base_price_incl_tax, material_cost_eur, green_tech_deduction_percent FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Type, &p.Name, &p.BasePriceInclTax, &p.MaterialCostEur, &p.GreenTechDeductionPercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetSale loads one sale record.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	var s Sale
	err := r.pool.QueryRow(ctx, `SELECT id, lead_id, organization_id, closer_id, product_id, COALESCE(custom_product_name, ''), COALESCE(custom_product_price, 0), COALESCE(custom_material_cost_eur, 0), num_property_owners, pipeline_status, created_at, updated_at FROM sales WHERE id = $1`, id).
		Scan(&s.ID, &s.LeadID, &s.OrganizationID, &s.CloserID, &s.ProductID, &s.CustomProductName, &s.CustomProductPrice, &s.CustomMaterialCostEur, &s.NumPropertyOwners, &s.PipelineStatus, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetProductProvision returns the flat fixed-model provision configured
// for (organization, product), or nil when none exists.
func (r *Repository) GetProductProvision(ctx context.Context, orgID, productID int64) (*float64, error) {
	var amount float64
	err := r.pool.QueryRow(ctx, `SELECT amount FROM organization_product_provisions WHERE organization_id = $1 AND product_id = $2`, orgID, productID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &amount, nil
}

// InvoiceSnapshot is one organization's stored invoicing result for a
// period, written by the monthly snapshot job.
type InvoiceSnapshot struct {
	OrganizationID int64
	PeriodStart    time.Time
	LeadCount      int
	GrossValue     float64
	CreditedCount  int
	CreditedValue  float64
	GeneratedAt    time.Time
}

// SaveInvoiceSnapshots upserts the snapshot rows for a period. Re-running
// the job for the same period overwrites the previous run.
func (r *Repository) SaveInvoiceSnapshots(ctx context.Context, snapshots []InvoiceSnapshot) error {
	for _, snap := range snapshots {
		_, err := r.pool.Exec(ctx, `INSERT INTO invoice_snapshots (organization_id, period_start, lead_count, gross_value, credited_count, credited_value, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (organization_id, period_start) DO UPDATE SET lead_count = EXCLUDED.lead_count, gross_value = EXCLUDED.gross_value, credited_count = EXCLUDED.credited_count, credited_value = EXCLUDED.credited_value, generated_at = EXCLUDED.generated_at`,
			snap.OrganizationID, snap.PeriodStart, snap.LeadCount, snap.GrossValue, snap.CreditedCount, snap.CreditedValue, snap.GeneratedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountLeadsByOrganization returns billed lead counts per organization
// for a period, used by quota tracking.
func (r *Repository) CountLeadsByOrganization(ctx context.Context, period Period) (map[int64]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT lo.organization_id, COUNT(*) FROM lead_organizations lo JOIN leads l ON l.id = lo.lead_id WHERE l.date_sent >= $1 AND l.date_sent < $2 AND l.archived_at IS NULL GROUP BY lo.organization_id`, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var orgID int64
		var count int
		if err := rows.Scan(&orgID, &count); err != nil {
			return nil, err
		}
		counts[orgID] = count
	}
	return counts, rows.Err()
}
