package partners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/platform/db"
)

const uniqueViolation = "23505"

// Repository persists organizations, their price history and cost
// segments in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const orgColumns = `id, name, archived_at IS NOT NULL, price_per_solar_deal, price_per_battery_deal,
		price_per_site_visit, billing_model, company_markup_share_percent,
		base_cost_for_billing, eur_to_sek_rate, lf_finans_percent,
		default_customer_price_incl_tax, is_sales_consultant,
		sales_consultant_lead_type, monthly_quota, created_at, updated_at`

func scanOrganization(row pgx.Row) (Organization, error) {
	var org Organization
	var leadType *string
	err := row.Scan(&org.ID, &org.Name, &org.Archived, &org.PricePerSolarDeal,
		&org.PricePerBatteryDeal, &org.PricePerSiteVisit, &org.BillingModel,
		&org.CompanyMarkupSharePercent, &org.BaseCostForBilling,
		&org.EurToSekRate, &org.LfFinansPercent, &org.DefaultCustomerPriceInclTax,
		&org.IsSalesConsultant, &leadType, &org.MonthlyQuota,
		&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return Organization{}, err
	}
	if leadType != nil {
		org.SalesConsultantLeadType = billing.InterestType(*leadType)
	}
	return org, nil
}

func (r *Repository) Create(ctx context.Context, in OrganizationInput) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, price_per_solar_deal, price_per_battery_deal,
			price_per_site_visit, billing_model, company_markup_share_percent,
			base_cost_for_billing, eur_to_sek_rate, lf_finans_percent,
			default_customer_price_incl_tax, is_sales_consultant,
			sales_consultant_lead_type, monthly_quota, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13,now(),now())
		RETURNING `+orgColumns,
		in.Name, in.PricePerSolarDeal, in.PricePerBatteryDeal, in.PricePerSiteVisit,
		in.BillingModel, in.CompanyMarkupSharePercent, in.BaseCostForBilling,
		in.EurToSekRate, in.LfFinansPercent, in.DefaultCustomerPriceInclTax,
		in.IsSalesConsultant, string(in.SalesConsultantLeadType), in.MonthlyQuota)
	org, err := scanOrganization(row)
	if err != nil {
		return Organization{}, fmt.Errorf("partners: create organization: %w", translateError(err))
	}
	return org, nil
}

func (r *Repository) Update(ctx context.Context, id int64, in OrganizationInput) (Organization, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE organizations SET name=$2, price_per_solar_deal=$3,
			price_per_battery_deal=$4, price_per_site_visit=$5, billing_model=$6,
			company_markup_share_percent=$7, base_cost_for_billing=$8,
			eur_to_sek_rate=$9, lf_finans_percent=$10,
			default_customer_price_incl_tax=$11, is_sales_consultant=$12,
			sales_consultant_lead_type=NULLIF($13,''), monthly_quota=$14, updated_at=now()
		WHERE id = $1
		RETURNING `+orgColumns,
		id, in.Name, in.PricePerSolarDeal, in.PricePerBatteryDeal, in.PricePerSiteVisit,
		in.BillingModel, in.CompanyMarkupSharePercent, in.BaseCostForBilling,
		in.EurToSekRate, in.LfFinansPercent, in.DefaultCustomerPriceInclTax,
		in.IsSalesConsultant, string(in.SalesConsultantLeadType), in.MonthlyQuota)
	org, err := scanOrganization(row)
	if err != nil {
		return Organization{}, fmt.Errorf("partners: update organization %d: %w", id, translateError(err))
	}
	return org, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		return Organization{}, fmt.Errorf("partners: get organization %d: %w", id, translateError(err))
	}
	return org, nil
}

func (r *Repository) List(ctx context.Context, includeArchived bool) ([]Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("partners: list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("partners: scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Archive soft-deletes an organization. Price history and past invoice
// data stay intact.
func (r *Repository) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE organizations SET archived_at = now(), updated_at = now()
		WHERE id = $1 AND archived_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("partners: archive organization %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) History(ctx context.Context, orgID int64) ([]billing.PriceHistoryRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, price_per_solar_deal, price_per_battery_deal, effective_from, effective_until
		FROM price_history
		WHERE organization_id = $1
		ORDER BY effective_from`, orgID)
	if err != nil {
		return nil, fmt.Errorf("partners: load price history: %w", err)
	}
	defer rows.Close()

	var records []billing.PriceHistoryRecord
	for rows.Next() {
		var rec billing.PriceHistoryRecord
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.PricePerSolarDeal,
			&rec.PricePerBatteryDeal, &rec.EffectiveFrom, &rec.EffectiveUntil); err != nil {
			return nil, fmt.Errorf("partners: scan price record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReplaceHistory swaps an organization's full price history in a single
// transaction. The rows land in the same table the invoicing reads
// resolve historical prices from.
func (r *Repository) ReplaceHistory(ctx context.Context, orgID int64, records []billing.PriceHistoryRecord) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, orgID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM price_history WHERE organization_id = $1`, orgID); err != nil {
			return err
		}
		for _, rec := range records {
			if _, err := tx.Exec(ctx, `
				INSERT INTO price_history (organization_id, price_per_solar_deal, price_per_battery_deal, effective_from, effective_until)
				VALUES ($1, $2, $3, $4, $5)`,
				orgID, rec.PricePerSolarDeal, rec.PricePerBatteryDeal, rec.EffectiveFrom, rec.EffectiveUntil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("partners: replace price history: %w", err)
	}
	return nil
}

func (r *Repository) Segments(ctx context.Context, orgID int64) ([]billing.CostSegment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, amount, is_eur FROM cost_segments
		WHERE organization_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("partners: load cost segments: %w", err)
	}
	defer rows.Close()

	var segments []billing.CostSegment
	for rows.Next() {
		var seg billing.CostSegment
		if err := rows.Scan(&seg.Name, &seg.Amount, &seg.IsEur); err != nil {
			return nil, fmt.Errorf("partners: scan cost segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func (r *Repository) ReplaceSegments(ctx context.Context, orgID int64, segments []billing.CostSegment) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, orgID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cost_segments WHERE organization_id = $1`, orgID); err != nil {
			return err
		}
		for _, seg := range segments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO cost_segments (organization_id, name, amount, is_eur)
				VALUES ($1, $2, $3, $4)`,
				orgID, seg.Name, seg.Amount, seg.IsEur); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("partners: replace cost segments: %w", err)
	}
	return nil
}

// CountAssignedLeads counts lead assignments per organization inside a
// date range. Used for quota reporting.
func (r *Repository) CountAssignedLeads(ctx context.Context, from, until time.Time) (map[int64]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lo.organization_id, COUNT(*)
		FROM lead_organizations lo
		JOIN leads l ON l.id = lo.lead_id
		WHERE l.date_sent >= $1 AND l.date_sent < $2 AND l.archived_at IS NULL
		GROUP BY lo.organization_id`, from, until)
	if err != nil {
		return nil, fmt.Errorf("partners: count assigned leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var orgID int64
		var n int
		if err := rows.Scan(&orgID, &n); err != nil {
			return nil, fmt.Errorf("partners: scan lead count: %w", err)
		}
		counts[orgID] = n
	}
	return counts, rows.Err()
}
