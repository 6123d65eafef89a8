package deals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const dealColumns = `id, lead_id, organization_id, closer_id, product_id,
		custom_product_name, custom_product_price, custom_material_cost_eur,
		num_property_owners, pipeline_status, created_at, updated_at`

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	var customName *string
	err := row.Scan(&d.ID, &d.LeadID, &d.OrganizationID, &d.CloserID, &d.ProductID,
		&customName, &d.CustomProductPrice, &d.CustomMaterialCostEur,
		&d.NumPropertyOwners, &d.PipelineStatus, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Deal{}, err
	}
	if customName != nil {
		d.CustomProductName = *customName
	}
	return d, nil
}

func (r *Repository) Create(ctx context.Context, in DealInput) (Deal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sales (lead_id, organization_id, closer_id, product_id,
			custom_product_name, custom_product_price, custom_material_cost_eur,
			num_property_owners, pipeline_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, $9, now(), now())
		RETURNING `+dealColumns,
		in.LeadID, in.OrganizationID, in.CloserID, in.ProductID,
		in.CustomProductName, in.CustomProductPrice, in.CustomMaterialCostEur,
		in.NumPropertyOwners, string(in.PipelineStatus))
	d, err := scanDeal(row)
	if err != nil {
		return Deal{}, fmt.Errorf("deals: create: %w", translateError(err))
	}
	return d, nil
}

func (r *Repository) Update(ctx context.Context, id int64, in DealInput) (Deal, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sales SET product_id=$2, custom_product_name=NULLIF($3,''),
			custom_product_price=$4, custom_material_cost_eur=$5,
			num_property_owners=$6, pipeline_status=$7, closer_id=$8, updated_at=now()
		WHERE id = $1
		RETURNING `+dealColumns,
		id, in.ProductID, in.CustomProductName, in.CustomProductPrice,
		in.CustomMaterialCostEur, in.NumPropertyOwners, string(in.PipelineStatus), in.CloserID)
	d, err := scanDeal(row)
	if err != nil {
		return Deal{}, fmt.Errorf("deals: update %d: %w", id, translateError(err))
	}
	return d, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM sales WHERE id = $1`, id)
	d, err := scanDeal(row)
	if err != nil {
		return Deal{}, fmt.Errorf("deals: get %d: %w", id, translateError(err))
	}
	return d, nil
}

func (r *Repository) ListByOrganization(ctx context.Context, orgID int64, status PipelineStatus) ([]Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM sales WHERE organization_id = $1`
	args := []any{orgID}
	if status != "" {
		query += ` AND pipeline_status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("deals: list by organization: %w", err)
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("deals: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deals: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
