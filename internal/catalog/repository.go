package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

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

const productColumns = `id, type, name, base_price_incl_tax, material_cost_eur,
		green_tech_deduction_percent, archived, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Type, &p.Name, &p.BasePriceInclTax, &p.MaterialCostEur,
		&p.GreenTechDeductionPercent, &p.Archived, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) Create(ctx context.Context, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (type, name, base_price_incl_tax, material_cost_eur,
			green_tech_deduction_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+productColumns,
		in.Type, in.Name, in.BasePriceInclTax, in.MaterialCostEur, in.GreenTechDeductionPercent)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", translateError(err))
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET type=$2, name=$3, base_price_incl_tax=$4,
			material_cost_eur=$5, green_tech_deduction_percent=$6, updated_at=now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, in.Type, in.Name, in.BasePriceInclTax, in.MaterialCostEur, in.GreenTechDeductionPercent)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update product %d: %w", id, translateError(err))
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product %d: %w", id, translateError(err))
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, includeArchived bool) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeArchived {
		query += ` WHERE NOT archived`
	}
	query += ` ORDER BY type, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET archived = TRUE, updated_at = now()
		WHERE id = $1 AND NOT archived`, id)
	if err != nil {
		return fmt.Errorf("catalog: archive product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Provisions lists the fixed payouts configured for one organization.
func (r *Repository) Provisions(ctx context.Context, orgID int64) ([]Provision, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT organization_id, product_id, amount, updated_at
		FROM organization_product_provisions
		WHERE organization_id = $1
		ORDER BY product_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list provisions: %w", err)
	}
	defer rows.Close()

	var provisions []Provision
	for rows.Next() {
		var p Provision
		if err := rows.Scan(&p.OrganizationID, &p.ProductID, &p.Amount, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan provision: %w", err)
		}
		provisions = append(provisions, p)
	}
	return provisions, rows.Err()
}

func (r *Repository) UpsertProvision(ctx context.Context, orgID, productID int64, amount float64) (Provision, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO organization_product_provisions (organization_id, product_id, amount, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (organization_id, product_id)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		RETURNING organization_id, product_id, amount, updated_at`,
		orgID, productID, amount)
	var p Provision
	if err := row.Scan(&p.OrganizationID, &p.ProductID, &p.Amount, &p.UpdatedAt); err != nil {
		return Provision{}, fmt.Errorf("catalog: upsert provision: %w", translateError(err))
	}
	return p, nil
}

func (r *Repository) DeleteProvision(ctx context.Context, orgID, productID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM organization_product_provisions
		WHERE organization_id = $1 AND product_id = $2`, orgID, productID)
	if err != nil {
		return fmt.Errorf("catalog: delete provision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
