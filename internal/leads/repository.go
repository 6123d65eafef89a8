package leads

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

// Repository provides PostgreSQL backed persistence for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

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

// Create inserts a lead and its initial organization assignments in one
// transaction.
func (r *Repository) Create(ctx context.Context, input CreateLeadInput) (*Lead, error) {
	var lead Lead
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now()
		err := tx.QueryRow(ctx, `INSERT INTO leads (name, email, phone, address, interest_type, opener_id, date_sent, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING id, name, email, phone, address, interest_type, opener_id, date_sent, status, created_at, updated_at`,
			input.Name, input.Email, input.Phone, input.Address, input.InterestType, input.OpenerID, input.DateSent, initialStatus(input), now).
			Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Address, &lead.InterestType, &lead.OpenerID, &lead.DateSent, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt)
		if err != nil {
			return translateError(err)
		}
		for _, orgID := range input.OrganizationIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO lead_organizations (lead_id, organization_id, assigned_at) VALUES ($1, $2, $3)`, lead.ID, orgID, now); err != nil {
				return translateError(err)
			}
			lead.Assignments = append(lead.Assignments, Assignment{LeadID: lead.ID, OrganizationID: orgID, AssignedAt: now})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("leads: create: %w", err)
	}
	return &lead, nil
}

// Get loads one lead with assignments and credit requests.
func (r *Repository) Get(ctx context.Context, id int64) (*Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, phone, address, interest_type, opener_id, date_sent, status, created_at, updated_at FROM leads WHERE id = $1`, id).
		Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Address, &lead.InterestType, &lead.OpenerID, &lead.DateSent, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}

	assignRows, err := r.pool.Query(ctx, `SELECT lo.lead_id, lo.organization_id, o.name, lo.assigned_at FROM lead_organizations lo JOIN organizations o ON o.id = lo.organization_id WHERE lo.lead_id = $1 ORDER BY lo.assigned_at`, id)
	if err != nil {
		return nil, err
	}
	defer assignRows.Close()
	for assignRows.Next() {
		var a Assignment
		if err := assignRows.Scan(&a.LeadID, &a.OrganizationID, &a.OrganizationName, &a.AssignedAt); err != nil {
			return nil, err
		}
		lead.Assignments = append(lead.Assignments, a)
	}
	if err := assignRows.Err(); err != nil {
		return nil, err
	}

	creditRows, err := r.pool.Query(ctx, `SELECT id, lead_id, organization_id, reason, status, created_at, resolved_at FROM credit_requests WHERE lead_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer creditRows.Close()
	for creditRows.Next() {
		var cr CreditRequest
		if err := creditRows.Scan(&cr.ID, &cr.LeadID, &cr.OrganizationID, &cr.Reason, &cr.Status, &cr.CreatedAt, &cr.ResolvedAt); err != nil {
			return nil, err
		}
		lead.Credits = append(lead.Credits, cr)
	}
	if err := creditRows.Err(); err != nil {
		return nil, err
	}

	return &lead, nil
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	query := `SELECT DISTINCT l.id, l.name, l.email, l.phone, l.address, l.interest_type, l.opener_id, l.date_sent, l.status, l.created_at, l.updated_at FROM leads l`
	var args []any
	var where []string

	if filter.OrganizationID != 0 {
		query += ` JOIN lead_organizations lo ON lo.lead_id = l.id`
		args = append(args, filter.OrganizationID)
		where = append(where, fmt.Sprintf("lo.organization_id = $%d", len(args)))
	}
	if filter.Month != nil {
		start := time.Date(filter.Month.Year(), filter.Month.Month(), 1, 0, 0, 0, 0, filter.Month.Location())
		args = append(args, start)
		where = append(where, fmt.Sprintf("l.date_sent >= $%d", len(args)))
		args = append(args, start.AddDate(0, 1, 0))
		where = append(where, fmt.Sprintf("l.date_sent < $%d", len(args)))
	}
	if filter.InterestType != "" {
		args = append(args, filter.InterestType)
		where = append(where, fmt.Sprintf("l.interest_type = $%d", len(args)))
	}
	if !filter.IncludeArchived {
		where = append(where, "l.status <> 'archived'")
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY l.date_sent DESC, l.id DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Address, &lead.InterestType, &lead.OpenerID, &lead.DateSent, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// Archive soft-deletes a lead.
func (r *Repository) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET status = 'archived', archived_at = NOW(), updated_at = NOW() WHERE id = $1 AND status <> 'archived'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Assign links a lead to an organization.
func (r *Repository) Assign(ctx context.Context, leadID, orgID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO lead_organizations (lead_id, organization_id, assigned_at) VALUES ($1, $2, NOW())`, leadID, orgID)
	if err != nil {
		return translateError(err)
	}
	_, err = r.pool.Exec(ctx, `UPDATE leads SET status = 'assigned', updated_at = NOW() WHERE id = $1 AND status = 'new'`, leadID)
	return err
}

// Unassign removes a lead/organization link.
func (r *Repository) Unassign(ctx context.Context, leadID, orgID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lead_organizations WHERE lead_id = $1 AND organization_id = $2`, leadID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCreditRequest inserts a pending credit request.
func (r *Repository) CreateCreditRequest(ctx context.Context, leadID, orgID int64, reason string) (*CreditRequest, error) {
	var cr CreditRequest
	err := r.pool.QueryRow(ctx, `INSERT INTO credit_requests (lead_id, organization_id, reason, status, created_at) VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, lead_id, organization_id, reason, status, created_at, resolved_at`,
		leadID, orgID, reason, billing.CreditPending).
		Scan(&cr.ID, &cr.LeadID, &cr.OrganizationID, &cr.Reason, &cr.Status, &cr.CreatedAt, &cr.ResolvedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &cr, nil
}

// GetCreditRequest loads one credit request.
func (r *Repository) GetCreditRequest(ctx context.Context, id int64) (*CreditRequest, error) {
	var cr CreditRequest
	err := r.pool.QueryRow(ctx, `SELECT id, lead_id, organization_id, reason, status, created_at, resolved_at FROM credit_requests WHERE id = $1`, id).
		Scan(&cr.ID, &cr.LeadID, &cr.OrganizationID, &cr.Reason, &cr.Status, &cr.CreatedAt, &cr.ResolvedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &cr, nil
}

// ResolveCreditRequest moves a pending request to approved or denied.
func (r *Repository) ResolveCreditRequest(ctx context.Context, id int64, status billing.CreditStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE credit_requests SET status = $2, resolved_at = NOW() WHERE id = $1 AND status = 'pending'`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCreditResolved
	}
	return nil
}

func initialStatus(input CreateLeadInput) LeadStatus {
	if len(input.OrganizationIDs) > 0 {
		return StatusAssigned
	}
	return StatusNew
}
