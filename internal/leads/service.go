package leads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voltlead/voltlead/internal/billing"
)

// RepositoryPort defines data access methods for leads.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateLeadInput) (*Lead, error)
	Get(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]Lead, error)
	Archive(ctx context.Context, id int64) error
	Assign(ctx context.Context, leadID, orgID int64) error
	Unassign(ctx context.Context, leadID, orgID int64) error
	CreateCreditRequest(ctx context.Context, leadID, orgID int64, reason string) (*CreditRequest, error)
	GetCreditRequest(ctx context.Context, id int64) (*CreditRequest, error)
	ResolveCreditRequest(ctx context.Context, id int64, status billing.CreditStatus) error
}

// Service handles lead business logic.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo, now: time.Now}
}

// Create captures a new lead.
func (s *Service) Create(ctx context.Context, input CreateLeadInput) (*Lead, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("leads: name required")
	}
	if !ValidInterest(input.InterestType) {
		return nil, ErrInvalidInterest
	}
	if input.DateSent.IsZero() {
		input.DateSent = s.now()
	}
	return s.repo.Create(ctx, input)
}

// Get returns one lead with assignments and credits.
func (s *Service) Get(ctx context.Context, id int64) (*Lead, error) {
	return s.repo.Get(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	return s.repo.List(ctx, filter)
}

// Archive soft-deletes a lead.
func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.repo.Archive(ctx, id)
}

// Assign links a lead to an organization. Archived leads stay frozen.
func (s *Service) Assign(ctx context.Context, leadID, orgID int64) error {
	lead, err := s.repo.Get(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status == StatusArchived {
		return ErrArchived
	}
	return s.repo.Assign(ctx, leadID, orgID)
}

// Unassign removes a lead/organization link.
func (s *Service) Unassign(ctx context.Context, leadID, orgID int64) error {
	return s.repo.Unassign(ctx, leadID, orgID)
}

// RequestCredit opens a pending credit request for a billed lead. The
// lead must actually be assigned to the organization being credited.
func (s *Service) RequestCredit(ctx context.Context, leadID, orgID int64, reason string) (*CreditRequest, error) {
	lead, err := s.repo.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	assigned := false
	for _, a := range lead.Assignments {
		if a.OrganizationID == orgID {
			assigned = true
			break
		}
	}
	if !assigned {
		return nil, fmt.Errorf("leads: lead %d not assigned to organization %d: %w", leadID, orgID, ErrNotFound)
	}
	return s.repo.CreateCreditRequest(ctx, leadID, orgID, reason)
}

// ResolveCredit approves or denies a pending credit request.
func (s *Service) ResolveCredit(ctx context.Context, creditID int64, approve bool) error {
	status := billing.CreditDenied
	if approve {
		status = billing.CreditApproved
	}
	if _, err := s.repo.GetCreditRequest(ctx, creditID); err != nil {
		return err
	}
	if err := s.repo.ResolveCreditRequest(ctx, creditID, status); err != nil {
		return err
	}
	s.logger.Info("credit request resolved",
		slog.Int64("credit_id", creditID),
		slog.String("status", string(status)))
	return nil
}
