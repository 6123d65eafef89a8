package deals

import (
	"context"
	"log/slog"

	"github.com/voltlead/voltlead/internal/billing"
)

type RepositoryPort interface {
	Create(ctx context.Context, in DealInput) (Deal, error)
	Update(ctx context.Context, id int64, in DealInput) (Deal, error)
	Get(ctx context.Context, id int64) (Deal, error)
	ListByOrganization(ctx context.Context, orgID int64, status PipelineStatus) ([]Deal, error)
	Delete(ctx context.Context, id int64) error
}

// BreakdownProvider computes the commission split for a stored sale.
// Satisfied by the billing service.
type BreakdownProvider interface {
	DealBreakdown(ctx context.Context, saleID int64) (billing.Breakdown, error)
}

type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	breakdown BreakdownProvider
}

func NewService(logger *slog.Logger, repo RepositoryPort, breakdown BreakdownProvider) *Service {
	return &Service{logger: logger, repo: repo, breakdown: breakdown}
}

func validateInput(in DealInput) error {
	if !ValidStatus(in.PipelineStatus) {
		return ErrInvalidStatus
	}
	if in.ProductID == nil && in.CustomProductName == "" {
		return ErrNoProduct
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in DealInput) (Deal, error) {
	if in.PipelineStatus == "" {
		in.PipelineStatus = StatusOpen
	}
	if err := validateInput(in); err != nil {
		return Deal{}, err
	}
	deal, err := s.repo.Create(ctx, in)
	if err != nil {
		return Deal{}, err
	}
	s.logger.Info("deal created", "deal_id", deal.ID, "lead_id", deal.LeadID, "org_id", deal.OrganizationID)
	return deal, nil
}

func (s *Service) Update(ctx context.Context, id int64, in DealInput) (Deal, error) {
	if err := validateInput(in); err != nil {
		return Deal{}, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Get(ctx context.Context, id int64) (Deal, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByOrganization(ctx context.Context, orgID int64, status PipelineStatus) ([]Deal, error) {
	if status != "" && !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListByOrganization(ctx, orgID, status)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Breakdown exposes the commission split for one deal. Existence is
// checked here so callers get a deals sentinel rather than a billing one.
func (s *Service) Breakdown(ctx context.Context, id int64) (billing.Breakdown, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return billing.Breakdown{}, err
	}
	return s.breakdown.DealBreakdown(ctx, id)
}
