package catalog

import (
	"context"
	"log/slog"

	"github.com/voltlead/voltlead/internal/billing"
)

type RepositoryPort interface {
	Create(ctx context.Context, in ProductInput) (Product, error)
	Update(ctx context.Context, id int64, in ProductInput) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, includeArchived bool) ([]Product, error)
	Archive(ctx context.Context, id int64) error
	Provisions(ctx context.Context, orgID int64) ([]Provision, error)
	UpsertProvision(ctx context.Context, orgID, productID int64, amount float64) (Provision, error)
	DeleteProvision(ctx context.Context, orgID, productID int64) error
}

type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

func validType(t billing.InterestType) bool {
	switch t {
	case billing.InterestSolar, billing.InterestBattery, billing.InterestSolarBattery:
		return true
	}
	return false
}

func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	if !validType(in.Type) {
		return Product{}, ErrInvalidType
	}
	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return Product{}, err
	}
	s.logger.Info("product created", "product_id", p.ID, "name", p.Name, "type", p.Type)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if !validType(in.Type) {
		return Product{}, ErrInvalidType
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, includeArchived bool) ([]Product, error) {
	return s.repo.List(ctx, includeArchived)
}

func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.repo.Archive(ctx, id)
}

func (s *Service) Provisions(ctx context.Context, orgID int64) ([]Provision, error) {
	return s.repo.Provisions(ctx, orgID)
}

// SetProvision verifies the product exists before writing the override.
func (s *Service) SetProvision(ctx context.Context, orgID, productID int64, amount float64) (Provision, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return Provision{}, err
	}
	p, err := s.repo.UpsertProvision(ctx, orgID, productID, amount)
	if err != nil {
		return Provision{}, err
	}
	s.logger.Info("provision set", "org_id", orgID, "product_id", productID, "amount", amount)
	return p, nil
}

func (s *Service) DeleteProvision(ctx context.Context, orgID, productID int64) error {
	return s.repo.DeleteProvision(ctx, orgID, productID)
}
