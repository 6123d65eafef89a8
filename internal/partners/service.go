package partners

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/voltlead/voltlead/internal/billing"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Create(ctx context.Context, in OrganizationInput) (Organization, error)
	Update(ctx context.Context, id int64, in OrganizationInput) (Organization, error)
	Get(ctx context.Context, id int64) (Organization, error)
	List(ctx context.Context, includeArchived bool) ([]Organization, error)
	Archive(ctx context.Context, id int64) error
	History(ctx context.Context, orgID int64) ([]billing.PriceHistoryRecord, error)
	ReplaceHistory(ctx context.Context, orgID int64, records []billing.PriceHistoryRecord) error
	Segments(ctx context.Context, orgID int64) ([]billing.CostSegment, error)
	ReplaceSegments(ctx context.Context, orgID int64, segments []billing.CostSegment) error
	CountAssignedLeads(ctx context.Context, from, until time.Time) (map[int64]int, error)
}

// ThresholdStore yields the quota classification thresholds, typically
// backed by the settings package.
type ThresholdStore interface {
	QuotaThresholds(ctx context.Context) (billing.QuotaThresholds, error)
}

type Service struct {
	logger     *slog.Logger
	repo       RepositoryPort
	thresholds ThresholdStore
	now        func() time.Time
}

func NewService(logger *slog.Logger, repo RepositoryPort, thresholds ThresholdStore) *Service {
	return &Service{logger: logger, repo: repo, thresholds: thresholds, now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func validateInput(in OrganizationInput) error {
	switch in.BillingModel {
	case billing.BillingFixed, billing.BillingAboveCost:
	default:
		return ErrInvalidModel
	}
	if in.IsSalesConsultant && in.SalesConsultantLeadType == "" {
		return ErrConsultantLeadType
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in OrganizationInput) (Organization, error) {
	if err := validateInput(in); err != nil {
		return Organization{}, err
	}
	org, err := s.repo.Create(ctx, in)
	if err != nil {
		return Organization{}, err
	}
	s.logger.Info("organization created", "org_id", org.ID, "name", org.Name)
	return org, nil
}

func (s *Service) Update(ctx context.Context, id int64, in OrganizationInput) (Organization, error) {
	if err := validateInput(in); err != nil {
		return Organization{}, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Get(ctx context.Context, id int64) (Organization, error) {
	return s.repo.Get(ctx, id)
}

// List returns organizations ordered by name under Swedish collation,
// so Åkersberga Solteknik sorts after Örebro Energi rather than before
// Aktiv Sol.
func (s *Service) List(ctx context.Context, includeArchived bool) ([]Organization, error) {
	orgs, err := s.repo.List(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	coll := collate.New(language.Swedish)
	sort.SliceStable(orgs, func(i, j int) bool {
		return coll.CompareString(orgs[i].Name, orgs[j].Name) < 0
	})
	return orgs, nil
}

func (s *Service) Archive(ctx context.Context, id int64) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.logger.Info("organization archived", "org_id", id)
	return nil
}

func (s *Service) History(ctx context.Context, orgID int64) ([]billing.PriceHistoryRecord, error) {
	if _, err := s.repo.Get(ctx, orgID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, orgID)
}

// ReplaceHistory validates interval consistency before persisting. The
// incoming slice must be ordered by effective_from; each record carries
// both per-deal prices for its interval.
func (s *Service) ReplaceHistory(ctx context.Context, orgID int64, records []billing.PriceHistoryRecord) error {
	if err := ValidateHistory(records); err != nil {
		return err
	}
	if err := s.repo.ReplaceHistory(ctx, orgID, records); err != nil {
		return err
	}
	s.logger.Info("price history replaced", "org_id", orgID, "records", len(records))
	return nil
}

func (s *Service) Segments(ctx context.Context, orgID int64) ([]billing.CostSegment, error) {
	if _, err := s.repo.Get(ctx, orgID); err != nil {
		return nil, err
	}
	return s.repo.Segments(ctx, orgID)
}

func (s *Service) ReplaceSegments(ctx context.Context, orgID int64, segments []billing.CostSegment) error {
	return s.repo.ReplaceSegments(ctx, orgID, segments)
}

// QuotaOverview classifies every active partner's lead volume for the
// given month against the configured thresholds.
func (s *Service) QuotaOverview(ctx context.Context, month time.Time) ([]QuotaReport, error) {
	if month.IsZero() {
		month = s.now()
	}
	period := billing.MonthPeriod(month)

	thresholds, err := s.thresholds.QuotaThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("partners: load quota thresholds: %w", err)
	}
	orgs, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountAssignedLeads(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	reports := make([]QuotaReport, 0, len(orgs))
	for _, org := range orgs {
		n := counts[org.ID]
		reports = append(reports, QuotaReport{
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			MonthlyQuota:     org.MonthlyQuota,
			LeadCount:        n,
			Status:           billing.ClassifyQuota(n, thresholds),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Status != reports[j].Status {
			return quotaRank(reports[i].Status) < quotaRank(reports[j].Status)
		}
		return reports[i].OrganizationName < reports[j].OrganizationName
	})
	return reports, nil
}

// Red partners surface first so account managers see who is starving.
func quotaRank(s billing.QuotaStatus) int {
	switch s {
	case billing.QuotaRed:
		return 0
	case billing.QuotaYellow:
		return 1
	default:
		return 2
	}
}
