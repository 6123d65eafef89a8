package partners

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlead/voltlead/internal/billing"
)

type mockRepository struct {
	orgs    map[int64]Organization
	history map[int64][]billing.PriceHistoryRecord
	counts  map[int64]int
	nextID  int64
	listErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orgs:    make(map[int64]Organization),
		history: make(map[int64][]billing.PriceHistoryRecord),
		counts:  make(map[int64]int),
		nextID:  1,
	}
}

func (m *mockRepository) Create(_ context.Context, in OrganizationInput) (Organization, error) {
	org := Organization{ID: m.nextID, Name: in.Name, BillingModel: in.BillingModel, MonthlyQuota: in.MonthlyQuota}
	m.orgs[org.ID] = org
	m.nextID++
	return org, nil
}

func (m *mockRepository) Update(_ context.Context, id int64, in OrganizationInput) (Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	org.Name = in.Name
	org.BillingModel = in.BillingModel
	m.orgs[id] = org
	return org, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (m *mockRepository) List(_ context.Context, includeArchived bool) ([]Organization, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var orgs []Organization
	for _, org := range m.orgs {
		if org.Archived && !includeArchived {
			continue
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func (m *mockRepository) Archive(_ context.Context, id int64) error {
	org, ok := m.orgs[id]
	if !ok || org.Archived {
		return ErrNotFound
	}
	org.Archived = true
	m.orgs[id] = org
	return nil
}

func (m *mockRepository) History(_ context.Context, orgID int64) ([]billing.PriceHistoryRecord, error) {
	return m.history[orgID], nil
}

func (m *mockRepository) ReplaceHistory(_ context.Context, orgID int64, records []billing.PriceHistoryRecord) error {
	if _, ok := m.orgs[orgID]; !ok {
		return ErrNotFound
	}
	m.history[orgID] = records
	return nil
}

func (m *mockRepository) Segments(_ context.Context, _ int64) ([]billing.CostSegment, error) {
	return nil, nil
}

func (m *mockRepository) ReplaceSegments(_ context.Context, orgID int64, _ []billing.CostSegment) error {
	if _, ok := m.orgs[orgID]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *mockRepository) CountAssignedLeads(_ context.Context, _, _ time.Time) (map[int64]int, error) {
	return m.counts, nil
}

type stubThresholds struct {
	th  billing.QuotaThresholds
	err error
}

func (s stubThresholds) QuotaThresholds(context.Context) (billing.QuotaThresholds, error) {
	return s.th, s.err
}

func newTestService(repo RepositoryPort, th ThresholdStore) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, th)
}

func TestCreateRejectsInvalidModel(t *testing.T) {
	svc := newTestService(newMockRepository(), stubThresholds{})

	_, err := svc.Create(context.Background(), OrganizationInput{Name: "X", BillingModel: "per_call"})
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestCreateRejectsConsultantWithoutLeadType(t *testing.T) {
	svc := newTestService(newMockRepository(), stubThresholds{})

	_, err := svc.Create(context.Background(), OrganizationInput{
		Name:              "Konsult AB",
		BillingModel:      billing.BillingFixed,
		IsSalesConsultant: true,
	})
	require.ErrorIs(t, err, ErrConsultantLeadType)
}

func TestListUsesSwedishCollation(t *testing.T) {
	repo := newMockRepository()
	for _, name := range []string{"Örebro Energi", "Aktiv Sol", "Åkersberga Solteknik"} {
		_, err := repo.Create(context.Background(), OrganizationInput{Name: name})
		require.NoError(t, err)
	}
	svc := newTestService(repo, stubThresholds{})

	orgs, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, orgs, 3)

	// Swedish alphabet puts Å and Ö after Z.
	assert.Equal(t, "Aktiv Sol", orgs[0].Name)
	assert.Equal(t, "Åkersberga Solteknik", orgs[1].Name)
	assert.Equal(t, "Örebro Energi", orgs[2].Name)
}

func TestReplaceHistoryValidation(t *testing.T) {
	repo := newMockRepository()
	org, err := repo.Create(context.Background(), OrganizationInput{Name: "Solkraft"})
	require.NoError(t, err)
	svc := newTestService(repo, stubThresholds{})

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	t.Run("overlap rejected", func(t *testing.T) {
		err := svc.ReplaceHistory(context.Background(), org.ID, []billing.PriceHistoryRecord{
			{PricePerSolarDeal: 400, EffectiveFrom: jan, EffectiveUntil: &jul},
			{PricePerSolarDeal: 450, EffectiveFrom: apr},
		})
		require.ErrorIs(t, err, ErrHistoryOverlap)
	})

	t.Run("open-ended must be last", func(t *testing.T) {
		err := svc.ReplaceHistory(context.Background(), org.ID, []billing.PriceHistoryRecord{
			{PricePerSolarDeal: 400, EffectiveFrom: jan},
			{PricePerSolarDeal: 450, EffectiveFrom: jul},
		})
		require.ErrorIs(t, err, ErrOpenEndedNotLast)
	})

	t.Run("unsorted rejected", func(t *testing.T) {
		err := svc.ReplaceHistory(context.Background(), org.ID, []billing.PriceHistoryRecord{
			{PricePerSolarDeal: 450, EffectiveFrom: jul, EffectiveUntil: nil},
			{PricePerSolarDeal: 400, EffectiveFrom: jan, EffectiveUntil: &jul},
		})
		require.ErrorIs(t, err, ErrHistoryUnsorted)
	})

	t.Run("adjacent intervals accepted", func(t *testing.T) {
		err := svc.ReplaceHistory(context.Background(), org.ID, []billing.PriceHistoryRecord{
			{PricePerSolarDeal: 400, EffectiveFrom: jan, EffectiveUntil: &jul},
			{PricePerSolarDeal: 450, EffectiveFrom: jul},
		})
		require.NoError(t, err)
		records, err := svc.History(context.Background(), org.ID)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

// Replaced history must resolve through the pricing engine as-is: the
// records carry both per-deal prices per interval, so a historical lead
// date picks up the price that was in force then.
func TestReplacedHistoryFeedsPriceResolution(t *testing.T) {
	repo := newMockRepository()
	org, err := repo.Create(context.Background(), OrganizationInput{Name: "Solkraft"})
	require.NoError(t, err)
	svc := newTestService(repo, stubThresholds{})

	jul := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	err = svc.ReplaceHistory(context.Background(), org.ID, []billing.PriceHistoryRecord{
		{PricePerSolarDeal: 400, PricePerBatteryDeal: 250, EffectiveFrom: jan, EffectiveUntil: &jul},
		{PricePerSolarDeal: 500, PricePerBatteryDeal: 300, EffectiveFrom: jul},
	})
	require.NoError(t, err)

	records, err := svc.History(context.Background(), org.ID)
	require.NoError(t, err)
	billed := billing.Organization{ID: org.ID, PriceHistory: records}

	march := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	august := time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 400.0, billing.ResolvePrice(billed, billing.InterestSolar, march))
	assert.Equal(t, 650.0, billing.ResolvePrice(billed, billing.InterestSolarBattery, march))
	assert.Equal(t, 500.0, billing.ResolvePrice(billed, billing.InterestSolar, august))
}

func TestArchiveHidesFromDefaultListing(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()
	kept, _ := repo.Create(ctx, OrganizationInput{Name: "Aktiv Sol"})
	gone, _ := repo.Create(ctx, OrganizationInput{Name: "Beta Tak"})
	svc := newTestService(repo, stubThresholds{})

	require.NoError(t, svc.Archive(ctx, gone.ID))

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// A second archive of the same organization finds nothing to flip.
	require.ErrorIs(t, svc.Archive(ctx, gone.ID), ErrNotFound)
}

func TestQuotaOverview(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()
	a, _ := repo.Create(ctx, OrganizationInput{Name: "Alfa Sol", MonthlyQuota: 30})
	b, _ := repo.Create(ctx, OrganizationInput{Name: "Beta Tak", MonthlyQuota: 30})
	c, _ := repo.Create(ctx, OrganizationInput{Name: "Gamma Energi", MonthlyQuota: 30})
	repo.counts = map[int64]int{a.ID: 25, b.ID: 12, c.ID: 3}

	svc := newTestService(repo, stubThresholds{th: billing.QuotaThresholds{Green: 20, Yellow: 10}})
	svc.WithNow(func() time.Time { return time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC) })

	reports, err := svc.QuotaOverview(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	// Red partners surface first.
	assert.Equal(t, "Gamma Energi", reports[0].OrganizationName)
	assert.Equal(t, billing.QuotaRed, reports[0].Status)
	assert.Equal(t, billing.QuotaYellow, reports[1].Status)
	assert.Equal(t, billing.QuotaGreen, reports[2].Status)
	assert.Equal(t, 25, reports[2].LeadCount)
}

func TestQuotaOverviewThresholdError(t *testing.T) {
	svc := newTestService(newMockRepository(), stubThresholds{err: errors.New("redis down")})

	_, err := svc.QuotaOverview(context.Background(), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}
