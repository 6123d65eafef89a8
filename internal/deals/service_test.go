package deals

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlead/voltlead/internal/billing"
)

type mockRepository struct {
	deals  map[int64]Deal
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{deals: make(map[int64]Deal), nextID: 1}
}

func (m *mockRepository) Create(_ context.Context, in DealInput) (Deal, error) {
	d := Deal{
		ID:                m.nextID,
		LeadID:            in.LeadID,
		OrganizationID:    in.OrganizationID,
		ProductID:         in.ProductID,
		CustomProductName: in.CustomProductName,
		NumPropertyOwners: in.NumPropertyOwners,
		PipelineStatus:    in.PipelineStatus,
	}
	m.deals[d.ID] = d
	m.nextID++
	return d, nil
}

func (m *mockRepository) Update(_ context.Context, id int64, in DealInput) (Deal, error) {
	d, ok := m.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	d.PipelineStatus = in.PipelineStatus
	m.deals[id] = d
	return d, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Deal, error) {
	d, ok := m.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (m *mockRepository) ListByOrganization(_ context.Context, orgID int64, status PipelineStatus) ([]Deal, error) {
	var out []Deal
	for _, d := range m.deals {
		if d.OrganizationID != orgID {
			continue
		}
		if status != "" && d.PipelineStatus != status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.deals[id]; !ok {
		return ErrNotFound
	}
	delete(m.deals, id)
	return nil
}

type stubBreakdown struct {
	result billing.Breakdown
	calls  int
}

func (s *stubBreakdown) DealBreakdown(_ context.Context, _ int64) (billing.Breakdown, error) {
	s.calls++
	return s.result, nil
}

func newTestService(repo RepositoryPort, bp BreakdownProvider) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, bp)
}

func productID(id int64) *int64 { return &id }

func TestCreateDefaultsToOpen(t *testing.T) {
	svc := newTestService(newMockRepository(), &stubBreakdown{})

	deal, err := svc.Create(context.Background(), DealInput{
		LeadID: 1, OrganizationID: 2, ProductID: productID(3), NumPropertyOwners: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, deal.PipelineStatus)
}

func TestCreateRequiresSomeProduct(t *testing.T) {
	svc := newTestService(newMockRepository(), &stubBreakdown{})

	_, err := svc.Create(context.Background(), DealInput{LeadID: 1, OrganizationID: 2})
	require.ErrorIs(t, err, ErrNoProduct)

	_, err = svc.Create(context.Background(), DealInput{
		LeadID: 1, OrganizationID: 2, CustomProductName: "Specialtak", CustomProductPrice: 90000,
	})
	require.NoError(t, err)
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMockRepository(), &stubBreakdown{})

	_, err := svc.Create(context.Background(), DealInput{
		LeadID: 1, OrganizationID: 2, ProductID: productID(3), PipelineStatus: "stalled",
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBreakdownChecksExistence(t *testing.T) {
	repo := newMockRepository()
	bp := &stubBreakdown{result: billing.Breakdown{PartnerShare: 21600}}
	svc := newTestService(repo, bp)
	ctx := context.Background()

	_, err := svc.Breakdown(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, bp.calls)

	deal, err := svc.Create(ctx, DealInput{LeadID: 1, OrganizationID: 2, ProductID: productID(3)})
	require.NoError(t, err)

	breakdown, err := svc.Breakdown(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 21600.0, breakdown.PartnerShare)
	assert.Equal(t, 1, bp.calls)
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &stubBreakdown{})
	ctx := context.Background()

	_, err := svc.Create(ctx, DealInput{LeadID: 1, OrganizationID: 5, ProductID: productID(3), PipelineStatus: StatusWon})
	require.NoError(t, err)
	_, err = svc.Create(ctx, DealInput{LeadID: 2, OrganizationID: 5, ProductID: productID(3)})
	require.NoError(t, err)

	won, err := svc.ListByOrganization(ctx, 5, StatusWon)
	require.NoError(t, err)
	assert.Len(t, won, 1)

	_, err = svc.ListByOrganization(ctx, 5, "stalled")
	require.ErrorIs(t, err, ErrInvalidStatus)
}
