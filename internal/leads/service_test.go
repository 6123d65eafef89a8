package leads

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlead/voltlead/internal/billing"
)

type mockRepository struct {
	leads       map[int64]*Lead
	credits     map[int64]*CreditRequest
	nextLeadID  int64
	nextCredit  int64
	assignCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		leads:      make(map[int64]*Lead),
		credits:    make(map[int64]*CreditRequest),
		nextLeadID: 1,
		nextCredit: 1,
	}
}

func (m *mockRepository) Create(ctx context.Context, input CreateLeadInput) (*Lead, error) {
	lead := &Lead{
		ID:           m.nextLeadID,
		Name:         input.Name,
		InterestType: input.InterestType,
		OpenerID:     input.OpenerID,
		DateSent:     input.DateSent,
		Status:       initialStatus(input),
	}
	for _, orgID := range input.OrganizationIDs {
		lead.Assignments = append(lead.Assignments, Assignment{LeadID: lead.ID, OrganizationID: orgID})
	}
	m.leads[lead.ID] = lead
	m.nextLeadID++
	return lead, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Lead, error) {
	lead, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return lead, nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	var out []Lead
	for _, lead := range m.leads {
		out = append(out, *lead)
	}
	return out, nil
}

func (m *mockRepository) Archive(ctx context.Context, id int64) error {
	lead, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	lead.Status = StatusArchived
	return nil
}

func (m *mockRepository) Assign(ctx context.Context, leadID, orgID int64) error {
	m.assignCalls++
	lead, ok := m.leads[leadID]
	if !ok {
		return ErrNotFound
	}
	for _, a := range lead.Assignments {
		if a.OrganizationID == orgID {
			return ErrDuplicate
		}
	}
	lead.Assignments = append(lead.Assignments, Assignment{LeadID: leadID, OrganizationID: orgID})
	return nil
}

func (m *mockRepository) Unassign(ctx context.Context, leadID, orgID int64) error {
	lead, ok := m.leads[leadID]
	if !ok {
		return ErrNotFound
	}
	for i, a := range lead.Assignments {
		if a.OrganizationID == orgID {
			lead.Assignments = append(lead.Assignments[:i], lead.Assignments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepository) CreateCreditRequest(ctx context.Context, leadID, orgID int64, reason string) (*CreditRequest, error) {
	cr := &CreditRequest{ID: m.nextCredit, LeadID: leadID, OrganizationID: orgID, Reason: reason, Status: billing.CreditPending}
	m.credits[cr.ID] = cr
	m.nextCredit++
	return cr, nil
}

func (m *mockRepository) GetCreditRequest(ctx context.Context, id int64) (*CreditRequest, error) {
	cr, ok := m.credits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cr, nil
}

func (m *mockRepository) ResolveCreditRequest(ctx context.Context, id int64, status billing.CreditStatus) error {
	cr, ok := m.credits[id]
	if !ok {
		return ErrNotFound
	}
	if cr.Status != billing.CreditPending {
		return ErrCreditResolved
	}
	cr.Status = status
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo)
}

func TestCreateValidatesInterestType(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), CreateLeadInput{Name: "Anna Berg", InterestType: "heat_pump"})
	assert.ErrorIs(t, err, ErrInvalidInterest)
}

func TestCreateDefaultsDateSent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	sent := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return sent }

	lead, err := svc.Create(context.Background(), CreateLeadInput{Name: "Anna Berg", InterestType: billing.InterestSolar, OpenerID: 1})
	require.NoError(t, err)
	assert.Equal(t, sent, lead.DateSent)
	assert.Equal(t, StatusNew, lead.Status)
}

func TestCreateWithAssignmentsStartsAssigned(t *testing.T) {
	svc := newTestService(newMockRepository())

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		Name: "Bo Lind", InterestType: billing.InterestSolarBattery, OpenerID: 1,
		DateSent:        time.Now(),
		OrganizationIDs: []int64{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, lead.Status)
	assert.Len(t, lead.Assignments, 2)
}

func TestAssignRejectsArchivedLead(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	lead, err := svc.Create(context.Background(), CreateLeadInput{Name: "Anna Berg", InterestType: billing.InterestSolar, OpenerID: 1, DateSent: time.Now()})
	require.NoError(t, err)
	require.NoError(t, svc.Archive(context.Background(), lead.ID))

	err = svc.Assign(context.Background(), lead.ID, 7)
	assert.ErrorIs(t, err, ErrArchived)
	assert.Zero(t, repo.assignCalls)
}

func TestRequestCreditRequiresAssignment(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	lead, err := svc.Create(context.Background(), CreateLeadInput{
		Name: "Anna Berg", InterestType: billing.InterestSolar, OpenerID: 1,
		DateSent: time.Now(), OrganizationIDs: []int64{1},
	})
	require.NoError(t, err)

	_, err = svc.RequestCredit(context.Background(), lead.ID, 99, "wrong number")
	assert.ErrorIs(t, err, ErrNotFound)

	credit, err := svc.RequestCredit(context.Background(), lead.ID, 1, "wrong number")
	require.NoError(t, err)
	assert.Equal(t, billing.CreditPending, credit.Status)
}

func TestResolveCreditTransitions(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	lead, err := svc.Create(context.Background(), CreateLeadInput{
		Name: "Anna Berg", InterestType: billing.InterestSolar, OpenerID: 1,
		DateSent: time.Now(), OrganizationIDs: []int64{1},
	})
	require.NoError(t, err)
	credit, err := svc.RequestCredit(context.Background(), lead.ID, 1, "never answered")
	require.NoError(t, err)

	require.NoError(t, svc.ResolveCredit(context.Background(), credit.ID, true))
	assert.Equal(t, billing.CreditApproved, repo.credits[credit.ID].Status)

	// Resolved requests stay resolved.
	err = svc.ResolveCredit(context.Background(), credit.ID, false)
	assert.ErrorIs(t, err, ErrCreditResolved)
}
