package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlead/voltlead/internal/billing"
)

type mockRepository struct {
	products   map[int64]Product
	provisions map[[2]int64]Provision
	nextID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products:   make(map[int64]Product),
		provisions: make(map[[2]int64]Provision),
		nextID:     1,
	}
}

func (m *mockRepository) Create(_ context.Context, in ProductInput) (Product, error) {
	p := Product{ID: m.nextID, Type: in.Type, Name: in.Name, BasePriceInclTax: in.BasePriceInclTax}
	m.products[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *mockRepository) Update(_ context.Context, id int64, in ProductInput) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Name = in.Name
	p.Type = in.Type
	m.products[id] = p
	return p, nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) List(_ context.Context, includeArchived bool) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) Archive(_ context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok || p.Archived {
		return ErrNotFound
	}
	p.Archived = true
	m.products[id] = p
	return nil
}

func (m *mockRepository) Provisions(_ context.Context, orgID int64) ([]Provision, error) {
	var out []Provision
	for key, p := range m.provisions {
		if key[0] == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) UpsertProvision(_ context.Context, orgID, productID int64, amount float64) (Provision, error) {
	p := Provision{OrganizationID: orgID, ProductID: productID, Amount: amount}
	m.provisions[[2]int64{orgID, productID}] = p
	return p, nil
}

func (m *mockRepository) DeleteProvision(_ context.Context, orgID, productID int64) error {
	key := [2]int64{orgID, productID}
	if _, ok := m.provisions[key]; !ok {
		return ErrNotFound
	}
	delete(m.provisions, key)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), ProductInput{Type: "heat_pump", Name: "Pump"})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateAndUpdateProduct(t *testing.T) {
	svc := newTestService(newMockRepository())
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Type: billing.InterestSolar, Name: "Takpaket 10kW", BasePriceInclTax: 78000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	updated, err := svc.Update(ctx, p.ID, ProductInput{Type: billing.InterestSolarBattery, Name: "Takpaket 10kW + batteri"})
	require.NoError(t, err)
	assert.Equal(t, billing.InterestSolarBattery, updated.Type)
}

func TestSetProvisionRequiresProduct(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SetProvision(ctx, 7, 99, 5000)
	require.ErrorIs(t, err, ErrNotFound)

	p, err := svc.Create(ctx, ProductInput{Type: billing.InterestSolar, Name: "Takpaket"})
	require.NoError(t, err)

	prov, err := svc.SetProvision(ctx, 7, p.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, prov.Amount)

	require.NoError(t, svc.DeleteProvision(ctx, 7, p.ID))
	require.ErrorIs(t, svc.DeleteProvision(ctx, 7, p.ID), ErrNotFound)
}
