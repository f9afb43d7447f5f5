package suppliers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

type fakeRepo struct {
	suppliers map[int64]Supplier
	open      map[int64]int
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: make(map[int64]Supplier), open: make(map[int64]int), nextID: 1}
}

func (r *fakeRepo) List(_ context.Context, _ string) ([]Supplier, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) Create(_ context.Context, supplier Supplier) (Supplier, error) {
	supplier.ID = r.nextID
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = supplier.CreatedAt
	r.suppliers[supplier.ID] = supplier
	r.nextID++
	return supplier, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, supplier Supplier) error {
	if _, ok := r.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	supplier.ID = id
	r.suppliers[id] = supplier
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func (r *fakeRepo) OpenPurchaseCount(_ context.Context, id int64) (int, error) {
	return r.open[id], nil
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Supplier{Phone: "01712345678"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Supplier{Name: "Dhaka Mobile House"})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, Supplier{Name: "Dhaka Mobile House", Phone: "01712345678"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestDeleteGuardsLivePurchases(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Supplier{Name: "Dhaka Mobile House", Phone: "01712345678"})
	require.NoError(t, err)
	repo.open[created.ID] = 2

	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	repo.open[created.ID] = 0
	require.NoError(t, svc.Delete(ctx, created.ID))
}
