package customers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

type fakeRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{customers: make(map[int64]Customer), nextID: 1}
}

func (r *fakeRepo) List(_ context.Context, search string) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) FindByPhone(_ context.Context, phone string) (Customer, error) {
	for _, c := range r.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return Customer{}, shared.ErrNotFound
}

func (r *fakeRepo) Create(_ context.Context, customer Customer) (Customer, error) {
	for _, c := range r.customers {
		if c.Phone == customer.Phone {
			return Customer{}, shared.ErrDuplicate
		}
	}
	customer.ID = r.nextID
	r.nextID++
	r.customers[customer.ID] = customer
	return customer, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, customer Customer) error {
	if _, ok := r.customers[id]; !ok {
		return shared.ErrNotFound
	}
	customer.ID = id
	r.customers[id] = customer
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *fakeRepo) RecordPurchaseTx(_ context.Context, _ pgx.Tx, id int64, amount float64, at time.Time) error {
	c, ok := r.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.TotalPurchases += amount
	c.LastPurchaseAt = &at
	r.customers[id] = c
	return nil
}

func TestCreateRequiresNameAndPhone(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Customer{Name: "", Phone: "01712345678"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Customer{Name: "Rahim Uddin", Phone: ""})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Customer{Name: "Rahim Uddin", Phone: "01712345678"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Customer{Name: "Karim Mia", Phone: "01712345678"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestFindByPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Customer{Name: "Rahim Uddin", Phone: "01712345678"})
	require.NoError(t, err)

	found, err := svc.FindByPhone(context.Background(), "01712345678")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.FindByPhone(context.Background(), "01800000000")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPurchaseAccumulates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Customer{Name: "Rahim Uddin", Phone: "01712345678"})
	require.NoError(t, err)

	at := time.Date(2026, time.August, 15, 14, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordPurchaseTx(context.Background(), nil, created.ID, 315.00, at))
	require.NoError(t, repo.RecordPurchaseTx(context.Background(), nil, created.ID, 120.50, at.Add(time.Hour)))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.InDelta(t, 435.50, got.TotalPurchases, 0.001)
	require.NotNil(t, got.LastPurchaseAt)
}
