package categories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

type fakeRepo struct {
	categories map[int64]Category
	counts     map[int64]int
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{categories: make(map[int64]Category), counts: make(map[int64]int), nextID: 1}
}

func (r *fakeRepo) List(_ context.Context) ([]Category, error) {
	var out []Category
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) Create(_ context.Context, category Category) (Category, error) {
	for _, existing := range r.categories {
		if existing.Name == category.Name {
			return Category{}, shared.ErrDuplicate
		}
	}
	category.ID = r.nextID
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	r.categories[category.ID] = category
	r.nextID++
	return category, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, category Category) error {
	if _, ok := r.categories[id]; !ok {
		return shared.ErrNotFound
	}
	category.ID = id
	r.categories[id] = category
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r *fakeRepo) ProductCount(_ context.Context, id int64) (int, error) {
	return r.counts[id], nil
}

func TestCreateTrimsAndRejectsEmptyName(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Category{Name: "  Smartphones  "})
	require.NoError(t, err)
	require.Equal(t, "Smartphones", created.Name)

	_, err = svc.Create(ctx, Category{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Category{Name: "Accessories"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Category{Name: "Accessories"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteGuardsCategoryInUse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Category{Name: "Smartphones"})
	require.NoError(t, err)
	repo.counts[created.ID] = 3

	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	repo.counts[created.ID] = 0
	require.NoError(t, svc.Delete(ctx, created.ID))
}
