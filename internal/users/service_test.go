package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type fakeRepo struct {
	users map[int64]User
}

func newFakeRepo(users ...User) *fakeRepo {
	r := &fakeRepo{users: make(map[int64]User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) List(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) SetRole(_ context.Context, id int64, role string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	r.users[id] = u
	return nil
}

func (r *fakeRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	r.users[id] = u
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeRepo) Stats(_ context.Context) (Stats, error) {
	stats := Stats{ByRole: make(map[string]int)}
	for _, u := range r.users {
		stats.Total++
		if u.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ByRole[u.Role]++
	}
	return stats, nil
}

func seed() *fakeRepo {
	now := time.Now()
	return newFakeRepo(
		User{ID: 1, Name: "Rahim", Email: "rahim@example.com", Role: rbac.RoleAdmin, IsActive: true, CreatedAt: now},
		User{ID: 2, Name: "Karim", Email: "karim@example.com", Role: rbac.RoleViewer, IsActive: true, CreatedAt: now},
	)
}

func admin() shared.Actor {
	return shared.Actor{ID: 1, Name: "Rahim", Role: rbac.RoleAdmin}
}

func TestAssignRolePromotesUser(t *testing.T) {
	repo := seed()
	svc := NewService(repo, &testutil.AuditRecorder{}, testutil.DiscardLogger())

	user, err := svc.AssignRole(context.Background(), 2, rbac.RoleCashier, admin())
	require.NoError(t, err)
	require.Equal(t, rbac.RoleCashier, user.Role)
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	svc := NewService(seed(), &testutil.AuditRecorder{}, testutil.DiscardLogger())

	_, err := svc.AssignRole(context.Background(), 2, "owner", admin())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignRoleRefusesSelfDemotion(t *testing.T) {
	repo := seed()
	svc := NewService(repo, &testutil.AuditRecorder{}, testutil.DiscardLogger())

	_, err := svc.AssignRole(context.Background(), 1, rbac.RoleViewer, admin())
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, rbac.RoleAdmin, repo.users[1].Role)
}

func TestSetActiveRefusesSelfDeactivation(t *testing.T) {
	repo := seed()
	svc := NewService(repo, &testutil.AuditRecorder{}, testutil.DiscardLogger())
	ctx := context.Background()

	_, err := svc.SetActive(ctx, 1, false, admin())
	require.ErrorIs(t, err, shared.ErrConflict)

	user, err := svc.SetActive(ctx, 2, false, admin())
	require.NoError(t, err)
	require.False(t, user.IsActive)
}

func TestDeleteRefusesSelf(t *testing.T) {
	repo := seed()
	svc := NewService(repo, &testutil.AuditRecorder{}, testutil.DiscardLogger())
	ctx := context.Background()

	err := svc.Delete(ctx, 1, admin())
	require.ErrorIs(t, err, shared.ErrConflict)

	require.NoError(t, svc.Delete(ctx, 2, admin()))
	require.NotContains(t, repo.users, int64(2))
}
