package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

type memoryRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*User), nextID: 1}
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (r *memoryRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *memoryRepo) CreateUser(_ context.Context, name, email, passwordHash, role string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return nil, shared.ErrDuplicate
		}
	}
	u := &User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[u.ID] = u
	r.nextID++
	copy := *u
	return &copy, nil
}

func (r *memoryRepo) TouchLastLogin(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, NewTokenStore(client, time.Hour)), repo
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, rbac.RoleAdmin, first.Role)

	second, err := svc.Register(ctx, "Karim", "karim@example.com", "battery-staple")
	require.NoError(t, err)
	require.Equal(t, rbac.RoleViewer, second.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Imposter", "rahim@example.com", "other-password")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "Rahim", "rahim@example.com", "short")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAuthenticateIssuesResolvableToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)

	user, token, err := svc.Authenticate(ctx, "rahim@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
	require.NotEmpty(t, token)

	resolved, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.ID)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "rahim@example.com", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)
	repo.users[created.ID].IsActive = false

	_, _, err = svc.Authenticate(ctx, "rahim@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Rahim", "rahim@example.com", "correct-horse")
	require.NoError(t, err)

	_, token, err := svc.Authenticate(ctx, "rahim@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.ResolveToken(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
