package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Service owns account administration.
type Service struct {
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// AssignRole changes an account's role. Admins cannot demote
// themselves, which keeps at least one admin reachable.
func (s *Service) AssignRole(ctx context.Context, id int64, role string, actor shared.Actor) (User, error) {
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
	}
	if id == actor.ID && role != rbac.RoleAdmin {
		return User{}, fmt.Errorf("%w: you cannot demote your own account", shared.ErrConflict)
	}
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return User{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "users.assign_role",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"role": role},
	})
	s.logger.Info("role assigned", slog.Int64("user_id", id), slog.String("role", role))
	return s.repo.Get(ctx, id)
}

// SetActive enables or disables an account. Disabling your own
// account is refused.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actor shared.Actor) (User, error) {
	if id == actor.ID && !active {
		return User{}, fmt.Errorf("%w: you cannot deactivate your own account", shared.ErrConflict)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return User{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "users.set_active",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"active": active},
	})
	return s.repo.Get(ctx, id)
}

// Delete removes an account. Self-deletion is refused.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	if id == actor.ID {
		return fmt.Errorf("%w: you cannot delete your own account", shared.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "users.delete",
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// Stats summarises the account list.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}
