package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// AdjustInput describes a manual stock correction. The reason lands
// on the ledger row verbatim so damage, loss and recounts stay
// distinguishable later. Reference optionally ties the correction to
// an external document.
type AdjustInput struct {
	ProductID int64
	Direction Direction
	Quantity  int
	Reason    string
	Reference string
	Notes     string
	Actor     shared.Actor
}

// Service exposes the inventory operations other modules and the HTTP
// layer consume.
type Service struct {
	runner db.TxRunner
	ledger Ledger
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(runner db.TxRunner, ledger Ledger, repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{runner: runner, ledger: ledger, repo: repo, audit: audit, logger: logger}
}

// Adjust applies a manual stock correction through the ledger.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*Movement, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", shared.ErrValidation)
	}
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = RefAdjustment
	}

	var movement *Movement
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		var applyErr error
		movement, applyErr = s.ledger.Apply(ctx, tx, MovementInput{
			ProductID: in.ProductID,
			Direction: in.Direction,
			Quantity:  in.Quantity,
			Reason:    reason,
			Reference: reference,
			Notes:     in.Notes,
			Actor:     in.Actor,
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "inventory.adjust",
		Entity:   "product",
		EntityID: strconv.FormatInt(in.ProductID, 10),
		Meta: map[string]any{
			"direction": in.Direction,
			"quantity":  in.Quantity,
			"reason":    reason,
			"reference": reference,
			"notes":     in.Notes,
		},
	})
	s.logger.Info("stock adjusted",
		slog.Int64("product_id", in.ProductID),
		slog.String("direction", string(in.Direction)),
		slog.Int("quantity", in.Quantity))
	return movement, nil
}

// ListMovements returns a filtered page of the ledger.
func (s *Service) ListMovements(ctx context.Context, filter Filter) ([]Movement, int64, error) {
	return s.repo.ListMovements(ctx, filter)
}
