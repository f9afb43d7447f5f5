package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/suppliers"
	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// ProductReader is the slice of the catalog the purchase workflows
// need.
type ProductReader interface {
	StockAndNameTx(ctx context.Context, tx pgx.Tx, productID int64) (name string, stock int, err error)
}

// SupplierReader resolves supplier names for snapshotting.
type SupplierReader interface {
	Get(ctx context.Context, id int64) (suppliers.Supplier, error)
}

// Service owns the purchase order workflows.
type Service struct {
	runner    db.TxRunner
	repo      Repository
	ledger    inventory.Ledger
	products  ProductReader
	suppliers SupplierReader
	audit     shared.Auditor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(runner db.TxRunner, repo Repository, ledger inventory.Ledger, products ProductReader, supplierReader SupplierReader, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{
		runner:    runner,
		repo:      repo,
		ledger:    ledger,
		products:  products,
		suppliers: supplierReader,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Create books a pending purchase order. No stock moves until the
// goods are received.
func (s *Service) Create(ctx context.Context, in CreateInput) (Purchase, error) {
	if err := validateCreate(in); err != nil {
		return Purchase{}, err
	}

	supplier, err := s.suppliers.Get(ctx, in.SupplierID)
	if err != nil {
		return Purchase{}, fmt.Errorf("%w: supplier %d", shared.ErrNotFound, in.SupplierID)
	}

	var subtotal float64
	for _, line := range in.Items {
		subtotal += float64(line.Quantity) * line.UnitCost
	}
	subtotal = round2(subtotal)
	total := round2(subtotal + in.Tax)

	now := s.now()
	var purchase Purchase
	err = s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		items := make([]PurchaseItem, 0, len(in.Items))
		for _, line := range in.Items {
			name, _, err := s.products.StockAndNameTx(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			items = append(items, PurchaseItem{
				ProductID:   line.ProductID,
				ProductName: name,
				Quantity:    line.Quantity,
				UnitCost:    line.UnitCost,
				LineTotal:   round2(float64(line.Quantity) * line.UnitCost),
				IMEINumbers: line.IMEINumbers,
			})
		}

		number, err := s.repo.NextNumberTx(ctx, tx, now)
		if err != nil {
			return err
		}

		purchase = Purchase{
			PurchaseNumber: number,
			SupplierID:     supplier.ID,
			SupplierName:   supplier.Name,
			Items:          items,
			Subtotal:       subtotal,
			Tax:            in.Tax,
			Total:          total,
			Status:         StatusPending,
			ExpectedAt:     in.ExpectedAt,
			Notes:          in.Notes,
			CreatedByID:    in.Actor.ID,
			CreatedByName:  in.Actor.Name,
		}
		return s.repo.CreateTx(ctx, tx, &purchase)
	})
	if err != nil {
		return Purchase{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "purchasing.create",
		Entity:   "purchase",
		EntityID: strconv.FormatInt(purchase.ID, 10),
		Meta:     map[string]any{"purchase_number": purchase.PurchaseNumber, "total": purchase.Total},
	})
	s.logger.Info("purchase created",
		slog.String("purchase_number", purchase.PurchaseNumber),
		slog.Float64("total", purchase.Total))
	return purchase, nil
}

// Receive books the goods into stock and flips the order to received.
// Only a pending order can be received, and a second receive fails
// because the status has already moved. When lines are supplied only
// those products are booked, at the delivered quantity, so a short
// delivery stays honest in the ledger. Phones with IMEIs get one
// ledger row per unit, bulk lines one aggregate row.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (Purchase, error) {
	if in.PurchaseID <= 0 {
		return Purchase{}, fmt.Errorf("%w: invalid purchase id", shared.ErrValidation)
	}

	received := make(map[int64]ReceiveLine, len(in.Lines))
	for _, line := range in.Lines {
		if line.ReceivedQuantity <= 0 {
			return Purchase{}, fmt.Errorf("%w: received quantity for product %d must be positive",
				shared.ErrValidation, line.ProductID)
		}
		if _, dup := received[line.ProductID]; dup {
			return Purchase{}, fmt.Errorf("%w: product %d appears on more than one received line",
				shared.ErrValidation, line.ProductID)
		}
		received[line.ProductID] = line
	}

	now := s.now()
	var purchase Purchase
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		purchase, err = s.repo.GetForUpdateTx(ctx, tx, in.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status != StatusPending {
			return fmt.Errorf("%w: purchase %s is %s, only pending orders can be received",
				shared.ErrConflict, purchase.PurchaseNumber, purchase.Status)
		}

		ordered := make(map[int64]struct{}, len(purchase.Items))
		for _, item := range purchase.Items {
			ordered[item.ProductID] = struct{}{}
		}
		for productID := range received {
			if _, ok := ordered[productID]; !ok {
				return fmt.Errorf("%w: product %d is not on this order", shared.ErrValidation, productID)
			}
		}

		for _, item := range purchase.Items {
			qty := item.Quantity
			imeis := item.IMEINumbers
			if len(received) > 0 {
				line, ok := received[item.ProductID]
				if !ok {
					// Not on the delivery, nothing arrives for it.
					continue
				}
				qty = line.ReceivedQuantity
				if len(line.IMEINumbers) > 0 {
					imeis = line.IMEINumbers
				} else if qty != item.Quantity {
					// Ordered serials only cover a full delivery.
					imeis = nil
				}
			}
			if len(imeis) > 0 && len(imeis) != qty {
				return fmt.Errorf("%w: %q received %d units but %d IMEIs were supplied",
					shared.ErrValidation, item.ProductName, qty, len(imeis))
			}

			if len(imeis) > 0 {
				for _, imei := range imeis {
					if _, err := s.ledger.Apply(ctx, tx, inventory.MovementInput{
						ProductID: item.ProductID,
						Direction: inventory.DirectionIn,
						Quantity:  1,
						Reason:    inventory.ReasonPurchaseReceived,
						Reference: purchase.PurchaseNumber,
						IMEI:      imei,
						Actor:     in.Actor,
					}); err != nil {
						return err
					}
				}
			} else {
				if _, err := s.ledger.Apply(ctx, tx, inventory.MovementInput{
					ProductID: item.ProductID,
					Direction: inventory.DirectionIn,
					Quantity:  qty,
					Reason:    inventory.ReasonPurchaseReceived,
					Reference: purchase.PurchaseNumber,
					Actor:     in.Actor,
				}); err != nil {
					return err
				}
			}
		}
		return s.repo.MarkReceivedTx(ctx, tx, purchase.ID, now)
	})
	if err != nil {
		return Purchase{}, err
	}

	purchase.Status = StatusReceived
	purchase.ReceivedAt = &now
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "purchasing.receive",
		Entity:   "purchase",
		EntityID: strconv.FormatInt(purchase.ID, 10),
		Meta:     map[string]any{"purchase_number": purchase.PurchaseNumber},
	})
	s.logger.Info("purchase received", slog.String("purchase_number", purchase.PurchaseNumber))
	return purchase, nil
}

// Cancel flips a pending order to cancelled. No stock moves.
func (s *Service) Cancel(ctx context.Context, id int64, actor shared.Actor) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, fmt.Errorf("%w: invalid purchase id", shared.ErrValidation)
	}
	purchase, err := s.repo.Get(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	if purchase.Status != StatusPending {
		return Purchase{}, fmt.Errorf("%w: purchase %s is %s, only pending orders can be cancelled",
			shared.ErrConflict, purchase.PurchaseNumber, purchase.Status)
	}
	if err := s.repo.MarkCancelled(ctx, id); err != nil {
		return Purchase{}, err
	}
	purchase.Status = StatusCancelled
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "purchasing.cancel",
		Entity:   "purchase",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"purchase_number": purchase.PurchaseNumber},
	})
	return purchase, nil
}

// Get fetches one purchase with its items.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, fmt.Errorf("%w: invalid purchase id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of purchases.
func (s *Service) List(ctx context.Context, filter Filter) ([]Purchase, int, error) {
	return s.repo.List(ctx, filter)
}

// Stats aggregates the purchase book.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func validateCreate(in CreateInput) error {
	if in.SupplierID <= 0 {
		return fmt.Errorf("%w: supplier is required", shared.ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: a purchase needs at least one item", shared.ErrValidation)
	}
	if in.Tax < 0 {
		return fmt.Errorf("%w: tax must not be negative", shared.ErrValidation)
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, line := range in.Items {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: item product id is required", shared.ErrValidation)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", shared.ErrValidation)
		}
		if line.UnitCost < 0 {
			return fmt.Errorf("%w: item unit cost must not be negative", shared.ErrValidation)
		}
		if len(line.IMEINumbers) > 0 {
			if len(line.IMEINumbers) != line.Quantity {
				return fmt.Errorf("%w: %d IMEIs supplied for a quantity of %d",
					shared.ErrValidation, len(line.IMEINumbers), line.Quantity)
			}
			unique := make(map[string]struct{}, len(line.IMEINumbers))
			for _, imei := range line.IMEINumbers {
				if _, dup := unique[imei]; dup {
					return fmt.Errorf("%w: duplicate IMEI %s", shared.ErrValidation, imei)
				}
				unique[imei] = struct{}{}
			}
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: product %d appears on more than one line", shared.ErrValidation, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
