package products

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Service owns the product catalog workflows. Stock never changes
// here directly, every change rides the inventory ledger.
type Service struct {
	runner db.TxRunner
	repo   Repository
	ledger inventory.Ledger
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(runner db.TxRunner, repo Repository, ledger inventory.Ledger, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{runner: runner, repo: repo, ledger: ledger, audit: audit, logger: logger}
}

// List returns a filtered page of the catalog.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetBySKU looks a product up by its exact SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Product{}, fmt.Errorf("%w: sku is required", shared.ErrValidation)
	}
	return s.repo.GetBySKU(ctx, sku)
}

// GetByIMEI looks a product up by its exact IMEI. The counter scans
// the serial off the box when a customer walks in with a phone.
func (s *Service) GetByIMEI(ctx context.Context, imei string) (Product, error) {
	imei = strings.TrimSpace(imei)
	if imei == "" {
		return Product{}, fmt.Errorf("%w: imei is required", shared.ErrValidation)
	}
	return s.repo.GetByIMEI(ctx, imei)
}

// GetByBarcode looks a product up by its exact barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, fmt.Errorf("%w: barcode is required", shared.ErrValidation)
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

// ToggleActive flips whether the product shows up on the counter.
// Deactivation is how a referenced product gets retired, since those
// can never be deleted.
func (s *Service) ToggleActive(ctx context.Context, id int64, active bool, actor shared.Actor) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Product{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "products.toggle_active",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"is_active": active},
	})
	return s.repo.Get(ctx, id)
}

// Brands lists the distinct brands in the catalog.
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return s.repo.Brands(ctx)
}

// Valuation reports what the inventory on hand is worth.
func (s *Service) Valuation(ctx context.Context) (Valuation, error) {
	return s.repo.Valuation(ctx)
}

// Create inserts a catalog entry. A non-zero opening stock is booked
// through the ledger so the movement history starts at day one.
func (s *Service) Create(ctx context.Context, product Product, actor shared.Actor) (Product, error) {
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	initialStock := product.CurrentStock
	product.CurrentStock = 0

	var created Product
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = s.repo.CreateTx(ctx, tx, product)
		if err != nil {
			return err
		}
		if initialStock > 0 {
			movement, err := s.ledger.Apply(ctx, tx, inventory.MovementInput{
				ProductID: created.ID,
				Direction: inventory.DirectionIn,
				Quantity:  initialStock,
				Reason:    inventory.ReasonInitialStock,
				Reference: inventory.RefInitial,
				Actor:     actor,
			})
			if err != nil {
				return err
			}
			created.CurrentStock = movement.Quantity
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "products.create",
		Entity:   "product",
		EntityID: strconv.FormatInt(created.ID, 10),
		Meta:     map[string]any{"sku": created.SKU, "initial_stock": initialStock},
	})
	s.logger.Info("product created", slog.Int64("product_id", created.ID), slog.String("sku", created.SKU))
	return created, nil
}

// Update edits a catalog entry. When the submitted stock differs from
// what is on hand the difference is booked as an adjustment.
func (s *Service) Update(ctx context.Context, id int64, product Product, actor shared.Actor) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	delta := product.CurrentStock - existing.CurrentStock

	err = s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdateTx(ctx, tx, id, product); err != nil {
			return err
		}
		if delta != 0 {
			direction := inventory.DirectionIn
			qty := delta
			if delta < 0 {
				direction = inventory.DirectionOut
				qty = -delta
			}
			_, err := s.ledger.Apply(ctx, tx, inventory.MovementInput{
				ProductID: id,
				Direction: direction,
				Quantity:  qty,
				Reason:    inventory.ReasonAdjustment,
				Reference: inventory.RefAdjustment,
				Notes:     "stock edited on product form",
				Actor:     actor,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "products.update",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"stock_delta": delta},
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a product unless a sale or purchase references it.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		referenced, err := s.repo.HasDocumentReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: product is referenced by sales or purchases, deactivate it instead",
				shared.ErrConflict)
		}
		return s.repo.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "products.delete",
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

func (s *Service) validate(product *Product) error {
	if product.Unit == "" {
		product.Unit = "piece"
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("%w: sku is required", shared.ErrValidation)
	}
	if product.CategoryID <= 0 {
		return fmt.Errorf("%w: category is required", shared.ErrValidation)
	}
	if product.PurchasePrice < 0 || product.SellingPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", shared.ErrValidation)
	}
	if product.CurrentStock < 0 {
		return fmt.Errorf("%w: stock must not be negative", shared.ErrValidation)
	}
	if product.MinStockLevel < 0 {
		return fmt.Errorf("%w: minimum stock level must not be negative", shared.ErrValidation)
	}
	return nil
}
