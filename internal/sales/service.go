package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// ProductReader is the slice of the catalog the sale workflow needs.
type ProductReader interface {
	StockAndNameTx(ctx context.Context, tx pgx.Tx, productID int64) (name string, stock int, err error)
}

// CustomerBook is the slice of the customer module the sale workflow
// needs to bump lifetime totals.
type CustomerBook interface {
	RecordPurchaseTx(ctx context.Context, tx pgx.Tx, id int64, amount float64, at time.Time) error
}

// Service owns the sale workflows.
type Service struct {
	runner    db.TxRunner
	repo      Repository
	ledger    inventory.Ledger
	products  ProductReader
	customers CustomerBook
	audit     shared.Auditor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(runner db.TxRunner, repo Repository, ledger inventory.Ledger, products ProductReader, customerBook CustomerBook, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{
		runner:    runner,
		repo:      repo,
		ledger:    ledger,
		products:  products,
		customers: customerBook,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Create runs the whole sale in one transaction: every line is
// validated against live stock first, then the ledger, the sale
// document, the payment record and the customer total are written.
// Nothing commits unless all of it succeeds.
func (s *Service) Create(ctx context.Context, in CreateInput) (Sale, error) {
	if err := s.validateCreate(in); err != nil {
		return Sale{}, err
	}

	subtotal, tax, total := computeTotals(in.Items, in.Discount, in.DeliveryCharges)
	if total < 0 {
		return Sale{}, fmt.Errorf("%w: discount exceeds the sale total", shared.ErrValidation)
	}

	status := StatusCompleted
	if in.PaymentMethod == PaymentCOD {
		status = StatusPending
	}

	now := s.now()
	var sale Sale
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		// Phase one: verify every line before touching anything.
		names := make(map[int64]string, len(in.Items))
		for _, line := range in.Items {
			name, stock, err := s.products.StockAndNameTx(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			if stock < line.Quantity {
				return fmt.Errorf("%w: %q has %d on hand, sale needs %d",
					inventory.ErrInsufficientStock, name, stock, line.Quantity)
			}
			names[line.ProductID] = name
		}

		number, err := s.repo.NextNumberTx(ctx, tx, now)
		if err != nil {
			return err
		}

		// Phase two: book the stock and write the document.
		items := make([]SaleItem, 0, len(in.Items))
		for _, line := range in.Items {
			if _, err := s.ledger.Apply(ctx, tx, inventory.MovementInput{
				ProductID: line.ProductID,
				Direction: inventory.DirectionOut,
				Quantity:  line.Quantity,
				Reason:    inventory.ReasonSale,
				Reference: number,
				IMEI:      line.IMEI,
				Actor:     in.Actor,
			}); err != nil {
				return err
			}
			items = append(items, SaleItem{
				ProductID:   line.ProductID,
				ProductName: names[line.ProductID],
				IMEI:        line.IMEI,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   round2(float64(line.Quantity) * line.UnitPrice),
			})
		}

		sale = Sale{
			SaleNumber:      number,
			CustomerID:      in.CustomerID,
			CustomerName:    in.CustomerName,
			CustomerPhone:   in.CustomerPhone,
			Items:           items,
			Subtotal:        subtotal,
			Tax:             tax,
			Discount:        in.Discount,
			DeliveryType:    in.DeliveryType,
			DeliveryAddress: in.DeliveryAddress,
			DeliveryCharges: in.DeliveryCharges,
			Total:           total,
			PaymentMethod:   in.PaymentMethod,
			TransactionID:   in.TransactionID,
			Status:          status,
			Notes:           in.Notes,
			SoldByID:        in.Actor.ID,
			SoldByName:      in.Actor.Name,
		}
		if err := s.repo.CreateTx(ctx, tx, &sale); err != nil {
			return err
		}

		if IsMobileBanking(in.PaymentMethod) && in.TransactionID != "" {
			if err := s.repo.InsertPaymentTx(ctx, tx, sale.ID, in.PaymentMethod, in.TransactionID, total); err != nil {
				return err
			}
		}

		if in.CustomerID != nil {
			if err := s.customers.RecordPurchaseTx(ctx, tx, *in.CustomerID, total, now); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return fmt.Errorf("%w: customer %d", shared.ErrNotFound, *in.CustomerID)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "sales.create",
		Entity:   "sale",
		EntityID: strconv.FormatInt(sale.ID, 10),
		Meta:     map[string]any{"sale_number": sale.SaleNumber, "total": sale.Total, "status": sale.Status},
	})
	s.logger.Info("sale created",
		slog.String("sale_number", sale.SaleNumber),
		slog.Float64("total", sale.Total),
		slog.String("status", sale.Status))
	return sale, nil
}

// Get fetches one sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: invalid sale id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// GetByNumber fetches a sale by its document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Sale, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return Sale{}, fmt.Errorf("%w: sale number is required", shared.ErrValidation)
	}
	return s.repo.GetByNumber(ctx, number)
}

// List returns a filtered page of sales.
func (s *Service) List(ctx context.Context, filter Filter) ([]Sale, int, error) {
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a sale through its state machine. Line items,
// totals and the ledger linkage stay frozen.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string, actor shared.Actor) (Sale, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if !canTransition(sale.Status, status) {
		return Sale{}, fmt.Errorf("%w: cannot move sale from %s to %s", shared.ErrConflict, sale.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return Sale{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   "sales.status",
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"from": sale.Status, "to": status},
	})
	sale.Status = status
	return sale, nil
}

// DailySummaries aggregates sales per day over the window.
func (s *Service) DailySummaries(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.repo.DailySummaries(ctx, from, to)
}

// PaymentStats aggregates sales per payment method over the window.
func (s *Service) PaymentStats(ctx context.Context, from, to time.Time) ([]PaymentStat, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.repo.PaymentStats(ctx, from, to)
}

func (s *Service) validateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: a sale needs at least one item", shared.ErrValidation)
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, line := range in.Items {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: item product id is required", shared.ErrValidation)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", shared.ErrValidation)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("%w: item unit price must not be negative", shared.ErrValidation)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: product %d appears on more than one line", shared.ErrValidation, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	if in.Discount < 0 || in.DeliveryCharges < 0 {
		return fmt.Errorf("%w: discount and delivery charges must not be negative", shared.ErrValidation)
	}
	if !ValidPaymentMethod(in.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, in.PaymentMethod)
	}
	return nil
}
