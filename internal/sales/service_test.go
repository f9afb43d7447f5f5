package sales

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type stubProduct struct {
	name  string
	stock int
}

type saleWorld struct {
	products  map[int64]*stubProduct
	sales     map[int64]Sale
	payments  []string
	purchases map[int64]float64
	movements []inventory.MovementInput
	nextSale  int64
	nextDoc   int
}

func newSaleWorld() *saleWorld {
	return &saleWorld{
		products:  make(map[int64]*stubProduct),
		sales:     make(map[int64]Sale),
		purchases: make(map[int64]float64),
		nextSale:  1,
	}
}

type worldRepo struct{ w *saleWorld }

func (r worldRepo) NextNumberTx(_ context.Context, _ pgx.Tx, at time.Time) (string, error) {
	r.w.nextDoc++
	return fmt.Sprintf("%s-%s-%04d", NumberPrefix, at.Format("20060102"), r.w.nextDoc), nil
}

func (r worldRepo) CreateTx(_ context.Context, _ pgx.Tx, sale *Sale) error {
	sale.ID = r.w.nextSale
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	for i := range sale.Items {
		sale.Items[i].ID = int64(i + 1)
		sale.Items[i].SaleID = sale.ID
	}
	r.w.sales[sale.ID] = *sale
	r.w.nextSale++
	return nil
}

func (r worldRepo) InsertPaymentTx(_ context.Context, _ pgx.Tx, saleID int64, method, transactionID string, _ float64) error {
	r.w.payments = append(r.w.payments, fmt.Sprintf("%d:%s:%s", saleID, method, transactionID))
	return nil
}

func (r worldRepo) Get(_ context.Context, id int64) (Sale, error) {
	sale, ok := r.w.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (r worldRepo) GetByNumber(_ context.Context, number string) (Sale, error) {
	for _, sale := range r.w.sales {
		if sale.SaleNumber == number {
			return sale, nil
		}
	}
	return Sale{}, shared.ErrNotFound
}

func (r worldRepo) List(_ context.Context, _ Filter) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range r.w.sales {
		out = append(out, sale)
	}
	return out, len(out), nil
}

func (r worldRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	sale, ok := r.w.sales[id]
	if !ok {
		return shared.ErrNotFound
	}
	sale.Status = status
	r.w.sales[id] = sale
	return nil
}

func (r worldRepo) DailySummaries(_ context.Context, _, _ time.Time) ([]DailySummary, error) {
	return nil, nil
}

func (r worldRepo) PaymentStats(_ context.Context, _, _ time.Time) ([]PaymentStat, error) {
	return nil, nil
}

type worldLedger struct{ w *saleWorld }

func (l worldLedger) Apply(_ context.Context, _ pgx.Tx, in inventory.MovementInput) (*inventory.Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, ok := l.w.products[in.ProductID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	next := p.stock
	if in.Direction == inventory.DirectionIn {
		next += in.Quantity
	} else {
		next -= in.Quantity
	}
	if next < 0 {
		return nil, inventory.ErrInsufficientStock
	}
	p.stock = next
	l.w.movements = append(l.w.movements, in)
	return &inventory.Movement{ProductID: in.ProductID, Quantity: in.Quantity}, nil
}

type worldProducts struct{ w *saleWorld }

func (p worldProducts) StockAndNameTx(_ context.Context, _ pgx.Tx, id int64) (string, int, error) {
	product, ok := p.w.products[id]
	if !ok {
		return "", 0, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return product.name, product.stock, nil
}

type worldCustomers struct{ w *saleWorld }

func (c worldCustomers) RecordPurchaseTx(_ context.Context, _ pgx.Tx, id int64, amount float64, _ time.Time) error {
	c.w.purchases[id] += amount
	return nil
}

func newTestService(w *saleWorld) *Service {
	svc := NewService(testutil.NoTxRunner{}, worldRepo{w}, worldLedger{w}, worldProducts{w},
		worldCustomers{w}, &testutil.AuditRecorder{}, testutil.DiscardLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func actor() shared.Actor {
	return shared.Actor{ID: 1, Name: "Rahim", Role: "cashier"}
}

func TestCreateComputesTotalsAndBooksStock(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	sale, err := svc.Create(context.Background(), CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 3, UnitPrice: 100}},
		PaymentMethod: PaymentCash,
		Actor:         actor(),
	})
	require.NoError(t, err)

	require.Equal(t, 300.0, sale.Subtotal)
	require.Equal(t, 15.0, sale.Tax)
	require.Equal(t, 315.0, sale.Total)
	require.Equal(t, StatusCompleted, sale.Status)
	require.Equal(t, "SALE-20260815-0001", sale.SaleNumber)

	require.Equal(t, 7, w.products[1].stock)
	require.Len(t, w.movements, 1)
	require.Equal(t, inventory.DirectionOut, w.movements[0].Direction)
	require.Equal(t, inventory.ReasonSale, w.movements[0].Reason)
	require.Equal(t, sale.SaleNumber, w.movements[0].Reference)
}

func TestCreateInsufficientStockLeavesNothingBehind(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 7}
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 15, UnitPrice: 100}},
		PaymentMethod: PaymentCash,
		Actor:         actor(),
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	require.Equal(t, 7, w.products[1].stock)
	require.Empty(t, w.movements)
	require.Empty(t, w.sales)
}

func TestCreateValidatesEveryLineBeforeAnyMovement(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	w.products[2] = &stubProduct{name: "AirPods", stock: 1}
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		Items: []LineInput{
			{ProductID: 1, Quantity: 2, UnitPrice: 100},
			{ProductID: 2, Quantity: 5, UnitPrice: 50},
		},
		PaymentMethod: PaymentCash,
		Actor:         actor(),
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// The first line passed its check but must not have moved stock.
	require.Equal(t, 10, w.products[1].stock)
	require.Empty(t, w.movements)
}

func TestCreateCODStaysPending(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	sale, err := svc.Create(context.Background(), CreateInput{
		Items:           []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
		PaymentMethod:   PaymentCOD,
		DeliveryCharges: 60,
		Actor:           actor(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, sale.Status)
	require.Equal(t, 165.0, sale.Total)
}

func TestCreateCarriesDeliveryMetadata(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	sale, err := svc.Create(context.Background(), CreateInput{
		Items:           []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
		PaymentMethod:   PaymentCOD,
		DeliveryType:    "courier",
		DeliveryAddress: "House 12, Road 5, Dhanmondi, Dhaka",
		DeliveryCharges: 80,
		Actor:           actor(),
	})
	require.NoError(t, err)
	require.Equal(t, "courier", sale.DeliveryType)
	require.Equal(t, "House 12, Road 5, Dhanmondi, Dhaka", sale.DeliveryAddress)
	require.Equal(t, 185.0, sale.Total)
}

func TestCreateMobileBankingRecordsPayment(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	sale, err := svc.Create(context.Background(), CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 1000}},
		PaymentMethod: PaymentBkash,
		TransactionID: "TRX12345",
		Actor:         actor(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, sale.Status)
	require.Len(t, w.payments, 1)
	require.Contains(t, w.payments[0], "bkash:TRX12345")
}

func TestCreateMobileBankingWithoutTransactionIDSkipsPaymentRecord(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	sale, err := svc.Create(context.Background(), CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 1000}},
		PaymentMethod: PaymentNagad,
		Actor:         actor(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, sale.Status)
	require.Equal(t, 9, w.products[1].stock)
	require.Empty(t, w.payments)
}

func TestCreateBumpsCustomerTotals(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	customerID := int64(42)
	sale, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    &customerID,
		Items:         []LineInput{{ProductID: 1, Quantity: 2, UnitPrice: 500}},
		PaymentMethod: PaymentCard,
		Actor:         actor(),
	})
	require.NoError(t, err)
	require.Equal(t, sale.Total, w.purchases[customerID])
}

func TestCreateRejectsDuplicateLines(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		Items: []LineInput{
			{ProductID: 1, Quantity: 1, UnitPrice: 100},
			{ProductID: 1, Quantity: 2, UnitPrice: 100},
		},
		PaymentMethod: PaymentCash,
		Actor:         actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDiscountAboveTotal(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
		Discount:      200,
		PaymentMethod: PaymentCash,
		Actor:         actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateStatusTransitions(t *testing.T) {
	w := newSaleWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 10}
	svc := newTestService(w)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateInput{
		Items:         []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
		PaymentMethod: PaymentCOD,
		Actor:         actor(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, sale.Status)

	updated, err := svc.UpdateStatus(ctx, sale.ID, StatusCompleted, actor())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, updated.Status)

	_, err = svc.UpdateStatus(ctx, sale.ID, StatusPending, actor())
	require.ErrorIs(t, err, shared.ErrConflict)

	refunded, err := svc.UpdateStatus(ctx, sale.ID, StatusRefunded, actor())
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, refunded.Status)

	_, err = svc.UpdateStatus(ctx, sale.ID, StatusCompleted, actor())
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestStatusRequestOnlyAdvertisesReachableTargets(t *testing.T) {
	field, ok := reflect.TypeOf(statusRequest{}).FieldByName("Status")
	require.True(t, ok)

	tag := field.Tag.Get("validate")
	_, values, found := strings.Cut(tag, "oneof=")
	require.True(t, found)

	sources := []string{StatusPending, StatusCompleted, StatusRefunded, StatusCancelled}
	for _, target := range strings.Fields(values) {
		reachable := false
		for _, from := range sources {
			if canTransition(from, target) {
				reachable = true
				break
			}
		}
		require.True(t, reachable, "status %q is accepted but no transition leads to it", target)
	}
}

func TestComputeTotalsRounding(t *testing.T) {
	subtotal, tax, total := computeTotals([]LineInput{
		{Quantity: 3, UnitPrice: 33.33},
	}, 0, 0)
	require.Equal(t, 99.99, subtotal)
	require.Equal(t, 5.0, tax)
	require.Equal(t, 104.99, total)
}
