package purchasing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/suppliers"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type stubProduct struct {
	name  string
	stock int
}

type purchaseWorld struct {
	products  map[int64]*stubProduct
	suppliers map[int64]suppliers.Supplier
	purchases map[int64]Purchase
	movements []inventory.MovementInput
	nextID    int64
	nextDoc   int
}

func newPurchaseWorld() *purchaseWorld {
	return &purchaseWorld{
		products:  make(map[int64]*stubProduct),
		suppliers: make(map[int64]suppliers.Supplier),
		purchases: make(map[int64]Purchase),
		nextID:    1,
	}
}

type worldRepo struct{ w *purchaseWorld }

func (r worldRepo) NextNumberTx(_ context.Context, _ pgx.Tx, at time.Time) (string, error) {
	r.w.nextDoc++
	return fmt.Sprintf("%s-%s-%04d", NumberPrefix, at.Format("20060102"), r.w.nextDoc), nil
}

func (r worldRepo) CreateTx(_ context.Context, _ pgx.Tx, purchase *Purchase) error {
	purchase.ID = r.w.nextID
	purchase.CreatedAt = time.Now()
	purchase.UpdatedAt = purchase.CreatedAt
	for i := range purchase.Items {
		purchase.Items[i].ID = int64(i + 1)
		purchase.Items[i].PurchaseID = purchase.ID
	}
	r.w.purchases[purchase.ID] = *purchase
	r.w.nextID++
	return nil
}

func (r worldRepo) Get(_ context.Context, id int64) (Purchase, error) {
	p, ok := r.w.purchases[id]
	if !ok {
		return Purchase{}, shared.ErrNotFound
	}
	return p, nil
}

func (r worldRepo) GetForUpdateTx(ctx context.Context, _ pgx.Tx, id int64) (Purchase, error) {
	return r.Get(ctx, id)
}

func (r worldRepo) List(_ context.Context, _ Filter) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range r.w.purchases {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r worldRepo) MarkReceivedTx(_ context.Context, _ pgx.Tx, id int64, at time.Time) error {
	p, ok := r.w.purchases[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = StatusReceived
	p.ReceivedAt = &at
	r.w.purchases[id] = p
	return nil
}

func (r worldRepo) MarkCancelled(_ context.Context, id int64) error {
	p, ok := r.w.purchases[id]
	if !ok {
		return shared.ErrNotFound
	}
	if p.Status != StatusPending {
		return shared.ErrConflict
	}
	p.Status = StatusCancelled
	r.w.purchases[id] = p
	return nil
}

func (r worldRepo) Stats(_ context.Context) (Stats, error) {
	return Stats{}, nil
}

type worldLedger struct{ w *purchaseWorld }

func (l worldLedger) Apply(_ context.Context, _ pgx.Tx, in inventory.MovementInput) (*inventory.Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, ok := l.w.products[in.ProductID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if in.Direction == inventory.DirectionIn {
		p.stock += in.Quantity
	} else {
		p.stock -= in.Quantity
	}
	l.w.movements = append(l.w.movements, in)
	return &inventory.Movement{ProductID: in.ProductID, Quantity: in.Quantity}, nil
}

type worldProducts struct{ w *purchaseWorld }

func (p worldProducts) StockAndNameTx(_ context.Context, _ pgx.Tx, id int64) (string, int, error) {
	product, ok := p.w.products[id]
	if !ok {
		return "", 0, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return product.name, product.stock, nil
}

type worldSuppliers struct{ w *purchaseWorld }

func (s worldSuppliers) Get(_ context.Context, id int64) (suppliers.Supplier, error) {
	supplier, ok := s.w.suppliers[id]
	if !ok {
		return suppliers.Supplier{}, shared.ErrNotFound
	}
	return supplier, nil
}

func newTestService(w *purchaseWorld) *Service {
	svc := NewService(testutil.NoTxRunner{}, worldRepo{w}, worldLedger{w}, worldProducts{w},
		worldSuppliers{w}, &testutil.AuditRecorder{}, testutil.DiscardLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func actor() shared.Actor {
	return shared.Actor{ID: 2, Name: "Karim", Role: "manager"}
}

func seedWorld() *purchaseWorld {
	w := newPurchaseWorld()
	w.products[1] = &stubProduct{name: "iPhone 15", stock: 2}
	w.suppliers[10] = suppliers.Supplier{ID: 10, Name: "Dhaka Mobile House", Phone: "01712345678"}
	return w
}

func imeis(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("35123456789%04d", i))
	}
	return out
}

func TestCreatePendingOrder(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)

	purchase, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 5, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, purchase.Status)
	require.Equal(t, 250.0, purchase.Subtotal)
	require.Equal(t, 250.0, purchase.Total)
	require.Equal(t, "PO-20260815-0001", purchase.PurchaseNumber)
	require.Equal(t, "Dhaka Mobile House", purchase.SupplierName)

	// Ordering moves no stock.
	require.Equal(t, 2, w.products[1].stock)
	require.Empty(t, w.movements)
}

func TestCreateUnknownSupplier(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 99,
		Items:      []LineInput{{ProductID: 1, Quantity: 1, UnitCost: 50}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateUnknownProduct(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 99, Quantity: 1, UnitCost: 50}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateIMEICountMustMatchQuantity(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 5, UnitCost: 50, IMEINumbers: imeis(3)}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveWithIMEIsFansOutPerUnit(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 5, UnitCost: 50, IMEINumbers: imeis(5)}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	received, err := svc.Receive(ctx, ReceiveInput{PurchaseID: purchase.ID, Actor: actor()})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)

	require.Equal(t, 7, w.products[1].stock)
	require.Len(t, w.movements, 5)
	seen := make(map[string]struct{})
	for _, m := range w.movements {
		require.Equal(t, 1, m.Quantity)
		require.Equal(t, inventory.DirectionIn, m.Direction)
		require.Equal(t, inventory.ReasonPurchaseReceived, m.Reason)
		require.Equal(t, purchase.PurchaseNumber, m.Reference)
		require.NotEmpty(t, m.IMEI)
		seen[m.IMEI] = struct{}{}
	}
	require.Len(t, seen, 5)
}

func TestReceiveWithoutIMEIsBooksOneAggregateRow(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 12, UnitCost: 8}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: purchase.ID, Actor: actor()})
	require.NoError(t, err)

	require.Equal(t, 14, w.products[1].stock)
	require.Len(t, w.movements, 1)
	require.Equal(t, 12, w.movements[0].Quantity)
	require.Empty(t, w.movements[0].IMEI)
}

func TestReceiveTwiceFails(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 3, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: purchase.ID, Actor: actor()})
	require.NoError(t, err)
	require.Equal(t, 5, w.products[1].stock)

	_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: purchase.ID, Actor: actor()})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 5, w.products[1].stock)
	require.Len(t, w.movements, 1)
}

func TestReceiveIMEIOverrideAtReceipt(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 2, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 1, ReceivedQuantity: 2, IMEINumbers: imeis(2)}},
		Actor:      actor(),
	})
	require.NoError(t, err)
	require.Len(t, w.movements, 2)
	require.Equal(t, 1, w.movements[0].Quantity)
}

func TestReceiveShortDeliveryBooksReceivedQuantity(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 5, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 1, ReceivedQuantity: 2}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	require.Equal(t, 4, w.products[1].stock)
	require.Len(t, w.movements, 1)
	require.Equal(t, 2, w.movements[0].Quantity)
}

func TestReceiveSkipsUnlistedItemsWhenLinesSupplied(t *testing.T) {
	w := seedWorld()
	w.products[2] = &stubProduct{name: "USB-C Cable", stock: 0}
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items: []LineInput{
			{ProductID: 1, Quantity: 3, UnitCost: 50},
			{ProductID: 2, Quantity: 10, UnitCost: 2},
		},
		Actor: actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 2, ReceivedQuantity: 10}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	require.Equal(t, 2, w.products[1].stock)
	require.Equal(t, 10, w.products[2].stock)
	require.Len(t, w.movements, 1)
	require.Equal(t, int64(2), w.movements[0].ProductID)
}

func TestReceiveRejectsZeroReceivedQuantity(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 3, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 1}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, w.movements)
}

func TestReceiveIMEICountMustMatchReceivedQuantity(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 5, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 1, ReceivedQuantity: 2, IMEINumbers: imeis(3)}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, w.movements)
}

func TestReceiveRejectsUnknownReceiveLine(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 2, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveInput{
		PurchaseID: purchase.ID,
		Lines:      []ReceiveLine{{ProductID: 42, ReceivedQuantity: 2, IMEINumbers: imeis(2)}},
		Actor:      actor(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, w.movements)
	require.Equal(t, StatusPending, w.purchases[purchase.ID].Status)
}

func TestCancelPendingOnly(t *testing.T) {
	w := seedWorld()
	svc := newTestService(w)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateInput{
		SupplierID: 10,
		Items:      []LineInput{{ProductID: 1, Quantity: 3, UnitCost: 50}},
		Actor:      actor(),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, purchase.ID, actor())
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, 2, w.products[1].stock)
	require.Empty(t, w.movements)

	_, err = svc.Cancel(ctx, purchase.ID, actor())
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: purchase.ID, Actor: actor()})
	require.ErrorIs(t, err, shared.ErrConflict)
}
