package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Ledger applies stock movements. Every stock mutation in the system,
// whatever the workflow, goes through Apply inside the caller's
// transaction, so the current_stock column and the movement ledger can
// never drift apart.
type Ledger interface {
	Apply(ctx context.Context, tx pgx.Tx, in MovementInput) (*Movement, error)
}

// PGLedger is the PostgreSQL Ledger.
type PGLedger struct{}

// NewLedger constructs a PGLedger.
func NewLedger() *PGLedger {
	return &PGLedger{}
}

// Apply locks the product row, checks the non-negativity invariant,
// updates current_stock and appends the ledger row, all on the
// caller's transaction.
func (l *PGLedger) Apply(ctx context.Context, tx pgx.Tx, in MovementInput) (*Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		productName  string
		productIMEI  string
		currentStock int
	)
	err := tx.QueryRow(ctx,
		`SELECT name, COALESCE(imei, ''), current_stock FROM products WHERE id = $1 FOR UPDATE`,
		in.ProductID).Scan(&productName, &productIMEI, &currentStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, in.ProductID)
		}
		return nil, fmt.Errorf("inventory: lock product: %w", err)
	}

	newStock, err := nextStock(currentStock, productName, in)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`,
		in.ProductID, newStock); err != nil {
		return nil, fmt.Errorf("inventory: update stock: %w", err)
	}

	movement := &Movement{
		ProductID:   in.ProductID,
		ProductName: productName,
		Direction:   in.Direction,
		Quantity:    in.Quantity,
		PrevStock:   currentStock,
		NewStock:    newStock,
		Reason:      in.Reason,
		Reference:   in.Reference,
		IMEI:        snapshotIMEI(in.IMEI, productIMEI),
		Notes:       in.Notes,
		ActorID:     in.Actor.ID,
		ActorName:   in.Actor.Name,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_movements
			(product_id, product_name, direction, quantity, previous_stock, new_stock, reason, reference, imei, notes, actor_id, actor_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, NOW())
		RETURNING id, created_at`,
		movement.ProductID, movement.ProductName, string(movement.Direction), movement.Quantity,
		movement.PrevStock, movement.NewStock, movement.Reason, movement.Reference, movement.IMEI,
		movement.Notes, movement.ActorID, movement.ActorName).
		Scan(&movement.ID, &movement.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inventory: insert movement: %w", err)
	}
	return movement, nil
}

// snapshotIMEI picks the serial recorded on a ledger row. Workflows
// that know which unit moved pass it explicitly; adjustments and
// catalog edits on a serialized product fall back to the product's
// own IMEI.
func snapshotIMEI(input, product string) string {
	if input != "" {
		return input
	}
	return product
}

// nextStock computes the stock level after applying the movement,
// enforcing the non-negativity invariant.
func nextStock(current int, productName string, in MovementInput) (int, error) {
	next := current
	switch in.Direction {
	case DirectionIn:
		next += in.Quantity
	case DirectionOut:
		next -= in.Quantity
	}
	if next < 0 {
		return 0, fmt.Errorf("%w: %q has %d on hand, tried to remove %d",
			ErrInsufficientStock, productName, current, in.Quantity)
	}
	return next, nil
}

var _ Ledger = (*PGLedger)(nil)
