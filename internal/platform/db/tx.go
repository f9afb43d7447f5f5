package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executes a function within a transaction using the RepeatableRead
// isolation level. Every multi-write workflow (sales, receiving, stock
// mutation) goes through here so the non-negativity and ledger-replay
// invariants hold under concurrent requests.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// TxRunner abstracts transaction execution so services can be exercised
// in tests without a live database.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// PoolRunner runs transactions against a pgx pool.
type PoolRunner struct {
	Pool *pgxpool.Pool
}

// WithTx implements TxRunner.
func (r PoolRunner) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return WithTx(ctx, r.Pool, fn)
}
