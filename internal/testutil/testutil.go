// Package testutil holds small fakes shared by service tests.
package testutil

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// NoTxRunner satisfies db.TxRunner without a database. The nil tx is
// fine because tests pair it with fakes that ignore the tx argument.
type NoTxRunner struct{}

// WithTx runs fn with a nil transaction.
func (NoTxRunner) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// AuditRecorder collects audit entries instead of writing them.
type AuditRecorder struct {
	Logs []shared.AuditLog
}

// Record appends the entry.
func (r *AuditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	r.Logs = append(r.Logs, log)
	return nil
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
