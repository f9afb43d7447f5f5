package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// NextDocNumber allocates the next document number for a prefix, one
// counter per prefix per day, formatted like SALE-20260815-0042. The
// counter row rides the caller's transaction, so concurrent documents
// serialize on it and numbers never repeat.
func NextDocNumber(ctx context.Context, tx pgx.Tx, prefix string, at time.Time) (string, error) {
	day := at.Format("2006-01-02")
	var counter int
	err := tx.QueryRow(ctx, `
		INSERT INTO doc_numbers (prefix, day, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, day) DO UPDATE SET counter = doc_numbers.counter + 1
		RETURNING counter`, prefix, day).Scan(&counter)
	if err != nil {
		return "", fmt.Errorf("shared: next doc number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("20060102"), counter), nil
}
