package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dokan-pos/dokan-pos/internal/masterdata/products"
)

const lowStockScanLimit = 200

// Catalog is the slice of the product store the stock scan needs.
type Catalog interface {
	List(ctx context.Context, filters products.ListFilters) ([]products.Product, int, error)
}

// NewLowStockScanHandler returns the handler for TaskLowStockScan. The scan
// logs every product at or below its minimum so operators see restock
// candidates in the worker output.
func NewLowStockScanHandler(catalog Catalog, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		active := true
		low, total, err := catalog.List(ctx, products.ListFilters{
			LowStock: true,
			Active:   &active,
			Page:     1,
			PerPage:  lowStockScanLimit,
		})
		if err != nil {
			return err
		}

		for _, p := range low {
			logger.Warn("product below minimum stock",
				slog.Int64("productId", p.ID),
				slog.String("name", p.Name),
				slog.String("sku", p.SKU),
				slog.Int("currentStock", p.CurrentStock),
				slog.Int("minStockLevel", p.MinStockLevel),
			)
		}
		logger.Info("low stock scan finished",
			slog.Int("flagged", total),
			slog.Time("scheduledFor", payload.ScheduledFor),
		)
		return nil
	}
}

// LowStockCron is the default schedule for the scan, nightly at 01:00.
const LowStockCron = "0 1 * * *"

// LowStockRegistration builds the scheduler entry for the scan.
func LowStockRegistration(now time.Time) (CronRegistration, error) {
	task, err := NewLowStockScanTask(now)
	if err != nil {
		return CronRegistration{}, err
	}
	return CronRegistration{Spec: LowStockCron, Task: task}, nil
}
