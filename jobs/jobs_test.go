package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/backup"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/products"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type fakeCatalog struct {
	items       []products.Product
	lastFilters products.ListFilters
}

func (c *fakeCatalog) List(_ context.Context, filters products.ListFilters) ([]products.Product, int, error) {
	c.lastFilters = filters
	return c.items, len(c.items), nil
}

func TestLowStockScanQueriesLowStockOnly(t *testing.T) {
	catalog := &fakeCatalog{items: []products.Product{
		{ID: 3, Name: "Redmi 13C", SKU: "RMI-13C", CurrentStock: 1, MinStockLevel: 5},
	}}
	handler := NewLowStockScanHandler(catalog, testutil.DiscardLogger())

	task, err := NewLowStockScanTask(time.Date(2026, time.August, 15, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.True(t, catalog.lastFilters.LowStock)
	require.NotNil(t, catalog.lastFilters.Active)
	require.True(t, *catalog.lastFilters.Active)
	require.Equal(t, lowStockScanLimit, catalog.lastFilters.PerPage)
}

func TestLowStockScanSkipsBadPayload(t *testing.T) {
	handler := NewLowStockScanHandler(&fakeCatalog{}, testutil.DiscardLogger())
	err := handler(context.Background(), asynq.NewTask(TaskLowStockScan, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeExporter struct {
	snap backup.Snapshot
}

func (e *fakeExporter) Export(_ context.Context, _ shared.Actor) (*backup.Snapshot, error) {
	snap := e.snap
	return &snap, nil
}

func TestBackupSnapshotWritesFile(t *testing.T) {
	dir := t.TempDir()
	exporter := &fakeExporter{snap: backup.Snapshot{
		Metadata: backup.Metadata{
			ID:        "snap-7",
			Version:   backup.SnapshotVersion,
			App:       backup.AppName,
			Timestamp: time.Date(2026, time.August, 15, 2, 0, 0, 0, time.UTC),
		},
	}}
	handler := NewBackupSnapshotHandler(exporter, dir, testutil.DiscardLogger())

	task, err := NewBackupSnapshotTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))

	raw, err := os.ReadFile(filepath.Join(dir, "dokan-backup-20260815-020000.json"))
	require.NoError(t, err)

	var snap backup.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.Equal(t, "snap-7", snap.Metadata.ID)
}
