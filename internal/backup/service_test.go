package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type fakeBackupRepo struct {
	tables    map[string][]json.RawMessage
	inserted  map[string][]map[string]any
	cleared   []string
	failOnSKU string
}

func newFakeBackupRepo() *fakeBackupRepo {
	return &fakeBackupRepo{
		tables:   make(map[string][]json.RawMessage),
		inserted: make(map[string][]map[string]any),
	}
}

func (r *fakeBackupRepo) ExportTable(_ context.Context, table string) ([]json.RawMessage, error) {
	return r.tables[table], nil
}

func (r *fakeBackupRepo) InsertRow(_ context.Context, table string, row map[string]any) error {
	if r.failOnSKU != "" && row["sku"] == r.failOnSKU {
		return errors.New("duplicate key value")
	}
	r.inserted[table] = append(r.inserted[table], row)
	return nil
}

func (r *fakeBackupRepo) CountRows(_ context.Context, table string) (int64, error) {
	return int64(len(r.tables[table])), nil
}

func (r *fakeBackupRepo) ClearTableTx(_ context.Context, _ pgx.Tx, table string) (int64, error) {
	r.cleared = append(r.cleared, table)
	n := int64(len(r.tables[table]))
	delete(r.tables, table)
	return n, nil
}

func newTestService(repo *fakeBackupRepo) (*Service, *testutil.AuditRecorder) {
	audit := &testutil.AuditRecorder{}
	svc := NewService(testutil.NoTxRunner{}, repo, audit, nil, testutil.DiscardLogger())
	svc.now = func() time.Time { return time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "snap-0001" }
	return svc, audit
}

func actor() shared.Actor {
	return shared.Actor{ID: 1, Name: "Admin", Role: "admin"}
}

func TestExportCollectsAllTables(t *testing.T) {
	repo := newFakeBackupRepo()
	repo.tables["products"] = []json.RawMessage{
		json.RawMessage(`{"id":1,"name":"Pixel 8a"}`),
		json.RawMessage(`{"id":2,"name":"Galaxy A15"}`),
	}
	repo.tables["categories"] = []json.RawMessage{json.RawMessage(`{"id":1,"name":"Smartphones"}`)}
	svc, audit := newTestService(repo)

	snap, err := svc.Export(context.Background(), actor())
	require.NoError(t, err)
	require.Equal(t, "snap-0001", snap.Metadata.ID)
	require.Equal(t, SnapshotVersion, snap.Metadata.Version)
	require.Equal(t, AppName, snap.Metadata.App)
	require.Equal(t, 2, snap.Metadata.Counts["products"])
	require.Equal(t, 0, snap.Metadata.Counts["sales"])
	require.Len(t, snap.Data, len(tableOrder))
	require.Len(t, audit.Logs, 1)
	require.Equal(t, "backup.export", audit.Logs[0].Action)
}

func TestRestoreInsertsInTableOrder(t *testing.T) {
	repo := newFakeBackupRepo()
	svc, _ := newTestService(repo)

	snap := &Snapshot{
		Metadata: Metadata{ID: "snap-42", Version: SnapshotVersion, App: AppName},
		Data: map[string][]json.RawMessage{
			"products":   {json.RawMessage(`{"id":1,"name":"Pixel 8a","sku":"PIX-8A"}`)},
			"categories": {json.RawMessage(`{"id":1,"name":"Smartphones"}`)},
		},
	}
	summary, err := svc.Restore(context.Background(), snap, actor())
	require.NoError(t, err)
	require.Equal(t, "snap-42", summary.SnapshotID)
	require.Len(t, summary.Results, 2)
	require.Equal(t, "categories", summary.Results[0].Table)
	require.Equal(t, "products", summary.Results[1].Table)
	require.Equal(t, 1, summary.Results[1].Inserted)
	require.Equal(t, "Pixel 8a", repo.inserted["products"][0]["name"])
}

func TestRestoreContinuesPastRowFailures(t *testing.T) {
	repo := newFakeBackupRepo()
	repo.failOnSKU = "PIX-8A"
	svc, _ := newTestService(repo)

	snap := &Snapshot{
		Metadata: Metadata{ID: "snap-43", Version: SnapshotVersion},
		Data: map[string][]json.RawMessage{
			"products": {
				json.RawMessage(`{"id":1,"name":"Pixel 8a","sku":"PIX-8A"}`),
				json.RawMessage(`{"id":2,"name":"Galaxy A15","sku":"SAM-A15"}`),
			},
		},
	}
	summary, err := svc.Restore(context.Background(), snap, actor())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, 1, summary.Results[0].Inserted)
	require.Equal(t, 1, summary.Results[0].Skipped)
	require.Len(t, summary.Results[0].Errors, 1)
	require.Equal(t, "Galaxy A15", repo.inserted["products"][0]["name"])
}

func TestRestoreRejectsUnknownTable(t *testing.T) {
	svc, _ := newTestService(newFakeBackupRepo())

	snap := &Snapshot{
		Metadata: Metadata{Version: SnapshotVersion},
		Data:     map[string][]json.RawMessage{"secrets": {json.RawMessage(`{}`)}},
	}
	_, err := svc.Restore(context.Background(), snap, actor())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRestoreRejectsVersionMismatch(t *testing.T) {
	svc, _ := newTestService(newFakeBackupRepo())

	snap := &Snapshot{
		Metadata: Metadata{Version: SnapshotVersion + 1},
		Data:     map[string][]json.RawMessage{"products": {json.RawMessage(`{}`)}},
	}
	_, err := svc.Restore(context.Background(), snap, actor())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestClearTableRefusesProtected(t *testing.T) {
	svc, _ := newTestService(newFakeBackupRepo())

	_, err := svc.ClearTable(context.Background(), "users", actor())
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.ClearTable(context.Background(), "nope", actor())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestClearTableCascadesToDependants(t *testing.T) {
	repo := newFakeBackupRepo()
	repo.tables["products"] = []json.RawMessage{json.RawMessage(`{"id":1}`)}
	svc, _ := newTestService(repo)

	removed, err := svc.ClearTable(context.Background(), "products", actor())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Contains(t, repo.cleared, "sale_items")
	require.Contains(t, repo.cleared, "stock_movements")
	require.NotContains(t, repo.cleared, "customers")
}

func TestResetPreservesUsers(t *testing.T) {
	repo := newFakeBackupRepo()
	repo.tables["users"] = []json.RawMessage{json.RawMessage(`{"id":1}`)}
	repo.tables["sales"] = []json.RawMessage{json.RawMessage(`{"id":9}`)}
	svc, audit := newTestService(repo)

	removed, err := svc.Reset(context.Background(), actor())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed["sales"])
	require.NotContains(t, repo.cleared, "users")
	require.NotEmpty(t, repo.tables["users"])
	require.Len(t, audit.Logs, 1)
}
