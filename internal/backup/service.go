package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

const exportConcurrency = 4

// Invalidator drops derived caches after bulk writes. The dashboard
// service satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service implements export, restore and the destructive admin
// maintenance operations.
type Service struct {
	runner      db.TxRunner
	repo        Repository
	audit       shared.Auditor
	invalidator Invalidator
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(runner db.TxRunner, repo Repository, audit shared.Auditor, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		runner:      runner,
		repo:        repo,
		audit:       audit,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Export reads every table concurrently and assembles a snapshot.
func (s *Service) Export(ctx context.Context, actor shared.Actor) (*Snapshot, error) {
	snap := &Snapshot{
		Metadata: Metadata{
			ID:        s.newID(),
			Timestamp: s.now().UTC(),
			Version:   SnapshotVersion,
			App:       AppName,
			Counts:    make(map[string]int, len(tableOrder)),
		},
		Data: make(map[string][]json.RawMessage, len(tableOrder)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for _, table := range tableOrder {
		g.Go(func() error {
			rows, err := s.repo.ExportTable(gctx, table)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Data[table] = rows
			snap.Metadata.Counts[table] = len(rows)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "backup.export", snap.Metadata.ID, map[string]any{"counts": snap.Metadata.Counts})
	s.logger.Info("backup exported", slog.String("id", snap.Metadata.ID))
	return snap, nil
}

// Restore appends the snapshot's rows to the current data. It is
// deliberately naive: rows go in one by one, failures are collected per
// table rather than aborting the run, and rows whose keys already exist
// are skipped. Restoring over a live database only fills gaps.
func (s *Service) Restore(ctx context.Context, snap *Snapshot, actor shared.Actor) (*RestoreSummary, error) {
	if snap == nil || len(snap.Data) == 0 {
		return nil, fmt.Errorf("%w: backup payload is empty", shared.ErrValidation)
	}
	if snap.Metadata.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported backup version %d", shared.ErrValidation, snap.Metadata.Version)
	}
	for table := range snap.Data {
		if !knownTable(table) {
			return nil, fmt.Errorf("%w: unknown table %q in backup", shared.ErrValidation, table)
		}
	}

	summary := &RestoreSummary{SnapshotID: snap.Metadata.ID}
	for _, table := range tableOrder {
		rows, ok := snap.Data[table]
		if !ok {
			continue
		}
		result := TableResult{Table: table}
		for _, raw := range rows {
			var row map[string]any
			if err := json.Unmarshal(raw, &row); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			if err := s.repo.InsertRow(ctx, table, row); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, err.Error())
				s.logger.Warn("restore row failed", slog.String("table", table), slog.Any("error", err))
				continue
			}
			result.Inserted++
		}
		summary.Results = append(summary.Results, result)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.recordAudit(ctx, actor, "backup.restore", snap.Metadata.ID, map[string]any{"tables": len(summary.Results)})
	s.logger.Info("backup restored", slog.String("id", snap.Metadata.ID), slog.Int("tables", len(summary.Results)))
	return summary, nil
}

// Stats reports per-table row counts for the live database.
func (s *Service) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, len(tableOrder))
	for _, table := range tableOrder {
		count, err := s.repo.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		stats[table] = count
	}
	return stats, nil
}

// ClearTable wipes one table. Tables other modules depend on for login
// stay protected.
func (s *Service) ClearTable(ctx context.Context, table string, actor shared.Actor) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("%w: unknown table %q", shared.ErrValidation, table)
	}
	if protectedTables[table] {
		return 0, fmt.Errorf("%w: table %q cannot be cleared", shared.ErrConflict, table)
	}

	var removed int64
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		// Dependants go first so foreign keys do not block the delete.
		for i := len(tableOrder) - 1; i >= 0; i-- {
			dep := tableOrder[i]
			if dep != table && !dependsOn(dep, table) {
				continue
			}
			n, err := s.repo.ClearTableTx(ctx, tx, dep)
			if err != nil {
				return err
			}
			if dep == table {
				removed = n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.recordAudit(ctx, actor, "backup.clear_table", table, map[string]any{"removed": removed})
	return removed, nil
}

// Reset wipes everything except users, returning the shop to an empty
// state with accounts intact.
func (s *Service) Reset(ctx context.Context, actor shared.Actor) (map[string]int64, error) {
	removed := make(map[string]int64, len(tableOrder))
	err := s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		for i := len(tableOrder) - 1; i >= 0; i-- {
			table := tableOrder[i]
			if protectedTables[table] {
				continue
			}
			n, err := s.repo.ClearTableTx(ctx, tx, table)
			if err != nil {
				return err
			}
			removed[table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.recordAudit(ctx, actor, "backup.reset", "all", map[string]any{"removed": removed})
	s.logger.Warn("all transactional data cleared", slog.Int64("actorId", actor.ID))
	return removed, nil
}

// dependsOn reports whether clearing parent requires clearing child first.
func dependsOn(child, parent string) bool {
	deps := map[string][]string{
		"sale_items":      {"sales", "products"},
		"transactions":    {"sales"},
		"sales":           {"customers"},
		"purchase_items":  {"purchases", "products"},
		"purchases":       {"suppliers"},
		"stock_movements": {"products"},
		"products":        {"categories"},
	}
	for _, p := range deps[child] {
		if p == parent {
			return true
		}
		if dependsOn(p, parent) {
			return true
		}
	}
	return false
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entityID string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "backup",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
