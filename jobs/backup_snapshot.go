package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dokan-pos/dokan-pos/internal/backup"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Exporter is satisfied by the backup service.
type Exporter interface {
	Export(ctx context.Context, actor shared.Actor) (*backup.Snapshot, error)
}

// systemActor labels scheduler-initiated writes in the audit trail.
var systemActor = shared.Actor{ID: 0, Name: "scheduler", Role: "admin"}

// NewBackupSnapshotHandler returns the handler for TaskBackupSnapshot.
// Snapshots land in dir as one JSON file per run.
func NewBackupSnapshotHandler(exporter Exporter, dir string, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BackupSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		snap, err := exporter.Export(ctx, systemActor)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("jobs: backup dir: %w", err)
		}
		name := fmt.Sprintf("dokan-backup-%s.json", snap.Metadata.Timestamp.Format("20060102-150405"))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			return fmt.Errorf("jobs: write snapshot: %w", err)
		}

		logger.Info("backup snapshot written",
			slog.String("path", path),
			slog.String("id", snap.Metadata.ID),
		)
		return nil
	}
}

// BackupCron is the default schedule for snapshots, nightly at 02:00.
const BackupCron = "0 2 * * *"

// BackupRegistration builds the scheduler entry for the snapshot job.
func BackupRegistration(now time.Time) (CronRegistration, error) {
	task, err := NewBackupSnapshotTask(now)
	if err != nil {
		return CronRegistration{}, err
	}
	return CronRegistration{Spec: BackupCron, Task: task}, nil
}
