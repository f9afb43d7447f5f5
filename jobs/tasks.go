package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan walks the catalog and reports products at or
	// below their minimum stock level.
	TaskLowStockScan = "inventory:lowstock_scan"
	// TaskBackupSnapshot writes a JSON export of all tables to disk.
	TaskBackupSnapshot = "backup:snapshot"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the nightly stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// BackupSnapshotPayload carries scheduling metadata.
type BackupSnapshotPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBackupSnapshotTask constructs an Asynq task for the scheduled backup.
func NewBackupSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BackupSnapshotPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackupSnapshot, body, asynq.Queue(QueueDefault)), nil
}
