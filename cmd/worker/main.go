package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/dokan-pos/dokan-pos/internal/app"
	"github.com/dokan-pos/dokan-pos/internal/backup"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/products"
	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	runner := db.PoolRunner{Pool: pool}
	auditLogger := shared.NewAuditLogger(pool)

	productsRepo := products.NewRepository(pool)
	backupService := backup.NewService(runner, backup.NewPGRepository(pool), auditLogger, nil, logger)

	now := time.Now().UTC()
	lowStockCron, err := jobs.LowStockRegistration(now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	backupCron, err := jobs.BackupRegistration(now)
	if err != nil {
		logger.Error("build backup task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockCron.Options = []asynq.Option{asynq.MaxRetry(3)}
	backupCron.Options = []asynq.Option{asynq.MaxRetry(3)}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: jobs.NewLowStockScanHandler(productsRepo, logger)},
			{Type: jobs.TaskBackupSnapshot, Handler: jobs.NewBackupSnapshotHandler(backupService, cfg.BackupDir, logger)},
		},
		Cron: []jobs.CronRegistration{lowStockCron, backupCron},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
