package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/dokan-pos/dokan-pos/internal/app"
	"github.com/dokan-pos/dokan-pos/internal/auth"
	"github.com/dokan-pos/dokan-pos/internal/backup"
	"github.com/dokan-pos/dokan-pos/internal/dashboard"
	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/categories"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/products"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/suppliers"
	"github.com/dokan-pos/dokan-pos/internal/platform/cache"
	"github.com/dokan-pos/dokan-pos/internal/platform/db"
	"github.com/dokan-pos/dokan-pos/internal/purchasing"
	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/sales"
	"github.com/dokan-pos/dokan-pos/internal/sales/customers"
	"github.com/dokan-pos/dokan-pos/internal/shared"
	"github.com/dokan-pos/dokan-pos/internal/users"
	"github.com/dokan-pos/dokan-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	runner := db.PoolRunner{Pool: pool}
	auditLogger := shared.NewAuditLogger(pool)
	guard := rbac.Middleware{Logger: logger}

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokenStore)
	authHandler := auth.NewHandler(authService, logger)

	usersService := users.NewService(users.NewRepository(pool), auditLogger, logger)
	usersHandler := users.NewHandler(usersService, guard, logger)

	ledger := inventory.NewLedger()
	inventoryService := inventory.NewService(runner, ledger, inventory.NewRepository(pool), auditLogger, logger)
	inventoryHandler := inventory.NewHandler(inventoryService, guard, logger)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(runner, productsRepo, ledger, auditLogger, logger)
	productsHandler := products.NewHandler(productsService, guard, logger)

	categoriesService := categories.NewService(categories.NewRepository(pool))
	categoriesHandler := categories.NewHandler(categoriesService, guard, logger)

	suppliersService := suppliers.NewService(suppliers.NewRepository(pool))
	suppliersHandler := suppliers.NewHandler(suppliersService, guard, logger)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(customersService, guard, logger)

	salesService := sales.NewService(runner, sales.NewRepository(pool), ledger, productsRepo, customersRepo, auditLogger, logger)
	salesHandler := sales.NewHandler(salesService, guard, cfg.ShopName, logger)

	purchasingService := purchasing.NewService(runner, purchasing.NewRepository(pool), ledger, productsRepo, suppliersService, auditLogger, logger)
	purchasingHandler := purchasing.NewHandler(purchasingService, guard, logger)

	dashboardService := dashboard.NewService(
		dashboard.NewPGRepository(pool),
		dashboard.NewCache(redisClient, cfg.DashboardCacheTTL),
		logger,
	)
	dashboardHandler := dashboard.NewHandler(dashboardService, guard, logger)

	backupService := backup.NewService(runner, backup.NewPGRepository(pool), auditLogger, dashboardService, logger)
	backupHandler := backup.NewHandler(backupService, guard, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    auth.Middleware(authService),
		UsersHandler:      usersHandler,
		ProductsHandler:   productsHandler,
		CategoriesHandler: categoriesHandler,
		SuppliersHandler:  suppliersHandler,
		CustomersHandler:  customersHandler,
		SalesHandler:      salesHandler,
		PurchasingHandler: purchasingHandler,
		InventoryHandler:  inventoryHandler,
		DashboardHandler:  dashboardHandler,
		BackupHandler:     backupHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
