package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dokan-pos/dokan-pos/internal/auth"
	"github.com/dokan-pos/dokan-pos/internal/backup"
	"github.com/dokan-pos/dokan-pos/internal/dashboard"
	"github.com/dokan-pos/dokan-pos/internal/inventory"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/categories"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/products"
	"github.com/dokan-pos/dokan-pos/internal/masterdata/suppliers"
	"github.com/dokan-pos/dokan-pos/internal/purchasing"
	"github.com/dokan-pos/dokan-pos/internal/sales"
	"github.com/dokan-pos/dokan-pos/internal/sales/customers"
	"github.com/dokan-pos/dokan-pos/internal/users"
	"github.com/dokan-pos/dokan-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler       *auth.Handler
	AuthMiddleware    func(http.Handler) http.Handler
	UsersHandler      *users.Handler
	ProductsHandler   *products.Handler
	CategoriesHandler *categories.Handler
	SuppliersHandler  *suppliers.Handler
	CustomersHandler  *customers.Handler
	SalesHandler      *sales.Handler
	PurchasingHandler *purchasing.Handler
	InventoryHandler  *inventory.Handler
	DashboardHandler  *dashboard.Handler
	BackupHandler     *backup.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Dokan defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires an authenticated actor.
	r.Group(func(r chi.Router) {
		if params.AuthMiddleware != nil {
			r.Use(params.AuthMiddleware)
		}

		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/categories", params.CategoriesHandler.MountRoutes)
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/purchases", params.PurchasingHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		r.Route("/admin", params.BackupHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
