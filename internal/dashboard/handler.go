package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dokan-pos/dokan-pos/internal/platform/httpx"
	"github.com/dokan-pos/dokan-pos/internal/rbac"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	svc    *Service
	guard  rbac.Middleware
	logger *slog.Logger
}

func NewHandler(svc *Service, guard rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, logger: logger}
}

// MountRoutes registers dashboard endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAny(rbac.PermDashboardView))
	r.Get("/overview", h.overview)
	r.Get("/top-products", h.topProducts)
	r.Get("/monthly", h.monthly)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Overview(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "from must be RFC3339")
			return
		}
		from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "to must be RFC3339")
			return
		}
		to = t
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	out, err := h.svc.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	out, err := h.svc.MonthlyRevenue(r.Context(), months)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": out})
}
