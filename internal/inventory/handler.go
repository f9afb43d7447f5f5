package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dokan-pos/dokan-pos/internal/platform/httpx"
	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Handler exposes stock ledger endpoints.
type Handler struct {
	svc    *Service
	guard  rbac.Middleware
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, logger: logger}
}

// MountRoutes registers inventory endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAny(rbac.PermInventoryView)).Get("/movements", h.listMovements)
	r.With(h.guard.RequireAny(rbac.PermInventoryAdjust)).Post("/adjustments", h.adjust)
}

type adjustRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Direction string `json:"direction" validate:"required,oneof=in out"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	movement, err := h.svc.Adjust(r.Context(), AdjustInput{
		ProductID: req.ProductID,
		Direction: Direction(req.Direction),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
		Notes:     req.Notes,
		Actor:     actor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Direction: Direction(r.URL.Query().Get("direction")),
		Reason:    r.URL.Query().Get("reason"),
		Reference: r.URL.Query().Get("reference"),
	}
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "productId must be an integer")
			return
		}
		filter.ProductID = id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "from must be RFC3339")
			return
		}
		filter.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "to must be RFC3339")
			return
		}
		filter.To = t
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("perPage"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 || filter.PerPage > 200 {
		filter.PerPage = 50
	}

	movements, total, err := h.svc.ListMovements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"movements":  movements,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, int(total)),
	})
}
