package purchasing

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

// Handler exposes purchase order endpoints.
type Handler struct {
	svc    *Service
	guard  rbac.Middleware
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, logger: logger}
}

// MountRoutes registers purchase endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermPurchasesView))
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermPurchasesManage))
		r.Post("/", h.create)
		r.Post("/{id}/receive", h.receive)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type lineRequest struct {
	ProductID   int64    `json:"productId" validate:"required,gt=0"`
	Quantity    int      `json:"quantity" validate:"required,gt=0"`
	UnitCost    float64  `json:"unitCost" validate:"gte=0"`
	IMEINumbers []string `json:"imeiNumbers" validate:"omitempty,dive,len=15,numeric"`
}

type createRequest struct {
	SupplierID int64         `json:"supplierId" validate:"required,gt=0"`
	Items      []lineRequest `json:"items" validate:"required,min=1,dive"`
	Tax        float64       `json:"tax" validate:"gte=0"`
	ExpectedAt *time.Time    `json:"expectedAt"`
	Notes      string        `json:"notes"`
}

type receiveLineRequest struct {
	ProductID        int64    `json:"productId" validate:"required,gt=0"`
	ReceivedQuantity int      `json:"receivedQuantity" validate:"required,gt=0"`
	IMEINumbers      []string `json:"imeiNumbers" validate:"omitempty,dive,len=15,numeric"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"omitempty,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	items := make([]LineInput, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, LineInput{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			IMEINumbers: line.IMEINumbers,
		})
	}
	purchase, err := h.svc.Create(r.Context(), CreateInput{
		SupplierID: req.SupplierID,
		Items:      items,
		Tax:        req.Tax,
		ExpectedAt: req.ExpectedAt,
		Notes:      req.Notes,
		Actor:      actor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())

	lines := make([]ReceiveLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, ReceiveLine{
			ProductID:        line.ProductID,
			ReceivedQuantity: line.ReceivedQuantity,
			IMEINumbers:      line.IMEINumbers,
		})
	}
	purchase, err := h.svc.Receive(r.Context(), ReceiveInput{PurchaseID: id, Lines: lines, Actor: actor})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	purchase, err := h.svc.Cancel(r.Context(), id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	purchase, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if raw := q.Get("supplierId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "supplierId must be an integer")
			return
		}
		filter.SupplierID = id
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 || filter.PerPage > 200 {
		filter.PerPage = 50
	}

	purchases, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  purchases,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
