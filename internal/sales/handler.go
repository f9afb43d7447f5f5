package sales

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

// Handler exposes sale endpoints.
type Handler struct {
	svc      *Service
	guard    rbac.Middleware
	shopName string
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, guard rbac.Middleware, shopName string, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, shopName: shopName, logger: logger}
}

// MountRoutes registers sale endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.PermSalesView))
		r.Get("/", h.list)
		r.Get("/daily-summary", h.dailySummary)
		r.Get("/payment-stats", h.paymentStats)
		r.Get("/by-number/{number}", h.getByNumber)
		r.Get("/{id}", h.get)
		r.Get("/{id}/receipt", h.receipt)
	})
	r.With(h.guard.RequireAny(rbac.PermSalesCreate)).Post("/", h.create)
	r.With(h.guard.RequireAny(rbac.PermSalesManage)).Patch("/{id}/status", h.updateStatus)
}

type lineRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	IMEI      string  `json:"imei" validate:"omitempty,len=15,numeric"`
}

type createRequest struct {
	CustomerID      *int64        `json:"customerId"`
	CustomerName    string        `json:"customerName"`
	CustomerPhone   string        `json:"customerPhone"`
	Items           []lineRequest `json:"items" validate:"required,min=1,dive"`
	Discount        float64       `json:"discount" validate:"gte=0"`
	DeliveryType    string        `json:"deliveryType" validate:"omitempty,oneof=pickup home courier"`
	DeliveryAddress string        `json:"deliveryAddress"`
	DeliveryCharges float64       `json:"deliveryCharges" validate:"gte=0"`
	PaymentMethod   string        `json:"paymentMethod" validate:"required"`
	TransactionID   string        `json:"transactionId"`
	Notes           string        `json:"notes"`
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
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			IMEI:      line.IMEI,
		})
	}
	sale, err := h.svc.Create(r.Context(), CreateInput{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Items:           items,
		Discount:        req.Discount,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryCharges: req.DeliveryCharges,
		PaymentMethod:   req.PaymentMethod,
		TransactionID:   req.TransactionID,
		Notes:           req.Notes,
		Actor:           actor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Status:        q.Get("status"),
		PaymentMethod: q.Get("paymentMethod"),
		Search:        q.Get("search"),
	}
	if raw := q.Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "customerId must be an integer")
			return
		}
		filter.CustomerID = id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "from must be RFC3339")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "to must be RFC3339")
			return
		}
		filter.To = t
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 || filter.PerPage > 200 {
		filter.PerPage = 50
	}

	sales, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":      sales,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	sale, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) getByNumber(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	sale, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Receipt(sale, h.shopName)))
}

// A sale starts out pending or completed and never returns to
// pending, so the endpoint only advertises the reachable targets.
type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed refunded cancelled"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "id must be an integer")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	sale, err := h.svc.UpdateStatus(r.Context(), id, req.Status, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) dailySummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	summaries, err := h.svc.DailySummaries(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"days": summaries})
}

func (h *Handler) paymentStats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.PaymentStats(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"methods": stats})
}

func parseWindow(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "from must be RFC3339")
			return from, to, false
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid request", "to must be RFC3339")
			return from, to, false
		}
		to = t
	}
	return from, to, true
}
