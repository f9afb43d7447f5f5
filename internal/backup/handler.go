package backup

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dokan-pos/dokan-pos/internal/platform/httpx"
	"github.com/dokan-pos/dokan-pos/internal/rbac"
	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Handler exposes the admin maintenance endpoints.
type Handler struct {
	svc    *Service
	guard  rbac.Middleware
	logger *slog.Logger
}

func NewHandler(svc *Service, guard rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, guard: guard, logger: logger}
}

// MountRoutes registers backup and maintenance endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAny(rbac.PermBackupManage))
	r.Get("/backup", h.export)
	r.Get("/backup/stats", h.stats)
	r.Post("/restore", h.restore)
	r.Post("/tables/{table}/clear", h.clearTable)
	r.Post("/reset", h.reset)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	snap, err := h.svc.Export(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("dokan-backup-%s.json", snap.Metadata.Timestamp.Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	if err := httpx.DecodeJSON(r, &snap); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	summary, err := h.svc.Restore(r.Context(), &snap, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tables": stats})
}

func (h *Handler) clearTable(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	table := chi.URLParam(r, "table")
	removed, err := h.svc.ClearTable(r.Context(), table, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"table": table, "removed": removed})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	removed, err := h.svc.Reset(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": removed})
}
