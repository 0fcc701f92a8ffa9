package handler

import (
	"log/slog"
	"net/http"

	"github.com/contactlearncert-blip/prospection/internal/service"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
)

// DashboardHandler serves GET /api/dashboard.
type DashboardHandler struct {
	dashboard service.DashboardService
}

func NewDashboardHandler(dashboard service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	d, err := h.dashboard.Overview(r.Context(), userID)
	if err != nil {
		slog.Error("dashboard failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
