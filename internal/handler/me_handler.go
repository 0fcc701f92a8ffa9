package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
)

// MeHandler returns the signed-in user's profile.
type MeHandler struct {
	users repository.UserRepository
}

func NewMeHandler(users repository.UserRepository) *MeHandler {
	return &MeHandler{users: users}
}

// Me handles GET /api/me. It runs behind the auth middleware.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		slog.Error("me: find user failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
