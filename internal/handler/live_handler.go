package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/live"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
	"github.com/gorilla/websocket"
)

// LiveHandler upgrades GET /api/live to a WebSocket and runs a live session
// for the signed-in user.
type LiveHandler struct {
	prospects live.Prospects
	upgrader  websocket.Upgrader
}

// NewLiveHandler accepts browser connections from frontendURL only. Requests
// without an Origin header (non-browser clients) are accepted.
func NewLiveHandler(prospects live.Prospects, frontendURL string) *LiveHandler {
	allowed := originOf(frontendURL)
	return &LiveHandler{
		prospects: prospects,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || strings.EqualFold(originOf(origin), allowed)
			},
		},
	}
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("live upgrade failed", "user_id", userID, "error", err)
		return
	}
	if err := live.NewSession(conn, userID, h.prospects).Serve(r.Context()); err != nil {
		slog.Warn("live session ended with error", "user_id", userID, "error", err)
	}
}
