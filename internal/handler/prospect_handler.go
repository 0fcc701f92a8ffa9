package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/internal/service"
	"github.com/contactlearncert-blip/prospection/internal/view"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
)

// ProspectHandler serves the prospect list and its actions.
type ProspectHandler struct {
	prospects service.ProspectService
}

func NewProspectHandler(prospects service.ProspectService) *ProspectHandler {
	return &ProspectHandler{prospects: prospects}
}

type prospectListResponse struct {
	Prospects []*model.Prospect `json:"prospects"`
	Total     int               `json:"total"`
	Table     view.Table        `json:"table"`
}

// List handles GET /api/prospects. The query carries the same table state a
// live session holds: search, status, industry, sort and direction.
func (h *ProspectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	table, code := tableFromQuery(r)
	if code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	all, err := h.prospects.List(r.Context(), userID)
	if err != nil {
		slog.Error("list prospects failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, prospectListResponse{
		Prospects: table.Apply(all),
		Total:     len(all),
		Table:     *table,
	})
}

// tableFromQuery builds the table state from the query string. It returns a
// non-empty error code when a parameter is invalid.
func tableFromQuery(r *http.Request) (*view.Table, string) {
	q := r.URL.Query()
	t := view.NewTable()
	t.Search = q.Get("search")

	if s := q.Get("status"); s != "" {
		if s != view.All && !model.Status(s).Valid() {
			return nil, "invalid_status"
		}
		t.StatusFilter = s
	}
	if i := q.Get("industry"); i != "" {
		if i != view.All && !model.Industry(i).Valid() {
			return nil, "invalid_industry"
		}
		t.IndustryFilter = i
	}
	if k := q.Get("sort"); k != "" {
		key, err := view.ParseSortKey(k)
		if err != nil {
			return nil, "invalid_sort"
		}
		dir, err := view.ParseDirection(q.Get("direction"))
		if err != nil {
			return nil, "invalid_direction"
		}
		t.Sort = &view.SortConfig{Key: key, Direction: dir}
	}
	return t, ""
}

// Create handles POST /api/prospects.
func (h *ProspectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var p model.Prospect
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	created, err := h.prospects.Add(r.Context(), userID, &p)
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/prospects/{id}.
func (h *ProspectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := h.prospects.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

// PatchStatus handles PATCH /api/prospects/{id}/status.
func (h *ProspectHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	p, err := h.prospects.UpdateStatus(r.Context(), userID, r.PathValue("id"), req.Status)
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type sendRequest struct {
	Message string `json:"message"`
}

// Send handles POST /api/prospects/{id}/send. The message is not delivered
// anywhere; the prospect moves to contacted.
func (h *ProspectHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	p, err := h.prospects.MarkMessageSent(r.Context(), userID, r.PathValue("id"), req.Message)
	if err != nil {
		h.writeServiceError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProspectHandler) writeServiceError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input")
	default:
		slog.Error("prospect request failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
