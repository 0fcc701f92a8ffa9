package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/contactlearncert-blip/prospection/internal/llm"
	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/internal/service"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
)

// AssistantHandler exposes the AI flows. Results are returned, never stored.
type AssistantHandler struct {
	assistant service.AssistantService
	prospects service.ProspectService
}

func NewAssistantHandler(assistant service.AssistantService, prospects service.ProspectService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, prospects: prospects}
}

// Evaluate handles POST /api/prospects/evaluate.
func (h *AssistantHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var in model.EvaluateProspectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.assistant.EvaluateProspect(r.Context(), in)
	if err != nil {
		writeFlowError(w, "evaluate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Generate handles POST /api/messages/generate with a free-form input.
func (h *AssistantHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in model.GenerateMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.assistant.GeneratePersonalizedMessage(r.Context(), in)
	if err != nil {
		writeFlowError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type prospectMessageRequest struct {
	ServiceOffering string `json:"serviceOffering"`
}

// ProspectMessage handles POST /api/prospects/{id}/message: it drafts a message
// for a stored prospect. The body is optional.
func (h *AssistantHandler) ProspectMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req prospectMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	p, err := h.prospects.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		slog.Error("load prospect for message failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	res, err := h.assistant.GeneratePersonalizedMessage(r.Context(), model.GenerateMessageInput{
		ProspectName:           p.Name,
		ProspectOnlinePresence: p.OnlinePresence,
		ServiceOffering:        req.ServiceOffering,
	})
	if err != nil {
		writeFlowError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeFlowError(w http.ResponseWriter, flow string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input")
	case errors.Is(err, llm.ErrInvalidOutput), errors.Is(err, llm.ErrTooManyToolRounds):
		slog.Warn("flow produced no usable output", "flow", flow, "error", err)
		writeError(w, http.StatusBadGateway, "invalid_model_output")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout")
	default:
		slog.Error("flow failed", "flow", flow, "error", err)
		writeError(w, http.StatusBadGateway, "model_unavailable")
	}
}
