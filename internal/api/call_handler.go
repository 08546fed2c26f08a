package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rswarnkar/converse/internal/services"
)

type CallHandler struct {
	calls *services.CallService
	turn  *services.TurnService
}

func NewCallHandler(calls *services.CallService, turn *services.TurnService) *CallHandler {
	return &CallHandler{calls: calls, turn: turn}
}

func (h *CallHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/history", h.history)
	r.Get("/ice-servers", h.iceServers)
	return r
}

func (h *CallHandler) history(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	records, err := h.calls.GetCallHistory(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load call history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *CallHandler) iceServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.turn.GetIceServers(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch ice servers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
}
