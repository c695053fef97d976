package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/terapia/internal/messaging"
)

type MessageHandler struct {
	svc *messaging.Service
}

func NewMessageHandler(svc *messaging.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.Conversations(r.Context(), caller(r).Profile.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Thread(r.Context(), caller(r).Profile.ID, mux.Vars(r)["counterpart"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.Send(r.Context(), caller(r).Profile.ID, mux.Vars(r)["counterpart"], req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkThreadRead(r.Context(), caller(r).Profile.ID, mux.Vars(r)["counterpart"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}

// Rebuild recomputes a user's conversation list from their messages.
func (h *MessageHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.RebuildSummaries(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}
