package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ListConversations handles GET /api/chat/conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	convs, err := h.service.Conversations(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

// StartConversation handles POST /api/chat/conversations
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	id, err := h.service.StartConversation(r.Context(), user, req.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"conversation_id": id})
}

// GetMessages handles GET /api/chat/conversations/{id}/messages
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	msgs, err := h.service.Messages(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// SendMessage handles POST /api/chat/conversations/{id}/messages. Blank
// messages are refused before reaching the backend.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(w, http.StatusBadRequest, "Message content is required")
		return
	}
	msg, err := h.service.SendMessage(r.Context(), user, id, content)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}

// MarkRead handles PUT /api/chat/conversations/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	count, err := h.service.MarkRead(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// ConversationSocket handles GET /api/chat/conversations/{id}/ws. The
// subscriber receives the current messages right after connecting and every
// change after that.
func (h *Handler) ConversationSocket(w http.ResponseWriter, r *http.Request) {
	user := h.requireSocketUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.service.FollowConversation(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if err := h.hub.Serve(w, r, id, sub.Release); err != nil {
		// the upgrader has already answered the request
		sub.Release()
		h.log.Warn("websocket subscribe failed", zap.Int64("conversation_id", id), zap.Error(err))
		return
	}
	h.hub.BroadcastMessages(id, sub.Messages)
}
