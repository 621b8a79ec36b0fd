package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/search"
	"github.com/cx-tal-miterani/trip-planner/internal/service"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/internal/websocket"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionQueryParam carries the session id on WebSocket URLs, where browsers
// cannot set an Authorization header.
const SessionQueryParam = "session"

// Handler contains HTTP handlers for the API
type Handler struct {
	service service.PlannerService
	hub     *websocket.Hub
	log     *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc service.PlannerService, hub *websocket.Hub) *Handler {
	return &Handler{
		service: svc,
		hub:     hub,
		log:     logger.Named("handlers"),
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes. Backend messages are
// passed through so the user sees what the server said.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, pending.ErrInvalidItem), errors.Is(err, search.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pending.ErrIndexOutOfRange):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrNoPendingItems):
		respondError(w, http.StatusBadRequest, "No pending items to save")
	case errors.Is(err, checkout.ErrNoSavedData):
		respondError(w, http.StatusNotFound, "No saved data for this itinerary")
	case errors.Is(err, upstream.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrUnknownSession):
		respondError(w, http.StatusUnauthorized, "Session is invalid or has ended")
	case errors.Is(err, session.ErrNoUser):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "Server is shutting down")
	case errors.Is(err, search.ErrUnexpectedData):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		respondError(w, status, apiErr.Message)
	default:
		h.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// bearerSession reads the session id from "Authorization: Bearer <id>".
func bearerSession(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// requireUser resolves the caller's session to a user key. It writes 401 and
// returns "" when the session is missing or unknown.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) string {
	return h.resolve(w, r, bearerSession(r))
}

// requireSocketUser is requireUser that also accepts the session query parameter.
func (h *Handler) requireSocketUser(w http.ResponseWriter, r *http.Request) string {
	sid := bearerSession(r)
	if sid == "" {
		sid = strings.TrimSpace(r.URL.Query().Get(SessionQueryParam))
	}
	return h.resolve(w, r, sid)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, sid string) string {
	if sid == "" {
		respondError(w, http.StatusUnauthorized, "Session is required")
		return ""
	}
	user, err := h.service.ResolveSession(r.Context(), sid)
	if err != nil {
		h.respondServiceError(w, err)
		return ""
	}
	return user
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// decodeOptional decodes a JSON body that may be absent.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ListPending handles GET /api/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	items, err := h.service.ListPending(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// AddPending handles POST /api/pending
func (h *Handler) AddPending(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var item models.PendingItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	added, err := h.service.AddPending(r.Context(), user, item)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

// RemovePending handles DELETE /api/pending/{index}
func (h *Handler) RemovePending(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid index")
		return
	}
	if err := h.service.RemovePending(r.Context(), user, index); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}

// ClearPending handles DELETE /api/pending
func (h *Handler) ClearPending(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	if err := h.service.ClearPending(r.Context(), user); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Pending items cleared"})
}

// GetCurrent handles GET /api/current
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	cur, err := h.service.CurrentItinerary(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if cur == nil {
		respondError(w, http.StatusNotFound, "No current itinerary")
		return
	}
	respondJSON(w, http.StatusOK, cur)
}

// SetCurrent handles PUT /api/current
func (h *Handler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var cur models.CurrentItinerary
	if err := json.NewDecoder(r.Body).Decode(&cur); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.SetCurrentItinerary(r.Context(), user, cur); err != nil {
		h.respondServiceError(w, err)
		return
	}
	saved, err := h.service.CurrentItinerary(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// ListItineraries handles GET /api/itineraries
func (h *Handler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	its, err := h.service.Itineraries(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, its)
}

// DeleteItinerary handles DELETE /api/itineraries/{id}
func (h *Handler) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteItinerary(r.Context(), user, id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Itinerary deleted"})
}

// ListItineraryItems handles GET /api/itineraries/{id}/items
func (h *Handler) ListItineraryItems(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ItineraryItems(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// AddItineraryItem handles POST /api/itineraries/{id}/items
func (h *Handler) AddItineraryItem(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req upstream.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.ItemType.Valid() || strings.TrimSpace(req.ItemName) == "" {
		respondError(w, http.StatusBadRequest, "item_type and item_name are required")
		return
	}
	item, err := h.service.AddItineraryItem(r.Context(), user, id, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"item": item})
}

// GetBudget handles GET /api/itineraries/{id}/budget
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	budget, err := h.service.Budget(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Search handles GET /api/search/{category}. Query parameters go to the backend as given.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	category, err := models.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	params := r.URL.Query()
	params.Del("user")
	res, err := h.service.Search(r.Context(), user, category, params)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Checkout handles POST /api/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var req checkout.Request
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.service.Checkout(r.Context(), user, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetSaved handles GET /api/itineraries/{id}/saved
func (h *Handler) GetSaved(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	raw, err := h.service.SavedItinerary(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

// ExportCalendar handles GET /api/itineraries/{id}/ics
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.service.ExportCalendar(r.Context(), user, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary-`+strconv.FormatInt(id, 10)+`.ics"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, doc)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
