package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// Login handles POST /api/auth/login. The returned session id is the only
// credential later requests carry.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	auth, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auth)
}

// Register handles POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	auth, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, auth)
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := bearerSession(r)
	if sid == "" {
		respondError(w, http.StatusUnauthorized, "Session is required")
		return
	}
	if err := h.service.Logout(r.Context(), sid); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	profile, err := h.service.Me(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

// GenerateItinerary handles POST /api/ai/generate-itinerary
func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var req models.GenerateItineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Destination) == "" || req.StartDate == "" || req.EndDate == "" {
		respondError(w, http.StatusBadRequest, "Destination, start date and end date are required")
		return
	}
	plan, err := h.service.GenerateItinerary(r.Context(), user, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// RecommendAttractions handles POST /api/ai/recommend-attractions
func (h *Handler) RecommendAttractions(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var req struct {
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		respondError(w, http.StatusBadRequest, "Destination is required")
		return
	}
	recs, err := h.service.RecommendAttractions(r.Context(), user, req.Destination)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

// StagedRecommendations handles GET /api/ai/staged
func (h *Handler) StagedRecommendations(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	recs, err := h.service.StagedRecommendations(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

// PromoteStaged handles POST /api/ai/staged/promote. An empty body promotes everything.
func (h *Handler) PromoteStaged(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var req struct {
		Indexes []int `json:"indexes"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	added, err := h.service.PromoteStaged(r.Context(), user, req.Indexes)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"added": added})
}

// FindCompanions handles POST /api/matching/find-companions
func (h *Handler) FindCompanions(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	var q models.CompanionQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(q.Destination) == "" {
		respondError(w, http.StatusBadRequest, "Destination is required")
		return
	}
	matches, err := h.service.FindCompanions(r.Context(), user, q)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// ListMatches handles GET /api/matching/matches
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	matches, err := h.service.Matches(r.Context(), user)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// Connect handles POST /api/matching/{userId}/connect
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	user := h.requireUser(w, r)
	if user == "" {
		return
	}
	other, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req struct {
		CompatibilityScore float64 `json:"compatibility_score"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	matchID, err := h.service.Connect(r.Context(), user, other, req.CompatibilityScore)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"match_id": matchID})
}
