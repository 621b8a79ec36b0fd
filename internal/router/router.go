package router

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/handlers"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(h *handlers.Handler, corsOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Pending items
	api.HandleFunc("/pending", h.ListPending).Methods(http.MethodGet)
	api.HandleFunc("/pending", h.AddPending).Methods(http.MethodPost)
	api.HandleFunc("/pending", h.ClearPending).Methods(http.MethodDelete)
	api.HandleFunc("/pending/{index}", h.RemovePending).Methods(http.MethodDelete)

	// Current itinerary and checkout
	api.HandleFunc("/current", h.GetCurrent).Methods(http.MethodGet)
	api.HandleFunc("/current", h.SetCurrent).Methods(http.MethodPut)
	api.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/itineraries", h.ListItineraries).Methods(http.MethodGet)
	api.HandleFunc("/itineraries/{id}", h.DeleteItinerary).Methods(http.MethodDelete)
	api.HandleFunc("/itineraries/{id}/items", h.ListItineraryItems).Methods(http.MethodGet)
	api.HandleFunc("/itineraries/{id}/items", h.AddItineraryItem).Methods(http.MethodPost)
	api.HandleFunc("/itineraries/{id}/saved", h.GetSaved).Methods(http.MethodGet)
	api.HandleFunc("/itineraries/{id}/ics", h.ExportCalendar).Methods(http.MethodGet)
	api.HandleFunc("/itineraries/{id}/budget", h.GetBudget).Methods(http.MethodGet)

	// Search
	api.HandleFunc("/search/{category}", h.Search).Methods(http.MethodGet)

	// Chat
	api.HandleFunc("/chat/conversations", h.ListConversations).Methods(http.MethodGet)
	api.HandleFunc("/chat/conversations", h.StartConversation).Methods(http.MethodPost)
	api.HandleFunc("/chat/conversations/{id}/messages", h.GetMessages).Methods(http.MethodGet)
	api.HandleFunc("/chat/conversations/{id}/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/conversations/{id}/read", h.MarkRead).Methods(http.MethodPut)

	// WebSocket for real-time chat updates
	api.HandleFunc("/chat/conversations/{id}/ws", h.ConversationSocket).Methods(http.MethodGet)

	// Account
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	// AI
	api.HandleFunc("/ai/generate-itinerary", h.GenerateItinerary).Methods(http.MethodPost)
	api.HandleFunc("/ai/recommend-attractions", h.RecommendAttractions).Methods(http.MethodPost)
	api.HandleFunc("/ai/staged", h.StagedRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/ai/staged/promote", h.PromoteStaged).Methods(http.MethodPost)

	// Matching
	api.HandleFunc("/matching/find-companions", h.FindCompanions).Methods(http.MethodPost)
	api.HandleFunc("/matching/matches", h.ListMatches).Methods(http.MethodGet)
	api.HandleFunc("/matching/{userId}/connect", h.Connect).Methods(http.MethodPost)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working behind the middleware.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	log := logger.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
