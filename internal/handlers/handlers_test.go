package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/chat"
	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/search"
	"github.com/cx-tal-miterani/trip-planner/internal/service"
	"github.com/cx-tal-miterani/trip-planner/internal/service/mocks"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	ws "github.com/cx-tal-miterani/trip-planner/internal/websocket"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestHandler resolves session "sid-1" to user "u1".
func newTestHandler(m *mocks.MockService, hub *ws.Hub) *Handler {
	m.On("ResolveSession", mock.Anything, "sid-1").Return("u1", nil).Maybe()
	return NewHandler(m, hub)
}

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/pending", h.ListPending).Methods(http.MethodGet)
	api.HandleFunc("/pending", h.AddPending).Methods(http.MethodPost)
	api.HandleFunc("/pending", h.ClearPending).Methods(http.MethodDelete)
	api.HandleFunc("/pending/{index}", h.RemovePending).Methods(http.MethodDelete)
	api.HandleFunc("/current", h.GetCurrent).Methods(http.MethodGet)
	api.HandleFunc("/search/{category}", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/itineraries/{id}", h.DeleteItinerary).Methods(http.MethodDelete)
	api.HandleFunc("/itineraries/{id}/items", h.AddItineraryItem).Methods(http.MethodPost)
	api.HandleFunc("/itineraries/{id}/saved", h.GetSaved).Methods(http.MethodGet)
	api.HandleFunc("/itineraries/{id}/ics", h.ExportCalendar).Methods(http.MethodGet)
	api.HandleFunc("/chat/conversations/{id}/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/conversations/{id}/ws", h.ConversationSocket).Methods(http.MethodGet)
	api.HandleFunc("/ai/staged/promote", h.PromoteStaged).Methods(http.MethodPost)
	return r
}

func newRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer sid-1")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestHandler_RequiresUser(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockService.AssertNotCalled(t, "ListPending", mock.Anything, mock.Anything)
}

func TestHandler_SessionResolution(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "known session", header: "Bearer sid-1", wantStatus: http.StatusOK},
		{name: "scheme is case insensitive", header: "bearer sid-1", wantStatus: http.StatusOK},
		{name: "unknown session", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "missing bearer scheme", header: "sid-1", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			mockService.On("ResolveSession", mock.Anything, "forged").Return("", session.ErrUnknownSession).Maybe()
			mockService.On("ListPending", mock.Anything, "u1").Return([]models.PendingItem{}, nil).Maybe()
			router := setupTestRouter(newTestHandler(mockService, nil))

			req := httptest.NewRequest(http.MethodGet, "/api/pending", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				mockService.AssertNotCalled(t, "ListPending", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_IdentityHeadersAreIgnored(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/pending?user=u1", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockService.AssertNotCalled(t, "ListPending", mock.Anything, mock.Anything)
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *mocks.MockService)
		wantStatus int
		wantSID    string
	}{
		{
			name: "issues a session",
			body: `{"email":"ana@example.com","password":"pw"}`,
			setup: func(m *mocks.MockService) {
				m.On("Login", mock.Anything, "ana@example.com", "pw").
					Return(&models.AuthResult{SessionID: "sid-9", User: &models.User{UserID: 7, Name: "Ana"}}, nil)
			},
			wantStatus: http.StatusOK,
			wantSID:    "sid-9",
		},
		{
			name:       "missing password",
			body:       `{"email":"ana@example.com"}`,
			setup:      func(m *mocks.MockService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "rejected credentials",
			body: `{"email":"ana@example.com","password":"bad"}`,
			setup: func(m *mocks.MockService) {
				m.On("Login", mock.Anything, "ana@example.com", "bad").
					Return(nil, &upstream.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			tt.setup(mockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			// no credentials are needed to log in
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantSID != "" {
				var got models.AuthResult
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, tt.wantSID, got.SessionID)
				require.NotNil(t, got.User)
				assert.Equal(t, int64(7), got.User.UserID)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_LogoutEndsPresentedSession(t *testing.T) {
	mockService := new(mocks.MockService)
	mockService.On("Logout", mock.Anything, "sid-1").Return(nil)
	router := setupTestRouter(newTestHandler(mockService, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	mockService.AssertExpectations(t)
}

func TestHandler_ServiceClosed(t *testing.T) {
	mockService := new(mocks.MockService)
	mockService.On("ListPending", mock.Anything, "u1").Return(nil, service.ErrClosed)
	router := setupTestRouter(newTestHandler(mockService, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/pending", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_ListPending(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))

	items := []models.PendingItem{{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"name":"Ritz"}`)}}
	mockService.On("ListPending", mock.Anything, "u1").Return(items, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/pending", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response []models.PendingItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response, 1)
	assert.Equal(t, models.ItemKindHotel, response[0].Kind)
	mockService.AssertExpectations(t)
}

func TestHandler_AddPending(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{name: "added", body: `{"kind":"attraction","payload":{"name":"Louvre"}}`, expectCall: true, expectedStatus: http.StatusCreated},
		{name: "rejected by store", body: `{"kind":"car","payload":{}}`, mockError: pending.ErrInvalidItem, expectCall: true, expectedStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"kind":`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			if tt.expectCall {
				mockService.On("AddPending", mock.Anything, "u1", mock.AnythingOfType("models.PendingItem")).
					Return(models.PendingItem{Kind: models.ItemKindAttraction}, tt.mockError)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/pending", []byte(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_RemovePending(t *testing.T) {
	tests := []struct {
		name           string
		index          string
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{name: "removed", index: "0", expectCall: true, expectedStatus: http.StatusOK},
		{name: "out of range", index: "4", mockError: pending.ErrIndexOutOfRange, expectCall: true, expectedStatus: http.StatusNotFound},
		{name: "not a number", index: "first", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			if tt.expectCall {
				mockService.On("RemovePending", mock.Anything, "u1", mock.AnythingOfType("int")).Return(tt.mockError)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodDelete, "/api/pending/"+tt.index, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_GetCurrent_None(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))
	mockService.On("CurrentItinerary", mock.Anything, "u1").Return(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/current", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Search(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		mockResult     search.Results
		mockError      error
		expectCall     bool
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "results",
			target:         "/api/search/attractions?location=Paris",
			mockResult:     search.Results{Category: models.CategoryAttractions, Items: []models.SearchResult{}},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown category",
			target:         "/api/search/cars?location=Paris",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation",
			target:         "/api/search/attractions?location=Paris",
			mockError:      errors.Join(search.ErrValidation, errors.New("location is required")),
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "backend message passes through",
			target:         "/api/search/attractions?location=Paris",
			mockError:      &upstream.APIError{Status: http.StatusBadRequest, Message: "location parameter required"},
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "location parameter required",
		},
		{
			name:           "backend failure",
			target:         "/api/search/attractions?location=Paris",
			mockError:      &upstream.APIError{Status: http.StatusInternalServerError, Message: "provider down"},
			expectCall:     true,
			expectedStatus: http.StatusBadGateway,
			expectedError:  "provider down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			if tt.expectCall {
				mockService.On("Search", mock.Anything, "u1", models.CategoryAttractions, url.Values{"location": {"Paris"}}).
					Return(tt.mockResult, tt.mockError)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rec))
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Checkout(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		request        checkout.Request
		mockReturn     *models.CheckoutResult
		mockError      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "no body",
			mockReturn:     &models.CheckoutResult{ItineraryID: 8, Message: "Saved 1 items and 0 flights to Trip to Paris 1"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "explicit target",
			body:           []byte(`{"itinerary_id":5}`),
			request:        checkout.Request{ItineraryID: 5},
			mockReturn:     &models.CheckoutResult{ItineraryID: 5},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "nothing pending",
			mockError:      checkout.ErrNoPendingItems,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No pending items to save",
		},
		{
			name:           "target gone",
			body:           []byte(`{"itinerary_id":5}`),
			request:        checkout.Request{ItineraryID: 5},
			mockError:      &upstream.APIError{Status: http.StatusNotFound, Message: "Itinerary not found"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "Itinerary not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			mockService.On("Checkout", mock.Anything, "u1", tt.request).Return(tt.mockReturn, tt.mockError)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/checkout", tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rec))
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_SavedAndCalendar(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))

	mockService.On("SavedItinerary", mock.Anything, "u1", int64(3)).Return(nil, checkout.ErrNoSavedData)
	mockService.On("SavedItinerary", mock.Anything, "u1", int64(4)).Return(json.RawMessage(`{"itinerary_id":4,"total_cost":120}`), nil)
	mockService.On("ExportCalendar", mock.Anything, "u1", int64(4)).Return("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/itineraries/3/saved", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/itineraries/4/saved", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"itinerary_id":4,"total_cost":120}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/itineraries/4/ics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "itinerary-4.ics")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/api/itineraries/abc/saved", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mockService.AssertExpectations(t)
}

func TestHandler_SendMessage(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectCall     bool
		mockReturn     *models.Message
		expectedStatus int
	}{
		{name: "sent", body: `{"content":"  hello "}`, expectCall: true, mockReturn: &models.Message{MessageID: 9, Content: "hello"}, expectedStatus: http.StatusCreated},
		{name: "blank", body: `{"content":"   "}`, expectedStatus: http.StatusBadRequest},
		{name: "no echo", body: `{"content":"hi"}`, expectCall: true, expectedStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))

			if tt.expectCall {
				mockService.On("SendMessage", mock.Anything, "u1", int64(3), mock.AnythingOfType("string")).Return(tt.mockReturn, nil)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/chat/conversations/3/messages", []byte(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.name == "sent" {
				mockService.AssertCalled(t, "SendMessage", mock.Anything, "u1", int64(3), "hello")
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_PromoteStaged(t *testing.T) {
	mockService := new(mocks.MockService)
	router := setupTestRouter(newTestHandler(mockService, nil))

	mockService.On("PromoteStaged", mock.Anything, "u1", []int(nil)).Return([]models.PendingItem{}, nil).Once()
	mockService.On("PromoteStaged", mock.Anything, "u1", []int{0, 2}).Return([]models.PendingItem{{}, {}}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/ai/staged/promote", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/ai/staged/promote", []byte(`{"indexes":[0,2]}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	mockService.AssertExpectations(t)
}

func TestHandler_ConversationSocket(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	mockService := new(mocks.MockService)
	srv := httptest.NewServer(setupTestRouter(newTestHandler(mockService, hub)))
	t.Cleanup(srv.Close)

	var released atomic.Int32
	msgs := []models.Message{{MessageID: 1, ConversationID: 3, Content: "hi"}}
	mockService.On("FollowConversation", mock.Anything, "u1", int64(3)).
		Return(service.NewSubscription(3, msgs, func() { released.Add(1) }), nil)
	mockService.On("FollowConversation", mock.Anything, "u1", int64(4)).
		Return(nil, &upstream.APIError{Status: http.StatusForbidden, Message: "Not a participant"})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/conversations/3/ws?session=sid-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var push chat.Push
	require.NoError(t, conn.ReadJSON(&push))
	assert.Equal(t, chat.PushTypeMessages, push.Type)
	assert.Equal(t, int64(3), push.ConversationID)
	assert.Equal(t, msgs, push.Messages)

	conn.Close()
	assert.Eventually(t, func() bool { return released.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	forbiddenURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/conversations/4/ws?session=sid-1"
	_, resp, err := websocket.DefaultDialer.Dial(forbiddenURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	mockService.AssertExpectations(t)
}

func TestHandler_DeleteItinerary(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{name: "deleted", target: "/api/itineraries/4", expectCall: true, expectedStatus: http.StatusOK},
		{name: "not found upstream", target: "/api/itineraries/9", mockError: &upstream.APIError{Status: http.StatusNotFound, Message: "Itinerary not found"}, expectCall: true, expectedStatus: http.StatusNotFound},
		{name: "bad id", target: "/api/itineraries/abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))
			if tt.expectCall {
				mockService.On("DeleteItinerary", mock.Anything, "u1", mock.AnythingOfType("int64")).Return(tt.mockError)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodDelete, tt.target, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_AddItineraryItem(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectCall     bool
		expectedStatus int
	}{
		{name: "added", body: `{"item_type":"attraction","item_name":"Louvre","estimated_cost":20}`, expectCall: true, expectedStatus: http.StatusCreated},
		{name: "unknown kind", body: `{"item_type":"boat","item_name":"Seine cruise"}`, expectedStatus: http.StatusBadRequest},
		{name: "missing name", body: `{"item_type":"hotel"}`, expectedStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockService)
			router := setupTestRouter(newTestHandler(mockService, nil))
			if tt.expectCall {
				mockService.On("AddItineraryItem", mock.Anything, "u1", int64(3), mock.AnythingOfType("upstream.AddItemRequest")).
					Return(&models.ItineraryItem{ItemName: "Louvre"}, nil)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(http.MethodPost, "/api/itineraries/3/items", []byte(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}
