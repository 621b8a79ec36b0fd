package mocks

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/search"
	"github.com/cx-tal-miterani/trip-planner/internal/service"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of service.PlannerService
type MockService struct {
	mock.Mock
}

var _ service.PlannerService = (*MockService)(nil)

func (m *MockService) ListPending(ctx context.Context, user string) ([]models.PendingItem, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingItem), args.Error(1)
}

func (m *MockService) AddPending(ctx context.Context, user string, item models.PendingItem) (models.PendingItem, error) {
	args := m.Called(ctx, user, item)
	return args.Get(0).(models.PendingItem), args.Error(1)
}

func (m *MockService) RemovePending(ctx context.Context, user string, index int) error {
	args := m.Called(ctx, user, index)
	return args.Error(0)
}

func (m *MockService) ClearPending(ctx context.Context, user string) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockService) CurrentItinerary(ctx context.Context, user string) (*models.CurrentItinerary, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CurrentItinerary), args.Error(1)
}

func (m *MockService) SetCurrentItinerary(ctx context.Context, user string, cur models.CurrentItinerary) error {
	args := m.Called(ctx, user, cur)
	return args.Error(0)
}

func (m *MockService) Itineraries(ctx context.Context, user string) ([]models.Itinerary, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Itinerary), args.Error(1)
}

func (m *MockService) DeleteItinerary(ctx context.Context, user string, itineraryID int64) error {
	args := m.Called(ctx, user, itineraryID)
	return args.Error(0)
}

func (m *MockService) ItineraryItems(ctx context.Context, user string, itineraryID int64) ([]models.ItineraryItem, error) {
	args := m.Called(ctx, user, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ItineraryItem), args.Error(1)
}

func (m *MockService) AddItineraryItem(ctx context.Context, user string, itineraryID int64, item upstream.AddItemRequest) (*models.ItineraryItem, error) {
	args := m.Called(ctx, user, itineraryID, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItineraryItem), args.Error(1)
}

func (m *MockService) Budget(ctx context.Context, user string, itineraryID int64) (*models.Budget, error) {
	args := m.Called(ctx, user, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Budget), args.Error(1)
}

func (m *MockService) Search(ctx context.Context, user string, category models.Category, params url.Values) (search.Results, error) {
	args := m.Called(ctx, user, category, params)
	return args.Get(0).(search.Results), args.Error(1)
}

func (m *MockService) Checkout(ctx context.Context, user string, req checkout.Request) (*models.CheckoutResult, error) {
	args := m.Called(ctx, user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutResult), args.Error(1)
}

func (m *MockService) SavedItinerary(ctx context.Context, user string, itineraryID int64) (json.RawMessage, error) {
	args := m.Called(ctx, user, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockService) ExportCalendar(ctx context.Context, user string, itineraryID int64) (string, error) {
	args := m.Called(ctx, user, itineraryID)
	return args.String(0), args.Error(1)
}

func (m *MockService) Conversations(ctx context.Context, user string) ([]models.Conversation, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockService) StartConversation(ctx context.Context, user string, otherUserID int64) (int64, error) {
	args := m.Called(ctx, user, otherUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) Messages(ctx context.Context, user string, conversationID int64) ([]models.Message, error) {
	args := m.Called(ctx, user, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockService) SendMessage(ctx context.Context, user string, conversationID int64, content string) (*models.Message, error) {
	args := m.Called(ctx, user, conversationID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockService) MarkRead(ctx context.Context, user string, conversationID int64) (int, error) {
	args := m.Called(ctx, user, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *MockService) FollowConversation(ctx context.Context, user string, conversationID int64) (*service.Subscription, error) {
	args := m.Called(ctx, user, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Subscription), args.Error(1)
}

func (m *MockService) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func (m *MockService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func (m *MockService) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockService) Logout(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockService) Close() {
	m.Called()
}

func (m *MockService) Me(ctx context.Context, user string) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockService) GenerateItinerary(ctx context.Context, user string, req models.GenerateItineraryRequest) (json.RawMessage, error) {
	args := m.Called(ctx, user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockService) RecommendAttractions(ctx context.Context, user, destination string) ([]models.Recommendation, error) {
	args := m.Called(ctx, user, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *MockService) StagedRecommendations(ctx context.Context, user string) ([]models.Recommendation, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *MockService) PromoteStaged(ctx context.Context, user string, indexes []int) ([]models.PendingItem, error) {
	args := m.Called(ctx, user, indexes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingItem), args.Error(1)
}

func (m *MockService) FindCompanions(ctx context.Context, user string, q models.CompanionQuery) ([]models.CompanionMatch, error) {
	args := m.Called(ctx, user, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompanionMatch), args.Error(1)
}

func (m *MockService) Matches(ctx context.Context, user string) ([]models.CompanionMatch, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompanionMatch), args.Error(1)
}

func (m *MockService) Connect(ctx context.Context, user string, otherUserID int64, score float64) (int64, error) {
	args := m.Called(ctx, user, otherUserID, score)
	return args.Get(0).(int64), args.Error(1)
}
