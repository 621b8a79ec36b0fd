// Package service is the business layer behind the HTTP handlers. It ties the
// per-user stores to the backend client and owns the shared chat followers.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/export"
	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/search"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// PlannerService defines the trip planner service interface
type PlannerService interface {
	ListPending(ctx context.Context, user string) ([]models.PendingItem, error)
	AddPending(ctx context.Context, user string, item models.PendingItem) (models.PendingItem, error)
	RemovePending(ctx context.Context, user string, index int) error
	ClearPending(ctx context.Context, user string) error

	CurrentItinerary(ctx context.Context, user string) (*models.CurrentItinerary, error)
	SetCurrentItinerary(ctx context.Context, user string, cur models.CurrentItinerary) error
	Itineraries(ctx context.Context, user string) ([]models.Itinerary, error)
	DeleteItinerary(ctx context.Context, user string, itineraryID int64) error
	ItineraryItems(ctx context.Context, user string, itineraryID int64) ([]models.ItineraryItem, error)
	AddItineraryItem(ctx context.Context, user string, itineraryID int64, item upstream.AddItemRequest) (*models.ItineraryItem, error)
	Budget(ctx context.Context, user string, itineraryID int64) (*models.Budget, error)

	Search(ctx context.Context, user string, category models.Category, params url.Values) (search.Results, error)

	Checkout(ctx context.Context, user string, req checkout.Request) (*models.CheckoutResult, error)
	SavedItinerary(ctx context.Context, user string, itineraryID int64) (json.RawMessage, error)
	ExportCalendar(ctx context.Context, user string, itineraryID int64) (string, error)

	Conversations(ctx context.Context, user string) ([]models.Conversation, error)
	StartConversation(ctx context.Context, user string, otherUserID int64) (int64, error)
	Messages(ctx context.Context, user string, conversationID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, user string, conversationID int64, content string) (*models.Message, error)
	MarkRead(ctx context.Context, user string, conversationID int64) (int, error)
	FollowConversation(ctx context.Context, user string, conversationID int64) (*Subscription, error)

	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	ResolveSession(ctx context.Context, sessionID string) (string, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, user string) (*models.User, error)

	GenerateItinerary(ctx context.Context, user string, req models.GenerateItineraryRequest) (json.RawMessage, error)
	RecommendAttractions(ctx context.Context, user, destination string) ([]models.Recommendation, error)
	StagedRecommendations(ctx context.Context, user string) ([]models.Recommendation, error)
	PromoteStaged(ctx context.Context, user string, indexes []int) ([]models.PendingItem, error)

	FindCompanions(ctx context.Context, user string, q models.CompanionQuery) ([]models.CompanionMatch, error)
	Matches(ctx context.Context, user string) ([]models.CompanionMatch, error)
	Connect(ctx context.Context, user string, otherUserID int64, score float64) (int64, error)

	// Close stops background work such as conversation followers.
	Close()
}

// Broadcaster pushes conversation updates to subscribers.
type Broadcaster interface {
	BroadcastMessages(conversationID int64, msgs []models.Message)
}

// Deps are the collaborators of the service
type Deps struct {
	KV        kvstore.Store
	Client    *upstream.Client
	Search    *search.Orchestrator
	Checkout  *checkout.Checkout
	Pending   *pending.Store
	Sessions  *session.Store
	Hub       Broadcaster
	Temporal  client.Client // optional; checkout runs in-process without it
	TaskQueue string
	ChatPoll  time.Duration
}

// plannerServiceImpl implements PlannerService
type plannerServiceImpl struct {
	kv        kvstore.Store
	client    *upstream.Client
	search    *search.Orchestrator
	checkout  *checkout.Checkout
	pending   *pending.Store
	sessions  *session.Store
	hub       Broadcaster
	temporal  client.Client
	taskQueue string
	chatPoll  time.Duration
	now       func() time.Time
	log       *zap.Logger

	mu        sync.Mutex
	followers map[int64]*follower
	closed    bool
}

// NewPlannerService creates a new PlannerService
func NewPlannerService(d Deps) PlannerService {
	return &plannerServiceImpl{
		kv:        d.KV,
		client:    d.Client,
		search:    d.Search,
		checkout:  d.Checkout,
		pending:   d.Pending,
		sessions:  d.Sessions,
		hub:       d.Hub,
		temporal:  d.Temporal,
		taskQueue: d.TaskQueue,
		chatPoll:  d.ChatPoll,
		now:       time.Now,
		log:       logger.Named("service"),
		followers: make(map[int64]*follower),
	}
}

// authorized attaches the user's cached token to ctx.
func (s *plannerServiceImpl) authorized(ctx context.Context, user string) (context.Context, error) {
	return s.sessions.Authorize(ctx, user)
}

func (s *plannerServiceImpl) ListPending(ctx context.Context, user string) ([]models.PendingItem, error) {
	return s.pending.List(ctx, user)
}

func (s *plannerServiceImpl) AddPending(ctx context.Context, user string, item models.PendingItem) (models.PendingItem, error) {
	return s.pending.Add(ctx, user, item)
}

func (s *plannerServiceImpl) RemovePending(ctx context.Context, user string, index int) error {
	return s.pending.Remove(ctx, user, index)
}

func (s *plannerServiceImpl) ClearPending(ctx context.Context, user string) error {
	return s.pending.Clear(ctx, user)
}

func (s *plannerServiceImpl) CurrentItinerary(ctx context.Context, user string) (*models.CurrentItinerary, error) {
	return s.checkout.Current(ctx, user)
}

// SetCurrentItinerary selects an itinerary to commit into. A non-zero id must
// exist on the server; its title and destination fill in what the caller left out.
func (s *plannerServiceImpl) SetCurrentItinerary(ctx context.Context, user string, cur models.CurrentItinerary) error {
	if cur.ItineraryID != 0 {
		actx, err := s.authorized(ctx, user)
		if err != nil {
			return err
		}
		it, err := s.client.GetItinerary(actx, cur.ItineraryID)
		if err != nil {
			return err
		}
		if cur.Title == "" {
			cur.Title = it.Title
		}
		if cur.Destination == "" {
			cur.Destination = it.Destination
		}
	}
	return s.checkout.SetCurrent(ctx, user, cur)
}

func (s *plannerServiceImpl) Itineraries(ctx context.Context, user string) ([]models.Itinerary, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.ListItineraries(actx)
}

// DeleteItinerary deletes a server itinerary and forgets the local caches
// that point at it.
func (s *plannerServiceImpl) DeleteItinerary(ctx context.Context, user string, itineraryID int64) error {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return err
	}
	if err := s.client.DeleteItinerary(actx, itineraryID); err != nil {
		return err
	}
	return s.checkout.Forget(ctx, user, itineraryID)
}

func (s *plannerServiceImpl) ItineraryItems(ctx context.Context, user string, itineraryID int64) ([]models.ItineraryItem, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.ListItems(actx, itineraryID)
}

// AddItineraryItem adds one item straight to a server itinerary, bypassing the
// pending queue.
func (s *plannerServiceImpl) AddItineraryItem(ctx context.Context, user string, itineraryID int64, item upstream.AddItemRequest) (*models.ItineraryItem, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.AddItem(actx, itineraryID, item)
}

func (s *plannerServiceImpl) Budget(ctx context.Context, user string, itineraryID int64) (*models.Budget, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.Budget(actx, itineraryID)
}

// Search runs a search scoped to the user, so each user's latest results per
// category are tracked separately.
func (s *plannerServiceImpl) Search(ctx context.Context, user string, category models.Category, params url.Values) (search.Results, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return search.Results{}, err
	}
	return s.search.Run(actx, user, category, params)
}

func (s *plannerServiceImpl) SavedItinerary(ctx context.Context, user string, itineraryID int64) (json.RawMessage, error) {
	return s.checkout.Saved(ctx, user, itineraryID)
}

// ExportCalendar renders the cached save response of an itinerary as iCalendar.
func (s *plannerServiceImpl) ExportCalendar(ctx context.Context, user string, itineraryID int64) (string, error) {
	raw, err := s.checkout.Saved(ctx, user, itineraryID)
	if err != nil {
		return "", err
	}
	var saved models.SavedItinerary
	if err := json.Unmarshal(raw, &saved); err != nil {
		return "", fmt.Errorf("%w: %v", checkout.ErrNoSavedData, err)
	}
	if saved.ItineraryID == 0 {
		saved.ItineraryID = itineraryID
	}
	return export.ICS(saved, s.now()), nil
}

// IsNotFound reports whether err means the requested thing does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, checkout.ErrNoSavedData) || upstream.IsNotFound(err)
}
