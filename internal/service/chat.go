package service

import (
	"context"
	"errors"
	"sync"

	"github.com/cx-tal-miterani/trip-planner/internal/chat"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.uber.org/zap"
)

// ErrClosed is returned by FollowConversation after Close.
var ErrClosed = errors.New("planner service closed")

// Subscription is a WebSocket subscriber's hold on a followed conversation
type Subscription struct {
	ConversationID int64
	// Messages is the conversation as the subscriber is allowed to see it now.
	Messages []models.Message
	release  func()
	once     sync.Once
}

// NewSubscription builds a Subscription; release may be nil.
func NewSubscription(conversationID int64, msgs []models.Message, release func()) *Subscription {
	return &Subscription{ConversationID: conversationID, Messages: msgs, release: release}
}

// Release drops the hold. The conversation stops being followed when the last
// subscriber releases it.
func (s *Subscription) Release() {
	if s.release != nil {
		s.once.Do(s.release)
	}
}

// follower polls one conversation for every subscriber of it
type follower struct {
	session *chat.Session
	cancel  context.CancelFunc
	refs    int
}

func (s *plannerServiceImpl) Conversations(ctx context.Context, user string) ([]models.Conversation, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.ListConversations(actx)
}

func (s *plannerServiceImpl) StartConversation(ctx context.Context, user string, otherUserID int64) (int64, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return 0, err
	}
	return s.client.CreateConversation(actx, otherUserID)
}

func (s *plannerServiceImpl) Messages(ctx context.Context, user string, conversationID int64) ([]models.Message, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.GetMessages(actx, conversationID)
}

// SendMessage posts a message. A followed conversation goes through its
// follower so subscribers see the message without waiting for the next poll.
func (s *plannerServiceImpl) SendMessage(ctx context.Context, user string, conversationID int64, content string) (*models.Message, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	f := s.followers[conversationID]
	s.mu.Unlock()
	if f != nil {
		return f.session.Send(actx, content)
	}
	return s.client.PostMessage(actx, conversationID, content)
}

func (s *plannerServiceImpl) MarkRead(ctx context.Context, user string, conversationID int64) (int, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return 0, err
	}
	return s.client.MarkRead(actx, conversationID)
}

// FollowConversation subscribes user to live updates of a conversation. The
// user's access is checked with a fetch, which also gives the snapshot. The
// first subscriber starts a follower polling with that user's session; updates
// go to the hub.
func (s *plannerServiceImpl) FollowConversation(ctx context.Context, user string, conversationID int64) (*Subscription, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.client.GetMessages(actx, conversationID)
	if err != nil {
		return nil, err
	}

	if f, err := s.join(conversationID, nil); f != nil || err != nil {
		return s.subscription(conversationID, snapshot, f), err
	}

	// start a follower without holding the lock; its first fetch is a network call
	fctx, cancel := context.WithCancel(context.WithoutCancel(actx))
	sess := chat.NewSession(s.client,
		chat.WithPollInterval(s.chatPoll),
		chat.OnUpdate(s.broadcast),
	)
	if err := sess.Select(fctx, conversationID); err != nil {
		cancel()
		return nil, err
	}
	fresh := &follower{session: sess, cancel: cancel}

	f, err := s.join(conversationID, fresh)
	if f != fresh {
		// another subscriber started one first, or the service closed
		sess.Close()
		cancel()
	} else {
		s.log.Info("following conversation", zap.Int64("conversation_id", conversationID), zap.String("user", user))
	}
	if err != nil {
		return nil, err
	}
	return s.subscription(conversationID, snapshot, f), nil
}

// join takes a reference on the conversation's follower. With no follower
// running, fresh is installed; a nil fresh leaves the map unchanged.
func (s *plannerServiceImpl) join(conversationID int64, fresh *follower) (*follower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	f := s.followers[conversationID]
	if f == nil {
		if fresh == nil {
			return nil, nil
		}
		f = fresh
		s.followers[conversationID] = f
	}
	f.refs++
	return f, nil
}

func (s *plannerServiceImpl) subscription(conversationID int64, snapshot []models.Message, f *follower) *Subscription {
	if f == nil {
		return nil
	}
	return NewSubscription(conversationID, snapshot, func() { s.unfollow(conversationID, f) })
}

// Close stops every conversation follower. Later subscribes fail with ErrClosed.
func (s *plannerServiceImpl) Close() {
	s.mu.Lock()
	s.closed = true
	followers := s.followers
	s.followers = make(map[int64]*follower)
	s.mu.Unlock()

	for id, f := range followers {
		f.session.Close()
		f.cancel()
		s.log.Info("stopped following conversation", zap.Int64("conversation_id", id))
	}
}

func (s *plannerServiceImpl) unfollow(conversationID int64, f *follower) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.followers[conversationID] != f {
		return
	}
	f.refs--
	if f.refs > 0 {
		return
	}
	delete(s.followers, conversationID)
	f.session.Close()
	f.cancel()
	s.log.Info("stopped following conversation", zap.Int64("conversation_id", conversationID))
}

func (s *plannerServiceImpl) broadcast(conversationID int64, msgs []models.Message) {
	if s.hub != nil {
		s.hub.BroadcastMessages(conversationID, msgs)
	}
}
