package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often a conversation is fetched without a push stream.
const DefaultPollInterval = 3 * time.Second

var ErrNoConversation = errors.New("no conversation selected")

// Backend fetches and posts messages.
type Backend interface {
	GetMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	PostMessage(ctx context.Context, conversationID int64, content string) (*models.Message, error)
}

// Stream delivers message lists pushed for one conversation.
type Stream interface {
	Next(ctx context.Context) ([]models.Message, error)
	Close() error
}

// Dialer opens a push stream for a conversation.
type Dialer func(ctx context.Context, conversationID int64) (Stream, error)

// Option customizes a Session.
type Option func(*Session)

// WithPollInterval sets the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDialer makes the session prefer a push stream, polling only when the
// stream cannot be opened or breaks.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

// OnUpdate registers fn to be called with the new message list whenever it changes.
func OnUpdate(fn func(conversationID int64, msgs []models.Message)) Option {
	return func(s *Session) { s.onUpdate = fn }
}

// Session follows at most one conversation at a time
type Session struct {
	backend  Backend
	interval time.Duration
	dial     Dialer
	onUpdate func(int64, []models.Message)
	log      *zap.Logger

	mu       sync.Mutex
	convID   int64
	gen      uint64
	messages []models.Message
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSession creates an idle Session.
func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		interval: DefaultPollInterval,
		log:      logger.Named("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select switches to conversationID: the previous follower is stopped, the
// messages are fetched once and a follower is started. ctx bounds the follower.
func (s *Session) Select(ctx context.Context, conversationID int64) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.convID = conversationID
	s.messages = nil
	prevCancel, prevDone := s.detachLocked()
	s.mu.Unlock()
	halt(prevCancel, prevDone)

	if _, err := s.refresh(ctx, gen); err != nil {
		return err
	}

	fctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	if s.gen != gen {
		// a later Select or Close owns the session now
		s.mu.Unlock()
		cancel()
		return nil
	}
	// the gen bump and the detach happen under one lock, so nothing newer is installed here
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.follow(fctx, gen, conversationID)
	}()
	return nil
}

// ConversationID returns the selected conversation, or 0.
func (s *Session) ConversationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID
}

// Messages returns the held messages.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send posts content to the selected conversation. The created message is
// appended right away; when the server does not echo it the conversation is
// fetched again instead.
func (s *Session) Send(ctx context.Context, content string) (*models.Message, error) {
	s.mu.Lock()
	convID, gen := s.convID, s.gen
	s.mu.Unlock()
	if convID == 0 {
		return nil, ErrNoConversation
	}

	msg, err := s.backend.PostMessage(ctx, convID, content)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		_, err := s.refresh(ctx, gen)
		return nil, err
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return msg, nil
	}
	var changed bool
	s.messages, changed = appendNew(s.messages, *msg)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(convID, snapshot)
	}
	return msg, nil
}

// Refresh fetches the selected conversation once and reports whether the held
// messages changed.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	gen, convID := s.gen, s.convID
	s.mu.Unlock()
	if convID == 0 {
		return false, ErrNoConversation
	}
	return s.refresh(ctx, gen)
}

// Close stops following.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	s.convID = 0
	s.messages = nil
	cancel, done := s.detachLocked()
	s.mu.Unlock()
	halt(cancel, done)
}

func (s *Session) detachLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	return cancel, done
}

func halt(cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Session) refresh(ctx context.Context, gen uint64) (bool, error) {
	s.mu.Lock()
	convID := s.convID
	s.mu.Unlock()

	fetched, err := s.backend.GetMessages(ctx, convID)
	if err != nil {
		return false, err
	}
	return s.apply(gen, convID, fetched), nil
}

// apply merges fetched into the held messages if gen is still current.
func (s *Session) apply(gen uint64, convID int64, fetched []models.Message) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	var changed bool
	if s.messages == nil {
		// first fetch initializes, even when empty
		s.messages, changed = fetched, true
		if s.messages == nil {
			s.messages = []models.Message{}
		}
	} else {
		s.messages, changed = Merge(s.messages, fetched)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(convID, snapshot)
	}
	return changed
}

func (s *Session) snapshotLocked() []models.Message {
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) notify(convID int64, msgs []models.Message) {
	if s.onUpdate != nil {
		s.onUpdate(convID, msgs)
	}
}

func (s *Session) follow(ctx context.Context, gen uint64, convID int64) {
	if s.dial != nil {
		if err := s.followStream(ctx, gen, convID); err != nil && ctx.Err() == nil {
			s.log.Info("push stream unavailable, polling instead",
				zap.Int64("conversation_id", convID), zap.Error(err))
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.poll(ctx, gen)
}

func (s *Session) followStream(ctx context.Context, gen uint64, convID int64) error {
	stream, err := s.dial(ctx, convID)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		msgs, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		s.apply(gen, convID, msgs)
	}
}

func (s *Session) poll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.refresh(ctx, gen); err != nil && ctx.Err() == nil {
				// background refresh; the next tick tries again
				s.log.Warn("chat poll failed", zap.Error(err))
			}
		}
	}
}
