// Package session caches each user's backend login, attaches it to outgoing
// calls and binds opaque session ids to the user they were issued for.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	keyPrefix   = "session"
	idKeyPrefix = "session_id"
)

var (
	ErrUnknownSession = errors.New("unknown or ended session")
	ErrNoUser         = errors.New("login response carries no user")
)

// Store keeps sessions in a kvstore
type Store struct {
	kv  kvstore.Store
	log *zap.Logger
}

// NewStore creates a session Store.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv, log: logger.Named("session")}
}

func key(user string) string {
	return kvstore.Key(keyPrefix, user)
}

// Get returns the cached session, or nil when none is cached or it is unreadable.
func (s *Store) Get(ctx context.Context, user string) (*models.Session, error) {
	var sess models.Session
	err := kvstore.GetJSON(ctx, s.kv, key(user), &sess)
	switch {
	case err == nil:
		return &sess, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return nil, nil
	case errors.Is(err, kvstore.ErrMalformed):
		s.log.Warn("discarding malformed session", zap.String("user", user), zap.Error(err))
		return nil, nil
	default:
		return nil, err
	}
}

// Set caches sess for user.
func (s *Store) Set(ctx context.Context, user string, sess *models.Session) error {
	return kvstore.SetJSON(ctx, s.kv, key(user), sess)
}

// Clear forgets user's session.
func (s *Store) Clear(ctx context.Context, user string) error {
	return s.kv.Remove(ctx, key(user))
}

// Authorize returns ctx carrying user's access token for upstream calls. Without
// a cached session ctx is returned unchanged and the backend decides.
func (s *Store) Authorize(ctx context.Context, user string) (context.Context, error) {
	sess, err := s.Get(ctx, user)
	if err != nil {
		return ctx, err
	}
	if sess == nil || sess.AccessToken == "" {
		return ctx, nil
	}
	return upstream.WithToken(ctx, sess.AccessToken), nil
}

// UserKey is the state key of a backend user.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func idKey(sessionID string) string {
	return kvstore.Key(idKeyPrefix, sessionID)
}

// Open caches sess under the backend user it belongs to and issues a new
// session id bound to that user. The user key comes from the backend's answer,
// never from the caller.
func (s *Store) Open(ctx context.Context, sess *models.Session) (sessionID, user string, err error) {
	if sess == nil || sess.User == nil || sess.User.UserID <= 0 {
		return "", "", ErrNoUser
	}
	user = UserKey(sess.User.UserID)
	if err := s.Set(ctx, user, sess); err != nil {
		return "", "", fmt.Errorf("cache session: %w", err)
	}
	sessionID = uuid.NewString()
	if err := s.kv.Set(ctx, idKey(sessionID), user); err != nil {
		return "", "", fmt.Errorf("bind session id: %w", err)
	}
	return sessionID, user, nil
}

// Resolve returns the user key bound to sessionID.
func (s *Store) Resolve(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrUnknownSession
	}
	user, err := s.kv.Get(ctx, idKey(sessionID))
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && user == "") {
		return "", ErrUnknownSession
	}
	if err != nil {
		return "", err
	}
	return user, nil
}

// End revokes sessionID and forgets the login cached for its user.
func (s *Store) End(ctx context.Context, sessionID string) error {
	user, err := s.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.kv.Remove(ctx, idKey(sessionID)); err != nil {
		return err
	}
	return s.Clear(ctx, user)
}
