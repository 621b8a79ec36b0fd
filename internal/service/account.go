package service

import (
	"context"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.uber.org/zap"
)

// Login signs in to the backend and opens a session for the user it returns.
func (s *plannerServiceImpl) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	sess, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, sess)
}

// Register creates a backend account and opens a session for it.
func (s *plannerServiceImpl) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	sess, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, sess)
}

func (s *plannerServiceImpl) open(ctx context.Context, sess *models.Session) (*models.AuthResult, error) {
	sid, user, err := s.sessions.Open(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.log.Info("session opened", zap.String("user", user))
	return &models.AuthResult{SessionID: sid, User: sess.User}, nil
}

// ResolveSession returns the user key a session id was issued for.
func (s *plannerServiceImpl) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	return s.sessions.Resolve(ctx, sessionID)
}

func (s *plannerServiceImpl) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.End(ctx, sessionID)
}

func (s *plannerServiceImpl) Me(ctx context.Context, user string) (*models.User, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.Me(actx)
}

func (s *plannerServiceImpl) FindCompanions(ctx context.Context, user string, q models.CompanionQuery) ([]models.CompanionMatch, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.FindCompanions(actx, q)
}

func (s *plannerServiceImpl) Matches(ctx context.Context, user string) ([]models.CompanionMatch, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.Matches(actx)
}

func (s *plannerServiceImpl) Connect(ctx context.Context, user string, otherUserID int64, score float64) (int64, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return 0, err
	}
	return s.client.Connect(actx, otherUserID, score)
}
