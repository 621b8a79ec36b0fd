package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const stagingPrefix = "ai_staging"

func stagingKey(user string) string {
	return kvstore.Key(stagingPrefix, user)
}

func (s *plannerServiceImpl) GenerateItinerary(ctx context.Context, user string, req models.GenerateItineraryRequest) (json.RawMessage, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.GenerateItinerary(actx, req)
}

// RecommendAttractions asks for attractions that complement the pending ones
// and stages them. The staging buffer is replaced on every call.
func (s *plannerServiceImpl) RecommendAttractions(ctx context.Context, user, destination string) ([]models.Recommendation, error) {
	actx, err := s.authorized(ctx, user)
	if err != nil {
		return nil, err
	}
	items, err := s.pending.List(ctx, user)
	if err != nil {
		return nil, err
	}
	current := lo.FilterMap(items, func(it models.PendingItem, _ int) (string, bool) {
		if it.Kind != models.ItemKindAttraction {
			return "", false
		}
		var a models.Attraction
		if err := json.Unmarshal(it.Payload, &a); err != nil {
			return "", false
		}
		a.Normalize()
		return a.Name, a.Name != ""
	})

	recs, err := s.client.RecommendAttractions(actx, destination, current)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	if err := kvstore.SetJSON(ctx, s.kv, stagingKey(user), recs); err != nil {
		return nil, fmt.Errorf("stage recommendations: %w", err)
	}
	return recs, nil
}

// StagedRecommendations returns the staged recommendations. Malformed data
// reads as an empty buffer.
func (s *plannerServiceImpl) StagedRecommendations(ctx context.Context, user string) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	err := kvstore.GetJSON(ctx, s.kv, stagingKey(user), &recs)
	switch {
	case err == nil:
		if recs == nil {
			recs = []models.Recommendation{}
		}
		return recs, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return []models.Recommendation{}, nil
	case errors.Is(err, kvstore.ErrMalformed):
		s.log.Warn("discarding malformed staging buffer", zap.String("user", user), zap.Error(err))
		return []models.Recommendation{}, nil
	default:
		return nil, err
	}
}

// PromoteStaged moves staged recommendations into the pending store as
// attractions. No indexes promotes all of them. The recommendation's cost
// travels in the payload and is used as the item price at checkout.
func (s *plannerServiceImpl) PromoteStaged(ctx context.Context, user string, indexes []int) ([]models.PendingItem, error) {
	recs, err := s.StagedRecommendations(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		indexes = lo.Range(len(recs))
	}
	indexes = lo.Uniq(indexes)
	for _, i := range indexes {
		if i < 0 || i >= len(recs) {
			return nil, fmt.Errorf("%w: %d", pending.ErrIndexOutOfRange, i)
		}
	}

	added := make([]models.PendingItem, 0, len(indexes))
	for _, i := range indexes {
		payload, err := json.Marshal(recs[i])
		if err != nil {
			return added, err
		}
		item, err := s.pending.Add(ctx, user, models.PendingItem{Kind: models.ItemKindAttraction, Payload: payload})
		if err != nil {
			return added, err
		}
		added = append(added, item)
	}

	rest := lo.Reject(recs, func(_ models.Recommendation, i int) bool { return lo.Contains(indexes, i) })
	if len(rest) == 0 {
		err = s.kv.Remove(ctx, stagingKey(user))
	} else {
		err = kvstore.SetJSON(ctx, s.kv, stagingKey(user), rest)
	}
	if err != nil {
		return added, fmt.Errorf("update staging buffer: %w", err)
	}
	return added, nil
}
