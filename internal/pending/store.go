// Package pending keeps the per-user queue of items added to a trip but not yet
// committed to a server itinerary.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const keyPrefix = "pending_items"

var (
	ErrIndexOutOfRange = errors.New("pending item index out of range")
	ErrInvalidItem     = errors.New("invalid pending item")
)

// Store is an ordered queue per user, kept as one serialized array in a kvstore.
// Every mutation rewrites the whole array inside one kvstore Update, so
// concurrent requests and workers never lose each other's changes.
type Store struct {
	kv  kvstore.Store
	now func() time.Time
	log *zap.Logger
}

// NewStore creates a Store backed by kv.
func NewStore(kv kvstore.Store) *Store {
	return &Store{
		kv:  kv,
		now: time.Now,
		log: logger.Named("pending"),
	}
}

func key(user string) string {
	return kvstore.Key(keyPrefix, user)
}

// List returns the user's pending items in insertion order. Malformed stored data
// reads as an empty queue.
func (s *Store) List(ctx context.Context, user string) ([]models.PendingItem, error) {
	raw, err := s.kv.Get(ctx, key(user))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return []models.PendingItem{}, nil
		}
		return nil, err
	}
	var items []models.PendingItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("discarding malformed pending items", zap.String("user", user), zap.Error(err))
		return []models.PendingItem{}, nil
	}
	if items == nil {
		items = []models.PendingItem{}
	}
	return items, nil
}

// Add appends item and assigns it an id. Duplicates are kept.
func (s *Store) Add(ctx context.Context, user string, item models.PendingItem) (models.PendingItem, error) {
	if !item.Kind.Valid() {
		return item, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, item.Kind)
	}
	if len(item.Payload) == 0 || !json.Valid(item.Payload) {
		return item, fmt.Errorf("%w: payload must be a JSON record", ErrInvalidItem)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now().UTC()
	}

	err := s.update(ctx, user, func(items []models.PendingItem) ([]models.PendingItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return item, err
	}
	return item, nil
}

// Remove deletes the item at index and rewrites the queue. Removing the last item
// deletes the key so the store returns to its pristine state.
func (s *Store) Remove(ctx context.Context, user string, index int) error {
	return s.update(ctx, user, func(items []models.PendingItem) ([]models.PendingItem, error) {
		if index < 0 || index >= len(items) {
			return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(items))
		}
		return append(items[:index], items[index+1:]...), nil
	})
}

// RemoveRefs deletes the items whose Ref is in refs and keeps everything else,
// including items added after refs were taken.
func (s *Store) RemoveRefs(ctx context.Context, user string, refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		drop[r] = struct{}{}
	}
	return s.update(ctx, user, func(items []models.PendingItem) ([]models.PendingItem, error) {
		return lo.Reject(items, func(it models.PendingItem, _ int) bool {
			_, ok := drop[it.Ref()]
			return ok
		}), nil
	})
}

// Refs returns the refs of items in queue order.
func Refs(items []models.PendingItem) []string {
	return lo.Map(items, func(it models.PendingItem, _ int) string { return it.Ref() })
}

// Clear deletes the user's queue.
func (s *Store) Clear(ctx context.Context, user string) error {
	return s.kv.Remove(ctx, key(user))
}

// update rewrites the queue atomically. An empty result deletes the key.
func (s *Store) update(ctx context.Context, user string, fn func([]models.PendingItem) ([]models.PendingItem, error)) error {
	return kvstore.UpdateJSON(ctx, s.kv, key(user), func(items *[]models.PendingItem, found bool) (bool, error) {
		next, err := fn(*items)
		if err != nil {
			return false, err
		}
		*items = next
		return len(next) > 0, nil
	})
}
