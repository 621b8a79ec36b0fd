// Package kvstore is the injectable key-value store that holds per-user client state
// (pending items, current itinerary, saved itinerary data, staged recommendations).
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/internal/config"
)

var (
	ErrNotFound       = errors.New("key not found")
	ErrUnknownBackend = errors.New("unknown kv backend")
	ErrMalformed      = errors.New("malformed value")
)

// UpdateFunc receives the current value of a key (found is false when it is
// absent) and returns the value to store. keep=false removes the key.
// It must not call back into the store.
type UpdateFunc func(current string, found bool) (next string, keep bool, err error)

// Store gets, sets and removes string values by key.
// Remove of a missing key is not an error. Update applies fn atomically with
// respect to other Updates of the same key, across processes for the shared
// backends.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// UpdateJSON decodes the value at key into a fresh T, lets fn change it and
// writes it back atomically. Malformed data is handed to fn as the zero value.
// fn returns keep=false to delete the key.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T, found bool) (keep bool, err error)) error {
	return s.Update(ctx, key, func(current string, found bool) (string, bool, error) {
		var v T
		if found {
			if err := json.Unmarshal([]byte(current), &v); err != nil {
				found = false
			}
		}
		keep, err := fn(&v, found)
		if err != nil || !keep {
			return "", keep, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", false, fmt.Errorf("encode %s: %w", key, err)
		}
		return string(data), true, nil
	})
}

// Open builds the backend named in cfg.
func Open(ctx context.Context, cfg config.KVConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DSN)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.Namespace)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.Namespace)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// GetJSON decodes the value at key into v. It returns ErrNotFound for a missing key
// and ErrMalformed for undecodable data; callers decide whether to fail open.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// Key builds a per-user key such as "pending_items:42".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
