package kvstore

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory. Entries never expire.
type MemoryStore struct {
	c  *cache.Cache
	mu sync.Mutex // serializes Update
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current string
	v, found := s.c.Get(key)
	if found {
		current = v.(string)
	}
	next, keep, err := fn(current, found)
	if err != nil {
		return err
	}
	if !keep {
		s.c.Delete(key)
		return nil
	}
	s.c.Set(key, next, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
