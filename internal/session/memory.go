package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/capitalize-ai/educhat/internal/model"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory store. A ttl of zero keeps sessions
// until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, ttl/2
	}
	return &MemoryStore{cache: cache.New(expiration, cleanup)}
}

// Get returns the session for key.
func (s *MemoryStore) Get(_ context.Context, key string) (model.Session, error) {
	if key == "" {
		return model.Session{}, ErrEmptyKey
	}
	if x, found := s.cache.Get(key); found {
		return x.(model.Session), nil
	}
	return newSession(key), nil
}

// Put stores the session under key.
func (s *MemoryStore) Put(_ context.Context, key string, sess model.Session) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.cache.Set(key, sess, cache.DefaultExpiration)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
