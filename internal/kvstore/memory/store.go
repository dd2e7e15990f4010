// Package memory implements an in-process kvstore.Store. It suits a single
// replica deployment and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

type Store struct {
	// mu makes Take atomic with respect to the other operations.
	mu    sync.Mutex
	cache *gocache.Cache
}

var _ kvstore.Store = (*Store)(nil)

// NewStore creates a store that purges expired entries every cleanupInterval.
func NewStore(cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, bytes.Clone(value), ttl)

	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(key)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(key)

	return nil
}

func (s *Store) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.get(key)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(key)

	return value, nil
}

func (s *Store) get(key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, serviceerr.ErrNotFound)
	}

	value, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("key %q holds %T", key, v)
	}

	return bytes.Clone(value), nil
}
