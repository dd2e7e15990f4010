package kvstoremock

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

type StoreOption func(*Store)

type entry struct {
	value  []byte
	expiry time.Time
}

// Store is an in-memory kvstore.Store with injectable failures and clock.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	setErr, getErr, deleteErr, takeErr error
}

var _ kvstore.Store = (*Store)(nil)

func WithEntry(key string, value []byte) StoreOption {
	return func(s *Store) { s.entries[key] = entry{value: value} }
}
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}
func WithSetError(err error) StoreOption {
	return func(s *Store) { s.setErr = err }
}
func WithGetError(err error) StoreOption {
	return func(s *Store) { s.getErr = err }
}
func WithDeleteError(err error) StoreOption {
	return func(s *Store) { s.deleteErr = err }
}
func WithTakeError(err error) StoreOption {
	return func(s *Store) { s.takeErr = err }
}

func NewInMemStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return s.setErr
	}

	e := entry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expiry = s.now().Add(ttl)
	}
	s.entries[key] = e

	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}

	return s.lookup(key)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}

	delete(s.entries, key)

	return nil
}

func (s *Store) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takeErr != nil {
		return nil, s.takeErr
	}

	value, err := s.lookup(key)
	if err != nil {
		return nil, err
	}
	delete(s.entries, key)

	return value, nil
}

// Keys returns the keys of all live entries.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if _, err := s.lookup(k); err == nil {
			keys = append(keys, k)
		}
	}

	return keys
}

func (s *Store) lookup(key string) ([]byte, error) {
	e, ok := s.entries[key]
	if !ok || (!e.expiry.IsZero() && !s.now().Before(e.expiry)) {
		return nil, serviceerr.ErrNotFound
	}

	return bytes.Clone(e.value), nil
}
