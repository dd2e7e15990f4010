// Package oauthstate issues the anti-forgery state sent with an
// authorization request and consumes it when the callback arrives.
package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/nonce"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

const (
	// KeyPrefix prefixes every state key in the store.
	KeyPrefix = "client_app.oauth_state."
	// DefaultTTL bounds the time between the login redirect and the callback.
	DefaultTTL = 300 * time.Second
)

var issuedMarker = []byte("true")

type Manager struct {
	store  kvstore.Store
	source nonce.Source
	ttl    time.Duration
}

func NewManager(store kvstore.Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		store: store,
		ttl:   ttl,
	}
}

// Issue creates a new state and records it for ttl.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	state := m.source.State()
	if err := m.store.Set(ctx, Key(state), issuedMarker, m.ttl); err != nil {
		return "", fmt.Errorf("storing state: %w", err)
	}

	return state, nil
}

// Consume accepts a state at most once. An empty state yields
// serviceerr.ErrMissingState; an unknown, expired or already consumed one
// yields serviceerr.ErrStateMismatch.
func (m *Manager) Consume(ctx context.Context, state string) error {
	if state == "" {
		return serviceerr.ErrMissingState
	}

	if _, err := m.store.Take(ctx, Key(state)); err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return serviceerr.ErrStateMismatch
		}

		return fmt.Errorf("taking state: %w", err)
	}

	return nil
}

func Key(state string) string {
	return KeyPrefix + state
}
