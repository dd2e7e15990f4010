// Package kvstore defines the expiring key-value store used for the
// anti-forgery states and the user sessions.
package kvstore

import (
	"context"
	"time"
)

// Store is an expiring key-value store. A ttl of zero means the value
// never expires. Reading a missing or expired key returns an error
// wrapping serviceerr.ErrNotFound.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Take returns the value stored under key and removes it in one atomic
	// step, so concurrent callers never both observe the same value.
	Take(ctx context.Context, key string) ([]byte, error)
}
