package kvredis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oauth-client/internal/kvstore/kvstoretest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestStore(t *testing.T) {
	mr, client := newTestRedis(t)

	kvstoretest.Run(t, NewStore(client, "test"), mr.FastForward)
}

func TestStoreKeyPrefix(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantKey string
	}{
		{name: "with prefix", prefix: "oauth-client", wantKey: "oauth-client:client_app.oauth_state.abc"},
		{name: "trims trailing colon", prefix: "oauth-client:", wantKey: "oauth-client:client_app.oauth_state.abc"},
		{name: "empty prefix", prefix: "", wantKey: "client_app.oauth_state.abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := newTestRedis(t)
			store := NewStore(client, tt.prefix)

			err := store.Set(t.Context(), "client_app.oauth_state.abc", []byte("true"), 5*time.Minute)
			require.NoError(t, err)

			assert.True(t, mr.Exists(tt.wantKey))
			assert.Equal(t, 5*time.Minute, mr.TTL(tt.wantKey))
		})
	}
}

func TestStorePing(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewStore(client, "test")

	assert.NoError(t, store.Ping(t.Context()))
}
