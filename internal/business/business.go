package business

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/business/server"
	"github.com/openkcm/oauth-client/internal/config"
	"github.com/openkcm/oauth-client/internal/flow"
	"github.com/openkcm/oauth-client/internal/kvstore"
	kvmemory "github.com/openkcm/oauth-client/internal/kvstore/memory"
	kvredis "github.com/openkcm/oauth-client/internal/kvstore/redis"
	kvvalkey "github.com/openkcm/oauth-client/internal/kvstore/valkey"
	"github.com/openkcm/oauth-client/internal/oauth"
	"github.com/openkcm/oauth-client/internal/oauthstate"
	"github.com/openkcm/oauth-client/internal/session"
)

const memoryCleanupInterval = time.Minute

// Main starts the HTTP server and blocks until ctx is cancelled.
func Main(ctx context.Context, cfg *config.Config) error {
	store, closeFn, err := initStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the store: %w", err)
	}
	defer closeFn()

	f, sessions, err := initFlow(ctx, cfg, store)
	if err != nil {
		return fmt.Errorf("initialising the flow: %w", err)
	}

	return server.StartHTTPServer(ctx, cfg, f, sessions)
}

func initFlow(ctx context.Context, cfg *config.Config, store kvstore.Store) (*flow.Flow, *session.Manager, error) {
	if cfg.Session.CSRFSecret.Source == "" {
		slogctx.Warn(ctx, "No CSRF secret configured, using a random one")
	}

	sessions, err := session.NewManager(store, cfg.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("creating session manager: %w", err)
	}

	states := oauthstate.NewManager(store, cfg.OAuth.StateTTL)
	client := oauth.NewClient(cfg.OAuth, nil)

	return flow.New(cfg.OAuth, states, client), sessions, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// initStore connects the configured backend. The returned closeFn releases
// the connection.
func initStore(ctx context.Context, cfg *config.Config) (_ kvstore.Store, closeFn func(), _ error) {
	var (
		store kvstore.Store
		p     pinger
	)

	switch cfg.Store.Backend {
	case config.StoreBackendMemory, "":
		slogctx.Warn(ctx, "Using the in-memory store, state is lost on restart")
		return kvmemory.NewStore(memoryCleanupInterval), func() {}, nil
	case config.StoreBackendValKey:
		opts, err := config.MakeValKeyOptions(cfg.ValKey)
		if err != nil {
			return nil, nil, fmt.Errorf("making valkey options from config: %w", err)
		}

		client, err := valkey.NewClient(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
		}

		s := kvvalkey.NewStore(client, cfg.Store.Prefix)
		store, p, closeFn = s, s, client.Close
	case config.StoreBackendRedis:
		opts, err := config.MakeRedisOptions(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("making redis options from config: %w", err)
		}

		client := redis.NewClient(opts)

		s := kvredis.NewStore(client, cfg.Store.Prefix)
		store, p, closeFn = s, s, func() { _ = client.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if err := p.Ping(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("pinging the %s store: %w", cfg.Store.Backend, err)
	}

	slogctx.Info(ctx, "Connected to the store", "backend", cfg.Store.Backend)

	return store, closeFn, nil
}
