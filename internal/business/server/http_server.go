package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/config"
	"github.com/openkcm/oauth-client/internal/flow"
	"github.com/openkcm/oauth-client/internal/session"
)

// newRouter registers the flow routes. Routes are method bound, so e.g. a
// GET on /logout/ is answered with 405.
func newRouter(cfg *config.Config, f *flow.Flow, sessions *session.Manager) http.Handler {
	h := &flowHandler{
		flow:     f,
		sessions: sessions,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", instrument(cfg, "home", http.HandlerFunc(h.home)))
	mux.Handle("GET /login/{$}", instrument(cfg, "login", http.HandlerFunc(h.login)))
	mux.Handle("GET /callback/{$}", instrument(cfg, "callback", http.HandlerFunc(h.callback)))
	mux.Handle("GET /callback", instrument(cfg, "callback", http.HandlerFunc(h.callback)))
	mux.Handle("POST /logout/{$}", instrument(cfg, "logout", http.HandlerFunc(h.logout)))

	return mux
}

// createHTTPServer creates an API http server using the given config
func createHTTPServer(_ context.Context, cfg *config.Config, f *flow.Flow, sessions *session.Manager) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, f, sessions),
	}
}

// StartHTTPServer serves the flow until ctx is cancelled and then shuts down gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, f *flow.Flow, sessions *session.Manager) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, f, sessions)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
