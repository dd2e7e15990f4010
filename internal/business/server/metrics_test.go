package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/config"
)

// recordSink collects the records of a recordingHandler and its derivatives.
type recordSink struct {
	mu      sync.Mutex
	records map[string]map[string]any
}

func (s *recordSink) find(msg string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs, ok := s.records[msg]
	return attrs, ok
}

// recordingHandler is a slog.Handler keeping the attributes of each record
// by message.
type recordingHandler struct {
	sink  *recordSink
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	if h.sink.records == nil {
		h.sink.records = make(map[string]map[string]any)
	}
	h.sink.records[r.Message] = attrs

	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		sink:  h.sink,
		attrs: append(slices.Clone(h.attrs), attrs...),
	}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func testConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name:        "test-app",
				Environment: "test",
			},
		},
	}
}

func TestInitMeters(t *testing.T) {
	err := initMeters(t.Context(), testConfig())
	require.NoError(t, err)
	assert.NotNil(t, counter)
	assert.NotNil(t, hist)
}

func TestInstrument(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, initMeters(t.Context(), cfg))

	t.Run("passes status and body through", func(t *testing.T) {
		h := instrument(cfg, "teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "short and stout", rec.Body.String())
	})

	t.Run("adds request attributes to the logger", func(t *testing.T) {
		rec := &recordingHandler{sink: &recordSink{}}
		h := instrument(cfg, "home", http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			slogctx.Info(r.Context(), "inside handler")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(slogctx.NewCtx(req.Context(), slog.New(rec)))
		h.ServeHTTP(httptest.NewRecorder(), req)

		attrs, ok := rec.sink.find("inside handler")
		require.True(t, ok, "no record logged from the handler")
		assert.Equal(t, "home", attrs[commoncfg.AttrOperation])
		assert.NotEmpty(t, attrs[commoncfg.AttrRequestID])
	})

	t.Run("records the default status", func(t *testing.T) {
		rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
		_, _ = rec.Write([]byte("ok"))
		assert.Equal(t, http.StatusOK, rec.status)

		rec.WriteHeader(http.StatusNotFound)
		assert.Equal(t, http.StatusNotFound, rec.status)
	})
}
