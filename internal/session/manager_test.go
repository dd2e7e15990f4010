package session_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oauth-client/internal/config"
	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/kvstore/kvstoremock"
	"github.com/openkcm/oauth-client/internal/session"
)

var testSessionConfig = config.Session{
	Duration: time.Hour,
	Cookie: config.CookieTemplate{
		Name:     "sessionid",
		Path:     "/",
		HTTPOnly: true,
		SameSite: config.CookieSameSiteLax,
	},
}

func newManager(t *testing.T, store kvstore.Store) *session.Manager {
	t.Helper()

	m, err := session.NewManager(store, testSessionConfig)
	require.NoError(t, err)

	return m
}

// roundTrip saves s and returns the cookie a browser would send back.
func roundTrip(t *testing.T, m *session.Manager, s *session.Session) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(t.Context(), rec, s))

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		return nil
	}

	return cookies[len(cookies)-1]
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}

	return r
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m := newManager(t, kvstoremock.NewInMemStore())

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Empty(t, s.Values())
}

func TestManager_EmptySessionIsNotPersisted(t *testing.T) {
	store := kvstoremock.NewInMemStore()
	m := newManager(t, store)

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)

	assert.Nil(t, roundTrip(t, m, s))
	assert.Empty(t, store.Keys())
}

func TestManager_SaveAndLoad(t *testing.T) {
	store := kvstoremock.NewInMemStore()
	m := newManager(t, store)

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)

	token := json.RawMessage(`{"access_token":"tok123","token_type":"bearer"}`)
	require.NoError(t, s.Set(session.KeyToken, token))

	c := roundTrip(t, m, s)
	require.NotNil(t, c)
	assert.Equal(t, "sessionid", c.Name)
	assert.Equal(t, s.ID(), c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, []string{"session:" + s.ID()}, store.Keys())

	loaded, err := m.Load(requestWith(c))
	require.NoError(t, err)
	assert.Equal(t, s.ID(), loaded.ID())

	raw, ok := loaded.Raw(session.KeyToken)
	require.True(t, ok)
	assert.JSONEq(t, string(token), string(raw))

	var decoded map[string]any
	found, err := loaded.Get(session.KeyToken, &decoded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok123", decoded["access_token"])
}

func TestManager_UnknownCookieStartsNewSession(t *testing.T) {
	m := newManager(t, kvstoremock.NewInMemStore())

	s, err := m.Load(requestWith(&http.Cookie{Name: "sessionid", Value: "stale"}))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", s.ID())
	assert.Empty(t, s.Values())
}

func TestManager_LoadStoreError(t *testing.T) {
	m := newManager(t, kvstoremock.NewInMemStore(kvstoremock.WithGetError(errors.New("down"))))

	_, err := m.Load(requestWith(&http.Cookie{Name: "sessionid", Value: "id"}))
	assert.Error(t, err)
}

func TestManager_SaveStoreError(t *testing.T) {
	m := newManager(t, kvstoremock.NewInMemStore(kvstoremock.WithSetError(errors.New("down"))))

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	require.NoError(t, s.Set(session.KeyToken, map[string]string{"access_token": "x"}))

	assert.Error(t, m.Save(t.Context(), httptest.NewRecorder(), s))
}

func TestManager_Clear(t *testing.T) {
	store := kvstoremock.NewInMemStore()
	m := newManager(t, store)

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	require.NoError(t, s.Set(session.KeyToken, map[string]string{"access_token": "x"}))
	require.NoError(t, s.Set(session.KeyAPIResponse, map[string]string{"username": "alice"}))
	c := roundTrip(t, m, s)
	require.NotNil(t, c)

	loaded, err := m.Load(requestWith(c))
	require.NoError(t, err)
	loaded.Clear()

	expired := roundTrip(t, m, loaded)
	require.NotNil(t, expired)
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, store.Keys())

	again, err := m.Load(requestWith(c))
	require.NoError(t, err)
	assert.Empty(t, again.Values())

	again.Clear()
	assert.Nil(t, roundTrip(t, m, again))
	assert.Empty(t, store.Keys())
}

func TestManager_ValuesAfterClearGetNewID(t *testing.T) {
	store := kvstoremock.NewInMemStore()
	m := newManager(t, store)

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	require.NoError(t, s.Set(session.KeyToken, "first"))
	c := roundTrip(t, m, s)
	require.NotNil(t, c)
	oldID := s.ID()

	loaded, err := m.Load(requestWith(c))
	require.NoError(t, err)
	loaded.Clear()
	require.NoError(t, loaded.Set(session.KeyToken, "second"))

	c2 := roundTrip(t, m, loaded)
	require.NotNil(t, c2)
	assert.NotEqual(t, oldID, c2.Value)
	assert.Equal(t, []string{"session:" + c2.Value}, store.Keys())
}

func TestManager_CorruptedRecordIsDiscarded(t *testing.T) {
	store := kvstoremock.NewInMemStore(kvstoremock.WithEntry("session:broken", []byte("{not json")))
	m := newManager(t, store)

	c := &http.Cookie{Name: "sessionid", Value: "broken"}

	s, err := m.Load(requestWith(c))
	require.NoError(t, err)
	assert.Empty(t, s.Values())
	assert.True(t, s.Persisted())

	expired := roundTrip(t, m, s)
	require.NotNil(t, expired)
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, store.Keys())

	again, err := m.Load(requestWith(c))
	require.NoError(t, err)
	assert.False(t, again.Persisted())
}

func TestManager_NullRecordIsDiscarded(t *testing.T) {
	store := kvstoremock.NewInMemStore(kvstoremock.WithEntry("session:null", []byte("null")))
	m := newManager(t, store)

	s, err := m.Load(requestWith(&http.Cookie{Name: "sessionid", Value: "null"}))
	require.NoError(t, err)
	require.NoError(t, s.Set(session.KeyToken, "fresh"))

	c := roundTrip(t, m, s)
	require.NotNil(t, c)
	assert.NotEqual(t, "null", c.Value)
	assert.Equal(t, []string{"session:" + c.Value}, store.Keys())
}

func TestManager_CSRFToken(t *testing.T) {
	store := kvstoremock.NewInMemStore()
	m := newManager(t, store)

	s, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	require.NoError(t, s.Set(session.KeyToken, "x"))
	c := roundTrip(t, m, s)
	require.NotNil(t, c)

	token := m.CSRFToken(s)

	loaded, err := m.Load(requestWith(c))
	require.NoError(t, err)
	assert.True(t, m.ValidateCSRFToken(token, loaded))

	other, err := m.Load(requestWith(nil))
	require.NoError(t, err)
	assert.False(t, m.ValidateCSRFToken(token, other))

	// a second manager has its own random key
	assert.False(t, newManager(t, store).ValidateCSRFToken(token, loaded))
}

func TestNewManager_CSRFSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  commoncfg.SourceRef
		wantErr bool
	}{
		{
			name:   "unset",
			secret: commoncfg.SourceRef{},
		},
		{
			name:   "long enough",
			secret: commoncfg.SourceRef{Source: "embedded", Value: "0123456789abcdef0123456789abcdef"},
		},
		{
			name:    "too short",
			secret:  commoncfg.SourceRef{Source: "embedded", Value: "short"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSessionConfig
			cfg.CSRFSecret = tt.secret

			m, err := session.NewManager(kvstoremock.NewInMemStore(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}
