package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/config"
	"github.com/openkcm/oauth-client/internal/csrf"
	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/nonce"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

const (
	defaultCookieName = "sessionid"
	defaultDuration   = 12 * time.Hour
	keyPrefix         = "session:"
)

// Manager binds sessions to browsers through a cookie and persists them
// in a kvstore.Store.
type Manager struct {
	store      kvstore.Store
	source     nonce.Source
	cookie     config.CookieTemplate
	duration   time.Duration
	csrfSecret []byte
}

func NewManager(store kvstore.Store, cfg config.Session) (*Manager, error) {
	cookie := cfg.Cookie
	if cookie.Name == "" {
		cookie.Name = defaultCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}

	duration := cfg.Duration
	if duration <= 0 {
		duration = defaultDuration
	}

	csrfSecret, err := loadCSRFSecret(cfg.CSRFSecret)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:      store,
		cookie:     cookie,
		duration:   duration,
		csrfSecret: csrfSecret,
	}, nil
}

func loadCSRFSecret(ref commoncfg.SourceRef) ([]byte, error) {
	if ref.Source == "" {
		secret := make([]byte, csrf.MinKeyLength)
		_, _ = rand.Read(secret)

		return secret, nil
	}

	secret, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return nil, fmt.Errorf("loading CSRF secret: %w", err)
	}

	if len(secret) < csrf.MinKeyLength {
		return nil, fmt.Errorf("CSRF secret must be at least %d bytes", csrf.MinKeyLength)
	}

	return secret, nil
}

// CSRFToken returns a form token bound to the session.
func (m *Manager) CSRFToken(s *Session) string {
	return csrf.NewToken(s.id, m.csrfSecret)
}

func (m *Manager) ValidateCSRFToken(token string, s *Session) bool {
	return csrf.Validate(token, s.id, m.csrfSecret)
}

// Load returns the session referenced by the request cookie. A request
// without a cookie, or whose session is gone, gets a new empty session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	ctx := r.Context()

	c, err := r.Cookie(m.cookie.Name)
	if err != nil || c.Value == "" {
		return newSession(m.source.SessionID()), nil
	}

	data, err := m.store.Get(ctx, key(c.Value))
	if errors.Is(err, serviceerr.ErrNotFound) {
		slogctx.Debug(ctx, "Session not found, starting a new one")
		return newSession(m.source.SessionID()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	s := newSession(c.Value)
	s.persisted = true

	if err := json.Unmarshal(data, &s.values); err != nil || s.values == nil {
		slogctx.Warn(ctx, "Discarding an undecodable session", "error", err)
		s.values = make(map[string]json.RawMessage)
		s.Clear()
	}

	return s, nil
}

// Save persists a modified session and sets the cookie accordingly. It must
// be called before the response header is written.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.modified {
		return nil
	}

	if s.rotate {
		if err := m.destroy(ctx, s); err != nil {
			return err
		}

		wasPersisted := s.persisted
		s.id = m.source.SessionID()
		s.persisted = false
		s.rotate = false

		if len(s.values) == 0 && wasPersisted {
			http.SetCookie(w, m.cookie.ToExpiredCookie())
		}
	}

	if len(s.values) == 0 {
		s.modified = false
		return nil
	}

	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := m.store.Set(ctx, key(s.id), data, m.duration); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	http.SetCookie(w, m.cookie.ToCookie(s.id))
	s.persisted = true
	s.modified = false

	return nil
}

func (m *Manager) destroy(ctx context.Context, s *Session) error {
	if !s.persisted {
		return nil
	}

	if err := m.store.Delete(ctx, key(s.id)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

func key(id string) string {
	return keyPrefix + id
}
