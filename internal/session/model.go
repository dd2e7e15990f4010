package session

import (
	"encoding/json"
	"fmt"
)

// Keys of the values kept in a session.
const (
	KeyToken       = "token"
	KeyAPIResponse = "api_response"
)

// Session is the server-side data of one browser. It is not safe for
// concurrent use; a session belongs to the request that loaded it.
type Session struct {
	id     string
	values map[string]json.RawMessage

	// persisted is set when the session was read from the store.
	persisted bool
	// modified is set by Set and Clear.
	modified bool
	// rotate requests a new ID on the next save.
	rotate bool
}

func newSession(id string) *Session {
	return &Session{
		id:     id,
		values: make(map[string]json.RawMessage),
	}
}

func (s *Session) ID() string { return s.id }

// Persisted reports whether the session was read from the store.
func (s *Session) Persisted() bool { return s.persisted }

// Get decodes the value stored under key into into. It reports false when
// the key is absent.
func (s *Session) Get(key string, into any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, into); err != nil {
		return true, fmt.Errorf("decoding session value %q: %w", key, err)
	}

	return true, nil
}

// Set stores the JSON encoding of value under key. A json.RawMessage is
// stored as is.
func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding session value %q: %w", key, err)
	}

	s.values[key] = raw
	s.modified = true

	return nil
}

// Clear drops every value. The session is deleted from the store on the
// next save and any later values are saved under a fresh ID.
func (s *Session) Clear() {
	clear(s.values)
	s.modified = true
	s.rotate = true
}
