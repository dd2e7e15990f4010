package session

import (
	"encoding/json"
	"maps"
)

// Raw returns the JSON document stored under key.
func (s *Session) Raw(key string) (json.RawMessage, bool) {
	raw, ok := s.values[key]
	return raw, ok
}

// Values returns a copy of the stored documents.
func (s *Session) Values() map[string]json.RawMessage {
	return maps.Clone(s.values)
}
