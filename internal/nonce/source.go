package nonce

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	stateBytes     = 32 // 256 bits
	sessionIDBytes = 32
)

// Source produces URL-safe random values from crypto/rand.
type Source struct{}

func (s Source) randString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return base64.RawURLEncoding.EncodeToString(b)
}

// State returns an anti-forgery state value.
func (s Source) State() string {
	return s.randString(stateBytes)
}

// SessionID returns an opaque session identifier.
func (s Source) SessionID() string {
	return s.randString(sessionIDBytes)
}
