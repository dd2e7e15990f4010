// Package csrf issues and checks form tokens bound to a session ID.
//
// A token is "<mac>.<nonce>", both base64url without padding, where mac is
// HMAC-SHA256 over the length-prefixed session ID and nonce.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const nonceLength = 32

// MinKeyLength is the shortest accepted signing key.
const MinKeyLength = 32

var encoding = base64.RawURLEncoding

func mac(sessionID string, nonce, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(fmt.Appendf(nil, "%d!%s!%d!", len(sessionID), sessionID, len(nonce)))
	h.Write(nonce)

	return h.Sum(nil)
}

func NewToken(sessionID string, key []byte) string {
	nonce := make([]byte, nonceLength)
	_, _ = rand.Read(nonce)

	return encoding.EncodeToString(mac(sessionID, nonce, key)) + "." + encoding.EncodeToString(nonce)
}

// Validate reports whether token was issued by NewToken for sessionID and key.
func Validate(token, sessionID string, key []byte) bool {
	macPart, noncePart, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}

	received, err := encoding.DecodeString(macPart)
	if err != nil {
		return false
	}

	nonce, err := encoding.DecodeString(noncePart)
	if err != nil || len(nonce) != nonceLength {
		return false
	}

	return hmac.Equal(received, mac(sessionID, nonce, key))
}
