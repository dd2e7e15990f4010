package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOAuth(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("OAUTH_CLIENT_ID", "my-client")
		t.Setenv("OAUTH_CLIENT_SECRET", "my-secret")

		got, err := LoadOAuth()
		require.NoError(t, err)

		assert.Equal(t, OAuth{
			ClientID:     "my-client",
			ClientSecret: "my-secret",
			ServerURL:    "http://127.0.0.1:8001",
			Scope:        "read",
			RedirectURI:  "http://localhost:9001/callback",
			HTTPTimeout:  10 * time.Second,
			StateTTL:     300 * time.Second,
		}, got)
	})

	t.Run("trims trailing slashes from the server URL", func(t *testing.T) {
		t.Setenv("OAUTH_CLIENT_ID", "my-client")
		t.Setenv("OAUTH_CLIENT_SECRET", "my-secret")
		t.Setenv("OAUTH_SERVER_URL", "https://auth.example.com/")
		t.Setenv("OAUTH_SCOPE", "read write")

		got, err := LoadOAuth()
		require.NoError(t, err)

		assert.Equal(t, "https://auth.example.com", got.ServerURL)
		assert.Equal(t, "read write", got.Scope)
		assert.Equal(t, "https://auth.example.com/o/authorize/", got.AuthorizeURL())
		assert.Equal(t, "https://auth.example.com/o/token/", got.TokenURL())
		assert.Equal(t, "https://auth.example.com/api/me/", got.IdentityURL())
	})

	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{name: "missing client id", secret: "my-secret"},
		{name: "missing client secret", id: "my-client"},
		{name: "missing both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OAUTH_CLIENT_ID", tt.id)
			t.Setenv("OAUTH_CLIENT_SECRET", tt.secret)

			_, err := LoadOAuth()
			assert.Error(t, err)
		})
	}
}
