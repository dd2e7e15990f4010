package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	authorizePath = "/o/authorize/"
	tokenPath     = "/o/token/"
	identityPath  = "/api/me/"
)

// OAuth holds the client registration at the authorization server.
type OAuth struct {
	ClientID     string        `env:"OAUTH_CLIENT_ID,required,notEmpty"`
	ClientSecret string        `env:"OAUTH_CLIENT_SECRET,required,notEmpty"`
	ServerURL    string        `env:"OAUTH_SERVER_URL"   envDefault:"http://127.0.0.1:8001"`
	Scope        string        `env:"OAUTH_SCOPE"        envDefault:"read"`
	RedirectURI  string        `env:"OAUTH_REDIRECT_URI" envDefault:"http://localhost:9001/callback"`
	HTTPTimeout  time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`
	StateTTL     time.Duration `env:"OAUTH_STATE_TTL"    envDefault:"300s"`
}

// LoadOAuth reads the OAuth client settings from the environment.
// A missing client ID or secret is an error.
func LoadOAuth() (OAuth, error) {
	var o OAuth
	if err := env.Parse(&o); err != nil {
		return OAuth{}, fmt.Errorf("parsing oauth environment: %w", err)
	}

	o.ServerURL = strings.TrimRight(o.ServerURL, "/")
	if _, err := url.Parse(o.ServerURL); err != nil {
		return OAuth{}, fmt.Errorf("parsing OAUTH_SERVER_URL: %w", err)
	}

	return o, nil
}

func (o OAuth) AuthorizeURL() string { return o.ServerURL + authorizePath }
func (o OAuth) TokenURL() string { return o.ServerURL + tokenPath }
func (o OAuth) IdentityURL() string { return o.ServerURL + identityPath }
