// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP    HTTPServer `yaml:"http"`
	Store   Store      `yaml:"store"`
	ValKey  ValKey     `yaml:"valkey"`
	Redis   Redis      `yaml:"redis"`
	Session Session    `yaml:"session"`

	// OAuth is populated from the environment, see LoadOAuth.
	OAuth OAuth `mapstructure:"-" yaml:"-"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":9001"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendValKey StoreBackend = "valkey"
	StoreBackendRedis  StoreBackend = "redis"
)

// Store selects the key-value backend holding the anti-forgery states and sessions.
type Store struct {
	Backend StoreBackend `yaml:"backend" default:"memory"`
	Prefix  string       `yaml:"prefix" default:"oauth-client"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type Redis struct {
	Address  commoncfg.SourceRef `yaml:"address"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	DB       int                 `yaml:"db"`
}

type Session struct {
	Duration time.Duration  `yaml:"duration" default:"12h"`
	Cookie   CookieTemplate `yaml:"cookie"`
	// CSRFSecret signs the logout form token. When unset a random key is
	// used, so tokens do not survive a restart.
	CSRFSecret commoncfg.SourceRef `yaml:"csrfSecret"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name" default:"sessionid"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" default:"Lax"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
}
