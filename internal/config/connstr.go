package config

import (
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"
)

// MakeValKeyOptions resolves the credential references of the valkey section.
func MakeValKeyOptions(conf ValKey) (valkey.ClientOption, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey host: %w", err)
	}

	user, err := loadOptional(conf.User)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey username: %w", err)
	}

	password, err := loadOptional(conf.Password)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey password: %w", err)
	}

	return valkey.ClientOption{
		InitAddress: []string{string(host)},
		Username:    user,
		Password:    password,
	}, nil
}

// MakeRedisOptions resolves the credential references of the redis section.
func MakeRedisOptions(conf Redis) (*redis.Options, error) {
	addr, err := commoncfg.LoadValueFromSourceRef(conf.Address)
	if err != nil {
		return nil, fmt.Errorf("loading redis address: %w", err)
	}

	user, err := loadOptional(conf.User)
	if err != nil {
		return nil, fmt.Errorf("loading redis username: %w", err)
	}

	password, err := loadOptional(conf.Password)
	if err != nil {
		return nil, fmt.Errorf("loading redis password: %w", err)
	}

	return &redis.Options{
		Addr:     string(addr),
		Username: user,
		Password: password,
		DB:       conf.DB,
	}, nil
}

// loadOptional treats an unset reference as an empty value.
func loadOptional(ref commoncfg.SourceRef) (string, error) {
	if ref.Source == "" {
		return "", nil
	}

	value, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return "", err
	}

	return string(value), nil
}
