package kvvalkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

type Store struct {
	valkey valkey.Client
	prefix string
}

var _ kvstore.Store = (*Store)(nil)

func NewStore(valkeyClient valkey.Client, prefix string) *Store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = s.valkey.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	} else {
		cmd = s.valkey.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value)).Build()
	}

	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(key)).Build()).AsBytes()
	if err != nil {
		return nil, s.mapErr("get", err)
	}

	return bytes, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Getdel().Key(s.key(key)).Build()).AsBytes()
	if err != nil {
		return nil, s.mapErr("getdel", err)
	}

	return bytes, nil
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("pinging valkey: %w", err)
	}

	return nil
}

func (s *Store) mapErr(command string, err error) error {
	valkeyErr, ok := valkey.IsValkeyErr(err)
	if ok && valkeyErr.IsNil() {
		return errors.Join(valkeyErr, serviceerr.ErrNotFound)
	}

	return fmt.Errorf("executing %s command: %w", command, err)
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}

	return s.prefix + ":" + key
}
