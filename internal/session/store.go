// Package session signs operators in through the authorization server's
// own OIDC issuer and keeps their sessions in Redis. The console holds
// no in-process session state; every lookup goes to the store.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by a StateStore when a key is absent or
// already expired.
var ErrNotFound = errors.New("session: key not found")

// StateStore is the narrow key-value surface the service needs. Redis
// backs it in production; tests use miniredis through the same
// implementation.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

type redisStateStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as a StateStore.
func NewRedisStore(client *redis.Client) StateStore {
	return &redisStateStore{client: client}
}

func (s *redisStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *redisStateStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
