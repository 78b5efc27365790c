package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNilClient is returned when a redis store is built around a nil client.
var ErrNilClient = errors.New("cacheinfra: nil redis client")

// RedisStore implements the key/value contract with GET, SET EX and DEL.
type RedisStore struct {
	client      redis.UniversalClient
	closeClient bool
}

// NewRedisStore dials a new redis client from cfg. The store owns the
// client and closes it on Close.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	return &RedisStore{client: redis.NewClient(opts), closeClient: true}, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisStoreFromClient(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{client: client}, nil
}

// Get returns the value for key. redis.Nil is reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value with an expiry of ttl.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys. Multiple keys are pipelined one DEL per key so the
// call also works against cluster clients where keys span slots.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	switch len(keys) {
	case 0:
		return 0, nil
	case 1:
		return s.client.Del(ctx, keys[0]).Result()
	}

	cmds := make([]*redis.IntCmd, 0, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			cmds = append(cmds, pipe.Del(ctx, key))
		}
		return nil
	})

	var deleted int64
	for _, cmd := range cmds {
		deleted += cmd.Val()
	}
	return deleted, err
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client when the store owns it.
func (s *RedisStore) Close() error {
	if !s.closeClient {
		return nil
	}
	return s.client.Close()
}
