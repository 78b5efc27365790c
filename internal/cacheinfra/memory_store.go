package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryStore is an in-process key/value store backed by a sturdyc client.
// It is meant for single instance deployments and local development; it is
// not shared between processes.
type MemoryStore struct {
	client *sturdyc.Client[string]
	ttl    time.Duration
}

// NewMemoryStore validates cfg and initializes the sturdyc client.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[string](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryStore{client: client, ttl: cfg.TTL}, nil
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok := s.client.Get(key)
	return value, ok, nil
}

// Set stores value under key. The effective TTL is the client TTL.
func (s *MemoryStore) Set(ctx context.Context, key, value string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.client.Set(key, value)
	return nil
}

// Delete removes keys and reports how many were present.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var deleted int64
	for _, key := range keys {
		if _, ok := s.client.Get(key); ok {
			deleted++
		}
		s.client.Delete(key)
	}
	return deleted, nil
}

// Len reports the number of entries currently held.
func (s *MemoryStore) Len() int {
	return s.client.Size()
}

// TTL returns the client wide TTL.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Close is a no-op; it satisfies cache.Store.
func (s *MemoryStore) Close() error {
	return nil
}
