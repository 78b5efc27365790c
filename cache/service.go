package cache

import (
	"context"
	"time"
)

// KeyValueStore is the narrow contract over the shared external key/value service.
// Values are UTF-8 strings: either a JSON document or an indirection pointer.
// Implementations return errors; callers decide whether to fail open.
type KeyValueStore interface {
	// Get returns the stored value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
}

// Store is a KeyValueStore that owns a connection and must be closed.
type Store interface {
	KeyValueStore
	Close() error
}

// Pinger is implemented by stores that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
