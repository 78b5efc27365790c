package cacheinfra

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viccon/sturdyc"
)

// MemoryConfig holds the configuration for the in-process sturdyc store.
type MemoryConfig struct {
	// Capacity defines the maximum number of entries that the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound for every entry. sturdyc applies a single TTL
	// to the whole client, so per call TTLs are capped by this value.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns a MemoryConfig suited for development and tests.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                6 * time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the config into sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage are constructor arguments.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// RedisConfig describes how to reach the shared redis instance.
// URL takes precedence over the discrete connection fields.
type RedisConfig struct {
	URL          string
	Addr         string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig targets a local redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.URL == "" && c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "either URL or Addr is required"}
	}

	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}

	if c.PoolSize < 0 {
		return &ConfigError{Field: "PoolSize", Message: "must be non-negative"}
	}

	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return &ConfigError{Field: "Timeouts", Message: "must be non-negative"}
	}

	return nil
}

// Options converts the config into go-redis client options.
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, &ConfigError{Field: "URL", Message: err.Error()}
		}
		c.applyTimeouts(opts)
		return opts, nil
	}

	opts := &redis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
	c.applyTimeouts(opts)
	return opts, nil
}

func (c RedisConfig) applyTimeouts(opts *redis.Options) {
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
