package cache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-entitycache/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
)

// Driver selects the key/value backend.
type Driver string

const (
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Driver Driver

	// DefaultTTL applies to namespaces without an entry in TTLs.
	DefaultTTL time.Duration
	TTLs       map[Namespace]time.Duration

	// BatchConcurrency bounds the fan-out of batch lookups, populates and cascades.
	BatchConcurrency int

	Redis  RedisConfig
	Memory MemoryConfig
}

// RedisConfig mirrors the redis connection options.
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

// MemoryConfig mirrors the in-process store options.
type MemoryConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:     DriverRedis,
		DefaultTTL: 6 * time.Hour,
		TTLs: map[Namespace]time.Duration{
			NamespaceUser:              6 * time.Hour,
			NamespaceTeam:              4 * time.Hour,
			NamespaceOrganization:      6 * time.Hour,
			NamespaceProjectDetails:    6 * time.Hour,
			NamespaceProjectListItem:   6 * time.Hour,
			NamespaceProjectVersions:   6 * time.Hour,
			NamespaceCollection:        4 * time.Hour,
			NamespaceFile:              12 * time.Hour,
			NamespaceUserProjects:      2 * time.Hour,
			NamespaceUserOrganizations: 2 * time.Hour,
			NamespaceUserCollections:   2 * time.Hour,
		},
		BatchConcurrency: 32,
		Redis:            redisFromInternal(cacheinfra.DefaultRedisConfig()),
		Memory:           memoryFromInternal(cacheinfra.DefaultMemoryConfig()),
	}
}

// TTL returns the expiry for entries in ns.
func (c Config) TTL(ns Namespace) time.Duration {
	if ttl, ok := c.TTLs[ns]; ok && ttl > 0 {
		return ttl
	}
	return c.DefaultTTL
}

// IgnoredTTLs lists the namespaces whose TTL the memory driver cannot honour.
// The in-process store applies Memory.TTL to every entry. Other drivers
// return nil.
func (c Config) IgnoredTTLs() []Namespace {
	if c.Driver != DriverMemory {
		return nil
	}

	var out []Namespace
	for _, ns := range Namespaces() {
		if c.TTL(ns) != c.Memory.TTL {
			out = append(out, ns)
		}
	}
	return out
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.DefaultTTL <= 0 {
		return &cacheinfra.ConfigError{Field: "DefaultTTL", Message: "must be greater than 0"}
	}

	for ns, ttl := range c.TTLs {
		if err := ns.Validate(); err != nil {
			return &cacheinfra.ConfigError{Field: "TTLs", Message: err.Error()}
		}
		if ttl < 0 {
			return &cacheinfra.ConfigError{Field: "TTLs." + string(ns), Message: "must be non-negative"}
		}
	}

	if c.BatchConcurrency <= 0 {
		return &cacheinfra.ConfigError{Field: "BatchConcurrency", Message: "must be greater than 0"}
	}

	switch c.Driver {
	case DriverRedis:
		return c.Redis.toInternal().Validate()
	case DriverMemory:
		return c.Memory.toInternal().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Driver", Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}
}

// NewStore constructs the key/value store selected by cfg.Driver.
func NewStore(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverMemory {
		store, err := cacheinfra.NewMemoryStore(cfg.Memory.toInternal())
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := cacheinfra.NewRedisStore(cfg.Redis.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewRedisStore wraps a redis client owned by the caller.
func NewRedisStore(client redis.UniversalClient) (Store, error) {
	store, err := cacheinfra.NewRedisStoreFromClient(client)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		URL:          c.URL,
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func redisFromInternal(cfg cacheinfra.RedisConfig) RedisConfig {
	return RedisConfig{
		URL:          cfg.URL,
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (c MemoryConfig) toInternal() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func memoryFromInternal(cfg cacheinfra.MemoryConfig) MemoryConfig {
	return MemoryConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
