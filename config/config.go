// Package config loads the runtime configuration: defaults, then an optional
// YAML file, then ENTITYCACHE_* environment overrides, then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-entitycache/cache"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ENTITYCACHE_"

// Config is the full runtime configuration.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Memory   MemoryConfig   `yaml:"memory"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// CacheConfig selects the key/value backend and entry lifetimes. TTLs are
// keyed by namespace name.
type CacheConfig struct {
	Driver           string                   `yaml:"driver"`
	DefaultTTL       time.Duration            `yaml:"default_ttl"`
	TTLs             map[string]time.Duration `yaml:"ttls"`
	BatchConcurrency int                      `yaml:"batch_concurrency"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type MemoryConfig struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SearchConfig configures the external search index. Everything but Enabled
// is ignored while search is disabled.
type SearchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	Index     string        `yaml:"index"`
	CDNURL    string        `yaml:"cdn_url"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batch_size"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	c := cache.DefaultConfig()

	ttls := make(map[string]time.Duration, len(c.TTLs))
	for ns, ttl := range c.TTLs {
		ttls[ns.String()] = ttl
	}

	return Config{
		Cache: CacheConfig{
			Driver:           string(c.Driver),
			DefaultTTL:       c.DefaultTTL,
			TTLs:             ttls,
			BatchConcurrency: c.BatchConcurrency,
		},
		Redis: RedisConfig{
			Addr:         c.Redis.Addr,
			DialTimeout:  c.Redis.DialTimeout,
			ReadTimeout:  c.Redis.ReadTimeout,
			WriteTimeout: c.Redis.WriteTimeout,
		},
		Memory: MemoryConfig{
			Capacity:           c.Memory.Capacity,
			NumShards:          c.Memory.NumShards,
			TTL:                c.Memory.TTL,
			EvictionPercentage: c.Memory.EvictionPercentage,
			EvictionInterval:   c.Memory.EvictionInterval,
		},
		Database: DatabaseConfig{
			Driver: store.DriverPostgres,
			DSN:    "postgres://localhost:5432/platform?sslmode=disable",
		},
		Search: SearchConfig{
			URL:       "http://localhost:7700",
			Index:     search.DefaultIndexName,
			Timeout:   10 * time.Second,
			BatchSize: search.DefaultBatchSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from path, which may be empty, and the
// process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.Errors{
		"cache":    c.CacheConfig().Validate(),
		"database": c.Database.Validate(),
		"search":   c.Search.Validate(),
		"log":      c.Log.Validate(),
	}.Filter()
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(store.DriverPostgres, store.DriverSQLite)),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (s SearchConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.URL, validation.When(s.Enabled, validation.Required, is.URL)),
		validation.Field(&s.Index, validation.When(s.Enabled, validation.Required)),
		validation.Field(&s.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&s.BatchSize, validation.When(s.Enabled, validation.Min(1))),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

// CacheConfig converts the cache, redis and memory sections into the cache
// package configuration.
func (c Config) CacheConfig() cache.Config {
	ttls := make(map[cache.Namespace]time.Duration, len(c.Cache.TTLs))
	for ns, ttl := range c.Cache.TTLs {
		ttls[cache.Namespace(ns)] = ttl
	}

	return cache.Config{
		Driver:           cache.Driver(c.Cache.Driver),
		DefaultTTL:       c.Cache.DefaultTTL,
		TTLs:             ttls,
		BatchConcurrency: c.Cache.BatchConcurrency,
		Redis: cache.RedisConfig{
			URL:          c.Redis.URL,
			Addr:         c.Redis.Addr,
			Username:     c.Redis.Username,
			Password:     c.Redis.Password,
			DB:           c.Redis.DB,
			PoolSize:     c.Redis.PoolSize,
			DialTimeout:  c.Redis.DialTimeout,
			ReadTimeout:  c.Redis.ReadTimeout,
			WriteTimeout: c.Redis.WriteTimeout,
		},
		Memory: cache.MemoryConfig{
			Capacity:           c.Memory.Capacity,
			NumShards:          c.Memory.NumShards,
			TTL:                c.Memory.TTL,
			EvictionPercentage: c.Memory.EvictionPercentage,
			EvictionInterval:   c.Memory.EvictionInterval,
		},
	}
}

// Meili converts the search section into the index client configuration.
func (s SearchConfig) Meili() search.MeiliConfig {
	return search.MeiliConfig{
		URL:     s.URL,
		APIKey:  s.APIKey,
		Index:   s.Index,
		CDNURL:  s.CDNURL,
		Timeout: s.Timeout,
	}
}

type lookupFn func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFn) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	integer := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}
	}

	overrides := []struct {
		name string
		set  func(string) error
	}{
		{"CACHE_DRIVER", str(&cfg.Cache.Driver)},
		{"CACHE_DEFAULT_TTL", duration(&cfg.Cache.DefaultTTL)},
		{"CACHE_BATCH_CONCURRENCY", integer(&cfg.Cache.BatchConcurrency)},
		{"REDIS_URL", str(&cfg.Redis.URL)},
		{"REDIS_ADDR", str(&cfg.Redis.Addr)},
		{"REDIS_USERNAME", str(&cfg.Redis.Username)},
		{"REDIS_PASSWORD", str(&cfg.Redis.Password)},
		{"REDIS_DB", integer(&cfg.Redis.DB)},
		{"DATABASE_DRIVER", str(&cfg.Database.Driver)},
		{"DATABASE_DSN", str(&cfg.Database.DSN)},
		{"SEARCH_ENABLED", boolean(&cfg.Search.Enabled)},
		{"SEARCH_URL", str(&cfg.Search.URL)},
		{"SEARCH_API_KEY", str(&cfg.Search.APIKey)},
		{"SEARCH_INDEX", str(&cfg.Search.Index)},
		{"SEARCH_CDN_URL", str(&cfg.Search.CDNURL)},
		{"LOG_LEVEL", str(&cfg.Log.Level)},
		{"LOG_DEVELOPMENT", boolean(&cfg.Log.Development)},
	}

	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.set(v); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, o.name, err)
		}
	}
	return nil
}
