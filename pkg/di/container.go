package di

import (
	"context"
	"fmt"

	"github.com/goliatone/go-entitycache/cache"
	"github.com/goliatone/go-entitycache/config"
	"github.com/goliatone/go-entitycache/repository"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container wires the cache, the database, the search index and the cached
// repositories from a single configuration. Components handed in through
// options are used as is and not closed by the container.
type Container struct {
	config config.Config
	logger *zap.Logger
	meter  metric.Meter

	kv     cache.KeyValueStore
	db     *bun.DB
	stores repository.Stores
	caches *repository.Caches
	repos  *repository.Repositories

	index     *search.MeiliIndex
	syncer    *search.Syncer
	reindexer *search.Reindexer

	closers []func() error
}

// Option customizes the container.
type Option func(*Container)

// WithLogger uses logger instead of one built from the log section.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithKeyValueStore uses kv instead of dialing the configured driver.
func WithKeyValueStore(kv cache.KeyValueStore) Option {
	return func(c *Container) { c.kv = kv }
}

// WithDB uses db instead of opening the configured database.
func WithDB(db *bun.DB) Option {
	return func(c *Container) { c.db = db }
}

// WithMeter sets the meter for cache metrics. The global meter is used
// otherwise.
func WithMeter(meter metric.Meter) Option {
	return func(c *Container) { c.meter = meter }
}

// NewContainer builds every component described by cfg.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.build(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerFromFile loads the configuration at path and builds the
// container from it.
func NewContainerFromFile(path string, opts ...Option) (*Container, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

func (c *Container) build() error {
	if c.logger == nil {
		logger, err := NewLogger(c.config.Log)
		if err != nil {
			return fmt.Errorf("di: logger: %w", err)
		}
		c.logger = logger
	}

	if c.kv == nil {
		kv, err := cache.NewStore(c.config.CacheConfig())
		if err != nil {
			return fmt.Errorf("di: cache store: %w", err)
		}
		c.kv = kv
		c.closers = append(c.closers, kv.Close)

		if ignored := c.config.CacheConfig().IgnoredTTLs(); len(ignored) > 0 {
			names := make([]string, len(ignored))
			for i, ns := range ignored {
				names[i] = ns.String()
			}
			c.logger.Warn("memory cache applies a single ttl to every namespace",
				zap.Duration("ttl", c.config.CacheConfig().Memory.TTL),
				zap.Strings("namespaces", names),
			)
		}
	}

	if c.db == nil {
		db, err := store.Open(c.config.Database.Driver, c.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("di: database: %w", err)
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	c.stores = repository.Stores{
		Users:         store.Users(c.db),
		Teams:         store.Teams(c.db),
		Organizations: store.Organizations(c.db),
		Projects:      store.Projects(c.db),
		Versions:      store.Versions(c.db),
		Collections:   store.Collections(c.db),
		Files:         store.Files(c.db),
	}

	caches, err := repository.NewCaches(c.kv, c.config.CacheConfig(), c.logger.Named("cache"), c.meter)
	if err != nil {
		return fmt.Errorf("di: caches: %w", err)
	}
	c.caches = caches

	var index search.Index
	if c.config.Search.Enabled {
		meili, err := search.NewMeiliIndex(c.config.Search.Meili(), c.logger)
		if err != nil {
			return fmt.Errorf("di: search: %w", err)
		}
		c.index = meili
		c.closers = append(c.closers, meili.Close)
		index = meili
	}
	c.syncer = search.NewSyncer(index, c.logger)

	c.repos = repository.New(c.stores, c.caches,
		repository.WithLogger(c.logger),
		repository.WithSyncer(c.syncer),
	)

	if c.index != nil {
		c.index.UseDocuments(c.repos.Projects)
		c.reindexer = search.NewReindexer(c.stores.Projects, c.index, c.config.Search.BatchSize, c.logger)
	}
	return nil
}

// NewLogger builds a zap logger from the log section.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// KeyValueStore returns the shared cache backend.
func (c *Container) KeyValueStore() cache.KeyValueStore {
	return c.kv
}

func (c *Container) DB() *bun.DB {
	return c.db
}

func (c *Container) Stores() repository.Stores {
	return c.stores
}

func (c *Container) Caches() *repository.Caches {
	return c.caches
}

// Repositories returns the cached data access layer.
func (c *Container) Repositories() *repository.Repositories {
	return c.repos
}

// Syncer returns the search syncer. It only computes actions when search is
// disabled.
func (c *Container) Syncer() *search.Syncer {
	return c.syncer
}

// SearchIndex returns the index client, or nil when search is disabled.
func (c *Container) SearchIndex() *search.MeiliIndex {
	return c.index
}

// Reindexer returns the full resync job, or nil when search is disabled.
func (c *Container) Reindexer() *search.Reindexer {
	return c.reindexer
}

// Ping checks the database and, when it supports it, the cache backend.
func (c *Container) Ping(ctx context.Context) error {
	var errs error
	if p, ok := c.kv.(cache.Pinger); ok {
		errs = multierr.Append(errs, p.Ping(ctx))
	}
	if c.db != nil {
		errs = multierr.Append(errs, c.db.PingContext(ctx))
	}
	return errs
}

// Close releases every component the container opened itself, in reverse
// order.
func (c *Container) Close() error {
	var errs error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, c.closers[i]())
	}
	c.closers = nil
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errs
}
