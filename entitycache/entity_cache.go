package entitycache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-entitycache/cache"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the fan-out of batch operations when Options
// leaves it unset.
const DefaultConcurrency = 32

// FetchFn loads a single record from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// BatchFetchFn loads every record whose id is in ids with one store query.
type BatchFetchFn[T any] func(ctx context.Context, ids []string) ([]T, error)

// Options configures an EntityCache.
type Options[T any] struct {
	Namespace cache.Namespace
	TTL       time.Duration

	// ID extracts the primary id. Required.
	ID func(T) string
	// SecondaryKey extracts the human chosen identifier (slug, username).
	// Leave nil for entities addressed by id only. The value is normalized
	// before use.
	SecondaryKey func(T) string

	Codec       Codec[T]
	Logger      *zap.Logger
	Meter       metric.Meter
	Concurrency int
}

// EntityCache is a typed read-through/write-through cache for one entity
// family. Entities with a secondary key are stored under two keys:
//
//	ns:id        -> "@" + secondary
//	ns:secondary -> JSON payload
//
// so that either identifier resolves to the same payload.
type EntityCache[T any] struct {
	store       cache.KeyValueStore
	ns          cache.Namespace
	ttl         time.Duration
	id          func(T) string
	secondary   func(T) string
	codec       Codec[T]
	logger      *zap.Logger
	metrics     *metrics
	concurrency int
}

// New creates an EntityCache over store.
func New[T any](store cache.KeyValueStore, opts Options[T]) (*EntityCache[T], error) {
	if store == nil {
		return nil, fmt.Errorf("entitycache: nil store for namespace %q", opts.Namespace)
	}
	if err := opts.Namespace.Validate(); err != nil {
		return nil, err
	}
	if opts.ID == nil {
		return nil, fmt.Errorf("entitycache: namespace %q requires an ID extractor", opts.Namespace)
	}

	c := &EntityCache[T]{
		store:       store,
		ns:          opts.Namespace,
		ttl:         opts.TTL,
		id:          opts.ID,
		secondary:   opts.SecondaryKey,
		codec:       opts.Codec,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
	}

	if c.codec == nil {
		c.codec = JSONCodec[T]{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("namespace", string(c.ns)))
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}

	m, err := newMetrics(opts.Meter, string(c.ns))
	if err != nil {
		return nil, fmt.Errorf("entitycache: metrics for namespace %q: %w", c.ns, err)
	}
	c.metrics = m

	return c, nil
}

// Namespace returns the namespace the cache writes into.
func (c *EntityCache[T]) Namespace() cache.Namespace {
	return c.ns
}

// HasSecondaryKey reports whether records are stored under a key pair.
func (c *EntityCache[T]) HasSecondaryKey() bool {
	return c.secondary != nil
}

// Get reads the record addressed by identifier, which may be either the
// primary id or the normalized secondary key. Store failures, malformed
// payloads and dangling pointers are all reported as a miss.
func (c *EntityCache[T]) Get(ctx context.Context, identifier string) (T, bool) {
	var zero T
	if identifier == "" {
		return zero, false
	}

	raw, ok := c.read(ctx, c.ns.Key(identifier))
	if !ok {
		c.metrics.miss(ctx)
		return zero, false
	}

	kind, target := classify(raw)
	if kind == kindRef {
		raw, ok = c.read(ctx, c.ns.Key(target))
		if !ok {
			c.metrics.miss(ctx)
			return zero, false
		}
		kind, _ = classify(raw)
	}

	if kind != kindDocument {
		c.metrics.miss(ctx)
		return zero, false
	}

	v, err := c.codec.Decode(raw)
	if err != nil {
		c.metrics.failure(ctx)
		c.logger.Warn("discarding malformed cache payload", zap.String("identifier", identifier), zap.Error(err))
		return zero, false
	}

	c.metrics.hit(ctx)
	return v, true
}

// Lookup reads by secondary key when one is given and by id otherwise.
func (c *EntityCache[T]) Lookup(ctx context.Context, id, secondary string) (T, bool) {
	if key := cache.NormalizeIdentifier(secondary); key != "" && c.secondary != nil {
		return c.Get(ctx, key)
	}
	return c.Get(ctx, id)
}

// Set writes v through to the store. Records with a secondary key write the
// pointer and the payload concurrently with the same TTL.
func (c *EntityCache[T]) Set(ctx context.Context, v T) error {
	id := c.id(v)
	if id == "" {
		return ErrMissingID
	}

	payload, err := c.codec.Encode(v)
	if err != nil {
		c.metrics.failure(ctx)
		return fmt.Errorf("entitycache: encode %s:%s: %w", c.ns, id, err)
	}
	if !isDocument(payload) {
		return ErrNotDocument
	}

	secondary := c.secondaryOf(v)
	if secondary == "" || secondary == id {
		return c.write(ctx, c.ns.Key(id), payload)
	}

	g := new(errgroup.Group)
	g.Go(func() error { return c.write(ctx, c.ns.Key(id), encodeRef(secondary)) })
	g.Go(func() error { return c.write(ctx, c.ns.Key(secondary), payload) })
	return g.Wait()
}

// SetMany writes every record concurrently. Failures are logged per record
// and do not stop the other writes.
func (c *EntityCache[T]) SetMany(ctx context.Context, records []T) {
	if len(records) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for _, v := range records {
		g.Go(func() error {
			if err := c.Set(ctx, v); err != nil {
				c.logger.Warn("cache populate failed", zap.String("id", c.id(v)), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// GetOrFetch returns the cached record or loads it with fetch and writes it
// through. Fetch errors are returned untouched; write failures are logged.
func (c *EntityCache[T]) GetOrFetch(ctx context.Context, id, secondary string, fetch FetchFn[T]) (T, error) {
	if v, ok := c.Lookup(ctx, id, secondary); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.Set(ctx, v); err != nil {
		c.logger.Warn("cache populate failed", zap.String("id", c.id(v)), zap.Error(err))
	}
	return v, nil
}

// ResolveSecondary reads the indirection pointer stored under id.
func (c *EntityCache[T]) ResolveSecondary(ctx context.Context, id string) (string, bool) {
	if id == "" || c.secondary == nil {
		return "", false
	}

	raw, ok := c.read(ctx, c.ns.Key(id))
	if !ok {
		return "", false
	}

	kind, target := classify(raw)
	if kind != kindRef {
		return "", false
	}
	return target, true
}

// Keys returns every key owned by the record. Known secondary keys are used
// as given; when none is known the pointer under id is read to find it.
func (c *EntityCache[T]) Keys(ctx context.Context, id string, secondaries ...string) []string {
	keys := make([]string, 0, 1+len(secondaries))
	seen := make(map[string]struct{}, 1+len(secondaries))
	add := func(identifier string) {
		if identifier == "" {
			return
		}
		key := c.ns.Key(identifier)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	add(id)

	first := ""
	for _, s := range secondaries {
		if s = cache.NormalizeIdentifier(s); s != "" {
			add(s)
			if first == "" {
				first = s
			}
		}
	}
	known := first != ""

	if id == "" && known {
		// only the secondary key is known; the payload carries the id
		if v, ok := c.Get(ctx, first); ok {
			add(c.id(v))
		}
		return keys
	}

	if !known {
		if target, ok := c.ResolveSecondary(ctx, id); ok {
			add(target)
		}
	}

	return keys
}

// Delete removes the key pair of the record.
func (c *EntityCache[T]) Delete(ctx context.Context, id string, secondaries ...string) (int64, error) {
	keys := c.Keys(ctx, id, secondaries...)
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.store.Delete(ctx, keys...)
	if err != nil {
		c.metrics.failure(ctx)
		return n, err
	}
	c.metrics.deleted(ctx, n)
	return n, nil
}

// Target returns an invalidation target for the record's own key pair.
func (c *EntityCache[T]) Target(id string, secondaries ...string) Target {
	return Target{
		Name: c.ns.Key(id),
		Keys: func(ctx context.Context) ([]string, error) {
			return c.Keys(ctx, id, secondaries...), nil
		},
	}
}

func (c *EntityCache[T]) secondaryOf(v T) string {
	if c.secondary == nil {
		return ""
	}
	return cache.NormalizeIdentifier(c.secondary(v))
}

func (c *EntityCache[T]) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.failure(ctx)
		c.logger.Warn("cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return raw, ok
}

func (c *EntityCache[T]) write(ctx context.Context, key, value string) error {
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.metrics.failure(ctx)
		return fmt.Errorf("entitycache: set %s: %w", key, err)
	}
	return nil
}
