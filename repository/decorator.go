package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/store"
)

// Cached decorates a store with a read-through EntityCache. Reads go through
// the cache; writes are left to the entity repositories, which know the
// cascade each mutation needs.
type Cached[T any] struct {
	base  store.Store[T]
	cache *entitycache.EntityCache[T]
}

// NewCached wraps base with c.
func NewCached[T any](base store.Store[T], c *entitycache.EntityCache[T]) *Cached[T] {
	return &Cached[T]{base: base, cache: c}
}

// Get reads the record by primary id.
func (c *Cached[T]) Get(ctx context.Context, id string) (T, error) {
	return c.cache.GetOrFetch(ctx, id, "", func(ctx context.Context) (T, error) {
		return c.base.FindUnique(ctx, store.ByID(id))
	})
}

// GetByKey reads the record by its secondary key.
func (c *Cached[T]) GetByKey(ctx context.Context, key string) (T, error) {
	return c.cache.GetOrFetch(ctx, "", key, func(ctx context.Context) (T, error) {
		return c.base.FindUnique(ctx, store.ByKey(key))
	})
}

// GetMany resolves ids through the cache with a single store query for the
// misses. Ids without a record are omitted.
func (c *Cached[T]) GetMany(ctx context.Context, ids []string) ([]T, error) {
	return c.cache.GetMany(ctx, ids, c.base.FindMany)
}

// Base returns the decorated store.
func (c *Cached[T]) Base() store.Store[T] {
	return c.base
}

// Cache returns the entity cache.
func (c *Cached[T]) Cache() *entitycache.EntityCache[T] {
	return c.cache
}

// idList is a per-user aggregate of record ids, cached under its own
// namespace and rebuilt from the store on miss.
type idList struct {
	cache *entitycache.EntityCache[model.IDList]
	fetch func(ctx context.Context, ownerID string) ([]string, error)
}

func (l idList) get(ctx context.Context, ownerID string) ([]string, error) {
	if ownerID == "" {
		return nil, nil
	}

	list, err := l.cache.GetOrFetch(ctx, ownerID, "", func(ctx context.Context) (model.IDList, error) {
		ids, err := l.fetch(ctx, ownerID)
		if err != nil {
			return model.IDList{}, err
		}
		if ids == nil {
			ids = []string{}
		}
		return model.IDList{OwnerID: ownerID, IDs: ids}, nil
	})
	if err != nil {
		return nil, err
	}
	return list.IDs, nil
}

func (l idList) target(ownerID string) entitycache.Target {
	return l.cache.Target(ownerID)
}
