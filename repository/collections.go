package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
)

// Collections is the cached collection repository.
type Collections struct {
	*deps
	cached *Cached[model.Collection]
}

// Get returns the collection with id.
func (r *Collections) Get(ctx context.Context, id string) (model.Collection, error) {
	return r.cached.Get(ctx, id)
}

// GetMany returns the collections found for ids, unordered.
func (r *Collections) GetMany(ctx context.Context, ids []string) ([]model.Collection, error) {
	return r.cached.GetMany(ctx, ids)
}

// ListByUser returns the collections owned by userID.
func (r *Collections) ListByUser(ctx context.Context, userID string) ([]model.Collection, error) {
	ids, err := r.userCollections().get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, ids)
}

// Create stores c and drops its owner's collection list.
func (r *Collections) Create(ctx context.Context, c *model.Collection) error {
	if c.ID == "" {
		c.ID = model.NewID()
	}
	if err := r.stores.Collections.Create(ctx, c); err != nil {
		return err
	}
	r.cascade(ctx, "collection.create", r.userCollections().target(c.UserID))
	return nil
}

// Update stores c.
func (r *Collections) Update(ctx context.Context, c *model.Collection) error {
	if err := r.stores.Collections.Update(ctx, c); err != nil {
		return err
	}
	r.cascade(ctx, "collection.update", r.caches.Collections.Target(c.ID))
	return nil
}

// Delete removes the collection with id.
func (r *Collections) Delete(ctx context.Context, id string) (model.Collection, error) {
	deleted, err := r.stores.Collections.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}
	r.cascade(ctx, "collection.delete",
		r.caches.Collections.Target(id),
		r.userCollections().target(deleted.UserID),
	)
	return deleted, nil
}

// DeleteByUser removes every collection owned by userID.
func (r *Collections) DeleteByUser(ctx context.Context, userID string) ([]model.Collection, error) {
	deleted, err := r.stores.Collections.DeleteByUser(ctx, userID)
	if err != nil || len(deleted) == 0 {
		return deleted, err
	}

	targets := make([]entitycache.Target, 0, len(deleted)+1)
	for _, c := range deleted {
		targets = append(targets, r.caches.Collections.Target(c.ID))
	}
	targets = append(targets, r.userCollections().target(userID))
	r.cascade(ctx, "collection.delete_by_user", targets...)
	return deleted, nil
}
