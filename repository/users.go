package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/store"
)

// Users is the cached user repository. Users are addressed by id or by
// username.
type Users struct {
	*deps
	cached *Cached[model.User]
}

// Get returns the user with id.
func (r *Users) Get(ctx context.Context, id string) (model.User, error) {
	return r.cached.Get(ctx, id)
}

// GetByUserName returns the user with name, case insensitively.
func (r *Users) GetByUserName(ctx context.Context, name string) (model.User, error) {
	return r.cached.GetByKey(ctx, name)
}

// GetMany returns the users found for ids, unordered.
func (r *Users) GetMany(ctx context.Context, ids []string) ([]model.User, error) {
	return r.cached.GetMany(ctx, ids)
}

// Create stores u and writes it through to the cache.
func (r *Users) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = model.NewID()
	}
	if err := r.stores.Users.Create(ctx, u); err != nil {
		return err
	}
	r.populate("user.create", u.ID, r.caches.Users.Set(ctx, *u))
	return nil
}

// Update stores u and drops both keys, under the old and the new username.
func (r *Users) Update(ctx context.Context, u *model.User) error {
	before, err := r.stores.Users.FindUnique(ctx, store.ByID(u.ID))
	if err != nil {
		return err
	}
	if err := r.stores.Users.Update(ctx, u); err != nil {
		return err
	}

	r.cascade(ctx, "user.update", r.caches.Users.Target(u.ID, before.UserName, u.UserName))
	return nil
}

// Delete removes the user and every aggregate keyed by it.
func (r *Users) Delete(ctx context.Context, id string) (model.User, error) {
	deleted, err := r.stores.Users.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}

	r.cascade(ctx, "user.delete",
		r.caches.Users.Target(id, deleted.UserName),
		r.userProjects().target(id),
		r.userOrganizations().target(id),
		r.userCollections().target(id),
	)
	return deleted, nil
}
