package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
)

// Files is the cached file metadata repository. File records are written
// through on create since they are read right after upload.
type Files struct {
	*deps
	cached *Cached[model.File]
}

// Get returns the file with id.
func (r *Files) Get(ctx context.Context, id string) (model.File, error) {
	return r.cached.Get(ctx, id)
}

// GetMany returns the files found for ids, unordered.
func (r *Files) GetMany(ctx context.Context, ids []string) ([]model.File, error) {
	return r.cached.GetMany(ctx, ids)
}

// Create stores f and writes it through.
func (r *Files) Create(ctx context.Context, f *model.File) error {
	if f.ID == "" {
		f.ID = model.NewID()
	}
	if err := r.stores.Files.Create(ctx, f); err != nil {
		return err
	}
	r.populate("file.create", f.ID, r.caches.Files.Set(ctx, *f))
	return nil
}

// CreateMany stores files in one insert and writes them through.
func (r *Files) CreateMany(ctx context.Context, files []model.File) error {
	for i := range files {
		if files[i].ID == "" {
			files[i].ID = model.NewID()
		}
	}
	if err := r.stores.Files.CreateMany(ctx, files); err != nil {
		return err
	}
	r.caches.Files.SetMany(ctx, files)
	return nil
}

// Update stores f and drops its entry.
func (r *Files) Update(ctx context.Context, f *model.File) error {
	if err := r.stores.Files.Update(ctx, f); err != nil {
		return err
	}
	r.cascade(ctx, "file.update", r.caches.Files.Target(f.ID))
	return nil
}

// Delete removes the file with id.
func (r *Files) Delete(ctx context.Context, id string) (model.File, error) {
	deleted, err := r.stores.Files.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}
	r.cascade(ctx, "file.delete", r.caches.Files.Target(id))
	return deleted, nil
}

// DeleteMany removes the files with ids and returns the ones that existed.
func (r *Files) DeleteMany(ctx context.Context, ids []string) ([]model.File, error) {
	deleted, err := r.stores.Files.DeleteMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	targets := make([]entitycache.Target, len(deleted))
	for i, f := range deleted {
		targets[i] = r.caches.Files.Target(f.ID)
	}
	r.cascade(ctx, "file.delete", targets...)
	return deleted, nil
}
