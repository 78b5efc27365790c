package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/store"
	"go.uber.org/zap"
)

// Versions is the cached version repository. Versions are cached as one list
// per project, addressed by the project id and the project slug.
type Versions struct {
	*deps
}

// ForProject returns the versions of the project with id, newest first.
func (r *Versions) ForProject(ctx context.Context, projectID string) (model.ProjectVersions, error) {
	return r.caches.Versions.GetOrFetch(ctx, projectID, "", func(ctx context.Context) (model.ProjectVersions, error) {
		return r.stores.Versions.FindByProject(ctx, store.ByID(projectID))
	})
}

// ForProjectSlug returns the versions of the project with slug.
func (r *Versions) ForProjectSlug(ctx context.Context, slug string) (model.ProjectVersions, error) {
	return r.caches.Versions.GetOrFetch(ctx, "", slug, func(ctx context.Context) (model.ProjectVersions, error) {
		return r.stores.Versions.FindByProject(ctx, store.ByKey(slug))
	})
}

// ForProjects returns the version lists of projectIDs, unordered. Unknown
// projects are omitted.
func (r *Versions) ForProjects(ctx context.Context, projectIDs []string) ([]model.ProjectVersions, error) {
	return r.caches.Versions.GetMany(ctx, projectIDs, r.stores.Versions.FindManyByProject)
}

// Create stores v and drops every entry embedding the project's versions.
func (r *Versions) Create(ctx context.Context, v *model.Version) error {
	if v.ID == "" {
		v.ID = model.NewID()
	}
	if err := r.stores.Versions.Create(ctx, v); err != nil {
		return err
	}
	r.changed(ctx, "version.create", v.ProjectID)
	return nil
}

// Update stores v.
func (r *Versions) Update(ctx context.Context, v *model.Version) error {
	if err := r.stores.Versions.Update(ctx, v); err != nil {
		return err
	}
	r.changed(ctx, "version.update", v.ProjectID)
	return nil
}

// Delete removes the version with id.
func (r *Versions) Delete(ctx context.Context, id string) (model.Version, error) {
	deleted, err := r.stores.Versions.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}
	r.changed(ctx, "version.delete", deleted.ProjectID)
	return deleted, nil
}

// DeleteMany removes the versions with ids and cascades once per affected
// project.
func (r *Versions) DeleteMany(ctx context.Context, ids []string) ([]model.Version, error) {
	deleted, err := r.stores.Versions.DeleteMany(ctx, ids)
	if err != nil {
		return deleted, err
	}

	projectIDs := make([]string, len(deleted))
	for i, v := range deleted {
		projectIDs[i] = v.ProjectID
	}
	for _, projectID := range entitycache.Dedupe(projectIDs) {
		r.changed(ctx, "version.delete_many", projectID)
	}
	return deleted, nil
}

// DeleteByProject removes every version of projectID.
func (r *Versions) DeleteByProject(ctx context.Context, projectID string) ([]model.Version, error) {
	deleted, err := r.stores.Versions.DeleteByProject(ctx, projectID)
	if err != nil || len(deleted) == 0 {
		return deleted, err
	}
	r.changed(ctx, "version.delete_by_project", projectID)
	return deleted, nil
}

// changed cascades a version mutation into the project pairs, whose loaders
// and game versions derive from the version list, and refreshes the search
// document.
func (r *Versions) changed(ctx context.Context, operation, projectID string) {
	project, err := r.stores.Projects.FindUnique(ctx, store.ByID(projectID))
	if err != nil {
		r.logger.Warn("project lookup for cascade failed", zap.String("operation", operation), zap.String("project_id", projectID), zap.Error(err))
		r.cascade(ctx, operation, append(r.projectTargets(projectID), r.versionTarget(projectID))...)
		return
	}

	targets := append([]entitycache.Target{r.versionTarget(projectID, project.Slug)}, r.projectTargets(projectID, project.Slug)...)
	r.cascade(ctx, operation, targets...)
	r.syncer.Refresh(ctx, project)
}
