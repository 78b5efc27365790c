package store

import (
	"context"
	"strings"

	"github.com/goliatone/go-entitycache/model"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type versionTable struct {
	*Table[model.Version]
}

// Versions returns the bun backed VersionStore.
func Versions(db *bun.DB) VersionStore {
	return &versionTable{
		Table: NewTable(db, func(v *model.Version) *string { return &v.ID }),
	}
}

type projectRef struct {
	ID   string `bun:"id"`
	Slug string `bun:"slug"`
}

func (v *versionTable) FindByProject(ctx context.Context, project Lookup) (model.ProjectVersions, error) {
	var ref projectRef

	q := v.db.NewSelect().Model((*model.Project)(nil)).Column("id", "slug")
	switch {
	case project.Key != "":
		q = q.Where("lower(slug) = ?", strings.ToLower(strings.TrimSpace(project.Key)))
	case project.ID != "":
		q = q.Where("id = ?", project.ID)
	default:
		return model.ProjectVersions{}, NotFound("model.ProjectVersions", project.String())
	}

	if err := q.Limit(1).Scan(ctx, &ref); err != nil {
		if repository.IsRecordNotFound(err) {
			return model.ProjectVersions{}, NotFound("model.ProjectVersions", project.String())
		}
		return model.ProjectVersions{}, err
	}

	lists, err := v.versionsFor(ctx, []projectRef{ref})
	if err != nil {
		return model.ProjectVersions{}, err
	}
	return lists[0], nil
}

func (v *versionTable) FindManyByProject(ctx context.Context, projectIDs []string) ([]model.ProjectVersions, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	var refs []projectRef
	err := v.db.NewSelect().Model((*model.Project)(nil)).
		Column("id", "slug").
		Where("id IN (?)", bun.In(projectIDs)).
		Scan(ctx, &refs)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	return v.versionsFor(ctx, refs)
}

// DeleteMany removes the versions with the given ids and returns them.
func (v *versionTable) DeleteMany(ctx context.Context, ids []string) ([]model.Version, error) {
	versions, err := v.FindMany(ctx, ids)
	if err != nil || len(versions) == 0 {
		return versions, err
	}
	if err := v.DeleteWhere(ctx, deleteIn("id", ids)); err != nil {
		return nil, err
	}
	return versions, nil
}

// DeleteByProject removes every version of projectID and returns them.
func (v *versionTable) DeleteByProject(ctx context.Context, projectID string) ([]model.Version, error) {
	found, _, err := v.repo.List(ctx, repository.SelectBy("project_id", "=", projectID), unpaged)
	if err != nil || len(found) == 0 {
		return nil, err
	}

	versions := make([]model.Version, len(found))
	for i, ver := range found {
		versions[i] = *ver
	}
	if err := v.DeleteWhere(ctx, repository.DeleteBy("project_id", "=", projectID)); err != nil {
		return nil, err
	}
	return versions, nil
}

func (v *versionTable) versionsFor(ctx context.Context, refs []projectRef) ([]model.ProjectVersions, error) {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}

	found, _, err := v.repo.List(ctx,
		repository.SelectColumnIn("project_id", ids),
		repository.SelectOrderDesc("date_published"),
		unpaged,
	)
	if err != nil {
		return nil, err
	}

	byProject := make(map[string][]model.Version, len(refs))
	for _, ver := range found {
		byProject[ver.ProjectID] = append(byProject[ver.ProjectID], *ver)
	}

	out := make([]model.ProjectVersions, len(refs))
	for i, r := range refs {
		list := byProject[r.ID]
		if list == nil {
			list = []model.Version{}
		}
		model.SortVersions(list)
		out[i] = model.ProjectVersions{ID: r.ID, Slug: r.Slug, Versions: list}
	}
	return out, nil
}
