package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/cache"
	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	"go.uber.org/zap"
)

// Projects is the cached project repository. A project is cached twice, as
// full details and as a list item, each under an id/slug key pair; both are
// joined with their team and optional organization on read.
type Projects struct {
	*deps
	cached *Cached[model.Project]
	teams  *Teams
	orgs   *Organizations
}

var _ search.DocumentSource = (*Projects)(nil)

// Get returns the details of the project with id.
func (r *Projects) Get(ctx context.Context, id string) (model.ProjectDetails, error) {
	p, err := r.cached.Get(ctx, id)
	if err != nil {
		return model.ProjectDetails{}, err
	}
	return r.detailsOne(ctx, p)
}

// GetBySlug returns the details of the project with slug.
func (r *Projects) GetBySlug(ctx context.Context, slug string) (model.ProjectDetails, error) {
	p, err := r.cached.GetByKey(ctx, slug)
	if err != nil {
		return model.ProjectDetails{}, err
	}
	return r.detailsOne(ctx, p)
}

// GetListItem returns the list item of the project with id.
func (r *Projects) GetListItem(ctx context.Context, id string) (model.ProjectSummary, error) {
	item, err := r.caches.ProjectListItems.GetOrFetch(ctx, id, "", func(ctx context.Context) (model.ProjectListItem, error) {
		return r.fetchListItem(ctx, store.ByID(id))
	})
	if err != nil {
		return model.ProjectSummary{}, err
	}
	return r.summaryOne(ctx, item)
}

// GetListItemBySlug returns the list item of the project with slug.
func (r *Projects) GetListItemBySlug(ctx context.Context, slug string) (model.ProjectSummary, error) {
	item, err := r.caches.ProjectListItems.GetOrFetch(ctx, "", slug, func(ctx context.Context) (model.ProjectListItem, error) {
		return r.fetchListItem(ctx, store.ByKey(slug))
	})
	if err != nil {
		return model.ProjectSummary{}, err
	}
	return r.summaryOne(ctx, item)
}

// PeekDetails returns the cached details record addressed by slug, or by id
// when slug is empty. It never reads the store nor populates the cache.
func (r *Projects) PeekDetails(ctx context.Context, id, slug string) (model.Project, bool) {
	return r.caches.ProjectDetails.Lookup(ctx, id, slug)
}

// PeekListItem is PeekDetails for the list item view.
func (r *Projects) PeekListItem(ctx context.Context, id, slug string) (model.ProjectListItem, bool) {
	return r.caches.ProjectListItems.Lookup(ctx, id, slug)
}

// GetManyDetails returns the details found for ids, unordered. Projects
// whose team, or organization when one is set, is missing are dropped.
func (r *Projects) GetManyDetails(ctx context.Context, ids []string) ([]model.ProjectDetails, error) {
	projects, err := r.cached.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	teams, orgs, err := relationsOf(ctx, r, projects, projectRefs)
	if err != nil {
		return nil, err
	}

	out := make([]model.ProjectDetails, 0, len(projects))
	for _, p := range projects {
		team, org, ok := pick(teams, orgs, p.TeamID, p.OrganizationID)
		if !ok {
			r.logger.Debug("dropping project with missing relation", zap.String("project_id", p.ID))
			continue
		}
		out = append(out, model.ProjectDetails{Project: p, Team: team, Organization: org})
	}
	return out, nil
}

// GetManyListItems returns the list items found for ids, unordered, with the
// same drop rule as GetManyDetails.
func (r *Projects) GetManyListItems(ctx context.Context, ids []string) ([]model.ProjectSummary, error) {
	items, err := r.caches.ProjectListItems.GetMany(ctx, ids, r.fetchListItems)
	if err != nil {
		return nil, err
	}

	teams, orgs, err := relationsOf(ctx, r, items, listItemRefs)
	if err != nil {
		return nil, err
	}

	out := make([]model.ProjectSummary, 0, len(items))
	for _, p := range items {
		team, org, ok := pick(teams, orgs, p.TeamID, p.OrganizationID)
		if !ok {
			continue
		}
		out = append(out, model.ProjectSummary{ProjectListItem: p, Team: team, Organization: org})
	}
	return out, nil
}

// ListByUser returns the list items of every project userID is a member of.
func (r *Projects) ListByUser(ctx context.Context, userID string) ([]model.ProjectSummary, error) {
	ids, err := r.userProjects().get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.GetManyListItems(ctx, ids)
}

// Documents implements search.DocumentSource.
func (r *Projects) Documents(ctx context.Context, ids []string) ([]model.ProjectDetails, error) {
	return r.GetManyDetails(ctx, ids)
}

// Create stores p, drops the aggregates it joins and notifies the index.
func (r *Projects) Create(ctx context.Context, p *model.Project) error {
	if p.ID == "" {
		p.ID = model.NewID()
	}
	if err := r.stores.Projects.Create(ctx, p); err != nil {
		return err
	}

	targets := r.memberAggregatesOf(ctx, p.TeamID)
	if p.OrganizationID != "" {
		targets = append(targets, r.organizationTarget(p.OrganizationID))
	}
	r.cascade(ctx, "project.create", targets...)
	r.syncer.ProjectCreated(ctx, *p)
	return nil
}

// Update stores p. Both key pairs are dropped under the old and the new slug;
// a slug change also drops the version list, and an ownership change drops
// the old and new organization along with the project lists of the old and
// new team members.
func (r *Projects) Update(ctx context.Context, p *model.Project) error {
	before, err := r.stores.Projects.FindUnique(ctx, store.ByID(p.ID))
	if err != nil {
		return err
	}
	if err := r.stores.Projects.Update(ctx, p); err != nil {
		return err
	}

	r.cascade(ctx, "project.update", r.updateTargets(ctx, before, *p)...)
	r.syncer.ProjectUpdated(ctx, before, *p)
	return nil
}

// UpdateMany stores every project in one transaction, then cascades each of
// them the way Update does. Nothing is written when one id is unknown.
func (r *Projects) UpdateMany(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	found, err := r.stores.Projects.FindMany(ctx, ids)
	if err != nil {
		return err
	}
	before := entitycache.IndexBy(found, func(p model.Project) string { return p.ID })
	for _, id := range ids {
		if _, ok := before[id]; !ok {
			return store.NotFound("model.Project", store.ByID(id).String())
		}
	}

	if err := r.stores.Projects.UpdateMany(ctx, projects); err != nil {
		return err
	}

	var targets []entitycache.Target
	for _, p := range projects {
		targets = append(targets, r.updateTargets(ctx, before[p.ID], p)...)
	}
	r.cascade(ctx, "project.update_many", targets...)

	for _, p := range projects {
		r.syncer.ProjectUpdated(ctx, before[p.ID], p)
	}
	return nil
}

func (r *Projects) updateTargets(ctx context.Context, before, after model.Project) []entitycache.Target {
	targets := r.projectTargets(after.ID, before.Slug, after.Slug)
	if !sameKey(before.Slug, after.Slug) {
		targets = append(targets, r.versionTarget(after.ID, before.Slug, after.Slug))
	}
	if before.OrganizationID != after.OrganizationID || before.TeamID != after.TeamID {
		for _, id := range entitycache.Dedupe([]string{before.OrganizationID, after.OrganizationID}) {
			targets = append(targets, r.organizationTarget(id))
		}
	}
	if before.TeamID != after.TeamID {
		targets = append(targets, r.memberAggregatesOf(ctx, before.TeamID)...)
		targets = append(targets, r.memberAggregatesOf(ctx, after.TeamID)...)
	}
	return targets
}

// Delete removes the project and every entry derived from it.
func (r *Projects) Delete(ctx context.Context, id string) (model.Project, error) {
	deleted, err := r.stores.Projects.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}

	targets := r.projectTargets(id, deleted.Slug)
	targets = append(targets, r.versionTarget(id, deleted.Slug))
	if deleted.OrganizationID != "" {
		targets = append(targets, r.organizationTarget(deleted.OrganizationID))
	}
	targets = append(targets, r.memberAggregatesOf(ctx, deleted.TeamID)...)

	r.cascade(ctx, "project.delete", targets...)
	r.syncer.ProjectDeleted(ctx, deleted)
	return deleted, nil
}

func (r *Projects) detailsOne(ctx context.Context, p model.Project) (model.ProjectDetails, error) {
	teams, orgs, err := relationsOf(ctx, r, []model.Project{p}, projectRefs)
	if err != nil {
		return model.ProjectDetails{}, err
	}

	team, org, ok := pick(teams, orgs, p.TeamID, p.OrganizationID)
	if !ok {
		if _, found := teams[p.TeamID]; !found {
			return model.ProjectDetails{}, missingRelation("team", p.TeamID, "project "+p.ID)
		}
		return model.ProjectDetails{}, missingRelation("organization", p.OrganizationID, "project "+p.ID)
	}
	return model.ProjectDetails{Project: p, Team: team, Organization: org}, nil
}

func (r *Projects) summaryOne(ctx context.Context, item model.ProjectListItem) (model.ProjectSummary, error) {
	teams, orgs, err := relationsOf(ctx, r, []model.ProjectListItem{item}, listItemRefs)
	if err != nil {
		return model.ProjectSummary{}, err
	}

	team, org, ok := pick(teams, orgs, item.TeamID, item.OrganizationID)
	if !ok {
		if _, found := teams[item.TeamID]; !found {
			return model.ProjectSummary{}, missingRelation("team", item.TeamID, "project "+item.ID)
		}
		return model.ProjectSummary{}, missingRelation("organization", item.OrganizationID, "project "+item.ID)
	}
	return model.ProjectSummary{ProjectListItem: item, Team: team, Organization: org}, nil
}

func (r *Projects) fetchListItem(ctx context.Context, lookup store.Lookup) (model.ProjectListItem, error) {
	p, err := r.stores.Projects.FindUnique(ctx, lookup)
	if err != nil {
		return model.ProjectListItem{}, err
	}
	return p.ListItem(), nil
}

func (r *Projects) fetchListItems(ctx context.Context, ids []string) ([]model.ProjectListItem, error) {
	projects, err := r.stores.Projects.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]model.ProjectListItem, len(projects))
	for i, p := range projects {
		items[i] = p.ListItem()
	}
	return items, nil
}

// memberAggregatesOf reads the current members of teamID from the store and
// returns their aggregate targets.
func (r *Projects) memberAggregatesOf(ctx context.Context, teamID string) []entitycache.Target {
	team, err := r.stores.Teams.FindUnique(ctx, store.ByID(teamID))
	if err != nil {
		r.logger.Warn("team lookup for cascade failed", zap.String("team_id", teamID), zap.Error(err))
		return nil
	}
	return r.memberAggregates(team.MemberIDs()...)
}

func projectRefs(p model.Project) (string, string) { return p.TeamID, p.OrganizationID }

func listItemRefs(p model.ProjectListItem) (string, string) { return p.TeamID, p.OrganizationID }

// relationsOf resolves the teams and organizations referenced by records with
// one batch lookup each.
func relationsOf[T any](ctx context.Context, r *Projects, records []T, refs func(T) (string, string)) (map[string]model.Team, map[string]model.Organization, error) {
	var teamIDs, orgIDs []string
	for _, rec := range records {
		teamID, orgID := refs(rec)
		teamIDs = append(teamIDs, teamID)
		if orgID != "" {
			orgIDs = append(orgIDs, orgID)
		}
	}

	teams, err := r.teams.GetMany(ctx, teamIDs)
	if err != nil {
		return nil, nil, err
	}

	var orgs []model.Organization
	if len(orgIDs) > 0 {
		if orgs, err = r.orgs.cached.GetMany(ctx, orgIDs); err != nil {
			return nil, nil, err
		}
	}

	return entitycache.IndexBy(teams, func(t model.Team) string { return t.ID }),
		entitycache.IndexBy(orgs, func(o model.Organization) string { return o.ID }),
		nil
}

// pick joins one record: the team is required, the organization only when
// orgID is set.
func pick(teams map[string]model.Team, orgs map[string]model.Organization, teamID, orgID string) (model.Team, *model.Organization, bool) {
	team, ok := teams[teamID]
	if !ok {
		return model.Team{}, nil, false
	}
	if orgID == "" {
		return team, nil, true
	}
	org, ok := orgs[orgID]
	if !ok {
		return model.Team{}, nil, false
	}
	return team, &org, true
}

func sameKey(a, b string) bool {
	return cache.NormalizeIdentifier(a) == cache.NormalizeIdentifier(b)
}
