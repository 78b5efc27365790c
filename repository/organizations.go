package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/store"
	"go.uber.org/zap"
)

// Organizations is the cached organization repository. Organizations are
// addressed by id or slug and always read together with their team.
type Organizations struct {
	*deps
	cached *Cached[model.Organization]
	teams  *Teams
}

// Get returns the organization with id joined with its team.
func (r *Organizations) Get(ctx context.Context, id string) (model.OrganizationDetails, error) {
	org, err := r.cached.Get(ctx, id)
	if err != nil {
		return model.OrganizationDetails{}, err
	}
	return r.joinOne(ctx, org)
}

// GetBySlug returns the organization with slug joined with its team.
func (r *Organizations) GetBySlug(ctx context.Context, slug string) (model.OrganizationDetails, error) {
	org, err := r.cached.GetByKey(ctx, slug)
	if err != nil {
		return model.OrganizationDetails{}, err
	}
	return r.joinOne(ctx, org)
}

// GetMany returns the organizations found for ids, unordered. Organizations
// whose team is missing are dropped.
func (r *Organizations) GetMany(ctx context.Context, ids []string) ([]model.OrganizationDetails, error) {
	orgs, err := r.cached.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.join(ctx, orgs)
}

// ListByUser returns the organizations userID is a member of.
func (r *Organizations) ListByUser(ctx context.Context, userID string) ([]model.OrganizationDetails, error) {
	ids, err := r.userOrganizations().get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, ids)
}

// Create stores o. creatorID is the member whose organization list gains it.
func (r *Organizations) Create(ctx context.Context, o *model.Organization, creatorID string) error {
	if o.ID == "" {
		o.ID = model.NewID()
	}
	if err := r.stores.Organizations.Create(ctx, o); err != nil {
		return err
	}
	r.cascade(ctx, "organization.create", r.userOrganizations().target(creatorID))
	return nil
}

// Update stores o and drops its key pair under the old and the new slug.
func (r *Organizations) Update(ctx context.Context, o *model.Organization) error {
	before, err := r.stores.Organizations.FindUnique(ctx, store.ByID(o.ID))
	if err != nil {
		return err
	}
	if err := r.stores.Organizations.Update(ctx, o); err != nil {
		return err
	}
	r.cascade(ctx, "organization.update", r.organizationTarget(o.ID, before.Slug, o.Slug))
	return nil
}

// Delete removes the organization together with its team.
func (r *Organizations) Delete(ctx context.Context, id string) (model.Organization, error) {
	deleted, err := r.stores.Organizations.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}

	targets := []entitycache.Target{
		r.organizationTarget(id, deleted.Slug),
		r.teamTarget(deleted.TeamID),
	}

	team, err := r.stores.Teams.Delete(ctx, deleted.TeamID)
	switch {
	case err == nil:
		for _, uid := range entitycache.Dedupe(team.MemberIDs()) {
			targets = append(targets, r.userOrganizations().target(uid))
		}
	case !store.IsNotFound(err):
		r.logger.Warn("organization team cleanup failed",
			zap.String("organization_id", id),
			zap.String("team_id", deleted.TeamID),
			zap.Error(err),
		)
	}

	r.cascade(ctx, "organization.delete", targets...)
	return deleted, nil
}

func (r *Organizations) joinOne(ctx context.Context, org model.Organization) (model.OrganizationDetails, error) {
	joined, err := r.join(ctx, []model.Organization{org})
	if err != nil {
		return model.OrganizationDetails{}, err
	}
	if len(joined) == 0 {
		return model.OrganizationDetails{}, missingRelation("team", org.TeamID, "organization "+org.ID)
	}
	return joined[0], nil
}

func (r *Organizations) join(ctx context.Context, orgs []model.Organization) ([]model.OrganizationDetails, error) {
	if len(orgs) == 0 {
		return nil, nil
	}

	teamIDs := make([]string, len(orgs))
	for i, o := range orgs {
		teamIDs[i] = o.TeamID
	}

	teams, err := r.teams.GetMany(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	byID := entitycache.IndexBy(teams, func(t model.Team) string { return t.ID })

	out := make([]model.OrganizationDetails, 0, len(orgs))
	for _, o := range orgs {
		team, ok := byID[o.TeamID]
		if !ok {
			r.logger.Debug("dropping organization without team", zap.String("organization_id", o.ID), zap.String("team_id", o.TeamID))
			continue
		}
		out = append(out, model.OrganizationDetails{Organization: o, Team: team})
	}
	return out, nil
}
