package repository

import (
	"context"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
)

// Teams is the cached team repository. Cached teams carry member rows only;
// member users are joined on every read, so user changes never need to
// cascade into team entries.
type Teams struct {
	*deps
	cached *Cached[model.Team]
	users  *Users
}

// Get returns the team with its members joined to fresh user data.
func (r *Teams) Get(ctx context.Context, id string) (model.Team, error) {
	team, err := r.cached.Get(ctx, id)
	if err != nil {
		return model.Team{}, err
	}

	joined, err := r.joinMembers(ctx, []model.Team{team})
	if err != nil {
		return model.Team{}, err
	}
	return joined[0], nil
}

// GetMany returns the teams found for ids, unordered, members joined.
func (r *Teams) GetMany(ctx context.Context, ids []string) ([]model.Team, error) {
	teams, err := r.cached.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.joinMembers(ctx, teams)
}

// Create stores an empty team.
func (r *Teams) Create(ctx context.Context, t *model.Team) error {
	if t.ID == "" {
		t.ID = model.NewID()
	}
	return r.stores.Teams.Create(ctx, t)
}

// Delete removes the team and its members. Every former member loses the
// team from their aggregates, as if removed one by one.
func (r *Teams) Delete(ctx context.Context, id string) (model.Team, error) {
	deleted, err := r.stores.Teams.Delete(ctx, id)
	if err != nil {
		return deleted, err
	}
	r.cascade(ctx, "team.delete", r.memberTargets(id, deleted.MemberIDs()...)...)
	return deleted, nil
}

// AddMember stores a new membership.
func (r *Teams) AddMember(ctx context.Context, m *model.TeamMember) error {
	if m.ID == "" {
		m.ID = model.NewID()
	}
	if err := r.stores.Teams.CreateMember(ctx, m); err != nil {
		return err
	}
	r.cascade(ctx, "team.member.create", r.memberTargets(m.TeamID, m.UserID)...)
	return nil
}

// UpdateMember stores changes to a membership.
func (r *Teams) UpdateMember(ctx context.Context, m *model.TeamMember) error {
	if err := r.stores.Teams.UpdateMember(ctx, m); err != nil {
		return err
	}
	r.cascade(ctx, "team.member.update", r.memberTargets(m.TeamID, m.UserID)...)
	return nil
}

// RemoveMember deletes a membership by its id.
func (r *Teams) RemoveMember(ctx context.Context, memberID string) (model.TeamMember, error) {
	deleted, err := r.stores.Teams.DeleteMember(ctx, memberID)
	if err != nil {
		return deleted, err
	}
	r.cascade(ctx, "team.member.delete", r.memberTargets(deleted.TeamID, deleted.UserID)...)
	return deleted, nil
}

// RemoveMembers deletes the memberships of userIDs in teamID.
func (r *Teams) RemoveMembers(ctx context.Context, teamID string, userIDs []string) ([]model.TeamMember, error) {
	deleted, err := r.stores.Teams.DeleteMembers(ctx, teamID, userIDs)
	if err != nil || len(deleted) == 0 {
		return deleted, err
	}

	removed := make([]string, len(deleted))
	for i, m := range deleted {
		removed[i] = m.UserID
	}
	r.cascade(ctx, "team.member.delete", r.memberTargets(teamID, removed...)...)
	return deleted, nil
}

// memberTargets covers a membership change: the team, the aggregates of the
// affected users and whatever owns the team.
func (r *Teams) memberTargets(teamID string, userIDs ...string) []entitycache.Target {
	targets := []entitycache.Target{r.teamTarget(teamID), r.ownerTarget(teamID)}
	return append(targets, r.memberAggregates(userIDs...)...)
}

// ownerTarget resolves the project or organization pairs of the team owner
// when the cascade runs.
func (r *Teams) ownerTarget(teamID string) entitycache.Target {
	return entitycache.Target{
		Name: "owner of " + r.caches.Teams.Namespace().Key(teamID),
		Keys: func(ctx context.Context) ([]string, error) {
			owner, err := r.stores.Teams.FindOwner(ctx, teamID)
			if err != nil {
				return nil, err
			}

			var keys []string
			for _, id := range owner.ProjectIDs {
				keys = append(keys, r.caches.ProjectDetails.Keys(ctx, id)...)
				keys = append(keys, r.caches.ProjectListItems.Keys(ctx, id)...)
			}
			for _, id := range owner.OrganizationIDs {
				keys = append(keys, r.caches.Organizations.Keys(ctx, id)...)
			}
			return keys, nil
		},
	}
}

// joinMembers attaches user summaries to every member with a single batch
// lookup. Members whose user no longer exists are dropped.
func (r *Teams) joinMembers(ctx context.Context, teams []model.Team) ([]model.Team, error) {
	var userIDs []string
	for _, t := range teams {
		userIDs = append(userIDs, t.MemberIDs()...)
	}

	users, err := r.users.GetMany(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := entitycache.IndexBy(users, func(u model.User) string { return u.ID })

	out := make([]model.Team, len(teams))
	for i, t := range teams {
		members := make([]model.TeamMember, 0, len(t.Members))
		for _, m := range t.Members {
			u, ok := byID[m.UserID]
			if !ok {
				continue
			}
			m.User = u.Summary()
			members = append(members, m)
		}
		model.SortMembers(members)
		t.Members = members
		out[i] = t
	}
	return out, nil
}
