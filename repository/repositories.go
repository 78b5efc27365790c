package repository

import (
	"context"
	"fmt"

	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	"go.uber.org/zap"
)

// Stores groups the persistence collaborators of every repository.
type Stores struct {
	Users         store.UserStore
	Teams         store.TeamStore
	Organizations store.OrganizationStore
	Projects      store.ProjectStore
	Versions      store.VersionStore
	Collections   store.CollectionStore
	Files         store.FileStore
}

// Repositories is the cached data access layer.
type Repositories struct {
	Users         *Users
	Teams         *Teams
	Organizations *Organizations
	Projects      *Projects
	Versions      *Versions
	Collections   *Collections
	Files         *Files
}

// Option customizes the repositories built by New.
type Option func(*deps)

// WithLogger sets the logger used for cascade and populate failures.
func WithLogger(logger *zap.Logger) Option {
	return func(d *deps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSyncer sets the search index syncer notified of project mutations.
func WithSyncer(syncer *search.Syncer) Option {
	return func(d *deps) {
		if syncer != nil {
			d.syncer = syncer
		}
	}
}

// deps is shared by every entity repository.
type deps struct {
	stores Stores
	caches *Caches
	syncer *search.Syncer
	logger *zap.Logger
}

// New wires the repositories over stores and caches.
func New(stores Stores, caches *Caches, opts ...Option) *Repositories {
	d := &deps{
		stores: stores,
		caches: caches,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.syncer == nil {
		d.syncer = search.NewSyncer(nil, d.logger)
	}
	d.logger = d.logger.Named("repository")

	users := &Users{deps: d, cached: NewCached[model.User](stores.Users, caches.Users)}
	teams := &Teams{deps: d, cached: NewCached[model.Team](stores.Teams, caches.Teams), users: users}
	orgs := &Organizations{deps: d, cached: NewCached[model.Organization](stores.Organizations, caches.Organizations), teams: teams}
	projects := &Projects{deps: d, cached: NewCached[model.Project](stores.Projects, caches.ProjectDetails), teams: teams, orgs: orgs}

	return &Repositories{
		Users:         users,
		Teams:         teams,
		Organizations: orgs,
		Projects:      projects,
		Versions:      &Versions{deps: d},
		Collections:   &Collections{deps: d, cached: NewCached[model.Collection](stores.Collections, caches.Collections)},
		Files:         &Files{deps: d, cached: NewCached[model.File](stores.Files, caches.Files)},
	}
}

// cascade runs the invalidation targets of a committed mutation. Failures
// are logged; the mutation itself is not reported as failed.
func (d *deps) cascade(ctx context.Context, operation string, targets ...entitycache.Target) {
	n, err := d.caches.Invalidator.Invalidate(ctx, operation, targets...)
	if err != nil {
		d.logger.Warn("cascade incomplete, stale entries expire with their ttl",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return
	}
	d.logger.Debug("cascade complete", zap.String("operation", operation), zap.Int64("keys", n))
}

func (d *deps) projectTargets(id string, slugs ...string) []entitycache.Target {
	return []entitycache.Target{
		d.caches.ProjectDetails.Target(id, slugs...),
		d.caches.ProjectListItems.Target(id, slugs...),
	}
}

func (d *deps) versionTarget(projectID string, slugs ...string) entitycache.Target {
	return d.caches.Versions.Target(projectID, slugs...)
}

func (d *deps) organizationTarget(id string, slugs ...string) entitycache.Target {
	return d.caches.Organizations.Target(id, slugs...)
}

func (d *deps) teamTarget(id string) entitycache.Target {
	return d.caches.Teams.Target(id)
}

func (d *deps) userProjects() idList {
	return idList{cache: d.caches.UserProjects, fetch: d.stores.Projects.IDsByMember}
}

func (d *deps) userOrganizations() idList {
	return idList{cache: d.caches.UserOrganizations, fetch: d.stores.Organizations.IDsByMember}
}

func (d *deps) userCollections() idList {
	return idList{cache: d.caches.UserCollections, fetch: d.stores.Collections.IDsByUser}
}

// memberAggregates returns the per-user aggregate targets touched when users
// join or leave a team.
func (d *deps) memberAggregates(userIDs ...string) []entitycache.Target {
	targets := make([]entitycache.Target, 0, 2*len(userIDs))
	for _, id := range entitycache.Dedupe(userIDs) {
		targets = append(targets, d.userProjects().target(id), d.userOrganizations().target(id))
	}
	return targets
}

func (d *deps) populate(operation, id string, err error) {
	if err != nil {
		d.logger.Warn("cache populate failed", zap.String("operation", operation), zap.String("id", id), zap.Error(err))
	}
}

func missingRelation(kind, id, owner string) error {
	return store.NotFound(kind, fmt.Sprintf("%s of %s", id, owner))
}
