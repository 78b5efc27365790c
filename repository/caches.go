package repository

import (
	"github.com/goliatone/go-entitycache/cache"
	"github.com/goliatone/go-entitycache/entitycache"
	"github.com/goliatone/go-entitycache/model"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Caches holds one EntityCache per entity family plus the cascade runner,
// all sharing a single key/value store.
type Caches struct {
	Users            *entitycache.EntityCache[model.User]
	Teams            *entitycache.EntityCache[model.Team]
	Organizations    *entitycache.EntityCache[model.Organization]
	ProjectDetails   *entitycache.EntityCache[model.Project]
	ProjectListItems *entitycache.EntityCache[model.ProjectListItem]
	Versions         *entitycache.EntityCache[model.ProjectVersions]
	Collections      *entitycache.EntityCache[model.Collection]
	Files            *entitycache.EntityCache[model.File]

	UserProjects      *entitycache.EntityCache[model.IDList]
	UserOrganizations *entitycache.EntityCache[model.IDList]
	UserCollections   *entitycache.EntityCache[model.IDList]

	Invalidator *entitycache.Invalidator
}

// NewCaches builds every entity cache over kv using the TTLs in cfg.
func NewCaches(kv cache.KeyValueStore, cfg cache.Config, logger *zap.Logger, meter metric.Meter) (*Caches, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := cacheBuilder{kv: kv, cfg: cfg, logger: logger, meter: meter}

	var (
		c    = &Caches{}
		errs error
		err  error
	)

	c.Users, err = build(b, cache.NamespaceUser, func(u model.User) string { return u.ID }, func(u model.User) string { return u.UserName })
	errs = multierr.Append(errs, err)
	c.Teams, err = build(b, cache.NamespaceTeam, func(t model.Team) string { return t.ID }, nil)
	errs = multierr.Append(errs, err)
	c.Organizations, err = build(b, cache.NamespaceOrganization, func(o model.Organization) string { return o.ID }, func(o model.Organization) string { return o.Slug })
	errs = multierr.Append(errs, err)
	c.ProjectDetails, err = build(b, cache.NamespaceProjectDetails, func(p model.Project) string { return p.ID }, func(p model.Project) string { return p.Slug })
	errs = multierr.Append(errs, err)
	c.ProjectListItems, err = build(b, cache.NamespaceProjectListItem, func(p model.ProjectListItem) string { return p.ID }, func(p model.ProjectListItem) string { return p.Slug })
	errs = multierr.Append(errs, err)
	c.Versions, err = build(b, cache.NamespaceProjectVersions, func(v model.ProjectVersions) string { return v.ID }, func(v model.ProjectVersions) string { return v.Slug })
	errs = multierr.Append(errs, err)
	c.Collections, err = build(b, cache.NamespaceCollection, func(col model.Collection) string { return col.ID }, nil)
	errs = multierr.Append(errs, err)
	c.Files, err = build(b, cache.NamespaceFile, func(f model.File) string { return f.ID }, nil)
	errs = multierr.Append(errs, err)

	owner := func(l model.IDList) string { return l.OwnerID }
	c.UserProjects, err = build(b, cache.NamespaceUserProjects, owner, nil)
	errs = multierr.Append(errs, err)
	c.UserOrganizations, err = build(b, cache.NamespaceUserOrganizations, owner, nil)
	errs = multierr.Append(errs, err)
	c.UserCollections, err = build(b, cache.NamespaceUserCollections, owner, nil)
	errs = multierr.Append(errs, err)

	if errs != nil {
		return nil, errs
	}

	c.Invalidator = entitycache.NewInvalidator(kv,
		entitycache.WithInvalidatorLogger(logger.Named("cascade")),
		entitycache.WithInvalidatorConcurrency(cfg.BatchConcurrency),
		entitycache.WithInvalidatorMeter(meter),
	)
	return c, nil
}

type cacheBuilder struct {
	kv     cache.KeyValueStore
	cfg    cache.Config
	logger *zap.Logger
	meter  metric.Meter
}

func build[T any](b cacheBuilder, ns cache.Namespace, id, secondary func(T) string) (*entitycache.EntityCache[T], error) {
	return entitycache.New(b.kv, entitycache.Options[T]{
		Namespace:    ns,
		TTL:          b.cfg.TTL(ns),
		ID:           id,
		SecondaryKey: secondary,
		Logger:       b.logger,
		Meter:        b.meter,
		Concurrency:  b.cfg.BatchConcurrency,
	})
}
