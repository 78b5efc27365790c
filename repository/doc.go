// Package repository is the cached data access layer of the platform.
//
// # Overview
//
// Every entity family (users, teams, organizations, projects, versions,
// collections, files) gets a repository that reads through an
// entitycache.EntityCache and writes to a store.Store. Reads are cached;
// writes go to the store first and then run the invalidation cascade the
// mutation requires.
//
//	caches, err := repository.NewCaches(kv, cache.DefaultConfig(), logger, nil)
//	if err != nil {
//		return err
//	}
//	repos := repository.New(stores, caches,
//		repository.WithLogger(logger),
//		repository.WithSyncer(search.NewSyncer(index, logger)),
//	)
//
//	details, err := repos.Projects.GetBySlug(ctx, "sodium")
//
// # Composites
//
// Cached entries hold only their own record. Projects and organizations are
// joined with their team, and teams with their member users, on every read
// using one batch lookup per relation. A renamed user is therefore visible in
// every team without touching team entries. A composite whose required
// relation is missing is dropped from batch reads and reported by single
// reads as an error matched by store.IsNotFound.
//
// # Cascades
//
// Mutations hand their targets to the shared entitycache.Invalidator, which
// deletes them concurrently. A target failure never fails the mutation: the
// store write is committed, the failure is logged and the stale entry expires
// with its TTL.
//
//	team member change   team, owner project/organization pairs, member aggregates
//	project update       details and list item pairs under old and new slug,
//	                     versions on slug change, organizations on owner change
//	version change       version list and both project pairs
//	user update          user pair under old and new username
//	user delete          user pair and the user's project, organization and
//	                     collection lists
//
// # Search
//
// Project and version mutations notify a search.Syncer, which keeps the
// external index in line with project indexability. Projects implements
// search.DocumentSource so the index can render full documents.
package repository
