// Package entitycache implements typed cache-aside access for entity
// families on top of a cache.KeyValueStore.
//
// An EntityCache[T] is parameterized by namespace, id extractor, optional
// secondary key extractor and TTL:
//
//	users, err := entitycache.New(store, entitycache.Options[model.User]{
//		Namespace:    cache.NamespaceUser,
//		TTL:          6 * time.Hour,
//		ID:           func(u model.User) string { return u.ID },
//		SecondaryKey: func(u model.User) string { return u.UserName },
//	})
//
// Records with a secondary key are written as a key pair: the id key holds
// "@" followed by the normalized secondary key, and the secondary key holds
// the JSON payload. Get accepts either identifier. Values starting with '{'
// or '[' are payloads; anything else is a pointer.
//
// GetMany resolves a batch: duplicate ids collapse, cached ids are served
// concurrently and the remaining ids are loaded with one fetch call, then
// written back.
//
// Invalidator deletes cascades of Targets concurrently. Each target fails on
// its own and failures come back as an *InvalidationError; nothing is
// retried or rolled back.
//
// All reads fail open: store errors, malformed payloads and dangling
// pointers are misses.
package entitycache
