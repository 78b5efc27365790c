// Package cache provides the key/value contract and the key addressing scheme
// shared by every entity cache.
//
// # Overview
//
// This package exports:
//
//   - KeyValueStore: get, set with TTL, and multi-key delete over an external store
//   - Namespace: the registry of key spaces, one per entity family
//   - Config / NewStore: backend selection (redis or in-process) and per-namespace TTLs
//
// # Key Construction
//
// Keys are "{namespace}:{identifier}":
//
//	cache.NamespaceUser.Key("u_123")                               // "user-data:u_123"
//	cache.NamespaceUser.Key(cache.NormalizeIdentifier("Alice"))    // "user-data:alice"
//
// Ids are opaque and case sensitive. Human chosen identifiers (slugs,
// usernames) are lowercased with NormalizeIdentifier before use so lookups are
// case insensitive.
//
// # Namespace Registry
//
// All namespaces are declared in one place and registered at init. Register
// rejects a name that is already taken, so two unrelated entity families can
// never write into the same key space. Entity caches refuse unregistered
// namespaces.
//
// # Error Handling
//
// Stores report errors; they never swallow them. The entitycache package treats
// every store error as a miss (fail open), so a read never fails only because
// the cache is unavailable.
//
// # See Also
//
// The entitycache package builds typed read-through/write-through caches,
// batch resolution and invalidation on top of KeyValueStore.
package cache
