// Package search keeps the project search index aligned with project
// indexability.
//
// A project is indexable when it is listed and published. Every create,
// update and delete is reduced to a Snapshot of the fields the index cares
// about, and Transition maps the before and after snapshots to one Action:
//
//	before := search.SnapshotOf(old)
//	after := search.SnapshotOf(updated)
//	switch search.Transition(before, after) {
//	case search.ActionAdd, search.ActionUpdate, search.ActionRemove:
//	    // push to the index
//	}
//
// Syncer applies those actions to an Index and logs failures instead of
// returning them; the index is eventually repaired by the next update or by a
// full Reindexer run. MeiliIndex implements Index over the Meilisearch HTTP
// API.
package search
