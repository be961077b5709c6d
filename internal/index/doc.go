// Package index implements the versioned physical indexes queries are
// planned against.
//
// # Layout
//
// A Catalog holds one Collection per entity type. A Collection maintains
//
//	global index      every entity of a scope, with an attribute index
//	reduced indexes   entities referencing one entity via one reference
//	hierarchy index   tree placement, for hierarchical entity types
//
// Reduced indexes exist only for references indexed in the scope. They carry
// their own attribute index only when the reference is configured for
// partitioning.
//
// # Versions
//
// All bitmaps handed out are immutable snapshots. Every mutation replaces
// the affected snapshot and stamps it with a new catalog-wide version
// (NextVersion). The version doubles as the transactional id of the bitmap,
// so cached results derived from an older snapshot are detected as stale.
package index
