// Package schema describes entity collections: their attributes, the
// references to other collections and how those references are indexed in
// each Scope.
//
// The index type of a reference decides which query plans are possible:
//
//	NONE                            no reduced indexes
//	FOR_FILTERING                   one primary-key index per referenced entity
//	FOR_FILTERING_AND_PARTITIONING  as above, plus attribute indexes
//
// Only partitioned reduced indexes can answer a whole query on their own.
package schema
