// Package bitmap provides the immutable primary-key set used by the query core.
//
// A Bitmap is an ordered set of uint32 entity primary keys backed by a Roaring
// bitmap. Every bitmap handed out by an index carries the transactional id
// (version) of the index it was taken from, so cached computations built on
// top of it can detect staleness by comparing versions:
//
//	snapshot := bitmap.New(42, 1, 2, 3) // owned by index version 42
//	snapshot.TransactionalID()          // 42
//
// Bitmaps produced by set operations (And, Or, AndNot) are intermediates and
// report a transactional id of zero.
//
// # Immutability
//
// Bitmaps are never modified after construction. Wrap takes ownership of the
// passed roaring bitmap; callers must not touch it afterwards. Roaring returns
// the backing bitmap for read-only use with the roaring API.
package bitmap
