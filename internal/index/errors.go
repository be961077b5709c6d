package index

import "errors"

var (
	// ErrCollectionExists is returned when a collection is defined twice.
	ErrCollectionExists = errors.New("collection already exists")
	// ErrCollectionNotFound is returned for unknown entity types.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrEntityTypeMismatch is returned when an entity is stored in the
	// collection of another type.
	ErrEntityTypeMismatch = errors.New("entity type mismatch")
	// ErrScopeNotAllowed is returned for entities in a scope the schema does
	// not enable.
	ErrScopeNotAllowed = errors.New("scope not allowed")
	// ErrUnknownReference is returned for references missing in the schema.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrInvalidParent is returned for misplaced hierarchy parents.
	ErrInvalidParent = errors.New("invalid hierarchy parent")
	// ErrInvalidPrice is returned for prices the collection cannot index.
	ErrInvalidPrice = errors.New("invalid price")
)
