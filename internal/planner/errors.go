package planner

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evigo/schema"
)

var (
	// ErrReferenceNotFound is returned when a constraint names a reference
	// the schema does not declare.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrReferenceNotIndexed is wrapped by ReferenceNotIndexedError.
	ErrReferenceNotIndexed = errors.New("reference not indexed")
	// ErrReferenceNotHierarchical is returned when a hierarchy constraint
	// targets a reference to a non-hierarchical entity type.
	ErrReferenceNotHierarchical = errors.New("referenced entity type is not hierarchical")
	// ErrInternalInconsistency is wrapped by InternalInconsistencyError.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// ReferenceNotIndexedError reports filtering by a reference that has no
// reduced indexes in one of the queried scopes. The query cannot be
// satisfied as written.
type ReferenceNotIndexedError struct {
	EntityType string
	Reference  string
	Scope      schema.Scope
}

func (e *ReferenceNotIndexedError) Error() string {
	return fmt.Sprintf("reference %q of entity %q is not indexed in scope %s", e.Reference, e.EntityType, e.Scope)
}

func (e *ReferenceNotIndexedError) Unwrap() error { return ErrReferenceNotIndexed }

// InternalInconsistencyError signals a planner bug. It fails the current
// query only.
type InternalInconsistencyError struct {
	Detail string
}

func (e *InternalInconsistencyError) Error() string {
	return "internal inconsistency: " + e.Detail
}

func (e *InternalInconsistencyError) Unwrap() error { return ErrInternalInconsistency }
