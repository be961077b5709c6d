package evigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evigo/internal/engine"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned for operations on a closed DB.
	ErrClosed = errors.New("evigo: closed")
	// ErrInvalidArgument is returned for nil or malformed arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEntityTypeNotFound is returned for entity types that were never defined.
	ErrEntityTypeNotFound = errors.New("entity type not found")
	// ErrEntityTypeExists is returned when an entity type is defined twice.
	ErrEntityTypeExists = errors.New("entity type already defined")
	// ErrInvalidEntity is returned when an entity violates its schema.
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidQuery is returned for queries that cannot be planned as
	// written.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInternalInconsistency signals a planner bug. Only the current query
	// fails.
	ErrInternalInconsistency = errors.New("internal inconsistency")
	// ErrBudgetExceeded is returned when a query exhausts its budget.
	ErrBudgetExceeded = errors.New("query budget exceeded")
	// ErrBackpressure is returned when the concurrent query limit is reached.
	ErrBackpressure = errors.New("backpressure")
)

// ErrReferenceNotIndexed indicates a filter by a reference that has no
// reduced indexes in one of the queried scopes.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrReferenceNotIndexed struct {
	EntityType string
	Reference  string
	Scope      schema.Scope
	cause      error
}

func (e *ErrReferenceNotIndexed) Error() string {
	return fmt.Sprintf("reference %q of entity %q is not indexed in scope %s", e.Reference, e.EntityType, e.Scope)
}

func (e *ErrReferenceNotIndexed) Unwrap() error { return e.cause }

// ErrAttributeNotFilterable indicates a filter by an attribute that is not
// declared or not filterable.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrAttributeNotFilterable struct {
	EntityType string
	Attribute  string
	cause      error
}

func (e *ErrAttributeNotFilterable) Error() string {
	return fmt.Sprintf("attribute %q of entity %q is not filterable", e.Attribute, e.EntityType)
}

func (e *ErrAttributeNotFilterable) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Catalog errors.
	if errors.Is(err, index.ErrCollectionNotFound) {
		return fmt.Errorf("%w: %w", ErrEntityTypeNotFound, err)
	}
	if errors.Is(err, index.ErrCollectionExists) {
		return fmt.Errorf("%w: %w", ErrEntityTypeExists, err)
	}
	if errors.Is(err, schema.ErrInvalidSchema) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	// Entity validation.
	if errors.Is(err, index.ErrEntityTypeMismatch) ||
		errors.Is(err, index.ErrScopeNotAllowed) ||
		errors.Is(err, index.ErrUnknownReference) ||
		errors.Is(err, index.ErrInvalidParent) ||
		errors.Is(err, index.ErrInvalidPrice) ||
		errors.Is(err, metadata.ErrUnknownAttribute) ||
		errors.Is(err, metadata.ErrTypeMismatch) {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	// Query planning.
	var rni *planner.ReferenceNotIndexedError
	if errors.As(err, &rni) {
		return &ErrReferenceNotIndexed{EntityType: rni.EntityType, Reference: rni.Reference, Scope: rni.Scope, cause: err}
	}
	var anf *engine.AttributeNotFilterableError
	if errors.As(err, &anf) {
		return &ErrAttributeNotFilterable{EntityType: anf.EntityType, Attribute: anf.Attribute, cause: err}
	}
	if errors.Is(err, planner.ErrReferenceNotFound) ||
		errors.Is(err, planner.ErrReferenceNotHierarchical) ||
		errors.Is(err, engine.ErrInvalidPriceFilter) ||
		errors.Is(err, query.ErrSyntax) {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if errors.Is(err, planner.ErrInternalInconsistency) {
		return fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
	}

	// Execution limits.
	if errors.Is(err, engine.ErrBudgetExceeded) {
		return fmt.Errorf("%w: %w", ErrBudgetExceeded, err)
	}
	if errors.Is(err, engine.ErrBackpressure) {
		return fmt.Errorf("%w: %w", ErrBackpressure, err)
	}

	return err
}
