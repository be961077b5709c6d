package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/hupe1980/evigo/metadata"
)

// ErrInvalidSchema is returned for inconsistent schema definitions.
var ErrInvalidSchema = errors.New("invalid schema")

// ReferenceIndexType controls which indexes are maintained for a reference.
type ReferenceIndexType uint8

const (
	// ReferenceIndexNone keeps the reference as plain data only.
	ReferenceIndexNone ReferenceIndexType = iota
	// ReferenceIndexForFiltering maintains one reduced index per referenced
	// entity holding only the primary keys of the referencing entities.
	ReferenceIndexForFiltering
	// ReferenceIndexForFilteringAndPartitioning additionally partitions the
	// attribute indexes by referenced entity, so that a whole query can run
	// inside one reduced index.
	ReferenceIndexForFilteringAndPartitioning
)

// String returns the string representation of the ReferenceIndexType.
func (t ReferenceIndexType) String() string {
	switch t {
	case ReferenceIndexNone:
		return "NONE"
	case ReferenceIndexForFiltering:
		return "FOR_FILTERING"
	case ReferenceIndexForFilteringAndPartitioning:
		return "FOR_FILTERING_AND_PARTITIONING"
	default:
		return "UNKNOWN"
	}
}

// ParseReferenceIndexType parses the names produced by String.
func ParseReferenceIndexType(s string) (ReferenceIndexType, error) {
	for t := ReferenceIndexNone; t <= ReferenceIndexForFilteringAndPartitioning; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return ReferenceIndexNone, fmt.Errorf("unknown reference index type %q", s)
}

// AttributeSchema describes one entity attribute.
type AttributeSchema struct {
	Name string
	Type metadata.FieldType
	// Filterable attributes are kept in inverted indexes.
	Filterable bool
}

// ReferenceSchema describes a named relation to entities of another type.
type ReferenceSchema struct {
	Name                 string
	ReferencedEntityType string
	// Indexed holds the index type per scope. Missing scopes are not indexed.
	Indexed map[Scope]ReferenceIndexType
}

// IndexType returns the index type configured for scope.
func (r ReferenceSchema) IndexType(scope Scope) ReferenceIndexType {
	return r.Indexed[scope]
}

// IsIndexedIn reports whether reduced indexes exist in scope.
func (r ReferenceSchema) IsIndexedIn(scope Scope) bool {
	return r.IndexType(scope) != ReferenceIndexNone
}

// IsPartitionedIn reports whether reduced indexes in scope hold attributes.
func (r ReferenceSchema) IsPartitionedIn(scope Scope) bool {
	return r.IndexType(scope) == ReferenceIndexForFilteringAndPartitioning
}

// EntitySchema describes one entity collection.
type EntitySchema struct {
	Name string
	// Hierarchical entities may be placed under a parent entity of the
	// same type.
	Hierarchical bool
	// Prices enables the price indexes of the collection.
	Prices bool
	// Scopes lists the scopes entities may live in. Empty means LIVE only.
	Scopes     ScopeSet
	Attributes map[string]AttributeSchema
	References map[string]ReferenceSchema
}

// NewEntitySchema creates an empty schema for the entity type name.
func NewEntitySchema(name string) *EntitySchema {
	return &EntitySchema{
		Name:       name,
		Scopes:     DefaultScopes,
		Attributes: make(map[string]AttributeSchema),
		References: make(map[string]ReferenceSchema),
	}
}

// WithHierarchy marks the entity type as hierarchical.
func (s *EntitySchema) WithHierarchy() *EntitySchema {
	s.Hierarchical = true
	return s
}

// WithPrices enables prices for the entity type.
func (s *EntitySchema) WithPrices() *EntitySchema {
	s.Prices = true
	return s
}

// WithScopes sets the scopes entities may live in.
func (s *EntitySchema) WithScopes(scopes ...Scope) *EntitySchema {
	s.Scopes = NewScopeSet(scopes...)
	return s
}

// WithAttribute declares an attribute.
func (s *EntitySchema) WithAttribute(name string, t metadata.FieldType, filterable bool) *EntitySchema {
	s.Attributes[name] = AttributeSchema{Name: name, Type: t, Filterable: filterable}
	return s
}

// WithReference declares a reference. Scopes not listed in indexed are not
// indexed.
func (s *EntitySchema) WithReference(name, referencedType string, indexed map[Scope]ReferenceIndexType) *EntitySchema {
	s.References[name] = ReferenceSchema{
		Name:                 name,
		ReferencedEntityType: referencedType,
		Indexed:              maps.Clone(indexed),
	}
	return s
}

// Attribute returns the attribute schema by name.
func (s *EntitySchema) Attribute(name string) (AttributeSchema, bool) {
	a, ok := s.Attributes[name]
	return a, ok
}

// Reference returns the reference schema by name.
func (s *EntitySchema) Reference(name string) (ReferenceSchema, bool) {
	r, ok := s.References[name]
	return r, ok
}

// ReferenceNames returns the declared reference names, sorted.
func (s *EntitySchema) ReferenceNames() []string {
	return slices.Sorted(maps.Keys(s.References))
}

// ActiveScopes returns the scopes entities may live in.
func (s *EntitySchema) ActiveScopes() ScopeSet {
	if s.Scopes.IsEmpty() {
		return DefaultScopes
	}
	return s.Scopes
}

// AttributeTypes returns the attribute types as a metadata.Schema.
func (s *EntitySchema) AttributeTypes() metadata.Schema {
	out := make(metadata.Schema, len(s.Attributes))
	for name, a := range s.Attributes {
		out[name] = a.Type
	}
	return out
}

// Validate checks the schema for internal consistency.
func (s *EntitySchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: entity type must not be empty", ErrInvalidSchema)
	}
	for name, a := range s.Attributes {
		if name == "" || a.Name != name {
			return fmt.Errorf("%w: %s: attribute name %q does not match key %q", ErrInvalidSchema, s.Name, a.Name, name)
		}
	}
	for name, r := range s.References {
		if name == "" || r.Name != name {
			return fmt.Errorf("%w: %s: reference name %q does not match key %q", ErrInvalidSchema, s.Name, r.Name, name)
		}
		if r.ReferencedEntityType == "" {
			return fmt.Errorf("%w: %s: reference %q has no referenced entity type", ErrInvalidSchema, s.Name, name)
		}
		for scope, t := range r.Indexed {
			if t != ReferenceIndexNone && !s.ActiveScopes().Contains(scope) {
				return fmt.Errorf("%w: %s: reference %q is indexed in unused scope %s", ErrInvalidSchema, s.Name, name, scope)
			}
		}
	}
	return nil
}
