package index

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/evigo/schema"
)

var versionSequence atomic.Uint64

// NextVersion returns a new catalog-wide unique index version. Every
// mutation of an index stamps its state with a fresh version, so a version
// identifies one immutable snapshot.
func NextVersion() uint64 { return versionSequence.Add(1) }

// Type distinguishes global from reduced entity indexes.
type Type uint8

const (
	// TypeGlobal holds every entity of a collection in one scope.
	TypeGlobal Type = iota + 1
	// TypeReducedEntity holds the entities referencing one entity through
	// one reference.
	TypeReducedEntity
)

// String returns the string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeGlobal:
		return "GLOBAL"
	case TypeReducedEntity:
		return "REFERENCED_ENTITY"
	default:
		return "UNKNOWN"
	}
}

// Key identifies an entity index within a collection.
type Key struct {
	Type  Type
	Scope schema.Scope
	// Reference and PrimaryKey are only set for TypeReducedEntity.
	Reference  string
	PrimaryKey uint32
}

// GlobalKey returns the key of the global index of scope.
func GlobalKey(scope schema.Scope) Key {
	return Key{Type: TypeGlobal, Scope: scope}
}

// ReducedKey returns the key of the index of entities referencing pk via
// reference in scope.
func ReducedKey(scope schema.Scope, reference string, pk uint32) Key {
	return Key{Type: TypeReducedEntity, Scope: scope, Reference: reference, PrimaryKey: pk}
}

func (k Key) String() string {
	if k.Type == TypeGlobal {
		return fmt.Sprintf("%s/%s", k.Type, k.Scope)
	}
	return fmt.Sprintf("%s/%s/%s:%d", k.Type, k.Scope, k.Reference, k.PrimaryKey)
}
