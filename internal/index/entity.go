package index

import (
	"sync"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/metadata"
)

// EntityIndex holds the primary keys of a set of entities and, when
// partitioned, an attribute index over the same entities.
type EntityIndex struct {
	key Key

	mu         sync.RWMutex
	pks        *bitmap.Base
	attributes *AttributeIndex
}

func newEntityIndex(key Key, partitioned bool) *EntityIndex {
	idx := &EntityIndex{key: key, pks: bitmap.New(NextVersion())}
	if partitioned {
		idx.attributes = NewAttributeIndex()
	}
	return idx
}

// Key returns the index key.
func (idx *EntityIndex) Key() Key { return idx.key }

// PrimaryKeys returns the current snapshot of primary keys. Its
// transactional id is the index version.
func (idx *EntityIndex) PrimaryKeys() bitmap.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.pks
}

// Cardinality returns the number of entities in the index.
func (idx *EntityIndex) Cardinality() int {
	return idx.PrimaryKeys().Cardinality()
}

// Version returns the version of the current snapshot.
func (idx *EntityIndex) Version() uint64 {
	return idx.PrimaryKeys().TransactionalID()
}

// Partitioned reports whether the index carries its own attribute index.
func (idx *EntityIndex) Partitioned() bool { return idx.attributes != nil }

// Attributes returns the attribute index of a partitioned index.
func (idx *EntityIndex) Attributes() (*AttributeIndex, bool) {
	return idx.attributes, idx.attributes != nil
}

func (idx *EntityIndex) add(pk uint32, attrs metadata.Document) {
	idx.mu.Lock()
	idx.pks = withKey(idx.pks, pk, true)
	idx.mu.Unlock()

	if idx.attributes != nil {
		idx.attributes.Set(pk, attrs)
	}
}

func (idx *EntityIndex) remove(pk uint32) {
	idx.mu.Lock()
	idx.pks = withKey(idx.pks, pk, false)
	idx.mu.Unlock()

	if idx.attributes != nil {
		idx.attributes.Delete(pk)
	}
}
