package index

import (
	"sync"
	"unique"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/metadata"
)

// AttributeIndex is an inverted index of filterable attributes.
//
// Architecture:
//   - Primary storage: map[pk]InternedDocument (the indexed attributes)
//   - Inverted index: attribute -> value key -> bitmap snapshot
//
// Every bucket bitmap is an immutable snapshot tagged with its own version.
// Mutations replace the snapshot instead of modifying it, so bitmaps handed
// out to formulas never change.
type AttributeIndex struct {
	mu sync.RWMutex

	documents map[uint32]metadata.InternedDocument
	inverted  map[unique.Handle[string]]*attributeColumn
}

type attributeColumn struct {
	version uint64
	buckets map[unique.Handle[string]]*valueBucket
}

type valueBucket struct {
	value metadata.Value
	pks   *bitmap.Base
}

// NewAttributeIndex creates an empty attribute index.
func NewAttributeIndex() *AttributeIndex {
	return &AttributeIndex{
		documents: make(map[uint32]metadata.InternedDocument),
		inverted:  make(map[unique.Handle[string]]*attributeColumn),
	}
}

// Set stores the attributes of pk, replacing any previous ones.
func (ai *AttributeIndex) Set(pk uint32, doc metadata.Document) {
	iDoc := doc.Intern()

	ai.mu.Lock()
	defer ai.mu.Unlock()

	if old, ok := ai.documents[pk]; ok {
		ai.removeLocked(pk, old)
	}
	if len(iDoc) == 0 {
		delete(ai.documents, pk)
		return
	}
	ai.documents[pk] = iDoc
	ai.addLocked(pk, iDoc)
}

// Delete removes pk from the index.
func (ai *AttributeIndex) Delete(pk uint32) {
	ai.mu.Lock()
	defer ai.mu.Unlock()

	if old, ok := ai.documents[pk]; ok {
		ai.removeLocked(pk, old)
		delete(ai.documents, pk)
	}
}

// Len returns the number of indexed entities.
func (ai *AttributeIndex) Len() int {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return len(ai.documents)
}

// Version returns the version of the attribute column. Zero means the
// attribute was never indexed.
func (ai *AttributeIndex) Version(attribute string) uint64 {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	if col, ok := ai.inverted[unique.Make(attribute)]; ok {
		return col.version
	}
	return 0
}

// Equals returns the snapshot of entities whose attribute equals v. Array
// attributes match when any element equals v. A miss yields an empty bitmap
// tagged with the column version.
func (ai *AttributeIndex) Equals(attribute string, v metadata.Value) bitmap.Bitmap {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	col, ok := ai.inverted[unique.Make(attribute)]
	if !ok {
		return bitmap.Empty
	}
	if b, ok := col.buckets[unique.Make(v.Normalize().Key())]; ok {
		return b.pks
	}
	return bitmap.New(col.version)
}

// InSet returns one snapshot per value that has matching entities.
func (ai *AttributeIndex) InSet(attribute string, values ...metadata.Value) []bitmap.Bitmap {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	out := make([]bitmap.Bitmap, 0, len(values))
	seen := make(map[*valueBucket]struct{}, len(values))
	for _, v := range values {
		b := ai.bucketLocked(attribute, v)
		if b == nil {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b.pks)
	}
	return out
}

// Between returns the snapshots of every value within [from, to]. Null bounds
// are open. The scan visits every distinct value of the attribute.
func (ai *AttributeIndex) Between(attribute string, from, to metadata.Value) []bitmap.Bitmap {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	col, ok := ai.inverted[unique.Make(attribute)]
	if !ok {
		return nil
	}
	var out []bitmap.Bitmap
	for _, b := range col.buckets {
		if metadata.InRange(b.value, from, to) {
			out = append(out, b.pks)
		}
	}
	return out
}

func (ai *AttributeIndex) bucketLocked(attribute string, v metadata.Value) *valueBucket {
	col, ok := ai.inverted[unique.Make(attribute)]
	if !ok {
		return nil
	}
	return col.buckets[unique.Make(v.Normalize().Key())]
}

// addLocked adds a document to the inverted index.
// Caller must hold ai.mu.Lock().
func (ai *AttributeIndex) addLocked(pk uint32, doc metadata.InternedDocument) {
	for field, value := range doc {
		col, ok := ai.inverted[field]
		if !ok {
			col = &attributeColumn{buckets: make(map[unique.Handle[string]]*valueBucket)}
			ai.inverted[field] = col
		}
		for _, v := range indexedValues(value) {
			key := unique.Make(v.Key())
			b, ok := col.buckets[key]
			if !ok {
				b = &valueBucket{value: v, pks: bitmap.New(0)}
				col.buckets[key] = b
			}
			b.pks = withKey(b.pks, pk, true)
		}
		col.version = NextVersion()
	}
}

// removeLocked removes a document from the inverted index.
// Caller must hold ai.mu.Lock().
func (ai *AttributeIndex) removeLocked(pk uint32, doc metadata.InternedDocument) {
	for field, value := range doc {
		col, ok := ai.inverted[field]
		if !ok {
			continue
		}
		for _, v := range indexedValues(value) {
			key := unique.Make(v.Key())
			b, ok := col.buckets[key]
			if !ok {
				continue
			}
			b.pks = withKey(b.pks, pk, false)
			if b.pks.IsEmpty() {
				delete(col.buckets, key)
			}
		}
		col.version = NextVersion()
	}
}

// indexedValues returns the normalized values a document value is indexed
// under: the elements of an array, or the value itself.
func indexedValues(v metadata.Value) []metadata.Value {
	if v.IsNull() {
		return nil
	}
	if arr, ok := v.AsArray(); ok {
		out := make([]metadata.Value, 0, len(arr))
		for _, e := range arr {
			if !e.IsNull() {
				out = append(out, e.Normalize())
			}
		}
		return out
	}
	return []metadata.Value{v.Normalize()}
}

// withKey returns a new snapshot of b with pk added or removed.
func withKey(b *bitmap.Base, pk uint32, add bool) *bitmap.Base {
	rb := b.Roaring().Clone()
	if add {
		rb.Add(pk)
	} else {
		rb.Remove(pk)
	}
	return snapshot(rb)
}

func snapshot(rb *roaring.Bitmap) *bitmap.Base {
	rb.RunOptimize()
	return bitmap.Wrap(NextVersion(), rb)
}
