package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
)

// ErrCorrupt is returned when a serialized bitmap cannot be decoded.
var ErrCorrupt = errors.New("bitmap: corrupt payload")

// Bitmap is an immutable ordered set of primary keys.
type Bitmap interface {
	// Cardinality returns the number of primary keys in the set.
	Cardinality() int
	// IsEmpty returns true if the set contains no keys.
	IsEmpty() bool
	// Contains reports whether pk is a member of the set.
	Contains(pk uint32) bool
	// ForEach iterates keys in ascending order until fn returns false.
	ForEach(fn func(pk uint32) bool)
	// ToArray returns the keys in ascending order.
	ToArray() []uint32
	// TransactionalID returns the version of the index owning this bitmap.
	// Zero means the bitmap is a computed intermediate.
	TransactionalID() uint64
	// ContentHash returns a stable 64-bit hash of the keys.
	ContentHash() uint64
	// Roaring returns the backing bitmap. It must be treated as read-only.
	Roaring() *roaring.Bitmap
}

// Base is the roaring-backed Bitmap implementation.
type Base struct {
	rb   *roaring.Bitmap
	txID uint64

	hashOnce sync.Once
	hash     uint64
}

var _ Bitmap = (*Base)(nil)

// New creates a bitmap owned by the given index version.
func New(txID uint64, pks ...uint32) *Base {
	return &Base{rb: roaring.BitmapOf(pks...), txID: txID}
}

// FromSlice creates an intermediate bitmap from unsorted keys.
func FromSlice(pks []uint32) *Base {
	return New(0, pks...)
}

// Wrap takes ownership of rb. The caller must not modify rb afterwards.
func Wrap(txID uint64, rb *roaring.Bitmap) *Base {
	if rb == nil {
		rb = roaring.New()
	}
	return &Base{rb: rb, txID: txID}
}

func (b *Base) Cardinality() int { return int(b.rb.GetCardinality()) }

func (b *Base) IsEmpty() bool { return b.rb.IsEmpty() }

func (b *Base) Contains(pk uint32) bool { return b.rb.Contains(pk) }

func (b *Base) ForEach(fn func(pk uint32) bool) {
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

func (b *Base) ToArray() []uint32 { return b.rb.ToArray() }

func (b *Base) TransactionalID() uint64 { return b.txID }

func (b *Base) Roaring() *roaring.Bitmap { return b.rb }

// ContentHash hashes the keys in ascending order. The result is memoized.
func (b *Base) ContentHash() uint64 {
	b.hashOnce.Do(func() {
		b.hash = hashKeys(b)
	})
	return b.hash
}

// String renders the keys, abbreviated for large sets.
func (b *Base) String() string {
	return Format(b, 20)
}

type empty struct{}

// Empty is the shared empty bitmap.
var Empty Bitmap = empty{}

var emptyRoaring = roaring.New()

func (empty) Cardinality() int          { return 0 }
func (empty) IsEmpty() bool             { return true }
func (empty) Contains(uint32) bool      { return false }
func (empty) ForEach(func(uint32) bool) {}
func (empty) ToArray() []uint32         { return nil }
func (empty) TransactionalID() uint64   { return 0 }
func (empty) ContentHash() uint64       { return emptyHash }
func (empty) Roaring() *roaring.Bitmap  { return emptyRoaring }
func (empty) String() string            { return "[]" }

var emptyHash = xxhash.Sum64(nil)

func hashKeys(b Bitmap) uint64 {
	d := xxhash.New()
	var buf [4]byte
	b.ForEach(func(pk uint32) bool {
		binary.LittleEndian.PutUint32(buf[:], pk)
		_, _ = d.Write(buf[:])
		return true
	})
	return d.Sum64()
}

// And intersects all bitmaps. No arguments yield Empty.
func And(bms ...Bitmap) Bitmap {
	switch len(bms) {
	case 0:
		return Empty
	case 1:
		return bms[0]
	}
	rbs := make([]*roaring.Bitmap, 0, len(bms))
	for _, b := range bms {
		if b.IsEmpty() {
			return Empty
		}
		rbs = append(rbs, b.Roaring())
	}
	return Wrap(0, roaring.FastAnd(rbs...))
}

// Or unites all bitmaps. No arguments yield Empty.
func Or(bms ...Bitmap) Bitmap {
	switch len(bms) {
	case 0:
		return Empty
	case 1:
		return bms[0]
	}
	rbs := make([]*roaring.Bitmap, 0, len(bms))
	for _, b := range bms {
		if !b.IsEmpty() {
			rbs = append(rbs, b.Roaring())
		}
	}
	if len(rbs) == 0 {
		return Empty
	}
	return Wrap(0, roaring.FastOr(rbs...))
}

// AndNot returns the keys of superset that are not in subtracted.
func AndNot(superset, subtracted Bitmap) Bitmap {
	if superset.IsEmpty() {
		return Empty
	}
	if subtracted.IsEmpty() {
		return superset
	}
	return Wrap(0, roaring.AndNot(superset.Roaring(), subtracted.Roaring()))
}

// Equal reports whether both bitmaps contain the same keys.
func Equal(a, b Bitmap) bool {
	if a.Cardinality() != b.Cardinality() {
		return false
	}
	return a.Roaring().Equals(b.Roaring())
}

// Marshal serializes the keys using the portable roaring format.
// The transactional id is not part of the payload.
func Marshal(b Bitmap) ([]byte, error) {
	return b.Roaring().ToBytes()
}

// Unmarshal decodes a payload produced by Marshal into an intermediate bitmap.
func Unmarshal(data []byte) (Bitmap, error) {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rb.IsEmpty() {
		return Empty, nil
	}
	return Wrap(0, rb), nil
}

// Format renders at most limit keys of b.
func Format(b Bitmap, limit int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	n := 0
	b.ForEach(func(pk uint32) bool {
		if n == limit {
			fmt.Fprintf(&sb, ", ... (%d total)", b.Cardinality())
			return false
		}
		if n > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", pk)
		n++
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}
