package index

import (
	"testing"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func union(bms []bitmap.Bitmap) []uint32 {
	return nilIfEmpty(bitmap.Or(bms...).ToArray())
}

func TestAttributeIndex_Equals(t *testing.T) {
	ai := NewAttributeIndex()
	ai.Set(1, metadata.Document{"color": metadata.String("red"), "size": metadata.Int(3)})
	ai.Set(2, metadata.Document{"color": metadata.String("blue"), "size": metadata.Int(5)})
	ai.Set(3, metadata.Document{"color": metadata.String("red")})

	assert.Equal(t, []uint32{1, 3}, ai.Equals("color", metadata.String("red")).ToArray())
	assert.Equal(t, []uint32{2}, ai.Equals("size", metadata.Float(5)).ToArray(), "numbers are normalized")
	assert.Equal(t, 3, ai.Len())

	miss := ai.Equals("color", metadata.String("green"))
	assert.True(t, miss.IsEmpty())
	assert.Equal(t, ai.Version("color"), miss.TransactionalID(), "a miss depends on the column")

	assert.Same(t, bitmap.Empty, ai.Equals("unknown", metadata.Int(1)))
	assert.Zero(t, ai.Version("unknown"))
}

func TestAttributeIndex_SnapshotsAreImmutable(t *testing.T) {
	ai := NewAttributeIndex()
	ai.Set(1, metadata.Document{"color": metadata.String("red")})

	snap := ai.Equals("color", metadata.String("red"))
	v := ai.Version("color")

	ai.Set(2, metadata.Document{"color": metadata.String("red")})
	assert.Equal(t, []uint32{1}, snap.ToArray())
	assert.Equal(t, []uint32{1, 2}, ai.Equals("color", metadata.String("red")).ToArray())
	assert.Greater(t, ai.Version("color"), v)

	next := ai.Equals("color", metadata.String("red"))
	assert.NotEqual(t, snap.TransactionalID(), next.TransactionalID())
}

func TestAttributeIndex_ReplaceAndDelete(t *testing.T) {
	ai := NewAttributeIndex()
	ai.Set(1, metadata.Document{"color": metadata.String("red")})
	ai.Set(1, metadata.Document{"color": metadata.String("blue")})

	assert.True(t, ai.Equals("color", metadata.String("red")).IsEmpty())
	assert.Equal(t, []uint32{1}, ai.Equals("color", metadata.String("blue")).ToArray())

	ai.Delete(1)
	assert.True(t, ai.Equals("color", metadata.String("blue")).IsEmpty())
	assert.Zero(t, ai.Len())

	ai.Set(2, metadata.Document{})
	assert.Zero(t, ai.Len(), "empty documents are not stored")
}

func TestAttributeIndex_Arrays(t *testing.T) {
	ai := NewAttributeIndex()
	ai.Set(1, metadata.Document{"tags": metadata.Array([]metadata.Value{metadata.String("a"), metadata.String("b")})})
	ai.Set(2, metadata.Document{"tags": metadata.Array([]metadata.Value{metadata.String("b"), metadata.Null()})})

	assert.Equal(t, []uint32{1}, ai.Equals("tags", metadata.String("a")).ToArray())
	assert.Equal(t, []uint32{1, 2}, ai.Equals("tags", metadata.String("b")).ToArray())
}

func TestAttributeIndex_InSetAndBetween(t *testing.T) {
	ai := NewAttributeIndex()
	for pk, size := range map[uint32]int64{1: 1, 2: 5, 3: 10, 4: 15} {
		ai.Set(pk, metadata.Document{"size": metadata.Int(size)})
	}

	in := ai.InSet("size", metadata.Int(5), metadata.Int(15), metadata.Int(5), metadata.Int(99))
	require.Len(t, in, 2, "duplicates and misses are dropped")
	assert.Equal(t, []uint32{2, 4}, union(in))

	assert.Equal(t, []uint32{2, 3}, union(ai.Between("size", metadata.Int(5), metadata.Int(10))))
	assert.Equal(t, []uint32{3, 4}, union(ai.Between("size", metadata.Float(9.5), metadata.Null())))
	assert.Equal(t, []uint32{1}, union(ai.Between("size", metadata.Null(), metadata.Int(4))))
	assert.Nil(t, ai.Between("unknown", metadata.Null(), metadata.Null()))
}
