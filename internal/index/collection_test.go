package index

import (
	"testing"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productSchema() *schema.EntitySchema {
	return schema.NewEntitySchema("product").
		WithScopes(schema.ScopeLive, schema.ScopeArchived).
		WithAttribute("code", metadata.FieldTypeString, true).
		WithAttribute("note", metadata.FieldTypeString, false).
		WithReference("categories", "category", map[schema.Scope]schema.ReferenceIndexType{
			schema.ScopeLive:     schema.ReferenceIndexForFilteringAndPartitioning,
			schema.ScopeArchived: schema.ReferenceIndexForFiltering,
		}).
		WithReference("brand", "brand", nil)
}

func TestCollection_UpsertIndexesEntity(t *testing.T) {
	c := NewCollection(productSchema())

	require.NoError(t, c.Upsert(model.NewEntity("product", 1).
		WithAttribute("code", metadata.String("A")).
		WithAttribute("note", metadata.String("x")).
		WithReference("categories", 5, 6).
		WithReference("brand", 9).
		Build()))
	require.NoError(t, c.Upsert(model.NewEntity("product", 2).
		WithReference("categories", 5).
		InScope(schema.ScopeArchived).
		Build()))

	live, ok := c.GlobalIndex(schema.ScopeLive)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, live.PrimaryKeys().ToArray())
	assert.True(t, live.Partitioned())

	attrs, ok := live.Attributes()
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, attrs.Equals("code", metadata.String("A")).ToArray())
	assert.Zero(t, attrs.Version("note"), "non-filterable attributes are not indexed")

	cat5, ok := c.ReducedIndex(schema.ScopeLive, "categories", 5)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, cat5.PrimaryKeys().ToArray())
	assert.True(t, cat5.Partitioned())

	archived5, ok := c.ReducedIndex(schema.ScopeArchived, "categories", 5)
	require.True(t, ok)
	assert.Equal(t, []uint32{2}, archived5.PrimaryKeys().ToArray())
	assert.False(t, archived5.Partitioned())

	_, ok = c.ReducedIndex(schema.ScopeLive, "brand", 9)
	assert.False(t, ok, "brand is not indexed")

	assert.Equal(t, []uint32{5, 6}, c.ReducedIndexKeys(schema.ScopeLive, "categories"))
	assert.NotZero(t, c.ReferenceVersion(schema.ScopeLive, "categories"))
	assert.Equal(t, 2, c.Size())
}

func TestCollection_UpsertReplacesAndRemove(t *testing.T) {
	c := NewCollection(productSchema())

	require.NoError(t, c.Upsert(model.NewEntity("product", 1).WithReference("categories", 5).Build()))
	v := c.ReferenceVersion(schema.ScopeLive, "categories")

	require.NoError(t, c.Upsert(model.NewEntity("product", 1).WithReference("categories", 6).Build()))
	_, ok := c.ReducedIndex(schema.ScopeLive, "categories", 5)
	assert.False(t, ok, "empty reduced indexes are dropped")
	assert.Greater(t, c.ReferenceVersion(schema.ScopeLive, "categories"), v)

	require.NoError(t, c.Upsert(model.NewEntity("product", 1).InScope(schema.ScopeArchived).Build()))
	live, _ := c.GlobalIndex(schema.ScopeLive)
	archived, _ := c.GlobalIndex(schema.ScopeArchived)
	assert.True(t, live.PrimaryKeys().IsEmpty())
	assert.Equal(t, []uint32{1}, archived.PrimaryKeys().ToArray())

	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))
	assert.True(t, archived.PrimaryKeys().IsEmpty())
	_, ok = c.Entity(1)
	assert.False(t, ok)
}

func TestCollection_EntityReturnsCopy(t *testing.T) {
	c := NewCollection(productSchema())
	require.NoError(t, c.Upsert(model.NewEntity("product", 1).WithAttribute("code", metadata.String("A")).Build()))

	e, ok := c.Entity(1)
	require.True(t, ok)
	e.Attributes["code"] = metadata.String("B")

	again, _ := c.Entity(1)
	assert.Equal(t, metadata.String("A"), again.Attributes["code"])
}

func TestCollection_SnapshotVersions(t *testing.T) {
	c := NewCollection(productSchema())
	live, _ := c.GlobalIndex(schema.ScopeLive)

	before := live.PrimaryKeys()
	require.NoError(t, c.Upsert(model.NewEntity("product", 1).Build()))
	after := live.PrimaryKeys()

	assert.True(t, before.IsEmpty())
	assert.Equal(t, 1, after.Cardinality())
	assert.Greater(t, after.TransactionalID(), before.TransactionalID())
	assert.Equal(t, live.Version(), after.TransactionalID())
}

func TestCollection_Validation(t *testing.T) {
	c := NewCollection(productSchema())
	flat := NewCollection(schema.NewEntitySchema("brand"))

	tests := []struct {
		name   string
		c      *Collection
		entity *model.Entity
		want   error
	}{
		{"type", c, model.NewEntity("brand", 1).Build(), ErrEntityTypeMismatch},
		{"scope", flat, model.NewEntity("brand", 1).InScope(schema.ScopeArchived).Build(), ErrScopeNotAllowed},
		{"attribute", c, model.NewEntity("product", 1).WithAttribute("code", metadata.Int(1)).Build(), metadata.ErrTypeMismatch},
		{"unknown attribute", c, model.NewEntity("product", 1).WithAttribute("x", metadata.Int(1)).Build(), metadata.ErrUnknownAttribute},
		{"reference", c, model.NewEntity("product", 1).WithReference("tags", 1).Build(), ErrUnknownReference},
		{"not hierarchical", c, model.NewEntity("product", 1).WithParent(2).Build(), ErrInvalidParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.c.Upsert(tt.entity), tt.want)
		})
	}
}

func TestCollection_Hierarchy(t *testing.T) {
	c := NewCollection(schema.NewEntitySchema("category").WithHierarchy())

	require.NoError(t, c.Upsert(model.NewEntity("category", 1).Build()))
	require.NoError(t, c.Upsert(model.NewEntity("category", 2).WithParent(1).Build()))
	assert.ErrorIs(t, c.Upsert(model.NewEntity("category", 3).WithParent(3).Build()), ErrInvalidParent)

	h, ok := c.Hierarchy(schema.ScopeLive)
	require.True(t, ok)
	assert.True(t, h.Reachable(2))

	c.Remove(1)
	assert.False(t, h.Reachable(2))

	_, ok = NewCollection(productSchema()).Hierarchy(schema.ScopeLive)
	assert.False(t, ok)
}

func TestCatalog(t *testing.T) {
	cat := NewCatalog()

	_, err := cat.Define(productSchema())
	require.NoError(t, err)
	_, err = cat.Define(schema.NewEntitySchema("category").WithHierarchy())
	require.NoError(t, err)

	_, err = cat.Define(productSchema())
	assert.ErrorIs(t, err, ErrCollectionExists)
	_, err = cat.Define(schema.NewEntitySchema(""))
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)

	col, err := cat.Collection("product")
	require.NoError(t, err)
	assert.Equal(t, "product", col.Schema().Name)

	_, err = cat.Collection("missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	assert.Equal(t, []string{"category", "product"}, cat.Names())
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "GLOBAL/LIVE", GlobalKey(schema.ScopeLive).String())
	assert.Equal(t, "REFERENCED_ENTITY/ARCHIVED/categories:5", ReducedKey(schema.ScopeArchived, "categories", 5).String())
}
