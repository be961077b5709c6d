package model

import (
	"testing"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityBuilder(t *testing.T) {
	b := NewEntity("product", 7).
		WithAttribute("price", metadata.Int(10)).
		WithReference("categories", 1, 2).
		WithReference("brand", 3).
		WithParent(5).
		InScope(schema.ScopeArchived)

	e := b.Build()
	assert.Equal(t, "product", e.Type)
	assert.Equal(t, PrimaryKey(7), e.PrimaryKey)
	assert.Equal(t, schema.ScopeArchived, e.ScopeOrDefault())
	require.NotNil(t, e.Parent)
	assert.Equal(t, PrimaryKey(5), *e.Parent)
	assert.Equal(t, []PrimaryKey{1, 2}, e.ReferencedKeys("categories"))
	assert.Equal(t, []PrimaryKey{3}, e.ReferencedKeys("brand"))
	assert.Empty(t, e.ReferencedKeys("tags"))
	assert.Equal(t, "product(7)", e.String())

	// Builds are independent of each other.
	b.WithAttribute("price", metadata.Int(20))
	assert.Equal(t, metadata.Int(10), e.Attributes["price"])
	assert.Equal(t, metadata.Int(20), b.Build().Attributes["price"])
}

func TestEntity_ScopeOrDefault(t *testing.T) {
	assert.Equal(t, schema.ScopeLive, NewEntity("a", 1).Build().ScopeOrDefault())
}

func TestEntity_Clone(t *testing.T) {
	e := NewEntity("a", 1).
		WithAttribute("x", metadata.String("v")).
		WithReference("r", 2).
		WithParent(3).
		Build()

	c := e.Clone()
	*c.Parent = 9
	c.Attributes["x"] = metadata.String("w")
	c.References[0].PrimaryKey = 8

	assert.Equal(t, PrimaryKey(3), *e.Parent)
	assert.Equal(t, metadata.String("v"), e.Attributes["x"])
	assert.Equal(t, PrimaryKey(2), e.References[0].PrimaryKey)
	assert.Equal(t, "r:2", e.References[0].String())
}

func TestEntity_SellingPrice(t *testing.T) {
	e := NewEntity("product", 1).
		WithPrice("basic", "EUR", 1000).
		WithPrice("vip", "EUR", 800).
		WithPrice("basic", "USD", 1200).
		WithPrices(Price{ID: 9, PriceList: "reference", Currency: "EUR", Amount: 500}).
		Build()

	p, ok := e.SellingPrice("EUR", "vip", "basic")
	require.True(t, ok)
	assert.Equal(t, int64(800), p.Amount)
	assert.Equal(t, uint32(2), p.ID)

	p, ok = e.SellingPrice("EUR", "missing", "basic")
	require.True(t, ok)
	assert.Equal(t, "basic/EUR:1000", p.String())

	_, ok = e.SellingPrice("EUR", "reference")
	assert.False(t, ok, "prices that are not sellable never sell")

	_, ok = e.SellingPrice("CZK", "basic")
	assert.False(t, ok)

	c := e.Clone()
	c.Prices[0].Amount = 1
	assert.Equal(t, int64(1000), e.Prices[0].Amount)
}
