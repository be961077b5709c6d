package model

import (
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/schema"
)

// EntityBuilder assembles an Entity.
type EntityBuilder struct {
	e Entity
}

// NewEntity starts building an entity of the given type.
func NewEntity(entityType string, pk PrimaryKey) *EntityBuilder {
	return &EntityBuilder{e: Entity{Type: entityType, PrimaryKey: pk}}
}

// WithAttribute sets an attribute.
func (b *EntityBuilder) WithAttribute(name string, v metadata.Value) *EntityBuilder {
	if b.e.Attributes == nil {
		b.e.Attributes = make(metadata.Document)
	}
	b.e.Attributes[name] = v
	return b
}

// WithReference adds references to the given primary keys.
func (b *EntityBuilder) WithReference(name string, pks ...PrimaryKey) *EntityBuilder {
	for _, pk := range pks {
		b.e.References = append(b.e.References, Reference{Name: name, PrimaryKey: pk})
	}
	return b
}

// WithPrice adds a sellable price. Its id is the position among the prices
// of the entity.
func (b *EntityBuilder) WithPrice(priceList, currency string, amount int64) *EntityBuilder {
	b.e.Prices = append(b.e.Prices, Price{
		ID:        uint32(len(b.e.Prices) + 1),
		PriceList: priceList,
		Currency:  currency,
		Amount:    amount,
		Sellable:  true,
	})
	return b
}

// WithPrices adds prices as given.
func (b *EntityBuilder) WithPrices(prices ...Price) *EntityBuilder {
	b.e.Prices = append(b.e.Prices, prices...)
	return b
}

// WithParent places the entity under parent.
func (b *EntityBuilder) WithParent(parent PrimaryKey) *EntityBuilder {
	b.e.Parent = &parent
	return b
}

// InScope sets the scope of the entity.
func (b *EntityBuilder) InScope(s schema.Scope) *EntityBuilder {
	b.e.Scope = s
	return b
}

// Build returns the assembled entity. The builder may be reused.
func (b *EntityBuilder) Build() *Entity {
	return b.e.Clone()
}
