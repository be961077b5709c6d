package model

import (
	"fmt"
	"slices"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/schema"
)

// PrimaryKey identifies an entity within its collection.
type PrimaryKey = uint32

// Reference links an entity to one entity of another collection.
type Reference struct {
	// Name is the reference name declared in the schema.
	Name string
	// PrimaryKey is the primary key of the referenced entity.
	PrimaryKey PrimaryKey
}

// String returns a string representation of the Reference.
func (r Reference) String() string {
	return fmt.Sprintf("%s:%d", r.Name, r.PrimaryKey)
}

// Price is one price of an entity in a price list and currency.
type Price struct {
	ID        uint32
	PriceList string
	Currency  string
	// Amount is expressed in minor currency units.
	Amount int64
	// Sellable prices take part in price filtering. Other prices are kept
	// for reference only.
	Sellable bool
}

// String returns a string representation of the Price.
func (p Price) String() string {
	return fmt.Sprintf("%s/%s:%d", p.PriceList, p.Currency, p.Amount)
}

// Entity is the unit of data stored in a collection.
type Entity struct {
	Type       string
	PrimaryKey PrimaryKey
	// Scope defaults to schema.ScopeLive.
	Scope schema.Scope
	// Parent places a hierarchical entity under another entity of the same
	// type. Nil means the entity is a root.
	Parent     *PrimaryKey
	Attributes metadata.Document
	References []Reference
	Prices     []Price
}

// ScopeOrDefault returns the scope of the entity, defaulting to LIVE.
func (e *Entity) ScopeOrDefault() schema.Scope {
	if e.Scope == 0 {
		return schema.ScopeLive
	}
	return e.Scope
}

// ReferencedKeys returns the primary keys referenced under name.
func (e *Entity) ReferencedKeys(name string) []PrimaryKey {
	var out []PrimaryKey
	for _, r := range e.References {
		if r.Name == name {
			out = append(out, r.PrimaryKey)
		}
	}
	return out
}

// SellingPrice returns the first sellable price in currency found in
// priceLists, which are ordered by priority.
func (e *Entity) SellingPrice(currency string, priceLists ...string) (Price, bool) {
	for _, list := range priceLists {
		for _, p := range e.Prices {
			if p.Sellable && p.PriceList == list && p.Currency == currency {
				return p, true
			}
		}
	}
	return Price{}, false
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Parent != nil {
		p := *e.Parent
		c.Parent = &p
	}
	c.Attributes = e.Attributes.Clone()
	c.References = slices.Clone(e.References)
	c.Prices = slices.Clone(e.Prices)
	return &c
}

// String returns a string representation of the Entity.
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%d)", e.Type, e.PrimaryKey)
}
