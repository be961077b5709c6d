package query

import (
	"strings"

	"github.com/hupe1980/evigo/metadata"
)

// PriceInCurrency selects the currency prices are evaluated in.
type PriceInCurrency struct {
	currency string
}

// NewPriceInCurrency creates a currency constraint.
func NewPriceInCurrency(currency string) *PriceInCurrency {
	return &PriceInCurrency{currency: currency}
}

// Currency returns the currency code.
func (c *PriceInCurrency) Currency() string { return c.currency }

func (*PriceInCurrency) isConstraint()  {}
func (c *PriceInCurrency) Name() string { return "priceInCurrency" }
func (c *PriceInCurrency) String() string {
	return c.Name() + "(" + quote(c.currency) + ")"
}

// PriceInPriceLists lists the price lists an entity may be sold from, most
// important first. The first list holding a price of the entity determines
// its selling price.
type PriceInPriceLists struct {
	priceLists []string
}

// NewPriceInPriceLists creates a price list constraint.
func NewPriceInPriceLists(priceLists ...string) *PriceInPriceLists {
	return &PriceInPriceLists{priceLists: priceLists}
}

// PriceLists returns the price lists in priority order.
func (c *PriceInPriceLists) PriceLists() []string { return c.priceLists }

func (*PriceInPriceLists) isConstraint()  {}
func (c *PriceInPriceLists) Name() string { return "priceInPriceLists" }
func (c *PriceInPriceLists) String() string {
	quoted := make([]string, len(c.priceLists))
	for i, l := range c.priceLists {
		quoted[i] = quote(l)
	}
	return c.Name() + "(" + strings.Join(quoted, ", ") + ")"
}

// PriceBetween matches entities whose selling price lies within [from, to].
// Bounds are integers in minor currency units; null bounds are open.
type PriceBetween struct {
	from, to metadata.Value
}

// NewPriceBetween creates a selling price range constraint.
func NewPriceBetween(from, to metadata.Value) *PriceBetween {
	return &PriceBetween{from: from, to: to}
}

func (c *PriceBetween) From() metadata.Value { return c.from }
func (c *PriceBetween) To() metadata.Value   { return c.to }

func (*PriceBetween) isConstraint()  {}
func (c *PriceBetween) Name() string { return "priceBetween" }
func (c *PriceBetween) String() string {
	return c.Name() + "(" + c.from.String() + ", " + c.to.String() + ")"
}
