package engine

import (
	"fmt"
	"slices"

	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/query"
)

// priceContext holds the currency and the prioritized price lists a filter
// evaluates selling prices in.
type priceContext struct {
	currency   string
	priceLists []string
}

// newPriceContext collects the price context of filter. Nested entity
// filters address another collection and are skipped.
func newPriceContext(filter *query.FilterBy) (priceContext, error) {
	var (
		pc   priceContext
		walk func(c query.Constraint) error
	)
	walk = func(c query.Constraint) error {
		switch c := c.(type) {
		case *query.PriceInCurrency:
			if pc.currency != "" && pc.currency != c.Currency() {
				return fmt.Errorf("%w: conflicting currencies %q and %q", ErrInvalidPriceFilter, pc.currency, c.Currency())
			}
			pc.currency = c.Currency()
		case *query.PriceInPriceLists:
			if pc.priceLists != nil && !slices.Equal(pc.priceLists, c.PriceLists()) {
				return fmt.Errorf("%w: conflicting price lists %s", ErrInvalidPriceFilter, c)
			}
			pc.priceLists = c.PriceLists()
		case *query.EntityHaving:
			return nil
		case query.Container:
			for _, ch := range c.Children() {
				if err := walk(ch); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if filter == nil {
		return pc, nil
	}
	return pc, walk(filter)
}

// compileConjunctive compiles the children of a conjunction. All price
// constraints among them share one termination formula whose predicate is
// the intersection of their ranges.
func (ic *indexCompilation) compileConjunctive(cs []query.Constraint) ([]formula.Formula, error) {
	var (
		rest   []query.Constraint
		pred   formula.PricePredicate
		priced bool
	)
	for _, c := range cs {
		switch c := c.(type) {
		case *query.PriceInCurrency, *query.PriceInPriceLists:
			priced = true
		case *query.PriceBetween:
			p, err := pricePredicate(c)
			if err != nil {
				return nil, err
			}
			pred = narrow(pred, p)
			priced = true
		default:
			rest = append(rest, c)
		}
	}

	out, err := ic.compileAll(rest)
	if err != nil || !priced {
		return out, err
	}
	term, err := ic.priceTermination(pred)
	if err != nil {
		return nil, err
	}
	return append(out, term), nil
}

// priceTermination filters the entities priced in the price context of the
// query by their selling price.
func (ic *indexCompilation) priceTermination(pred formula.PricePredicate) (formula.Formula, error) {
	es := ic.collection.Schema()
	if ic.prices.currency == "" || len(ic.prices.priceLists) == 0 {
		return nil, fmt.Errorf("%w: priceInCurrency and priceInPriceLists are required in %q", ErrInvalidPriceFilter, es.Name)
	}
	pi, ok := ic.collection.Prices(ic.scope)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no prices", ErrInvalidPriceFilter, es.Name)
	}

	var (
		lists     []formula.PriceAmounts
		delegates []formula.Formula
	)
	for _, name := range ic.prices.priceLists {
		pl, ok := pi.List(name, ic.prices.currency)
		if !ok {
			continue
		}
		lists = append(lists, pl)
		delegates = append(delegates, formula.NewConstant(pl.PrimaryKeys()))
	}
	if len(lists) == 0 {
		return formula.Empty, nil
	}
	delegate, err := or(delegates)
	if err != nil {
		return nil, err
	}
	return formula.NewPriceTermination(delegate, ic.prices.currency, lists, pred), nil
}

func pricePredicate(c *query.PriceBetween) (formula.PricePredicate, error) {
	from, err := priceBound(c, c.From())
	if err != nil {
		return formula.PricePredicate{}, err
	}
	to, err := priceBound(c, c.To())
	if err != nil {
		return formula.PricePredicate{}, err
	}
	return formula.PricePredicate{From: from, To: to}, nil
}

func priceBound(c *query.PriceBetween, v metadata.Value) (*int64, error) {
	if v.IsNull() {
		return nil, nil
	}
	amount, ok := v.AsInt64()
	if !ok {
		return nil, fmt.Errorf("%w: %s: bounds are integer amounts in minor units", ErrInvalidPriceFilter, c)
	}
	return &amount, nil
}

// narrow intersects two ranges.
func narrow(a, b formula.PricePredicate) formula.PricePredicate {
	if b.From != nil && (a.From == nil || *b.From > *a.From) {
		a.From = b.From
	}
	if b.To != nil && (a.To == nil || *b.To < *a.To) {
		a.To = b.To
	}
	return a
}
