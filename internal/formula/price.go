package formula

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
)

const classIDPriceTermination uint64 = 0x6f2d8a41c35e9b07

// PriceAmounts resolves the price of an entity within one price list.
type PriceAmounts interface {
	Name() string
	Amount(pk uint32) (int64, bool)
}

// PricePredicate bounds the selling price. Nil bounds are open.
type PricePredicate struct {
	From *int64
	To   *int64
}

// Matches reports whether amount lies within the bounds.
func (p PricePredicate) Matches(amount int64) bool {
	if p.From != nil && amount < *p.From {
		return false
	}
	if p.To != nil && amount > *p.To {
		return false
	}
	return true
}

// IsOpen reports whether the predicate accepts every amount.
func (p PricePredicate) IsOpen() bool { return p.From == nil && p.To == nil }

func (p PricePredicate) String() string {
	bound := func(b *int64) string {
		if b == nil {
			return "*"
		}
		return fmt.Sprint(*b)
	}
	return "[" + bound(p.From) + ", " + bound(p.To) + "]"
}

// PriceTerminationFormula resolves the selling price of every entity its
// delegate yields and keeps the entities whose selling price matches the
// predicate. The selling price is the price of the first list, in priority
// order, that holds a price of the entity.
type PriceTerminationFormula struct {
	node
	currency  string
	lists     []PriceAmounts
	predicate PricePredicate
}

// NewPriceTermination creates the formula over delegate, which yields the
// entities holding a price in any of lists.
func NewPriceTermination(delegate Formula, currency string, lists []PriceAmounts, predicate PricePredicate) *PriceTerminationFormula {
	f := &PriceTerminationFormula{currency: currency, lists: lists, predicate: predicate}
	f.init(f, []Formula{delegate})
	return f
}

// Delegate returns the formula yielding the priced entities.
func (f *PriceTerminationFormula) Delegate() Formula { return f.inner[0] }

// Predicate returns the selling price bounds.
func (f *PriceTerminationFormula) Predicate() PricePredicate { return f.predicate }

func (f *PriceTerminationFormula) Kind() Kind { return KindPriceTermination }

func (f *PriceTerminationFormula) OperationCost() int64 { return 18203 }

// EstimatedCardinality assumes every priced entity matches.
func (f *PriceTerminationFormula) EstimatedCardinality() int { return f.Delegate().EstimatedCardinality() }

// CloneWithInnerFormulas expects exactly one delegate.
func (f *PriceTerminationFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 1 {
		return nil, arityError(KindPriceTermination, "exactly one inner formula", len(inner))
	}
	return NewPriceTermination(inner[0], f.currency, f.lists, f.predicate), nil
}

func (f *PriceTerminationFormula) String() string {
	names := make([]string, len(f.lists))
	for i, l := range f.lists {
		names[i] = l.Name()
	}
	return fmt.Sprintf("PRICE %s %s IN %s", f.currency, f.predicate, strings.Join(names, ", "))
}

func (f *PriceTerminationFormula) classID() uint64 { return classIDPriceTermination }

func (f *PriceTerminationFormula) payloadHash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(f.currency)
	for _, l := range f.lists {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(l.Name())
	}
	_, _ = d.WriteString("\x00" + f.predicate.String())
	return d.Sum64()
}

func (f *PriceTerminationFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	priced, cerr := f.Delegate().Compute(ctx)
	if cerr != nil {
		return nil, cerr
	}
	if priced.IsEmpty() {
		return bitmap.Empty, nil
	}

	var (
		out  []uint32
		seen int
		err  error
	)
	priced.ForEach(func(pk uint32) bool {
		if seen++; seen%1024 == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		for _, l := range f.lists {
			if amount, ok := l.Amount(pk); ok {
				if f.predicate.Matches(amount) {
					out = append(out, pk)
				}
				break
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return bitmap.FromSlice(out), nil
}
