package formula

import (
	"context"

	"github.com/hupe1980/evigo/internal/bitmap"
)

const (
	classIDAnd        uint64 = 0x6c3b5a2d1e0f9847
	classIDOr         uint64 = 0x2e7d4c6b8a091f35
	classIDUserFilter uint64 = 0x5b8e1d3c7a2f4069
)

// AndFormula intersects its inner formulas.
type AndFormula struct {
	node
}

// NewAnd creates an intersection of at least one formula.
func NewAnd(inner ...Formula) (*AndFormula, error) {
	if len(inner) == 0 {
		return nil, arityError(KindAnd, "at least one inner formula", 0)
	}
	f := &AndFormula{}
	f.init(f, inner)
	return f, nil
}

func (f *AndFormula) Kind() Kind { return KindAnd }

func (f *AndFormula) OperationCost() int64 { return 7 }

// EstimatedCardinality is the size of the smallest operand.
func (f *AndFormula) EstimatedCardinality() int {
	card := -1
	for _, in := range f.inner {
		if c := in.EstimatedCardinality(); card < 0 || c < card {
			card = c
		}
	}
	return max(card, 0)
}

func (f *AndFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	c, err := NewAnd(inner...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *AndFormula) String() string { return "AND" }

func (f *AndFormula) classID() uint64 { return classIDAnd }

func (f *AndFormula) commutative() bool { return true }

func (f *AndFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	bms, err := computeInner(ctx, f.inner)
	if err != nil {
		return nil, err
	}
	return bitmap.And(bms...), nil
}

// OrFormula unites its inner formulas.
type OrFormula struct {
	node
}

// NewOr creates a union of at least one formula.
func NewOr(inner ...Formula) (*OrFormula, error) {
	if len(inner) == 0 {
		return nil, arityError(KindOr, "at least one inner formula", 0)
	}
	f := &OrFormula{}
	f.init(f, inner)
	return f, nil
}

func (f *OrFormula) Kind() Kind { return KindOr }

func (f *OrFormula) OperationCost() int64 { return 12 }

// EstimatedCardinality is the sum of the operand sizes.
func (f *OrFormula) EstimatedCardinality() int {
	var card int
	for _, in := range f.inner {
		card += in.EstimatedCardinality()
	}
	return card
}

func (f *OrFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	c, err := NewOr(inner...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *OrFormula) String() string { return "OR" }

func (f *OrFormula) classID() uint64 { return classIDOr }

func (f *OrFormula) commutative() bool { return true }

func (f *OrFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	bms, err := computeInner(ctx, f.inner)
	if err != nil {
		return nil, err
	}
	return bitmap.Or(bms...), nil
}

// UserFilterFormula marks the part of the filter that was supplied inside a
// user filter container. It intersects its inner formulas like AndFormula but
// is kept distinct so that rewrites can tell user constraints apart from the
// ones the engine adds on its own.
type UserFilterFormula struct {
	node
}

// NewUserFilter creates a user filter over at least one formula.
func NewUserFilter(inner ...Formula) (*UserFilterFormula, error) {
	if len(inner) == 0 {
		return nil, arityError(KindUserFilter, "at least one inner formula", 0)
	}
	f := &UserFilterFormula{}
	f.init(f, inner)
	return f, nil
}

func (f *UserFilterFormula) Kind() Kind { return KindUserFilter }

func (f *UserFilterFormula) OperationCost() int64 { return 7 }

func (f *UserFilterFormula) EstimatedCardinality() int {
	card := -1
	for _, in := range f.inner {
		if c := in.EstimatedCardinality(); card < 0 || c < card {
			card = c
		}
	}
	return max(card, 0)
}

func (f *UserFilterFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	c, err := NewUserFilter(inner...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *UserFilterFormula) String() string { return "USER FILTER" }

func (f *UserFilterFormula) classID() uint64 { return classIDUserFilter }

func (f *UserFilterFormula) commutative() bool { return true }

func (f *UserFilterFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	bms, err := computeInner(ctx, f.inner)
	if err != nil {
		return nil, err
	}
	return bitmap.And(bms...), nil
}
