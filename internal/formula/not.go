package formula

import (
	"context"

	"github.com/hupe1980/evigo/internal/bitmap"
)

const classIDNot uint64 = 0x3d9a6f1b2c4e8057

// NotFormula subtracts its first inner formula from the second one.
type NotFormula struct {
	node
}

// NewNot creates superset minus subtracted.
func NewNot(subtracted, superset Formula) *NotFormula {
	f := &NotFormula{}
	f.init(f, []Formula{subtracted, superset})
	return f
}

// Subtracted returns the formula whose keys are removed.
func (f *NotFormula) Subtracted() Formula { return f.inner[0] }

// Superset returns the formula keys are removed from.
func (f *NotFormula) Superset() Formula { return f.inner[1] }

func (f *NotFormula) Kind() Kind { return KindNot }

func (f *NotFormula) OperationCost() int64 { return 12 }

// EstimatedCardinality assumes nothing is subtracted.
func (f *NotFormula) EstimatedCardinality() int { return f.Superset().EstimatedCardinality() }

// CloneWithInnerFormulas expects exactly (subtracted, superset).
func (f *NotFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 2 {
		return nil, arityError(KindNot, "exactly two inner formulas", len(inner))
	}
	return NewNot(inner[0], inner[1]), nil
}

func (f *NotFormula) String() string { return "NOT" }

func (f *NotFormula) classID() uint64 { return classIDNot }

func (f *NotFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	superset, err := f.Superset().Compute(ctx)
	if err != nil {
		return nil, err
	}
	if superset.IsEmpty() {
		return bitmap.Empty, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subtracted, err := f.Subtracted().Compute(ctx)
	if err != nil {
		return nil, err
	}
	return bitmap.AndNot(superset, subtracted), nil
}
