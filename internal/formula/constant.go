package formula

import (
	"context"

	"github.com/hupe1980/evigo/internal/bitmap"
)

const (
	classIDConstant uint64 = 0x4a1c2b8f3e5d7061
	classIDEmpty    uint64 = 0x1f0e9d8c7b6a5948
)

// ConstantFormula is a leaf over an already materialized bitmap.
type ConstantFormula struct {
	node
	bm bitmap.Bitmap
}

// NewConstant wraps bm. A nil bitmap is treated as empty.
func NewConstant(bm bitmap.Bitmap) *ConstantFormula {
	if bm == nil {
		bm = bitmap.Empty
	}
	f := &ConstantFormula{bm: bm}
	f.init(f, nil)
	return f
}

// Bitmap returns the wrapped bitmap.
func (f *ConstantFormula) Bitmap() bitmap.Bitmap { return f.bm }

func (f *ConstantFormula) Kind() Kind { return KindConstant }

func (f *ConstantFormula) OperationCost() int64 { return 1 }

func (f *ConstantFormula) EstimatedCardinality() int { return f.bm.Cardinality() }

func (f *ConstantFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 0 {
		return nil, arityError(KindConstant, "no inner formulas", len(inner))
	}
	return f, nil
}

func (f *ConstantFormula) String() string { return bitmap.Format(f.bm, 20) }

func (f *ConstantFormula) classID() uint64 { return classIDConstant }

func (f *ConstantFormula) payloadHash() uint64 { return f.bm.ContentHash() }

func (f *ConstantFormula) ownTransactionalIDs() []uint64 {
	if id := f.bm.TransactionalID(); id != 0 {
		return []uint64{id}
	}
	return nil
}

func (f *ConstantFormula) computeInternal(context.Context) (bitmap.Bitmap, error) {
	return f.bm, nil
}

func (f *ConstantFormula) estimatedCostInternal() int64 {
	return int64(f.bm.Cardinality()) * f.OperationCost()
}

func (f *ConstantFormula) costInternal() int64 { return f.estimatedCostInternal() }

// EmptyFormula is the leaf that provably matches nothing.
type EmptyFormula struct {
	node
}

// Empty is the shared EmptyFormula instance.
var Empty = newEmpty()

func newEmpty() *EmptyFormula {
	f := &EmptyFormula{}
	f.init(f, nil)
	return f
}

func (f *EmptyFormula) Kind() Kind { return KindEmpty }

func (f *EmptyFormula) OperationCost() int64 { return 0 }

func (f *EmptyFormula) EstimatedCardinality() int { return 0 }

func (f *EmptyFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 0 {
		return nil, arityError(KindEmpty, "no inner formulas", len(inner))
	}
	return f, nil
}

func (f *EmptyFormula) String() string { return "EMPTY" }

func (f *EmptyFormula) classID() uint64 { return classIDEmpty }

func (f *EmptyFormula) computeInternal(context.Context) (bitmap.Bitmap, error) {
	return bitmap.Empty, nil
}

func (f *EmptyFormula) estimatedCostInternal() int64 { return 0 }

func (f *EmptyFormula) costInternal() int64 { return 0 }
