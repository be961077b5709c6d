package formula

import (
	"context"
	"fmt"

	"github.com/hupe1980/evigo/internal/bitmap"
)

// CachedFormula stands in for a formula whose result was served from a
// cache. It keeps the hash and transactional ids of the original so that
// the tree it is placed in stays addressable by the same keys.
type CachedFormula struct {
	node
	hash  uint64
	txIDs []uint64
	bm    bitmap.Bitmap
}

// NewCached replaces original with its known result bm.
func NewCached(original Formula, bm bitmap.Bitmap) *CachedFormula {
	if bm == nil {
		bm = bitmap.Empty
	}
	f := &CachedFormula{
		hash:  original.Hash(),
		txIDs: original.TransactionalIDs(),
		bm:    bm,
	}
	f.init(f, nil)
	return f
}

func (f *CachedFormula) Kind() Kind { return KindCached }

func (f *CachedFormula) OperationCost() int64 { return 1 }

func (f *CachedFormula) EstimatedCardinality() int { return f.bm.Cardinality() }

func (f *CachedFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 0 {
		return nil, arityError(KindCached, "no inner formulas", len(inner))
	}
	return f, nil
}

func (f *CachedFormula) String() string { return fmt.Sprintf("CACHED %016x", f.hash) }

func (f *CachedFormula) classID() uint64 { return 0 }

func (f *CachedFormula) pinnedHash() uint64 { return f.hash }

func (f *CachedFormula) ownTransactionalIDs() []uint64 { return f.txIDs }

func (f *CachedFormula) computeInternal(context.Context) (bitmap.Bitmap, error) {
	return f.bm, nil
}

func (f *CachedFormula) estimatedCostInternal() int64 {
	return int64(f.bm.Cardinality()) * f.OperationCost()
}

func (f *CachedFormula) costInternal() int64 { return f.estimatedCostInternal() }
