package formula

import (
	"context"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
)

const classIDDeferred uint64 = 0x7e2f9c4a1b3d5068

// BitmapSupplier produces a bitmap on demand. It carries the same
// transactional metadata as a formula so that a DeferredFormula can be cached
// without loading its bitmap first.
type BitmapSupplier interface {
	TransactionalDataRelatedStructure

	// Get loads the bitmap. Successful results are memoized.
	Get(ctx context.Context) (bitmap.Bitmap, error)
	// EstimatedCardinality estimates the bitmap size without loading it.
	EstimatedCardinality() int
	String() string
}

// SupplierSpec describes a LazySupplier.
type SupplierSpec struct {
	// Name is used by String.
	Name string
	// ClassID distinguishes suppliers of different origin with equal payloads.
	ClassID uint64
	// PayloadHash identifies the requested data, e.g. a hash of the resolved
	// hierarchy constraint.
	PayloadHash uint64
	// TransactionalIDs are the index versions the bitmap is derived from.
	TransactionalIDs []uint64
	// EstimatedCardinality is used until the bitmap is loaded.
	EstimatedCardinality int
	// OperationCost is the cost of producing one key. Defaults to 1.
	OperationCost int64
	// Load produces the bitmap.
	Load func(ctx context.Context) (bitmap.Bitmap, error)
}

// LazySupplier is a BitmapSupplier backed by a load function.
type LazySupplier struct {
	spec SupplierSpec
	hash uint64

	mu            sync.Mutex
	result        bitmap.Bitmap
	estimatedCost int64
	countsCost    bool
	initialized   bool
}

var _ BitmapSupplier = (*LazySupplier)(nil)

// NewLazySupplier creates a supplier from spec. Load must not be nil.
func NewLazySupplier(spec SupplierSpec) *LazySupplier {
	if spec.OperationCost <= 0 {
		spec.OperationCost = 1
	}
	spec.TransactionalIDs = slices.Clone(spec.TransactionalIDs)

	d := xxhash.New()
	writeUint64(d, spec.ClassID)
	writeUint64(d, spec.PayloadHash)
	return &LazySupplier{spec: spec, hash: d.Sum64()}
}

func (s *LazySupplier) Get(ctx context.Context) (bitmap.Bitmap, error) {
	s.mu.Lock()
	r := s.result
	s.mu.Unlock()
	if r != nil {
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := s.spec.Load(ctx)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = bitmap.Empty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		s.result = r
	}
	return s.result, nil
}

func (s *LazySupplier) Initialize(cc *CalculationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	if cc.Visit(CalculationEstimatedCost, s.hash) {
		s.estimatedCost = mulSat(int64(s.spec.EstimatedCardinality), s.spec.OperationCost)
	}
	s.countsCost = cc.Visit(CalculationCost, s.hash)
	s.initialized = true
}

func (s *LazySupplier) ensureInitialized() {
	s.mu.Lock()
	done := s.initialized
	s.mu.Unlock()
	if !done {
		s.Initialize(NoCachingContext())
	}
}

func (s *LazySupplier) Hash() uint64 { return s.hash }

func (s *LazySupplier) TransactionalIDHash() uint64 {
	return HashTransactionalIDs(s.spec.TransactionalIDs)
}

func (s *LazySupplier) TransactionalIDs() []uint64 { return slices.Clone(s.spec.TransactionalIDs) }

func (s *LazySupplier) EstimatedCost() int64 {
	s.ensureInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimatedCost
}

func (s *LazySupplier) Cost() int64 {
	s.ensureInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.countsCost {
		return 0
	}
	if s.result == nil {
		return mulSat(int64(s.spec.EstimatedCardinality), s.spec.OperationCost)
	}
	return mulSat(int64(s.result.Cardinality()), s.spec.OperationCost)
}

func (s *LazySupplier) OperationCost() int64 { return s.spec.OperationCost }

func (s *LazySupplier) CostToPerformanceRatio() int64 {
	size := s.spec.EstimatedCardinality
	s.mu.Lock()
	if s.result != nil {
		size = s.result.Cardinality()
	}
	s.mu.Unlock()
	return s.Cost() / int64(max(1, size))
}

func (s *LazySupplier) EstimatedCardinality() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return s.result.Cardinality()
	}
	return s.spec.EstimatedCardinality
}

func (s *LazySupplier) String() string { return s.spec.Name }

// DeferredFormula is a leaf whose bitmap is produced by a BitmapSupplier on
// first Compute.
type DeferredFormula struct {
	node
	supplier BitmapSupplier
}

// NewDeferred wraps supplier.
func NewDeferred(supplier BitmapSupplier) *DeferredFormula {
	f := &DeferredFormula{supplier: supplier}
	f.init(f, nil)
	return f
}

// Supplier returns the wrapped supplier.
func (f *DeferredFormula) Supplier() BitmapSupplier { return f.supplier }

func (f *DeferredFormula) Kind() Kind { return KindDeferred }

func (f *DeferredFormula) OperationCost() int64 { return 12 }

func (f *DeferredFormula) EstimatedCardinality() int { return f.supplier.EstimatedCardinality() }

func (f *DeferredFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	if len(inner) != 0 {
		return nil, arityError(KindDeferred, "no inner formulas", len(inner))
	}
	return f, nil
}

func (f *DeferredFormula) String() string { return "DEFERRED " + f.supplier.String() }

func (f *DeferredFormula) classID() uint64 { return classIDDeferred }

func (f *DeferredFormula) payloadHash() uint64 { return f.supplier.Hash() }

func (f *DeferredFormula) ownTransactionalIDs() []uint64 { return f.supplier.TransactionalIDs() }

func (f *DeferredFormula) prepare(cc *CalculationContext) { f.supplier.Initialize(cc) }

func (f *DeferredFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	return f.supplier.Get(ctx)
}

func (f *DeferredFormula) estimatedCostInternal() int64 { return f.supplier.EstimatedCost() }

func (f *DeferredFormula) costInternal() int64 { return f.supplier.Cost() }
