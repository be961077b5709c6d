package formula

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
)

// ErrInvalidArity is returned when a formula is cloned with a number of inner
// formulas its variant does not accept.
var ErrInvalidArity = errors.New("formula: invalid number of inner formulas")

// Kind enumerates the closed set of formula variants.
type Kind uint8

const (
	KindConstant Kind = iota + 1
	KindEmpty
	KindDeferred
	KindAnd
	KindOr
	KindUserFilter
	KindNot
	KindCached
	KindPriceTermination
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "Constant"
	case KindEmpty:
		return "Empty"
	case KindDeferred:
		return "Deferred"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindUserFilter:
		return "UserFilter"
	case KindNot:
		return "Not"
	case KindCached:
		return "Cached"
	case KindPriceTermination:
		return "PriceTermination"
	default:
		return "Unknown"
	}
}

// Formula is an immutable node of the set-operation algebra.
type Formula interface {
	TransactionalDataRelatedStructure

	// ID returns the process-unique node id. Traversals key their identity
	// tables by it.
	ID() uint64
	// Kind returns the variant tag.
	Kind() Kind
	// Compute evaluates the node. The result is memoized; errors are not.
	Compute(ctx context.Context) (bitmap.Bitmap, error)
	// Computed returns the memoized result, if any.
	Computed() (bitmap.Bitmap, bool)
	// InnerFormulas returns the ordered children. The slice must not be modified.
	InnerFormulas() []Formula
	// CloneWithInnerFormulas returns a node of the same variant over new children.
	CloneWithInnerFormulas(inner ...Formula) (Formula, error)
	// EstimatedCardinality estimates the result size without computing it.
	EstimatedCardinality() int
	// Accept dispatches the node to the visitor.
	Accept(v Visitor)
	String() string

	base() *node
}

// Visitor receives formulas. Implementations recurse into InnerFormulas themselves.
type Visitor interface {
	Visit(f Formula)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(f Formula)

// Visit calls fn(f).
func (fn VisitorFunc) Visit(f Formula) { fn(f) }

// variant is implemented by every concrete formula type. The hooks not
// overridden by a variant fall back to the composite defaults of node.
type variant interface {
	Formula

	classID() uint64
	commutative() bool
	payloadHash() uint64
	ownTransactionalIDs() []uint64
	prepare(cc *CalculationContext)
	computeInternal(ctx context.Context) (bitmap.Bitmap, error)
	estimatedCostInternal() int64
	costInternal() int64
}

var nodeSequence atomic.Uint64

// node carries the state shared by all variants: identity, children, the
// memoized result and the transactional metadata.
type node struct {
	id    uint64
	self  variant
	inner []Formula

	mu       sync.Mutex
	result   bitmap.Bitmap
	computed bool

	initialized   bool
	hash          uint64
	txIDHash      uint64
	txIDs         []uint64
	estimatedCost int64
	countsCost    bool
	cost          int64
	costKnown     bool
}

func (n *node) init(self variant, inner []Formula) {
	n.id = nodeSequence.Add(1)
	n.self = self
	n.inner = inner
}

func (n *node) base() *node { return n }

func (n *node) ID() uint64 { return n.id }

func (n *node) InnerFormulas() []Formula { return n.inner }

func (n *node) Accept(v Visitor) { v.Visit(n.self) }

func (n *node) Compute(ctx context.Context) (bitmap.Bitmap, error) {
	if r, ok := n.Computed(); ok {
		return r, nil
	}
	r, err := n.self.computeInternal(ctx)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.computed {
		n.result = r
		n.computed = true
	}
	return n.result, nil
}

func (n *node) Computed() (bitmap.Bitmap, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.result, n.computed
}

func (n *node) Initialize(cc *CalculationContext) {
	n.mu.Lock()
	done := n.initialized
	n.mu.Unlock()
	if done {
		return
	}

	for _, f := range n.inner {
		f.Initialize(cc)
	}
	n.self.prepare(cc)

	hash := n.computeHash()
	ids := n.gatherTransactionalIDs()
	txIDHash := HashTransactionalIDs(ids)

	var estimated int64
	if cc.Visit(CalculationEstimatedCost, hash) {
		estimated = n.self.estimatedCostInternal()
	}
	countsCost := cc.Visit(CalculationCost, hash)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.initialized {
		return
	}
	n.hash = hash
	n.txIDs = ids
	n.txIDHash = txIDHash
	n.estimatedCost = estimated
	n.countsCost = countsCost
	n.initialized = true
}

func (n *node) ensureInitialized() {
	n.mu.Lock()
	done := n.initialized
	n.mu.Unlock()
	if !done {
		n.Initialize(NoCachingContext())
	}
}

func (n *node) Hash() uint64 {
	n.ensureInitialized()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hash
}

func (n *node) TransactionalIDHash() uint64 {
	n.ensureInitialized()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.txIDHash
}

func (n *node) TransactionalIDs() []uint64 {
	n.ensureInitialized()
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.txIDs)
}

func (n *node) EstimatedCost() int64 {
	n.ensureInitialized()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.estimatedCost
}

// Cost returns the actual cost once the node was computed and its estimate
// before that. Duplicates of an already counted hash report zero.
func (n *node) Cost() int64 {
	n.ensureInitialized()
	n.mu.Lock()
	counts, known, cost, computed := n.countsCost, n.costKnown, n.cost, n.computed
	n.mu.Unlock()

	switch {
	case !counts:
		return 0
	case known:
		return cost
	case !computed:
		return n.self.estimatedCostInternal()
	}

	cost = n.self.costInternal()
	n.mu.Lock()
	n.cost, n.costKnown = cost, true
	n.mu.Unlock()
	return cost
}

func (n *node) CostToPerformanceRatio() int64 {
	var ratio int64
	for _, f := range n.inner {
		ratio = addSat(ratio, f.CostToPerformanceRatio())
	}
	return addSat(ratio, n.Cost()/int64(max(1, n.resultSize())))
}

// resultSize is the computed cardinality or the estimate.
func (n *node) resultSize() int {
	if r, ok := n.Computed(); ok {
		return r.Cardinality()
	}
	return n.self.EstimatedCardinality()
}

// pinned is implemented by variants that take over the identity of the
// structure they stand in for.
type pinned interface {
	pinnedHash() uint64
}

func (n *node) computeHash() uint64 {
	if p, ok := n.self.(pinned); ok {
		return p.pinnedHash()
	}
	childHashes := make([]uint64, len(n.inner))
	for i, f := range n.inner {
		childHashes[i] = f.Hash()
	}
	if n.self.commutative() {
		slices.Sort(childHashes)
	}

	d := xxhash.New()
	writeUint64(d, n.self.classID())
	writeUint64(d, n.self.payloadHash())
	for _, h := range childHashes {
		writeUint64(d, h)
	}
	return d.Sum64()
}

func (n *node) gatherTransactionalIDs() []uint64 {
	ids := slices.Clone(n.self.ownTransactionalIDs())
	for _, f := range n.inner {
		ids = append(ids, f.TransactionalIDs()...)
	}
	return ids
}

// Composite defaults.

func (n *node) commutative() bool { return false }

func (n *node) payloadHash() uint64 { return 0 }

func (n *node) ownTransactionalIDs() []uint64 { return nil }

func (n *node) prepare(*CalculationContext) {}

func (n *node) estimatedCostInternal() int64 {
	var cost, cardinality int64
	for _, f := range n.inner {
		cost = addSat(cost, f.EstimatedCost())
		cardinality += int64(f.EstimatedCardinality())
	}
	return addSat(cost, mulSat(cardinality, n.self.OperationCost()))
}

func (n *node) costInternal() int64 {
	var cost, cardinality int64
	for _, f := range n.inner {
		cost = addSat(cost, f.Cost())
		if r, ok := f.Computed(); ok {
			cardinality += int64(r.Cardinality())
		} else {
			cardinality += int64(f.EstimatedCardinality())
		}
	}
	return addSat(cost, mulSat(cardinality, n.self.OperationCost()))
}

// computeInner evaluates all children, checking ctx before each one.
func computeInner(ctx context.Context, inner []Formula) ([]bitmap.Bitmap, error) {
	out := make([]bitmap.Bitmap, len(inner))
	for i, f := range inner {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := f.Compute(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func arityError(k Kind, expected string, got int) error {
	return fmt.Errorf("%w: %s expects %s, got %d", ErrInvalidArity, k, expected, got)
}
