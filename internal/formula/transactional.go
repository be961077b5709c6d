package formula

import (
	"encoding/binary"
	"io"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ExcessiveHighCardinality is the number of distinct transactional ids above
// which a structure should depend on the single version id of its index
// instead of enumerating every contributing bitmap.
const ExcessiveHighCardinality = 100

// TransactionalDataRelatedStructure is the metadata contract that makes
// results cacheable and invalidatable. It is implemented by every formula and
// by raw bitmap suppliers.
type TransactionalDataRelatedStructure interface {
	// Initialize computes hash, dependency and estimated cost metadata. It must
	// run before the other methods are used for a given context and is
	// idempotent.
	Initialize(cc *CalculationContext)
	// Hash is equal for semantically equal structures.
	Hash() uint64
	// TransactionalIDHash hashes the distinct sorted TransactionalIDs.
	TransactionalIDHash() uint64
	// TransactionalIDs lists the index versions the structure depends on.
	// The list is unsorted and may contain duplicates.
	TransactionalIDs() []uint64
	// EstimatedCost is a pre-computation heuristic.
	EstimatedCost() int64
	// Cost reflects actual operand sizes once the structure was computed.
	Cost() int64
	// OperationCost is the calibrated cost of one element operation.
	OperationCost() int64
	// CostToPerformanceRatio is high when caching the result saves the most
	// work relative to its size.
	CostToPerformanceRatio() int64
}

// CalculationType partitions a CalculationContext.
type CalculationType uint8

const (
	CalculationEstimatedCost CalculationType = iota
	CalculationCost
)

// CalculationContext de-duplicates cost accounting of equal subtrees within
// one pass. It is created per pass and must not be shared across goroutines.
type CalculationContext struct {
	noCaching bool
	seen      [2]map[uint64]struct{}
}

// NewCalculationContext creates a de-duplicating context.
func NewCalculationContext() *CalculationContext {
	return &CalculationContext{
		seen: [2]map[uint64]struct{}{
			make(map[uint64]struct{}),
			make(map[uint64]struct{}),
		},
	}
}

// NoCachingContext returns a context that never reports a hash as seen.
func NoCachingContext() *CalculationContext {
	return &CalculationContext{noCaching: true}
}

// Visit records hash for the calculation type and returns true when it was
// not seen before in this context.
func (c *CalculationContext) Visit(t CalculationType, hash uint64) bool {
	if c == nil || c.noCaching {
		return true
	}
	if _, ok := c.seen[t][hash]; ok {
		return false
	}
	c.seen[t][hash] = struct{}{}
	return true
}

// HashTransactionalIDs hashes the distinct sorted ids. The result only depends
// on the set of ids, not on their order or repetition.
func HashTransactionalIDs(ids []uint64) uint64 {
	d := xxhash.New()
	for _, id := range distinctSorted(ids) {
		writeUint64(d, id)
	}
	return d.Sum64()
}

// CollapseTransactionalIDs returns fallback as the only dependency when ids
// contain more than ExcessiveHighCardinality distinct values.
func CollapseTransactionalIDs(ids []uint64, fallback uint64) []uint64 {
	distinct := distinctSorted(ids)
	if len(distinct) > ExcessiveHighCardinality {
		return []uint64{fallback}
	}
	return distinct
}

func distinctSorted(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}

func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func mulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
