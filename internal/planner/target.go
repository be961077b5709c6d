package planner

import (
	"fmt"
	"strings"

	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/query"
)

// EligibilityObstacle is a reason an alternative cannot serve as a
// standalone query plan.
type EligibilityObstacle uint8

const (
	// NotPartitionedIndex means a reduced index lacks its own attribute
	// index in at least one queried scope.
	NotPartitionedIndex EligibilityObstacle = 1 << iota
	// HighCardinality means the alternative covers more than half of the
	// baseline.
	HighCardinality
)

func (o EligibilityObstacle) String() string {
	switch o {
	case NotPartitionedIndex:
		return "NOT_PARTITIONED_INDEX"
	case HighCardinality:
		return "HIGH_CARDINALITY"
	default:
		return "UNKNOWN"
	}
}

var allObstacles = []EligibilityObstacle{NotPartitionedIndex, HighCardinality}

// TargetIndexes is a named set of physical indexes that can seed the
// formula of a query.
type TargetIndexes struct {
	description string
	constraint  query.Constraint
	elementType index.Type
	indexes     []*index.EntityIndex
	cardinality int
	obstacles   EligibilityObstacle
	empty       bool
}

// EmptyTargetIndexes proves the query matches no entity.
var EmptyTargetIndexes = &TargetIndexes{description: "EMPTY", empty: true}

// NewTargetIndexes bundles indexes of one element type. The cardinality is
// the sum of the index cardinalities at construction time.
func NewTargetIndexes(description string, constraint query.Constraint, elementType index.Type, indexes []*index.EntityIndex, obstacles ...EligibilityObstacle) *TargetIndexes {
	t := &TargetIndexes{
		description: description,
		constraint:  constraint,
		elementType: elementType,
		indexes:     indexes,
	}
	for _, idx := range indexes {
		t.cardinality += idx.Cardinality()
	}
	for _, o := range obstacles {
		t.obstacles |= o
	}
	return t
}

func (t *TargetIndexes) Description() string { return t.description }

// Constraint returns the constraint the alternative was derived from, or
// nil for the baseline.
func (t *TargetIndexes) Constraint() query.Constraint { return t.constraint }

func (t *TargetIndexes) ElementType() index.Type { return t.elementType }

func (t *TargetIndexes) Indexes() []*index.EntityIndex { return t.indexes }

func (t *TargetIndexes) Cardinality() int { return t.cardinality }

func (t *TargetIndexes) IsEmpty() bool { return t.empty }

// IsGlobal reports whether the alternative consists of global indexes.
func (t *TargetIndexes) IsGlobal() bool { return t.elementType == index.TypeGlobal }

// HasObstacle reports whether o prevents standalone use.
func (t *TargetIndexes) HasObstacle(o EligibilityObstacle) bool { return t.obstacles&o != 0 }

// Obstacles returns the obstacles in declaration order.
func (t *TargetIndexes) Obstacles() []EligibilityObstacle {
	var out []EligibilityObstacle
	for _, o := range allObstacles {
		if t.HasObstacle(o) {
			out = append(out, o)
		}
	}
	return out
}

// IsEligibleForSeparateQueryPlan reports whether the alternative may be
// compiled on its own.
func (t *TargetIndexes) IsEligibleForSeparateQueryPlan() bool {
	return t.obstacles == 0
}

func (t *TargetIndexes) String() string {
	if t.empty {
		return t.description
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d index(es), cardinality %d", t.description, len(t.indexes), t.cardinality)
	if obs := t.Obstacles(); len(obs) > 0 {
		parts := make([]string, len(obs))
		for i, o := range obs {
			parts[i] = o.String()
		}
		fmt.Fprintf(&sb, " [%s]", strings.Join(parts, ", "))
	}
	return sb.String()
}

// StringWithCost appends an estimated plan cost to String.
func (t *TargetIndexes) StringWithCost(cost int64) string {
	return fmt.Sprintf("%s, estimated cost %d", t, cost)
}

// IndexSelectionResult lists the alternatives found for one filter in
// registration order. The first alternative is the baseline.
type IndexSelectionResult struct {
	alternatives []*TargetIndexes
	// queriedByOtherConstraints is set when the filter holds constraints
	// that still have to be evaluated against the selected indexes.
	queriedByOtherConstraints bool
}

func (r *IndexSelectionResult) Alternatives() []*TargetIndexes { return r.alternatives }

// Baseline returns the alternative every query can fall back to.
func (r *IndexSelectionResult) Baseline() *TargetIndexes {
	if len(r.alternatives) == 0 {
		return nil
	}
	return r.alternatives[0]
}

// IsEmpty reports whether the result proves the query matches nothing: no
// alternative exists or one of them is EMPTY.
func (r *IndexSelectionResult) IsEmpty() bool {
	if len(r.alternatives) == 0 {
		return true
	}
	for _, t := range r.alternatives {
		if t.IsEmpty() {
			return true
		}
	}
	return false
}

// Eligible returns the non-baseline alternatives without obstacles.
func (r *IndexSelectionResult) Eligible() []*TargetIndexes {
	var out []*TargetIndexes
	for i, t := range r.alternatives {
		if i > 0 && !t.IsEmpty() && t.IsEligibleForSeparateQueryPlan() {
			out = append(out, t)
		}
	}
	return out
}

// QueriedByOtherConstraints reports whether constraints other than the
// index-selecting ones take part in the filter.
func (r *IndexSelectionResult) QueriedByOtherConstraints() bool {
	return r.queriedByOtherConstraints
}
