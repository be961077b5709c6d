package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
)

// Selector walks a filter and collects the index alternatives that can
// answer it. A Selector is stateful and single use; create one per query
// compilation.
type Selector struct {
	collection *index.Collection
	translator HierarchyTranslator

	scopes       []schema.ScopeSet
	alternatives []*TargetIndexes
	others       bool
}

// NewSelector creates a selector over col restricted to scopes. The
// translator resolves hierarchy constraints.
func NewSelector(col *index.Collection, scopes schema.ScopeSet, translator HierarchyTranslator) *Selector {
	return &Selector{
		collection: col,
		translator: translator,
		scopes:     []schema.ScopeSet{scopes.Intersect(col.Schema().ActiveScopes())},
	}
}

// Select registers the baseline and walks filter. filter may be nil.
func (s *Selector) Select(ctx context.Context, filter *query.FilterBy) (*IndexSelectionResult, error) {
	if s.alternatives != nil {
		return nil, &InternalInconsistencyError{Detail: "selector reused"}
	}
	s.alternatives = []*TargetIndexes{s.baseline()}

	if filter != nil {
		if err := s.visit(ctx, filter); err != nil {
			return nil, err
		}
	}
	return &IndexSelectionResult{alternatives: s.alternatives, queriedByOtherConstraints: s.others}, nil
}

// BaselineCardinality returns the cardinality the obstacle threshold is
// measured against.
func (s *Selector) BaselineCardinality() int {
	if len(s.alternatives) == 0 {
		return 0
	}
	return s.alternatives[0].Cardinality()
}

func (s *Selector) activeScopes() schema.ScopeSet { return s.scopes[len(s.scopes)-1] }

func (s *Selector) baseline() *TargetIndexes {
	var indexes []*index.EntityIndex
	for _, scope := range s.activeScopes().Scopes() {
		if idx, ok := s.collection.GlobalIndex(scope); ok {
			indexes = append(indexes, idx)
		}
	}
	return NewTargetIndexes("Global index", nil, index.TypeGlobal, indexes)
}

func (s *Selector) visit(ctx context.Context, c query.Constraint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch c := c.(type) {
	case *query.FilterBy, *query.And, *query.UserFilter:
		return s.visitChildren(ctx, c.(query.Container).Children())
	case *query.InScope:
		return s.visitInScope(ctx, c)
	case *query.HierarchyWithin, *query.HierarchyWithinRoot:
		return s.visitHierarchy(ctx, c)
	case *query.ReferenceHaving:
		return s.visitReferenceHaving(ctx, c)
	case *query.EntityHaving:
		return &InternalInconsistencyError{Detail: "entityHaving outside of referenceHaving"}
	case nil:
		return &InternalInconsistencyError{Detail: "nil constraint"}
	default:
		s.others = true
		return nil
	}
}

func (s *Selector) visitChildren(ctx context.Context, children []query.Constraint) error {
	for _, ch := range children {
		if err := s.visit(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Selector) visitInScope(ctx context.Context, c *query.InScope) error {
	narrowed := s.activeScopes().Intersect(c.Scopes())
	if narrowed.IsEmpty() {
		return nil
	}
	s.scopes = append(s.scopes, narrowed)
	defer func() { s.scopes = s.scopes[:len(s.scopes)-1] }()

	return s.visitChildren(ctx, c.Children())
}

func (s *Selector) visitHierarchy(ctx context.Context, c query.Constraint) error {
	var reference string
	switch c := c.(type) {
	case *query.HierarchyWithin:
		reference = c.Reference()
	case *query.HierarchyWithinRoot:
		reference = c.Reference()
	}
	rs, err := s.indexedReference(reference)
	if err != nil {
		return err
	}

	var indexes []*index.EntityIndex
	resolved := false
	for _, scope := range s.activeScopes().Scopes() {
		nodes, err := s.translator.Resolve(ctx, c, scope)
		if err != nil {
			return err
		}
		if !nodes.IsEmpty() {
			resolved = true
		}
		indexes = append(indexes, s.reducedIndexes(scope, rs.Name, nodes.ToArray())...)
	}
	description := fmt.Sprintf("Reduced indexes of hierarchy %q", rs.Name)
	if !resolved || len(indexes) == 0 {
		s.registerEmpty(c, rs, description)
		return nil
	}
	s.register(c, rs, description, indexes)
	return nil
}

func (s *Selector) visitReferenceHaving(ctx context.Context, c *query.ReferenceHaving) error {
	rs, err := s.indexedReference(c.Reference())
	if err != nil {
		return err
	}

	var (
		pks  []uint32
		rest []query.Constraint
		seen bool
	)
	for _, ch := range c.Children() {
		switch ch := ch.(type) {
		case *query.EntityPrimaryKeyInSet:
			if !seen {
				pks, seen = distinct(ch.PrimaryKeys()), true
			} else {
				pks = intersect(pks, distinct(ch.PrimaryKeys()))
			}
		case *query.EntityHaving:
			s.others = true
		default:
			rest = append(rest, ch)
		}
	}

	if seen {
		var indexes []*index.EntityIndex
		for _, scope := range s.activeScopes().Scopes() {
			indexes = append(indexes, s.reducedIndexes(scope, rs.Name, pks)...)
		}
		description := fmt.Sprintf("Reduced indexes of reference %q", rs.Name)
		if len(indexes) == 0 {
			s.registerEmpty(c, rs, description)
		} else {
			s.register(c, rs, description, indexes)
		}
	}
	return s.visitChildren(ctx, rest)
}

// indexedReference checks that reference exists and has reduced indexes in
// every active scope.
func (s *Selector) indexedReference(reference string) (schema.ReferenceSchema, error) {
	es := s.collection.Schema()
	rs, ok := es.Reference(reference)
	if !ok {
		return rs, fmt.Errorf("%w: %q in %q", ErrReferenceNotFound, reference, es.Name)
	}
	for _, scope := range s.activeScopes().Scopes() {
		if !rs.IsIndexedIn(scope) {
			return rs, &ReferenceNotIndexedError{EntityType: es.Name, Reference: reference, Scope: scope}
		}
	}
	return rs, nil
}

func (s *Selector) reducedIndexes(scope schema.Scope, reference string, pks []uint32) []*index.EntityIndex {
	var out []*index.EntityIndex
	for _, pk := range pks {
		if idx, ok := s.collection.ReducedIndex(scope, reference, pk); ok {
			out = append(out, idx)
		}
	}
	return out
}

// register adds an alternative over the reduced indexes found for c. Inside
// an inScope that narrows the queried scopes the global indexes of the other
// scopes are added, because c does not restrict their entities.
func (s *Selector) register(c query.Constraint, rs schema.ReferenceSchema, description string, indexes []*index.EntityIndex) {
	indexes = append(indexes, s.outOfScopeIndexes()...)
	var obstacles []EligibilityObstacle
	for _, scope := range s.activeScopes().Scopes() {
		if !rs.IsPartitionedIn(scope) {
			obstacles = append(obstacles, NotPartitionedIndex)
			break
		}
	}
	t := NewTargetIndexes(description, c, index.TypeReducedEntity, indexes, obstacles...)
	if 2*t.Cardinality() > s.BaselineCardinality() {
		t.obstacles |= HighCardinality
	}
	s.alternatives = append(s.alternatives, t)
}

// registerEmpty records that c matches nothing in the active scopes. The
// query is provably empty only when no queried scope lies outside of them.
func (s *Selector) registerEmpty(c query.Constraint, rs schema.ReferenceSchema, description string) {
	if len(s.outOfScopeIndexes()) == 0 {
		s.alternatives = append(s.alternatives, EmptyTargetIndexes)
		return
	}
	s.register(c, rs, description, nil)
}

// outOfScopeIndexes returns the global indexes of the queried scopes that an
// enclosing inScope excluded.
func (s *Selector) outOfScopeIndexes() []*index.EntityIndex {
	var out []*index.EntityIndex
	for _, scope := range s.scopes[0].Difference(s.activeScopes()).Scopes() {
		if idx, ok := s.collection.GlobalIndex(scope); ok {
			out = append(out, idx)
		}
	}
	return out
}

func distinct(pks []uint32) []uint32 {
	out := slices.Clone(pks)
	slices.Sort(out)
	return slices.Compact(out)
}

func intersect(a, b []uint32) []uint32 {
	return bitmap.And(bitmap.FromSlice(a), bitmap.FromSlice(b)).ToArray()
}
