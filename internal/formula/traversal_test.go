package formula

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFormula is an intersection that counts how often it was inspected.
type countingFormula struct {
	node
	innerCalls   int
	computeCalls int
}

func newCounting(inner ...Formula) *countingFormula {
	f := &countingFormula{}
	f.init(f, inner)
	return f
}

func (f *countingFormula) InnerFormulas() []Formula {
	f.innerCalls++
	return f.inner
}

func (f *countingFormula) Kind() Kind                { return KindAnd }
func (f *countingFormula) OperationCost() int64      { return 1 }
func (f *countingFormula) EstimatedCardinality() int { return 0 }
func (f *countingFormula) String() string            { return "COUNTING" }
func (f *countingFormula) classID() uint64           { return 1 }

func (f *countingFormula) CloneWithInnerFormulas(inner ...Formula) (Formula, error) {
	return newCounting(inner...), nil
}

func (f *countingFormula) computeInternal(ctx context.Context) (bitmap.Bitmap, error) {
	f.computeCalls++
	bms, err := computeInner(ctx, f.inner)
	if err != nil {
		return nil, err
	}
	return bitmap.And(bms...), nil
}

func identity(_ *Cloner, f Formula) Formula { return f }

func TestClone_IdentityKeepsRoot(t *testing.T) {
	a, b, c := constant(1, 1), constant(1, 2), constant(1, 3)
	root := mustOr(t, mustAnd(t, a, b), NewNot(c, a))

	got, err := Clone(root, identity)
	require.NoError(t, err)
	assert.Same(t, root, got)
}

func TestClone_ReplacesLeafAndSharesUntouchedBranches(t *testing.T) {
	a, b, c := constant(1, 1, 2), constant(1, 2, 3), constant(1, 9)
	untouched := mustAnd(t, a, b)
	root := mustOr(t, untouched, c)
	replacement := constant(2, 2)

	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		if f == Formula(c) {
			return replacement
		}
		return f
	})
	require.NoError(t, err)
	require.NotSame(t, root, got)

	assert.Equal(t, KindOr, got.Kind())
	require.Len(t, got.InnerFormulas(), 2)
	assert.Same(t, untouched, got.InnerFormulas()[0])
	assert.Same(t, replacement, got.InnerFormulas()[1])

	r, err := got.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, r.ToArray())
}

func TestClone_SharedSubtreeRewrittenOnce(t *testing.T) {
	a, b := constant(1, 1), constant(1, 2)
	shared := mustAnd(t, a, b)
	root := mustOr(t, shared, NewNot(shared, constant(1, 1, 2, 3)))
	replacement := constant(3, 5)

	calls := map[uint64]int{}
	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		calls[f.ID()]++
		if f == Formula(a) {
			return replacement
		}
		return f
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls[shared.ID()])
	assert.Equal(t, 1, calls[a.ID()])

	first := got.InnerFormulas()[0]
	second := got.InnerFormulas()[1].InnerFormulas()[0]
	assert.Same(t, first, second, "shared node keeps being shared")
	assert.NotSame(t, shared, first)
}

func TestClone_NotCollapsesToSurvivingChild(t *testing.T) {
	sub := constant(1, 1)
	sup := mustOr(t, constant(1, 1, 2), constant(1, 3))
	root := mustAnd(t, NewNot(sub, sup), constant(1, 1, 2, 3))

	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		if f == Formula(sub) {
			return nil
		}
		return f
	})
	require.NoError(t, err)

	require.Len(t, got.InnerFormulas(), 2)
	assert.Same(t, sup, got.InnerFormulas()[0])
	assert.False(t, ContainsKind(got, KindNot))
}

func TestClone_NotWithoutSupersetIsOmitted(t *testing.T) {
	sub := constant(1, 1)
	sup := constant(1, 1, 2, 3)
	other := constant(1, 2, 3)
	root := mustOr(t, NewNot(sub, sup), other)

	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		if f == Formula(sup) {
			return nil
		}
		return f
	})
	require.NoError(t, err)

	require.Len(t, got.InnerFormulas(), 1)
	assert.Same(t, other, got.InnerFormulas()[0])
	assert.False(t, ContainsKind(got, KindNot))
	assert.False(t, Contains(got, func(f Formula) bool { return f == Formula(sub) }),
		"the subtracted operand must not take the place of the superset")
}

func TestClone_OmissionPropagates(t *testing.T) {
	a := constant(1, 1)
	root := mustOr(t, mustAnd(t, a))

	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		if f == Formula(a) {
			return nil
		}
		return f
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Clone(root, func(*Cloner, Formula) Formula { return nil })
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClone_ReplacedBranchIsNotTraversed(t *testing.T) {
	inner := constant(1, 1)
	branch := mustAnd(t, inner)
	root := mustOr(t, branch, constant(1, 2))

	var visited []uint64
	_, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		visited = append(visited, f.ID())
		if f == Formula(branch) {
			return Empty
		}
		return f
	})
	require.NoError(t, err)
	assert.NotContains(t, visited, inner.ID())
}

func TestClone_ExposesAncestors(t *testing.T) {
	leaf := constant(1, 1)
	root := mustAnd(t, NewNot(leaf, constant(1, 1, 2)))

	var parents []Formula
	var withinNot bool
	_, err := Clone(root, func(c *Cloner, f Formula) Formula {
		if f == Formula(leaf) {
			parents = c.Parents()
			withinNot = c.IsWithin(KindNot)
		}
		return f
	})
	require.NoError(t, err)

	require.Len(t, parents, 2)
	assert.Same(t, root, parents[0])
	assert.Equal(t, KindNot, parents[1].Kind())
	assert.True(t, withinNot)
}

func TestClone_RebuildsNotWithBothOperandsReplaced(t *testing.T) {
	root := NewNot(constant(1, 1), constant(1, 1, 2))
	replacement := mustOr(t, constant(1, 3))

	got, err := Clone(root, func(_ *Cloner, f Formula) Formula {
		if f.Kind() == KindConstant {
			return replacement
		}
		return f
	})
	require.NoError(t, err)

	assert.Equal(t, KindNot, got.Kind())
	require.Len(t, got.InnerFormulas(), 2)
	assert.Same(t, replacement, got.InnerFormulas()[0])
	assert.Same(t, replacement, got.InnerFormulas()[1])
}

func TestFind_ShallowAndDeep(t *testing.T) {
	a, b, c, d := constant(1, 1), constant(1, 2), constant(1, 3), constant(1, 4)
	innerOr := mustOr(t, a, b)
	outerOr := mustOr(t, innerOr, c)
	root := mustAnd(t, outerOr, d)

	shallow := Find(root, IsKind(KindOr), nil, Shallow)
	assert.Equal(t, []Formula{outerOr}, shallow)

	deep := Find(root, IsKind(KindOr), nil, Deep)
	assert.Equal(t, []Formula{outerOr, innerOr}, deep)
}

func TestFind_SkipPrunesSubtree(t *testing.T) {
	a, b := constant(1, 1), constant(1, 2)
	root := mustAnd(t, NewNot(a, b), constant(1, 3))

	found := Find(root, IsKind(KindConstant), IsKind(KindNot), Deep)
	require.Len(t, found, 1)
	assert.Equal(t, []uint32{3}, found[0].(*ConstantFormula).Bitmap().ToArray())

	// skip wins over match
	assert.Empty(t, Find(root, IsKind(KindNot), IsKind(KindNot), Deep))
}

func TestFind_CollapsesSharedMatches(t *testing.T) {
	shared := constant(1, 1)
	root := mustOr(t, shared, mustAnd(t, shared, constant(1, 2)))

	found := FindOfType[*ConstantFormula](root, Deep)
	require.Len(t, found, 2)
	assert.Same(t, shared, found[0])
}

func TestFindAmongChildren_ExcludesRoot(t *testing.T) {
	nested := mustOr(t, constant(1, 1))
	root := mustOr(t, nested, constant(1, 2))

	assert.Equal(t, []Formula{root}, Find(root, IsKind(KindOr), nil, Shallow))
	assert.Equal(t, []Formula{nested}, FindAmongChildren(root, IsKind(KindOr), nil, Shallow))
}

func TestContains_ShortCircuits(t *testing.T) {
	before := newCounting(constant(1, 1))
	after := newCounting(constant(1, 2))
	deepAfter := newCounting(newCounting(constant(1, 3)))
	root := mustOr(t, before, Empty, after, deepAfter)

	assert.True(t, ContainsKind(root, KindEmpty))

	assert.Equal(t, 1, before.innerCalls)
	assert.Zero(t, after.innerCalls)
	assert.Zero(t, deepAfter.innerCalls)
	assert.Zero(t, before.computeCalls+after.computeCalls+deepAfter.computeCalls)
}

func TestContains_NoMatch(t *testing.T) {
	root := mustAnd(t, constant(1, 1), mustOr(t, constant(1, 2)))
	assert.False(t, ContainsKind(root, KindNot))
	assert.True(t, Contains(root, func(f Formula) bool { return f.EstimatedCardinality() == 1 }))
	assert.False(t, Contains(nil, IsKind(KindAnd)))
}

func TestPrint_BackReferences(t *testing.T) {
	shared := mustOr(t, constant(1, 1, 2), constant(1, 3))
	root := mustAnd(t, shared, shared)

	want := "" +
		"[#0] AND\n" +
		"   [#1] OR\n" +
		"      [#2] [1, 2]\n" +
		"      [#3] [3]\n" +
		"   [Ref to #1]\n"
	assert.Equal(t, want, Print(root))
}

func TestPrint_VerboseRendersValues(t *testing.T) {
	root := NewNot(constant(1, 2), constant(1, 1, 2))

	want := "" +
		"[#0] NOT => [1]\n" +
		"   [#1] [2] => [2]\n" +
		"   [#2] [1, 2] => [1, 2]\n"
	assert.Equal(t, want, Print(root, Verbose(context.Background())))
}

func TestPrint_VerboseNeverFails(t *testing.T) {
	failing := NewDeferred(NewLazySupplier(SupplierSpec{
		Name: "failing",
		Load: func(context.Context) (bitmap.Bitmap, error) { return nil, errors.New("boom") },
	}))
	panicking := NewDeferred(NewLazySupplier(SupplierSpec{
		Name: "panicking",
		Load: func(context.Context) (bitmap.Bitmap, error) { panic("boom") },
	}))
	root := mustOr(t, failing, panicking)

	var out string
	require.NotPanics(t, func() {
		out = Print(root, Verbose(context.Background()))
	})

	want := "" +
		"[#0] OR => ?\n" +
		"   [#1] DEFERRED failing => ?\n" +
		"   [#2] DEFERRED panicking => ?\n"
	assert.Equal(t, want, out)
}
