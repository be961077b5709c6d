package engine

import (
	"context"
	"testing"

	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) compileBaseline(t *testing.T, filter *query.FilterBy) formula.Formula {
	t.Helper()
	translator := planner.NewIndexHierarchyTranslator(f.catalog, f.products.Schema())
	sel, err := planner.NewSelector(f.products, schema.DefaultScopes, translator).Select(context.Background(), filter)
	require.NoError(t, err)

	fm, err := NewCompiler(f.catalog, f.products, translator).Compile(context.Background(), filter, sel.Baseline())
	require.NoError(t, err)
	fm.Initialize(formula.NewCalculationContext())
	return fm
}

func TestCompile_HashIsStableAcrossCompilations(t *testing.T) {
	f := newFixture(t)
	filter := func() *query.FilterBy {
		return query.NewFilterBy(
			query.NewHierarchyWithin("categories", 1),
			query.NewAttributeInSet("code", metadata.String("pb"), metadata.String("pc")),
		)
	}

	a := f.compileBaseline(t, filter())
	b := f.compileBaseline(t, filter())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.TransactionalIDHash(), b.TransactionalIDHash())

	other := f.compileBaseline(t, query.NewFilterBy(
		query.NewHierarchyWithin("categories", 2),
		query.NewAttributeInSet("code", metadata.String("pb"), metadata.String("pc")),
	))
	assert.NotEqual(t, a.Hash(), other.Hash())
}

func TestCompile_TransactionalIDsFollowIndexChanges(t *testing.T) {
	tests := []struct {
		name   string
		filter *query.FilterBy
		mutate func(t *testing.T, f *fixture)
	}{
		{
			name:   "reduced index gains an entity",
			filter: query.NewFilterBy(query.NewOr(query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)))),
			mutate: func(t *testing.T, f *fixture) { f.add(t, 500, 501, 4, 0) },
		},
		{
			name:   "reduced index appears",
			filter: query.NewFilterBy(query.NewOr(query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(2)))),
			mutate: func(t *testing.T, f *fixture) { f.add(t, 500, 501, 2, 0) },
		},
		{
			name:   "hierarchy changes",
			filter: query.NewFilterBy(query.NewOr(query.NewHierarchyWithin("categories", 2))),
			mutate: func(t *testing.T, f *fixture) {
				cat, err := f.catalog.Collection("category")
				require.NoError(t, err)
				require.NoError(t, cat.Upsert(model.NewEntity("category", 5).WithParent(2).Build()))
			},
		},
		{
			name:   "attribute column changes",
			filter: query.NewFilterBy(query.NewAttributeBetween("price", metadata.Int(0), metadata.Int(50))),
			mutate: func(t *testing.T, f *fixture) { f.add(t, 2, 3, 4, 1) },
		},
		{
			name: "referenced collection changes",
			filter: query.NewFilterBy(query.NewReferenceHaving("brand",
				query.NewEntityHaving(query.NewAttributeEquals("name", metadata.String("acme"))),
			)),
			mutate: func(t *testing.T, f *fixture) {
				require.NoError(t, f.brands.Upsert(model.NewEntity("brand", 3).WithAttribute("name", metadata.String("acme")).Build()))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			before := formula.FindOfType[*formula.DeferredFormula](f.compileBaseline(t, tt.filter), formula.Deep)
			require.Len(t, before, 1)

			tt.mutate(t, f)
			after := formula.FindOfType[*formula.DeferredFormula](f.compileBaseline(t, tt.filter), formula.Deep)
			require.Len(t, after, 1)

			assert.Equal(t, before[0].Hash(), after[0].Hash())
			assert.NotEqual(t, before[0].TransactionalIDHash(), after[0].TransactionalIDHash())
		})
	}
}

func TestCompile_EmptyTarget(t *testing.T) {
	f := newFixture(t)
	translator := planner.NewIndexHierarchyTranslator(f.catalog, f.products.Schema())

	fm, err := NewCompiler(f.catalog, f.products, translator).Compile(context.Background(), nil, planner.EmptyTargetIndexes)
	require.NoError(t, err)
	assert.Equal(t, formula.KindEmpty, fm.Kind())
}

func TestCompile_DeferredUntilComputed(t *testing.T) {
	f := newFixture(t)
	fm := f.compileBaseline(t, query.NewFilterBy(
		query.NewAttributeBetween("price", metadata.Int(10), metadata.Int(30)),
	))

	deferred := formula.FindOfType[*formula.DeferredFormula](fm, formula.Deep)
	require.Len(t, deferred, 1)
	_, computed := deferred[0].Computed()
	assert.False(t, computed)
	assert.Equal(t, 3, deferred[0].EstimatedCardinality())

	bm, err := fm.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, bm.ToArray())
}
