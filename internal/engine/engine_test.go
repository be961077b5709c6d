package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/evigo/internal/cache"
	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/internal/resource"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog  *index.Catalog
	products *index.Collection
	brands   *index.Collection
}

// newFixture defines the category tree
//
//	1 ── 2 ── 4
//	└─── 3
//
// two brands and 200 live products:
//   - 1..10 in category 4, brand 1, price pk*10
//   - 11..20 in category 3, brand 2, price pk*10
//   - 21..200 without category or brand
//
// Every product sells for pk*100 in the EUR "basic" list. Even products up
// to 20 also sell for pk*50 in the EUR "vip" list, 1..10 for pk*110 in the
// USD "basic" list.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := index.NewCatalog()

	categories, err := cat.Define(schema.NewEntitySchema("category").
		WithHierarchy().
		WithScopes(schema.ScopeLive, schema.ScopeArchived))
	require.NoError(t, err)
	for _, c := range []struct {
		pk     uint32
		parent uint32
	}{{1, 0}, {2, 1}, {3, 1}, {4, 2}} {
		b := model.NewEntity("category", c.pk)
		if c.parent != 0 {
			b = b.WithParent(c.parent)
		}
		require.NoError(t, categories.Upsert(b.Build()))
	}

	brands, err := cat.Define(schema.NewEntitySchema("brand").
		WithAttribute("name", metadata.FieldTypeString, true))
	require.NoError(t, err)
	require.NoError(t, brands.Upsert(model.NewEntity("brand", 1).WithAttribute("name", metadata.String("acme")).Build()))
	require.NoError(t, brands.Upsert(model.NewEntity("brand", 2).WithAttribute("name", metadata.String("globex")).Build()))

	products, err := cat.Define(schema.NewEntitySchema("product").
		WithScopes(schema.ScopeLive, schema.ScopeArchived).
		WithPrices().
		WithAttribute("code", metadata.FieldTypeString, true).
		WithAttribute("price", metadata.FieldTypeInt, true).
		WithAttribute("description", metadata.FieldTypeString, false).
		WithReference("categories", "category", map[schema.Scope]schema.ReferenceIndexType{
			schema.ScopeLive:     schema.ReferenceIndexForFilteringAndPartitioning,
			schema.ScopeArchived: schema.ReferenceIndexForFiltering,
		}).
		WithReference("brand", "brand", map[schema.Scope]schema.ReferenceIndexType{
			schema.ScopeLive: schema.ReferenceIndexForFiltering,
		}).
		WithReference("tags", "tag", nil))
	require.NoError(t, err)

	f := &fixture{catalog: cat, products: products, brands: brands}
	f.add(t, 1, 11, 4, 1)
	f.add(t, 11, 21, 3, 2)
	f.add(t, 21, 201, 0, 0)
	return f
}

func (f *fixture) add(t *testing.T, from, to, category, brand uint32) {
	t.Helper()
	for pk := from; pk < to; pk++ {
		b := model.NewEntity("product", pk).
			WithAttribute("code", metadata.String("p"+string(rune('a'+pk%26)))).
			WithAttribute("price", metadata.Int(int64(pk)*10)).
			WithPrice("basic", "EUR", int64(pk)*100)
		if pk%2 == 0 && pk <= 20 {
			b = b.WithPrice("vip", "EUR", int64(pk)*50)
		}
		if pk <= 10 {
			b = b.WithPrice("basic", "USD", int64(pk)*110)
		}
		if category != 0 {
			b = b.WithReference("categories", category)
		}
		if brand != 0 {
			b = b.WithReference("brand", brand)
		}
		require.NoError(t, f.products.Upsert(b.Build()))
	}
}

func keys(from, to uint32) []uint32 {
	out := make([]uint32, 0, to-from)
	for pk := from; pk < to; pk++ {
		out = append(out, pk)
	}
	return out
}

// addArchived stores archived products 300..304 in category 4 with price pk.
func (f *fixture) addArchived(t *testing.T) {
	t.Helper()
	for pk := uint32(300); pk < 305; pk++ {
		require.NoError(t, f.products.Upsert(model.NewEntity("product", pk).
			WithAttribute("price", metadata.Int(int64(pk))).
			WithReference("categories", 4).
			InScope(schema.ScopeArchived).
			Build()))
	}
}

func TestExecute_Filters(t *testing.T) {
	both := []schema.Scope{schema.ScopeLive, schema.ScopeArchived}
	tests := []struct {
		name     string
		filter   *query.FilterBy
		scopes   []schema.Scope
		archived bool
		// reduced requires the chosen plan to start from reduced indexes.
		reduced bool
		want    []uint32
	}{
		{
			name:   "no filter",
			filter: nil,
			want:   keys(1, 201),
		},
		{
			name: "reference having primary key",
			filter: query.NewFilterBy(
				query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)),
				query.NewAttributeBetween("price", metadata.Int(30), metadata.Int(70)),
			),
			want: keys(3, 8),
		},
		{
			name: "reference having with attribute child",
			filter: query.NewFilterBy(
				query.NewReferenceHaving("categories",
					query.NewEntityPrimaryKeyInSet(4),
					query.NewAttributeBetween("price", metadata.Int(30), metadata.Int(70)),
				),
			),
			reduced: true,
			want:    keys(3, 8),
		},
		{
			name: "reference having with attribute child across scopes",
			filter: query.NewFilterBy(
				query.NewReferenceHaving("categories",
					query.NewEntityPrimaryKeyInSet(4),
					query.NewAttributeBetween("price", metadata.Int(30), metadata.Int(301)),
				),
			),
			scopes:   both,
			archived: true,
			want:     append(keys(3, 11), 300, 301),
		},
		{
			name: "reduced index inside in scope",
			filter: query.NewFilterBy(
				query.NewInScope([]schema.Scope{schema.ScopeLive},
					query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)),
				),
			),
			scopes:   both,
			archived: true,
			reduced:  true,
			want:     append(keys(1, 11), keys(300, 305)...),
		},
		{
			name: "no reduced index inside in scope",
			filter: query.NewFilterBy(
				query.NewInScope([]schema.Scope{schema.ScopeLive},
					query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(99)),
				),
			),
			scopes:   both,
			archived: true,
			want:     keys(300, 305),
		},
		{
			name: "reference having any",
			filter: query.NewFilterBy(
				query.NewNot(query.NewReferenceHaving("categories")),
			),
			want: keys(21, 201),
		},
		{
			name: "hierarchy within",
			filter: query.NewFilterBy(
				query.NewHierarchyWithin("categories", 2),
			),
			want: keys(1, 11),
		},
		{
			name: "hierarchy within root excluding",
			filter: query.NewFilterBy(
				query.NewHierarchyWithinRoot("categories", query.Excluding{PrimaryKeys: []uint32{2}}),
			),
			want: keys(11, 21),
		},
		{
			name: "or of attributes",
			filter: query.NewFilterBy(
				query.NewOr(
					query.NewAttributeEquals("price", metadata.Int(10)),
					query.NewAttributeInSet("price", metadata.Int(20), metadata.Int(30), metadata.Int(9999)),
				),
			),
			want: []uint32{1, 2, 3},
		},
		{
			name: "primary keys outside the collection",
			filter: query.NewFilterBy(
				query.NewEntityPrimaryKeyInSet(199, 200, 201, 500),
			),
			want: []uint32{199, 200},
		},
		{
			name: "user filter and nested entity having",
			filter: query.NewFilterBy(
				query.NewUserFilter(
					query.NewReferenceHaving("brand",
						query.NewEntityHaving(query.NewAttributeEquals("name", metadata.String("globex"))),
					),
				),
			),
			want: keys(11, 21),
		},
		{
			name: "in scope not matching",
			filter: query.NewFilterBy(
				query.NewInScope([]schema.Scope{schema.ScopeArchived}, query.NewEntityPrimaryKeyInSet(1)),
				query.NewAttributeBetween("price", metadata.Null(), metadata.Int(20)),
			),
			want: []uint32{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.archived {
				f.addArchived(t)
			}
			e := New(f.catalog, Options{})

			res, err := e.Execute(context.Background(), query.New("product", tt.filter, tt.scopes...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.PrimaryKeys.ToArray())
			if tt.reduced {
				require.NotNil(t, res.Plan.Chosen())
				assert.False(t, res.Plan.Chosen().Target.IsGlobal(), res.Plan.Explain())
			}

			// Every compiled alternative yields the same result.
			for _, alt := range res.Plan.Alternatives {
				bm, err := alt.Formula.Compute(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tt.want, bm.ToArray(), alt.String())
			}
		})
	}
}

func TestExecute_Prices(t *testing.T) {
	eur := func(lists ...string) []query.Constraint {
		return []query.Constraint{query.NewPriceInCurrency("EUR"), query.NewPriceInPriceLists(lists...)}
	}
	filter := func(cs ...[]query.Constraint) *query.FilterBy {
		var all []query.Constraint
		for _, c := range cs {
			all = append(all, c...)
		}
		return query.NewFilterBy(all...)
	}
	between := func(from, to metadata.Value) []query.Constraint {
		return []query.Constraint{query.NewPriceBetween(from, to)}
	}

	tests := []struct {
		name   string
		filter *query.FilterBy
		want   []uint32
	}{
		{
			name:   "every entity with a selling price",
			filter: filter(eur("vip", "basic")),
			want:   keys(1, 201),
		},
		{
			name:   "selling price from the first list",
			filter: filter(eur("vip", "basic"), between(metadata.Null(), metadata.Int(1000))),
			want:   []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12, 14, 16, 18, 20},
		},
		{
			name:   "price list priority",
			filter: filter(eur("basic", "vip"), between(metadata.Null(), metadata.Int(1000))),
			want:   keys(1, 11),
		},
		{
			name:   "single list",
			filter: filter(eur("vip"), between(metadata.Int(600), metadata.Null())),
			want:   []uint32{12, 14, 16, 18, 20},
		},
		{
			name:   "unknown list is skipped",
			filter: filter(eur("gold", "vip"), between(metadata.Int(600), metadata.Null())),
			want:   []uint32{12, 14, 16, 18, 20},
		},
		{
			name:   "no known list",
			filter: filter(eur("gold")),
			want:   nil,
		},
		{
			name: "other currency",
			filter: query.NewFilterBy(
				query.NewPriceInCurrency("USD"),
				query.NewPriceInPriceLists("basic"),
			),
			want: keys(1, 11),
		},
		{
			name: "ranges in one conjunction narrow each other",
			filter: filter(eur("basic"),
				between(metadata.Int(500), metadata.Int(2000)),
				between(metadata.Int(1000), metadata.Int(5000)),
			),
			want: keys(10, 21),
		},
		{
			name: "range inside user filter",
			filter: filter(eur("basic"), []query.Constraint{
				query.NewUserFilter(query.NewPriceBetween(metadata.Int(1000), metadata.Int(1000))),
			}),
			want: []uint32{10},
		},
		{
			name: "negated range",
			filter: filter(eur("basic"), []query.Constraint{
				query.NewNot(query.NewPriceBetween(metadata.Null(), metadata.Int(19000))),
			}),
			want: keys(191, 201),
		},
		{
			name: "range within a reference",
			filter: filter(eur("vip", "basic"), []query.Constraint{
				query.NewReferenceHaving("categories",
					query.NewEntityPrimaryKeyInSet(4),
					query.NewPriceBetween(metadata.Null(), metadata.Int(500)),
				),
			}),
			want: []uint32{1, 2, 3, 4, 5, 6, 8, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := New(f.catalog, Options{})

			res, err := e.Execute(context.Background(), query.New("product", tt.filter))
			require.NoError(t, err)
			got := res.PrimaryKeys.ToArray()
			if len(got) == 0 {
				got = nil
			}
			assert.Equal(t, tt.want, got)

			for _, alt := range res.Plan.Alternatives {
				bm, err := alt.Formula.Compute(context.Background())
				require.NoError(t, err)
				altGot := bm.ToArray()
				if len(altGot) == 0 {
					altGot = nil
				}
				assert.Equal(t, tt.want, altGot, alt.String())
			}
		})
	}
}

func TestExecute_PricesFollowUpdates(t *testing.T) {
	f := newFixture(t)
	fc := cache.New(cache.Config{Enabled: true, MinimalUsageThreshold: 1}, nil)
	e := New(f.catalog, Options{Cache: fc})
	q := query.New("product", query.NewFilterBy(
		query.NewPriceInCurrency("EUR"),
		query.NewPriceInPriceLists("vip", "basic"),
		query.NewPriceBetween(metadata.Int(700), metadata.Int(700)),
	))

	for range 3 {
		res, err := e.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []uint32{7, 14}, res.PrimaryKeys.ToArray())
	}

	assert.Positive(t, fc.Stats().Hits)

	require.NoError(t, f.products.Upsert(model.NewEntity("product", 7).WithPrice("basic", "EUR", 900).Build()))
	res, err := e.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []uint32{14}, res.PrimaryKeys.ToArray())
}

func TestPlan_PrefersReducedIndex(t *testing.T) {
	f := newFixture(t)
	e := New(f.catalog, Options{})

	p, err := e.Plan(context.Background(), query.New("product", query.NewFilterBy(
		query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)),
		query.NewAttributeBetween("price", metadata.Int(30), metadata.Int(70)),
	)))
	require.NoError(t, err)

	require.Len(t, p.Alternatives, 2)
	assert.True(t, p.Alternatives[0].Target.IsGlobal())
	chosen := p.Chosen()
	require.NotNil(t, chosen)
	assert.False(t, chosen.Target.IsGlobal())
	assert.Less(t, chosen.EstimatedCost, p.Alternatives[0].EstimatedCost)
	assert.Equal(t, chosen.EstimatedCost, p.EstimatedCost())

	explain := p.Explain()
	assert.Contains(t, explain, "alternatives:")
	assert.Contains(t, explain, "* Reduced indexes of reference \"categories\"")
	assert.Contains(t, explain, "formula:")
}

func TestPlan_NotPartitionedFallsBackToBaseline(t *testing.T) {
	f := newFixture(t)
	e := New(f.catalog, Options{})

	p, err := e.Plan(context.Background(), query.New("product", query.NewFilterBy(
		query.NewReferenceHaving("brand", query.NewEntityPrimaryKeyInSet(1)),
	)))
	require.NoError(t, err)
	require.Len(t, p.Alternatives, 1)
	assert.True(t, p.Chosen().Target.IsGlobal())

	bm, err := p.Formula().Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, keys(1, 11), bm.ToArray())
}

func TestPlan_EmptySelectionShortCircuits(t *testing.T) {
	f := newFixture(t)
	e := New(f.catalog, Options{})

	res, err := e.Execute(context.Background(), query.New("product", query.NewFilterBy(
		query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(99)),
	)))
	require.NoError(t, err)
	assert.True(t, res.Plan.IsEmpty())
	assert.Nil(t, res.Plan.Chosen())
	assert.Empty(t, res.Plan.Alternatives)
	assert.Equal(t, formula.KindEmpty, res.Plan.Formula().Kind())
	assert.True(t, res.PrimaryKeys.IsEmpty())
	assert.Contains(t, res.Plan.Explain(), "proven empty")
}

func TestExecute_MultipleScopes(t *testing.T) {
	f := newFixture(t)
	f.addArchived(t)
	e := New(f.catalog, Options{})

	filter := query.NewFilterBy(query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)))

	live, err := e.Execute(context.Background(), query.New("product", filter))
	require.NoError(t, err)
	assert.Equal(t, keys(1, 11), live.PrimaryKeys.ToArray())

	both, err := e.Execute(context.Background(), query.New("product", filter, schema.ScopeLive, schema.ScopeArchived))
	require.NoError(t, err)
	assert.Equal(t, append(keys(1, 11), keys(300, 305)...), both.PrimaryKeys.ToArray())

	archivedOnly, err := e.Execute(context.Background(), query.New("product", query.NewFilterBy(
		query.NewInScope([]schema.Scope{schema.ScopeArchived},
			query.NewAttributeBetween("price", metadata.Int(302), metadata.Null()),
		),
	), schema.ScopeLive, schema.ScopeArchived))
	require.NoError(t, err)
	assert.Len(t, archivedOnly.PrimaryKeys.ToArray(), 200+3)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  *query.Query
		target error
	}{
		{
			name:   "unknown collection",
			query:  query.New("nope", nil),
			target: index.ErrCollectionNotFound,
		},
		{
			name: "attribute not filterable",
			query: query.New("product", query.NewFilterBy(
				query.NewAttributeEquals("description", metadata.String("x")),
			)),
			target: ErrAttributeNotFilterable,
		},
		{
			name: "undeclared attribute",
			query: query.New("product", query.NewFilterBy(
				query.NewAttributeInSet("color", metadata.String("red")),
			)),
			target: ErrAttributeNotFilterable,
		},
		{
			name: "unknown reference",
			query: query.New("product", query.NewFilterBy(
				query.NewReferenceHaving("vendors", query.NewEntityPrimaryKeyInSet(1)),
			)),
			target: planner.ErrReferenceNotFound,
		},
		{
			name: "reference not indexed",
			query: query.New("product", query.NewFilterBy(
				query.NewOr(query.NewReferenceHaving("tags")),
			)),
			target: planner.ErrReferenceNotIndexed,
		},
		{
			name: "price range without price lists",
			query: query.New("product", query.NewFilterBy(
				query.NewPriceInCurrency("EUR"),
				query.NewPriceBetween(metadata.Int(1), metadata.Null()),
			)),
			target: ErrInvalidPriceFilter,
		},
		{
			name: "conflicting currencies",
			query: query.New("product", query.NewFilterBy(
				query.NewPriceInCurrency("EUR"),
				query.NewPriceInPriceLists("basic"),
				query.NewOr(query.NewPriceInCurrency("USD")),
			)),
			target: ErrInvalidPriceFilter,
		},
		{
			name: "price bound that is not an amount",
			query: query.New("product", query.NewFilterBy(
				query.NewPriceInCurrency("EUR"),
				query.NewPriceInPriceLists("basic"),
				query.NewPriceBetween(metadata.String("cheap"), metadata.Null()),
			)),
			target: ErrInvalidPriceFilter,
		},
		{
			name: "prices in a collection without prices",
			query: query.New("brand", query.NewFilterBy(
				query.NewPriceInCurrency("EUR"),
				query.NewPriceInPriceLists("basic"),
			)),
			target: ErrInvalidPriceFilter,
		},
		{
			name: "entity having at top level",
			query: query.New("product", query.NewFilterBy(
				query.NewEntityHaving(query.NewEntityPrimaryKeyInSet(1)),
			)),
			target: planner.ErrInternalInconsistency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := New(f.catalog, Options{})

			_, err := e.Execute(context.Background(), tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestExecute_Budget(t *testing.T) {
	filter := query.NewFilterBy(query.NewAttributeBetween("price", metadata.Int(10), metadata.Null()))

	t.Run("estimated cost", func(t *testing.T) {
		f := newFixture(t)
		e := New(f.catalog, Options{Budget: BudgetConfig{MaxEstimatedCost: 1}})

		_, err := e.Execute(context.Background(), query.New("product", filter))
		assert.ErrorIs(t, err, ErrBudgetExceeded)
		assert.Contains(t, err.Error(), "estimated_cost")
	})

	t.Run("result size", func(t *testing.T) {
		f := newFixture(t)
		e := New(f.catalog, Options{Budget: BudgetConfig{MaxResultSize: 5}})

		_, err := e.Execute(context.Background(), query.New("product", filter))
		assert.ErrorIs(t, err, ErrBudgetExceeded)
		assert.Contains(t, err.Error(), "result_size")
	})

	t.Run("budget from context", func(t *testing.T) {
		f := newFixture(t)
		e := New(f.catalog, Options{})

		qb := NewQueryBudget(BudgetConfig{MaxResultSize: 500})
		res, err := e.Execute(WithBudget(context.Background(), qb), query.New("product", filter))
		require.NoError(t, err)
		assert.Equal(t, 200, res.PrimaryKeys.Cardinality())
		assert.False(t, res.Budget.Exhausted)
		assert.Positive(t, res.Budget.EstimatedCost)
	})

	t.Run("canceled", func(t *testing.T) {
		f := newFixture(t)
		e := New(f.catalog, Options{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Execute(ctx, query.New("product", filter))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExecute_Backpressure(t *testing.T) {
	f := newFixture(t)
	rc := resource.NewController(resource.Config{MaxConcurrentQueries: 1})
	e := New(f.catalog, Options{Resource: rc})

	require.True(t, rc.TryAcquireQuery())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.Execute(ctx, query.New("product", nil))
	assert.ErrorIs(t, err, ErrBackpressure)

	rc.ReleaseQuery()
	_, err = e.Execute(context.Background(), query.New("product", nil))
	require.NoError(t, err)
	assert.Zero(t, rc.ActiveQueries())
}

func TestExecute_CacheServesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	fc := cache.New(cache.Config{Enabled: true, MinimalUsageThreshold: 2}, nil)
	e := New(f.catalog, Options{Cache: fc})

	q := query.New("product", query.NewFilterBy(
		query.NewReferenceHaving("brand",
			query.NewEntityHaving(query.NewAttributeEquals("name", metadata.String("acme"))),
		),
		query.NewAttributeBetween("price", metadata.Int(20), metadata.Null()),
	))

	run := func() *Result {
		t.Helper()
		res, err := e.Execute(context.Background(), q)
		require.NoError(t, err)
		return res
	}

	first := run()
	assert.Equal(t, keys(2, 11), first.PrimaryKeys.ToArray())
	assert.Zero(t, first.Admitted)

	second := run()
	assert.Equal(t, keys(2, 11), second.PrimaryKeys.ToArray())
	assert.Positive(t, second.Admitted)

	third := run()
	assert.Equal(t, keys(2, 11), third.PrimaryKeys.ToArray())
	assert.True(t, formula.ContainsKind(third.Plan.Formula(), formula.KindCached))
	assert.Positive(t, fc.Stats().Hits)

	assert.Equal(t, formula.KindCached, third.Plan.Formula().Kind())

	// Renaming brand 2 changes the nested result, so the root entry is stale.
	// The price range does not depend on brands and is still served.
	require.NoError(t, f.brands.Upsert(model.NewEntity("brand", 2).WithAttribute("name", metadata.String("acme")).Build()))
	fourth := run()
	assert.Equal(t, formula.KindAnd, fourth.Plan.Formula().Kind())
	assert.True(t, formula.ContainsKind(fourth.Plan.Formula(), formula.KindCached))
	assert.Equal(t, keys(2, 21), fourth.PrimaryKeys.ToArray())
}

func TestExecute_CacheRecordsChosenAlternativeOnly(t *testing.T) {
	f := newFixture(t)
	fc := cache.New(cache.Config{Enabled: true, MinimalUsageThreshold: 2}, nil)
	e := New(f.catalog, Options{Cache: fc})

	res, err := e.Execute(context.Background(), query.New("product", query.NewFilterBy(
		query.NewReferenceHaving("categories", query.NewEntityPrimaryKeyInSet(4)),
		query.NewAttributeBetween("price", metadata.Int(30), metadata.Int(70)),
	)))
	require.NoError(t, err)
	require.Len(t, res.Plan.Alternatives, 2)
	require.False(t, res.Plan.Chosen().Target.IsGlobal())

	cacheable := formula.Find(res.Plan.Formula(), func(f formula.Formula) bool {
		switch f.Kind() {
		case formula.KindAnd, formula.KindOr, formula.KindNot, formula.KindUserFilter, formula.KindDeferred:
			return true
		default:
			return false
		}
	}, nil, formula.Deep)
	require.NotEmpty(t, cacheable)
	assert.Equal(t, int64(len(cacheable)), fc.Stats().Misses, "the baseline was compiled but not executed")
	assert.Zero(t, fc.Stats().Hits)
}
