// Package evigo provides an embeddable entity database with an index-aware
// query core.
//
// Entities are stored in collections described by a schema. Each collection
// keeps a global index per scope and, for references indexed for filtering,
// reduced indexes holding the entities that reference one particular entity.
// Queries are compiled into a tree of formulas over bitmaps. When a filter
// touches references, every reduced index alternative able to answer it is
// compiled next to the global one and the cheapest formula is computed.
//
// # Quick Start
//
//	ctx := context.Background()
//	db := evigo.New()
//	defer db.Close()
//
//	_ = db.DefineEntity(ctx, schema.NewEntitySchema("category").WithHierarchy())
//	_ = db.DefineEntity(ctx, schema.NewEntitySchema("product").
//	    WithAttribute("code", metadata.FieldTypeString, true).
//	    WithReference("categories", "category", map[schema.Scope]schema.ReferenceIndexType{
//	        schema.ScopeLive: schema.ReferenceIndexForFilteringAndPartitioning,
//	    }))
//
//	_ = db.Upsert(ctx, model.NewEntity("product", 1).
//	    WithAttribute("code", metadata.String("p1")).
//	    WithReference("categories", 7).
//	    Build())
//
//	res, _ := db.Query(ctx, query.New("product", query.NewFilterBy(
//	    query.NewHierarchyWithin("categories", 7),
//	)))
//	fmt.Println(res.PrimaryKeys, res.Plan)
//
// # Explaining Queries
//
// Explain renders the compared index alternatives with their estimated costs
// and the formula tree of the chosen one:
//
//	out, _ := db.Explain(ctx, q, false)
//
// # Caching
//
// With WithCache, subtrees that are requested repeatedly and are expensive to
// compute are memoized. Every formula carries the versions of the indexes it
// reads; a cached result is served only while those versions are current.
//
// # Key Features
//
//   - Roaring bitmap posting lists for attributes and references
//   - Reduced index alternatives with cost-based selection
//   - Hierarchy filtering over hierarchical collections
//   - Scopes (live and archived data)
//   - Formula result cache with LZ4/ZSTD compressed payloads
//   - Query budgets, backpressure, metrics and OpenTelemetry spans
package evigo
