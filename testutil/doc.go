// Package testutil provides testing utilities for evigo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded RNG, a generator of skewed product catalogs and
// brute-force evaluation of filters as ground truth.
//
// # Catalog Generation
//
//	rng := testutil.NewRNG(seed)
//	cat := rng.Catalog(testutil.DefaultWorkload())
//	for _, s := range testutil.CatalogSchemas() {
//	    _ = db.DefineEntity(ctx, s)
//	}
//	for _, e := range cat.All() {
//	    _ = db.Upsert(ctx, e)
//	}
//
// # Ground Truth
//
//	within := cat.Descendants(2)
//	want := testutil.BruteForce(cat.Products, schema.DefaultScopes, func(e *model.Entity) bool {
//	    return testutil.ReferencesAny(e, "categories", within)
//	})
package testutil
