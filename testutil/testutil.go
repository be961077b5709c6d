package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/schema"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	// Normalization constant (harmonic number with exponent s)
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Inverse transform
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// ZipfBuckets generates n bucket assignments with Zipfian distribution.
// Returns slice where ~20% of buckets contain ~80% of values (when s=1.5).
func (r *RNG) ZipfBuckets(n, bucketCount int, s float64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	buckets := make([]int64, n)
	for i := range n {
		buckets[i] = int64(r.zipfLocked(bucketCount, s))
	}

	return buckets
}

// Sparse reports for n items whether each one is present.
// missingRate is the probability that an item is missing (0.3 = 30% missing).
func (r *RNG) Sparse(n int, missingRate float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	present := make([]bool, n)
	for i := range n {
		present[i] = r.rand.Float64() >= missingRate
	}

	return present
}

// Workload describes a generated product catalog.
type Workload struct {
	// Categories is the number of nodes of the category tree.
	Categories int
	// Fanout is the number of children per category.
	Fanout int
	Brands int
	// Products is the number of generated products.
	Products int
	// Skew is the Zipf exponent of category and brand assignment.
	Skew float64
	// UncategorizedRate is the share of products without categories.
	UncategorizedRate float64
	// ArchivedRate is the share of products in the archived scope.
	ArchivedRate float64
}

// DefaultWorkload returns a small skewed catalog.
func DefaultWorkload() Workload {
	return Workload{
		Categories:        40,
		Fanout:            3,
		Brands:            10,
		Products:          2000,
		Skew:              1.2,
		UncategorizedRate: 0.4,
		ArchivedRate:      0.1,
	}
}

// Catalog is a generated set of categories, brands and products.
type Catalog struct {
	Categories []*model.Entity
	Brands     []*model.Entity
	Products   []*model.Entity

	children map[uint32][]uint32
}

// CatalogSchemas returns the schemas of the collections produced by Catalog:
//
//   - category: hierarchical, live and archived
//   - brand: filterable name
//   - product: filterable price and code, categories partitioned in live
//     and indexed for filtering in archived, brand indexed for filtering in
//     live, EUR prices in the "basic" and "vip" price lists
func CatalogSchemas() []*schema.EntitySchema {
	return []*schema.EntitySchema{
		schema.NewEntitySchema("category").
			WithHierarchy().
			WithScopes(schema.ScopeLive, schema.ScopeArchived),
		schema.NewEntitySchema("brand").
			WithAttribute("name", metadata.FieldTypeString, true),
		schema.NewEntitySchema("product").
			WithScopes(schema.ScopeLive, schema.ScopeArchived).
			WithPrices().
			WithAttribute("price", metadata.FieldTypeInt, true).
			WithAttribute("code", metadata.FieldTypeString, true).
			WithReference("categories", "category", map[schema.Scope]schema.ReferenceIndexType{
				schema.ScopeLive:     schema.ReferenceIndexForFilteringAndPartitioning,
				schema.ScopeArchived: schema.ReferenceIndexForFiltering,
			}).
			WithReference("brand", "brand", map[schema.Scope]schema.ReferenceIndexType{
				schema.ScopeLive: schema.ReferenceIndexForFiltering,
			}),
	}
}

// Catalog generates the entities of w. Category 1 is the root of the tree;
// category i > 1 is a child of category (i-2)/Fanout + 1.
func (r *RNG) Catalog(w Workload) *Catalog {
	c := &Catalog{children: make(map[uint32][]uint32)}
	fanout := max(w.Fanout, 1)

	for i := 1; i <= w.Categories; i++ {
		pk := uint32(i)
		b := model.NewEntity("category", pk)
		if i > 1 {
			parent := uint32((i-2)/fanout + 1)
			b.WithParent(parent)
			c.children[parent] = append(c.children[parent], pk)
		}
		c.Categories = append(c.Categories, b.Build())
	}

	for i := 1; i <= w.Brands; i++ {
		c.Brands = append(c.Brands, model.NewEntity("brand", uint32(i)).
			WithAttribute("name", metadata.String(fmt.Sprintf("brand-%d", i))).
			Build())
	}

	categorized := r.Sparse(w.Products, w.UncategorizedRate)
	archived := r.Sparse(w.Products, 1-w.ArchivedRate)
	categories := r.ZipfBuckets(w.Products, max(w.Categories, 1), w.Skew)
	brands := r.ZipfBuckets(w.Products, max(w.Brands, 1), w.Skew)

	for i := range w.Products {
		b := model.NewEntity("product", uint32(i+1)).
			WithAttribute("price", metadata.Int(int64(r.Intn(10_000)))).
			WithAttribute("code", metadata.String(fmt.Sprintf("c%02d", r.Intn(50))))
		if categorized[i] && w.Categories > 0 {
			b.WithReference("categories", uint32(categories[i]+1))
		}
		if w.Brands > 0 {
			b.WithReference("brand", uint32(brands[i]+1))
		}
		basic := int64(r.Intn(10_000))
		b.WithPrice("basic", "EUR", basic)
		if r.Intn(2) == 0 {
			b.WithPrice("vip", "EUR", basic*8/10)
		}
		if archived[i] {
			b.InScope(schema.ScopeArchived)
		}
		c.Products = append(c.Products, b.Build())
	}
	return c
}

// All returns categories, brands and products in insertion order.
func (c *Catalog) All() []*model.Entity {
	out := make([]*model.Entity, 0, len(c.Categories)+len(c.Brands)+len(c.Products))
	out = append(out, c.Categories...)
	out = append(out, c.Brands...)
	return append(out, c.Products...)
}

// Descendants returns root and all categories below it, sorted.
func (c *Catalog) Descendants(root uint32) []uint32 {
	out := []uint32{root}
	for i := 0; i < len(out); i++ {
		out = append(out, c.children[out[i]]...)
	}
	slices.Sort(out)
	return out
}

// BruteForce returns the sorted primary keys of the entities in scopes that
// satisfy match. It is the ground truth for filter queries.
func BruteForce(entities []*model.Entity, scopes schema.ScopeSet, match func(*model.Entity) bool) []uint32 {
	var out []uint32
	for _, e := range entities {
		if scopes.Contains(e.ScopeOrDefault()) && match(e) {
			out = append(out, e.PrimaryKey)
		}
	}
	slices.Sort(out)
	return out
}

// ReferencesAny reports whether e references one of pks under name.
func ReferencesAny(e *model.Entity, name string, pks []uint32) bool {
	for _, pk := range e.ReferencedKeys(name) {
		if slices.Contains(pks, pk) {
			return true
		}
	}
	return false
}

// InScope evaluates match for entities in scopes and accepts every other
// entity, like an inScope constraint does.
func InScope(e *model.Entity, scopes schema.ScopeSet, match func(*model.Entity) bool) bool {
	return !scopes.Contains(e.ScopeOrDefault()) || match(e)
}

// IntBetween reports whether attribute name of e is an integer in [from, to].
func IntBetween(e *model.Entity, name string, from, to int64) bool {
	v, ok := e.Attributes[name]
	return ok && v.Kind == metadata.KindInt && v.I64 >= from && v.I64 <= to
}

// SellingPriceBetween reports whether the selling price of e in currency,
// taken from the first of priceLists holding a price, is in [from, to].
func SellingPriceBetween(e *model.Entity, currency string, priceLists []string, from, to int64) bool {
	p, ok := e.SellingPrice(currency, priceLists...)
	return ok && p.Amount >= from && p.Amount <= to
}
