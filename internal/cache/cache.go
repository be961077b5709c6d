package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/resource"
	"golang.org/x/sync/singleflight"
)

// Config configures the formula result cache.
type Config struct {
	// Enabled switches the cache on.
	Enabled bool

	// MaxBytes bounds the payload bytes held by the cache.
	// Default: 64MB
	MaxBytes int64

	// MinimalUsageThreshold is the number of requests a formula must see
	// before its result is admitted.
	// Default: 2
	MinimalUsageThreshold int

	// MinimalComplexityThreshold is the minimal cost-to-performance ratio of
	// an admitted formula.
	// Default: 8
	MinimalComplexityThreshold int64

	// AnteroomCapacity bounds the number of formulas whose usage is tracked.
	// Default: 10000
	AnteroomCapacity int

	// Compression is applied to cached bitmaps.
	Compression Compression
}

// DefaultConfig returns the default configuration. The cache is disabled.
func DefaultConfig() Config {
	return Config{
		MaxBytes:                   64 << 20,
		MinimalUsageThreshold:      2,
		MinimalComplexityThreshold: 8,
		AnteroomCapacity:           10_000,
		Compression:                CompressionLZ4,
	}
}

// Stats contains cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Admissions int64
	Rejections int64
	Evictions  int64
	Entries    int
	Bytes      int64
}

// FormulaCache memoizes results of formula subtrees across queries.
//
// Entries are keyed by formula hash and are only served while their
// transactional id hash matches the one of the requesting formula, so a
// result computed from an older index version is never returned.
type FormulaCache struct {
	cfg      Config
	anteroom *anteroom
	eden     *eden
	rc       *resource.Controller
	fills    singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	admissions atomic.Int64
	rejections atomic.Int64
}

// New creates a cache. rc may be nil.
func New(cfg Config, rc *resource.Controller) *FormulaCache {
	def := DefaultConfig()
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.MinimalUsageThreshold <= 0 {
		cfg.MinimalUsageThreshold = def.MinimalUsageThreshold
	}
	if cfg.AnteroomCapacity <= 0 {
		cfg.AnteroomCapacity = def.AnteroomCapacity
	}
	return &FormulaCache{
		cfg:      cfg,
		anteroom: newAnteroom(cfg.AnteroomCapacity),
		eden:     newEden(cfg.MaxBytes, rc),
		rc:       rc,
	}
}

// Lookup replaces every cacheable subtree of root whose result is cached
// and current with a formula.CachedFormula. It records no usage and leaves
// the statistics untouched, so it may be applied to plans that are never
// executed. The original root is returned when nothing was cached.
func (c *FormulaCache) Lookup(root formula.Formula) (formula.Formula, error) {
	return formula.Clone(root, func(_ *formula.Cloner, f formula.Formula) formula.Formula {
		if !cacheable(f) {
			return f
		}
		if cached, ok := c.cached(f, c.eden.peek); ok {
			return cached
		}
		return f
	})
}

// Analyse works like Lookup and records usage on the way: hits refresh the
// entry and every cacheable subtree without a current entry is counted in
// the anteroom. Subtrees already replaced by Lookup count as hits.
func (c *FormulaCache) Analyse(root formula.Formula) (formula.Formula, error) {
	return formula.Clone(root, func(_ *formula.Cloner, f formula.Formula) formula.Formula {
		if f.Kind() == formula.KindCached {
			c.eden.get(f.Hash())
			c.hits.Add(1)
			return f
		}
		if !cacheable(f) {
			return f
		}
		if cached, ok := c.cached(f, c.eden.get); ok {
			c.hits.Add(1)
			return cached
		}
		c.misses.Add(1)
		c.anteroom.record(f.Hash())
		return f
	})
}

// cached returns the stored result of f when it is current. Entries that
// are stale or cannot be decoded are removed.
func (c *FormulaCache) cached(f formula.Formula, get func(uint64) (*entry, bool)) (formula.Formula, bool) {
	hash := f.Hash()
	ent, ok := get(hash)
	if !ok {
		return nil, false
	}
	if ent.txIDHash == f.TransactionalIDHash() {
		if bm, err := decodePayload(ent.payload); err == nil {
			return formula.NewCached(f, bm), true
		}
	}
	c.eden.remove(hash)
	return nil, false
}

// Feed offers the computed subtrees of root for admission and returns the
// number of admitted results. Results are admitted once they were requested
// MinimalUsageThreshold times and their cost-to-performance ratio reaches
// MinimalComplexityThreshold.
func (c *FormulaCache) Feed(root formula.Formula) int {
	candidates := formula.Find(root, func(f formula.Formula) bool {
		_, computed := f.Computed()
		return computed && cacheable(f)
	}, nil, formula.Deep)

	admitted := 0
	for _, f := range candidates {
		if c.admit(f) {
			admitted++
		}
	}
	return admitted
}

func (c *FormulaCache) admit(f formula.Formula) bool {
	hash, txIDHash := f.Hash(), f.TransactionalIDHash()
	if c.anteroom.count(hash) < c.cfg.MinimalUsageThreshold {
		return false
	}
	if f.CostToPerformanceRatio() < c.cfg.MinimalComplexityThreshold {
		return false
	}
	if c.eden.contains(hash, txIDHash) {
		return false
	}

	key := fmt.Sprintf("%016x/%016x", hash, txIDHash)
	v, _, _ := c.fills.Do(key, func() (any, error) {
		if c.eden.contains(hash, txIDHash) {
			return false, nil
		}
		bm, _ := f.Computed()
		payload, err := encodePayload(bm, c.cfg.Compression)
		if err != nil || !c.rc.TryAdmit(len(payload)) {
			c.rejections.Add(1)
			return false, nil
		}
		ok := c.eden.put(&entry{
			hash:        hash,
			txIDHash:    txIDHash,
			cardinality: bm.Cardinality(),
			payload:     payload,
		})
		if !ok {
			c.rejections.Add(1)
			return false, nil
		}
		c.anteroom.forget(hash)
		c.admissions.Add(1)
		return true, nil
	})
	return v.(bool)
}

// Purge drops every cached result.
func (c *FormulaCache) Purge() {
	c.eden.purge()
}

// Stats returns cache statistics.
func (c *FormulaCache) Stats() Stats {
	entries, bytes, evictions := c.eden.stats()
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Admissions: c.admissions.Load(),
		Rejections: c.rejections.Load(),
		Evictions:  evictions,
		Entries:    entries,
		Bytes:      bytes,
	}
}

// cacheable reports whether caching the result of f can save work. Leaves
// over materialized bitmaps are already as cheap as a cache hit.
func cacheable(f formula.Formula) bool {
	switch f.Kind() {
	case formula.KindAnd, formula.KindOr, formula.KindNot, formula.KindUserFilter, formula.KindDeferred,
		formula.KindPriceTermination:
		return true
	default:
		return false
	}
}
