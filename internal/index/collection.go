package index

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/schema"
)

type referenceKey struct {
	scope     schema.Scope
	reference string
}

// Collection holds the entities of one type together with their global,
// reduced, hierarchy and price indexes.
//
// Readers never block on index snapshots: once obtained, bitmaps returned by
// the indexes are immutable.
type Collection struct {
	schema *schema.EntitySchema

	mu                sync.RWMutex
	entities          map[uint32]*model.Entity
	indexes           map[Key]*EntityIndex
	hierarchies       map[schema.Scope]*HierarchyIndex
	prices            map[schema.Scope]*PriceIndex
	referenceVersions map[referenceKey]uint64
}

// NewCollection creates an empty collection for s.
func NewCollection(s *schema.EntitySchema) *Collection {
	c := &Collection{
		schema:            s,
		entities:          make(map[uint32]*model.Entity),
		indexes:           make(map[Key]*EntityIndex),
		hierarchies:       make(map[schema.Scope]*HierarchyIndex),
		prices:            make(map[schema.Scope]*PriceIndex),
		referenceVersions: make(map[referenceKey]uint64),
	}
	for _, scope := range s.ActiveScopes().Scopes() {
		c.indexes[GlobalKey(scope)] = newEntityIndex(GlobalKey(scope), true)
		if s.Hierarchical {
			c.hierarchies[scope] = NewHierarchyIndex()
		}
		if s.Prices {
			c.prices[scope] = NewPriceIndex()
		}
	}
	return c
}

// Schema returns the collection schema.
func (c *Collection) Schema() *schema.EntitySchema { return c.schema }

// Upsert validates e and stores a copy of it, replacing the previous
// version with the same primary key.
func (c *Collection) Upsert(e *model.Entity) error {
	if err := c.validate(e); err != nil {
		return err
	}
	e = e.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entities[e.PrimaryKey]; ok {
		c.deindexLocked(old)
	}
	c.entities[e.PrimaryKey] = e
	c.indexLocked(e)
	return nil
}

// Remove deletes the entity with primary key pk.
func (c *Collection) Remove(pk uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.entities[pk]
	if !ok {
		return false
	}
	c.deindexLocked(old)
	delete(c.entities, pk)
	return true
}

// Entity returns a copy of the entity with primary key pk.
func (c *Collection) Entity(pk uint32) (*model.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entities[pk]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Size returns the number of stored entities across all scopes.
func (c *Collection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Index returns the entity index registered under key.
func (c *Collection) Index(key Key) (*EntityIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[key]
	return idx, ok
}

// GlobalIndex returns the global index of scope.
func (c *Collection) GlobalIndex(scope schema.Scope) (*EntityIndex, bool) {
	return c.Index(GlobalKey(scope))
}

// ReducedIndex returns the index of entities referencing pk via reference
// in scope.
func (c *Collection) ReducedIndex(scope schema.Scope, reference string, pk uint32) (*EntityIndex, bool) {
	return c.Index(ReducedKey(scope, reference, pk))
}

// ReducedIndexKeys returns the primary keys of the referenced entities that
// have a reduced index for reference in scope, sorted.
func (c *Collection) ReducedIndexKeys(scope schema.Scope, reference string) []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []uint32
	for k := range c.indexes {
		if k.Type == TypeReducedEntity && k.Scope == scope && k.Reference == reference {
			out = append(out, k.PrimaryKey)
		}
	}
	slices.Sort(out)
	return out
}

// Hierarchy returns the hierarchy index of scope for hierarchical
// collections.
func (c *Collection) Hierarchy(scope schema.Scope) (*HierarchyIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.hierarchies[scope]
	return h, ok
}

// Prices returns the price index of scope for collections with prices.
func (c *Collection) Prices(scope schema.Scope) (*PriceIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pi, ok := c.prices[scope]
	return pi, ok
}

// ReferenceVersion returns the version of the last change to any reduced
// index of reference in scope. Structures depending on too many reduced
// indexes depend on this version instead.
func (c *Collection) ReferenceVersion(scope schema.Scope, reference string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referenceVersions[referenceKey{scope, reference}]
}

func (c *Collection) validate(e *model.Entity) error {
	s := c.schema
	if e.Type != s.Name {
		return fmt.Errorf("%w: %q stored in collection %q", ErrEntityTypeMismatch, e.Type, s.Name)
	}
	if scope := e.ScopeOrDefault(); !s.ActiveScopes().Contains(scope) {
		return fmt.Errorf("%w: %s in %q", ErrScopeNotAllowed, scope, s.Name)
	}
	if err := s.AttributeTypes().Validate(e.Attributes); err != nil {
		return fmt.Errorf("%s(%d): %w", s.Name, e.PrimaryKey, err)
	}
	for _, r := range e.References {
		if _, ok := s.Reference(r.Name); !ok {
			return fmt.Errorf("%w: %q in %q", ErrUnknownReference, r.Name, s.Name)
		}
	}
	if err := validatePrices(s, e); err != nil {
		return err
	}
	if e.Parent != nil {
		if !s.Hierarchical {
			return fmt.Errorf("%w: %q is not hierarchical", ErrInvalidParent, s.Name)
		}
		if *e.Parent == e.PrimaryKey {
			return fmt.Errorf("%w: %s(%d) cannot be its own parent", ErrInvalidParent, s.Name, e.PrimaryKey)
		}
	}
	return nil
}

// validatePrices rejects prices in collections without prices and more than
// one sellable price per price list and currency.
func validatePrices(s *schema.EntitySchema, e *model.Entity) error {
	if len(e.Prices) == 0 {
		return nil
	}
	if !s.Prices {
		return fmt.Errorf("%w: %q has no prices", ErrInvalidPrice, s.Name)
	}
	seen := make(map[priceListKey]struct{}, len(e.Prices))
	for _, p := range e.Prices {
		if p.PriceList == "" || p.Currency == "" {
			return fmt.Errorf("%w: %s(%d): price %d needs a price list and a currency", ErrInvalidPrice, s.Name, e.PrimaryKey, p.ID)
		}
		if !p.Sellable {
			continue
		}
		key := priceListKey{p.PriceList, p.Currency}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s(%d): more than one sellable price in %s", ErrInvalidPrice, s.Name, e.PrimaryKey, p)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// filterable keeps the attributes that are kept in inverted indexes.
func (c *Collection) filterable(attrs metadata.Document) metadata.Document {
	out := make(metadata.Document, len(attrs))
	for name, v := range attrs {
		if a, ok := c.schema.Attribute(name); ok && a.Filterable {
			out[name] = v
		}
	}
	return out
}

func (c *Collection) indexLocked(e *model.Entity) {
	scope := e.ScopeOrDefault()
	attrs := c.filterable(e.Attributes)

	c.indexes[GlobalKey(scope)].add(e.PrimaryKey, attrs)
	for _, ref := range distinctReferences(e.References) {
		rs, _ := c.schema.Reference(ref.Name)
		if !rs.IsIndexedIn(scope) {
			continue
		}
		key := ReducedKey(scope, ref.Name, ref.PrimaryKey)
		idx, ok := c.indexes[key]
		if !ok {
			idx = newEntityIndex(key, rs.IsPartitionedIn(scope))
			c.indexes[key] = idx
		}
		idx.add(e.PrimaryKey, attrs)
		c.referenceVersions[referenceKey{scope, ref.Name}] = NextVersion()
	}
	if h, ok := c.hierarchies[scope]; ok {
		h.Put(e.PrimaryKey, e.Parent)
	}
	if pi, ok := c.prices[scope]; ok {
		pi.Set(e.PrimaryKey, e.Prices)
	}
}

func (c *Collection) deindexLocked(e *model.Entity) {
	scope := e.ScopeOrDefault()

	c.indexes[GlobalKey(scope)].remove(e.PrimaryKey)
	for _, ref := range distinctReferences(e.References) {
		key := ReducedKey(scope, ref.Name, ref.PrimaryKey)
		idx, ok := c.indexes[key]
		if !ok {
			continue
		}
		idx.remove(e.PrimaryKey)
		if idx.Cardinality() == 0 {
			delete(c.indexes, key)
		}
		c.referenceVersions[referenceKey{scope, ref.Name}] = NextVersion()
	}
	if h, ok := c.hierarchies[scope]; ok {
		h.Remove(e.PrimaryKey)
	}
	if pi, ok := c.prices[scope]; ok {
		pi.Remove(e.PrimaryKey, e.Prices)
	}
}

func distinctReferences(refs []model.Reference) []model.Reference {
	set := make(map[model.Reference]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	out := slices.Collect(maps.Keys(set))
	slices.SortFunc(out, func(a, b model.Reference) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return int(a.PrimaryKey) - int(b.PrimaryKey)
	})
	return out
}
