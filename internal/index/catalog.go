package index

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/evigo/schema"
)

// Catalog holds the collections of one database.
type Catalog struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{collections: make(map[string]*Collection)}
}

// Define validates s and creates its collection.
func (c *Catalog) Define(s *schema.EntitySchema) (*Collection, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.collections[s.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionExists, s.Name)
	}
	col := NewCollection(s)
	c.collections[s.Name] = col
	return col, nil
}

// Collection returns the collection of entityType.
func (c *Catalog) Collection(entityType string) (*Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, entityType)
	}
	return col, nil
}

// Names returns the entity types of all collections, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.collections))
}
