package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/evigo"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
	"gopkg.in/yaml.v3"
)

// Fixture is a YAML document describing schemas, entities and one query:
//
//	schemas:
//	  - name: category
//	    hierarchical: true
//	  - name: product
//	    prices: true
//	    attributes:
//	      - {name: price, type: Int, filterable: true}
//	    references:
//	      - name: categories
//	        entity: category
//	        indexed: {live: FOR_FILTERING_AND_PARTITIONING}
//	entities:
//	  - {type: category, pk: 1}
//	  - {type: category, pk: 2, parent: 1}
//	  - type: product
//	    pk: 10
//	    attributes: {price: 100}
//	    references: {categories: [2]}
//	    prices:
//	      - {priceList: basic, currency: EUR, amount: 1000}
//	query:
//	  entity: product
//	  filter:
//	    - hierarchyWithin: {reference: categories, parent: 1}
type Fixture struct {
	Schemas  []SchemaSpec `yaml:"schemas"`
	Entities []EntitySpec `yaml:"entities"`
	Query    *QuerySpec   `yaml:"query"`
}

// SchemaSpec describes one entity collection.
type SchemaSpec struct {
	Name         string          `yaml:"name"`
	Hierarchical bool            `yaml:"hierarchical"`
	Prices       bool            `yaml:"prices"`
	Scopes       []string        `yaml:"scopes"`
	Attributes   []AttributeSpec `yaml:"attributes"`
	References   []ReferenceSpec `yaml:"references"`
}

// AttributeSpec describes one attribute.
type AttributeSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Filterable bool   `yaml:"filterable"`
}

// ReferenceSpec describes one reference and its index type per scope.
type ReferenceSpec struct {
	Name    string            `yaml:"name"`
	Entity  string            `yaml:"entity"`
	Indexed map[string]string `yaml:"indexed"`
}

// EntitySpec describes one stored entity.
type EntitySpec struct {
	Type       string              `yaml:"type"`
	PK         uint32              `yaml:"pk"`
	Parent     *uint32             `yaml:"parent"`
	Scope      string              `yaml:"scope"`
	Attributes map[string]any      `yaml:"attributes"`
	References map[string][]uint32 `yaml:"references"`
	Prices     []PriceSpec         `yaml:"prices"`
}

// PriceSpec describes one price of an entity. Prices are sellable unless
// sellable is false.
type PriceSpec struct {
	PriceList string `yaml:"priceList"`
	Currency  string `yaml:"currency"`
	Amount    int64  `yaml:"amount"`
	Sellable  *bool  `yaml:"sellable"`
}

// QuerySpec describes the query to run.
type QuerySpec struct {
	Entity string    `yaml:"entity"`
	Scopes []string  `yaml:"scopes"`
	Filter yaml.Node `yaml:"filter"`
}

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Load defines the schemas of f and upserts its entities into db.
func (f *Fixture) Load(ctx context.Context, db *evigo.DB) error {
	for _, spec := range f.Schemas {
		s, err := spec.build()
		if err != nil {
			return fmt.Errorf("schema %q: %w", spec.Name, err)
		}
		if err := db.DefineEntity(ctx, s); err != nil {
			return err
		}
	}
	for _, spec := range f.Entities {
		e, err := spec.build()
		if err != nil {
			return fmt.Errorf("entity %s(%d): %w", spec.Type, spec.PK, err)
		}
		if err := db.Upsert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// BuildQuery returns the query of f.
func (f *Fixture) BuildQuery() (*query.Query, error) {
	if f.Query == nil {
		return nil, fmt.Errorf("%w: fixture has no query", evigo.ErrInvalidArgument)
	}
	scopes, err := parseScopes(f.Query.Scopes)
	if err != nil {
		return nil, err
	}
	filter, err := query.DecodeFilter(&f.Query.Filter)
	if err != nil {
		return nil, err
	}
	if len(filter.Children()) == 0 {
		filter = nil
	}
	return query.New(f.Query.Entity, filter, scopes...), nil
}

func (spec SchemaSpec) build() (*schema.EntitySchema, error) {
	s := schema.NewEntitySchema(spec.Name)
	if spec.Hierarchical {
		s.WithHierarchy()
	}
	if spec.Prices {
		s.WithPrices()
	}
	if len(spec.Scopes) > 0 {
		scopes, err := parseScopes(spec.Scopes)
		if err != nil {
			return nil, err
		}
		s.WithScopes(scopes...)
	}
	for _, a := range spec.Attributes {
		t, err := metadata.ParseFieldType(a.Type)
		if err != nil {
			return nil, err
		}
		s.WithAttribute(a.Name, t, a.Filterable)
	}
	for _, r := range spec.References {
		indexed := make(map[schema.Scope]schema.ReferenceIndexType, len(r.Indexed))
		for scope, typ := range r.Indexed {
			sc, err := schema.ParseScope(scope)
			if err != nil {
				return nil, err
			}
			t, err := schema.ParseReferenceIndexType(typ)
			if err != nil {
				return nil, err
			}
			indexed[sc] = t
		}
		s.WithReference(r.Name, r.Entity, indexed)
	}
	return s, nil
}

func (spec EntitySpec) build() (*model.Entity, error) {
	b := model.NewEntity(spec.Type, spec.PK)
	if spec.Parent != nil {
		b.WithParent(*spec.Parent)
	}
	if spec.Scope != "" {
		sc, err := schema.ParseScope(spec.Scope)
		if err != nil {
			return nil, err
		}
		b.InScope(sc)
	}
	for name, raw := range spec.Attributes {
		v, err := metadata.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		b.WithAttribute(name, v)
	}
	for name, pks := range spec.References {
		b.WithReference(name, pks...)
	}
	for i, p := range spec.Prices {
		b.WithPrices(model.Price{
			ID:        uint32(i + 1),
			PriceList: p.PriceList,
			Currency:  p.Currency,
			Amount:    p.Amount,
			Sellable:  p.Sellable == nil || *p.Sellable,
		})
	}
	return b.Build(), nil
}

func parseScopes(names []string) ([]schema.Scope, error) {
	out := make([]schema.Scope, 0, len(names))
	for _, name := range names {
		sc, err := schema.ParseScope(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
