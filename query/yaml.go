package query

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/schema"
	"gopkg.in/yaml.v3"
)

// ErrSyntax is returned for malformed YAML constraints.
var ErrSyntax = errors.New("query: syntax error")

// ParseFilter decodes a YAML list of constraints into a FilterBy:
//
//	- referenceHaving:
//	    reference: categories
//	    filter:
//	      - entityPrimaryKeyInSet: [5]
//	- attributeEquals: {attribute: color, value: red}
//	- priceInCurrency: EUR
//	- priceInPriceLists: [vip, basic]
//	- priceBetween: {from: 1000, to: 5000}
func ParseFilter(data []byte) (*FilterBy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	if doc.Kind == 0 {
		return NewFilterBy(), nil
	}
	return DecodeFilter(doc.Content[0])
}

// DecodeFilter decodes an already parsed YAML sequence of constraints.
func DecodeFilter(n *yaml.Node) (*FilterBy, error) {
	children, err := decodeList(n)
	if err != nil {
		return nil, err
	}
	return NewFilterBy(children...), nil
}

func syntaxError(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, n.Line, fmt.Sprintf(format, args...))
}

func decodeList(n *yaml.Node) ([]Constraint, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.MappingNode {
		c, err := decodeConstraint(n)
		if err != nil {
			return nil, err
		}
		return []Constraint{c}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, syntaxError(n, "expected a list of constraints")
	}
	out := make([]Constraint, 0, len(n.Content))
	for _, item := range n.Content {
		c, err := decodeConstraint(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeConstraint(n *yaml.Node) (Constraint, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, syntaxError(n, "a constraint is a mapping with exactly one key")
	}
	name, arg := n.Content[0].Value, n.Content[1]

	switch name {
	case "filterBy", "and", "or", "userFilter", "entityHaving":
		children, err := decodeList(arg)
		if err != nil {
			return nil, err
		}
		return newContainer(name, children), nil
	case "not":
		children, err := decodeList(arg)
		if err != nil {
			return nil, err
		}
		if len(children) != 1 {
			return nil, syntaxError(arg, "not expects exactly one constraint, got %d", len(children))
		}
		return NewNot(children[0]), nil
	case "inScope":
		var body struct {
			Scopes []string  `yaml:"scopes"`
			Filter yaml.Node `yaml:"filter"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		scopes := make([]schema.Scope, 0, len(body.Scopes))
		for _, s := range body.Scopes {
			sc, err := schema.ParseScope(s)
			if err != nil {
				return nil, syntaxError(arg, "%v", err)
			}
			scopes = append(scopes, sc)
		}
		children, err := decodeList(&body.Filter)
		if err != nil {
			return nil, err
		}
		return NewInScope(scopes, children...), nil
	case "referenceHaving":
		var body struct {
			Reference string    `yaml:"reference"`
			Filter    yaml.Node `yaml:"filter"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		children, err := decodeList(&body.Filter)
		if err != nil {
			return nil, err
		}
		return NewReferenceHaving(body.Reference, children...), nil
	case "entityPrimaryKeyInSet":
		var pks []uint32
		if err := arg.Decode(&pks); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		return NewEntityPrimaryKeyInSet(pks...), nil
	case "attributeEquals":
		var body struct {
			Attribute string `yaml:"attribute"`
			Value     any    `yaml:"value"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		v, err := metadata.FromAny(body.Value)
		if err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		return NewAttributeEquals(body.Attribute, v), nil
	case "attributeInSet":
		var body struct {
			Attribute string `yaml:"attribute"`
			Values    []any  `yaml:"values"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		values := make([]metadata.Value, len(body.Values))
		for i, raw := range body.Values {
			v, err := metadata.FromAny(raw)
			if err != nil {
				return nil, syntaxError(arg, "%v", err)
			}
			values[i] = v
		}
		return NewAttributeInSet(body.Attribute, values...), nil
	case "attributeBetween":
		var body struct {
			Attribute string `yaml:"attribute"`
			From      any    `yaml:"from"`
			To        any    `yaml:"to"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		from, err := metadata.FromAny(body.From)
		if err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		to, err := metadata.FromAny(body.To)
		if err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		return NewAttributeBetween(body.Attribute, from, to), nil
	case "priceInCurrency":
		if arg.Kind != yaml.ScalarNode || arg.Value == "" {
			return nil, syntaxError(arg, "priceInCurrency expects a currency code")
		}
		return NewPriceInCurrency(arg.Value), nil
	case "priceInPriceLists":
		var lists []string
		if err := arg.Decode(&lists); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		return NewPriceInPriceLists(lists...), nil
	case "priceBetween":
		var body struct {
			From any `yaml:"from"`
			To   any `yaml:"to"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		from, err := metadata.FromAny(body.From)
		if err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		to, err := metadata.FromAny(body.To)
		if err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		return NewPriceBetween(from, to), nil
	case "hierarchyWithin", "hierarchyWithinRoot":
		var body struct {
			Reference      string   `yaml:"reference"`
			Parent         *uint32  `yaml:"parent"`
			ExcludingRoot  bool     `yaml:"excludingRoot"`
			DirectRelation bool     `yaml:"directRelation"`
			Excluding      []uint32 `yaml:"excluding"`
		}
		if err := arg.Decode(&body); err != nil {
			return nil, syntaxError(arg, "%v", err)
		}
		var specs []HierarchySpec
		if body.ExcludingRoot {
			specs = append(specs, ExcludingRoot{})
		}
		if body.DirectRelation {
			specs = append(specs, DirectRelation{})
		}
		if len(body.Excluding) > 0 {
			specs = append(specs, Excluding{PrimaryKeys: body.Excluding})
		}
		if name == "hierarchyWithinRoot" {
			return NewHierarchyWithinRoot(body.Reference, specs...), nil
		}
		if body.Parent == nil {
			return nil, syntaxError(arg, "hierarchyWithin requires a parent")
		}
		return NewHierarchyWithin(body.Reference, *body.Parent, specs...), nil
	default:
		return nil, syntaxError(n, "unknown constraint %q", name)
	}
}

func newContainer(name string, children []Constraint) Constraint {
	switch name {
	case "filterBy":
		return NewFilterBy(children...)
	case "and":
		return NewAnd(children...)
	case "or":
		return NewOr(children...)
	case "userFilter":
		return NewUserFilter(children...)
	default:
		return NewEntityHaving(children...)
	}
}
