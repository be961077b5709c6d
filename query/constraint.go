package query

import (
	"fmt"
	"strings"

	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/schema"
)

// Constraint is a node of an immutable filter-constraint tree.
type Constraint interface {
	// Name returns the constraint name used by String and the YAML format.
	Name() string
	String() string
	isConstraint()
}

// Container is a constraint with child constraints.
type Container interface {
	Constraint
	Children() []Constraint
}

type container struct {
	children []Constraint
}

func (c container) Children() []Constraint { return c.children }

func (container) isConstraint() {}

func (c container) render(name string, args ...string) string {
	for _, ch := range c.children {
		args = append(args, ch.String())
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// FilterBy is the root of a query filter. Its children are combined by
// conjunction.
type FilterBy struct{ container }

// NewFilterBy creates the filter root.
func NewFilterBy(children ...Constraint) *FilterBy {
	return &FilterBy{container{children}}
}

func (c *FilterBy) Name() string   { return "filterBy" }
func (c *FilterBy) String() string { return c.render(c.Name()) }

// UserFilter marks the part of the filter supplied by an end user.
type UserFilter struct{ container }

// NewUserFilter creates a user filter container.
func NewUserFilter(children ...Constraint) *UserFilter {
	return &UserFilter{container{children}}
}

func (c *UserFilter) Name() string   { return "userFilter" }
func (c *UserFilter) String() string { return c.render(c.Name()) }

// And matches entities matching every child.
type And struct{ container }

// NewAnd creates a conjunction.
func NewAnd(children ...Constraint) *And { return &And{container{children}} }

func (c *And) Name() string   { return "and" }
func (c *And) String() string { return c.render(c.Name()) }

// Or matches entities matching any child.
type Or struct{ container }

// NewOr creates a disjunction.
func NewOr(children ...Constraint) *Or { return &Or{container{children}} }

func (c *Or) Name() string   { return "or" }
func (c *Or) String() string { return c.render(c.Name()) }

// Not matches entities not matching its child.
type Not struct{ container }

// NewNot creates a negation.
func NewNot(child Constraint) *Not { return &Not{container{[]Constraint{child}}} }

// Child returns the negated constraint.
func (c *Not) Child() Constraint { return c.children[0] }

func (c *Not) Name() string   { return "not" }
func (c *Not) String() string { return c.render(c.Name()) }

// InScope restricts its children to the given scopes.
type InScope struct {
	container
	scopes schema.ScopeSet
}

// NewInScope creates a scope restriction.
func NewInScope(scopes []schema.Scope, children ...Constraint) *InScope {
	return &InScope{container: container{children}, scopes: schema.NewScopeSet(scopes...)}
}

// Scopes returns the scopes the children apply to.
func (c *InScope) Scopes() schema.ScopeSet { return c.scopes }

func (c *InScope) Name() string { return "inScope" }
func (c *InScope) String() string {
	return c.render(c.Name(), c.scopes.String())
}

// ReferenceHaving matches entities with a reference of the given name whose
// referenced entity satisfies the children.
type ReferenceHaving struct {
	container
	reference string
}

// NewReferenceHaving creates a reference constraint.
func NewReferenceHaving(reference string, children ...Constraint) *ReferenceHaving {
	return &ReferenceHaving{container: container{children}, reference: reference}
}

// Reference returns the reference name.
func (c *ReferenceHaving) Reference() string { return c.reference }

func (c *ReferenceHaving) Name() string { return "referenceHaving" }
func (c *ReferenceHaving) String() string {
	return c.render(c.Name(), quote(c.reference))
}

// EntityHaving evaluates its children against the referenced collection.
// It is only meaningful inside ReferenceHaving.
type EntityHaving struct{ container }

// NewEntityHaving creates an entity constraint.
func NewEntityHaving(children ...Constraint) *EntityHaving {
	return &EntityHaving{container{children}}
}

func (c *EntityHaving) Name() string   { return "entityHaving" }
func (c *EntityHaving) String() string { return c.render(c.Name()) }

// EntityPrimaryKeyInSet matches entities by primary key.
type EntityPrimaryKeyInSet struct {
	pks []uint32
}

// NewEntityPrimaryKeyInSet creates a primary key constraint.
func NewEntityPrimaryKeyInSet(pks ...uint32) *EntityPrimaryKeyInSet {
	return &EntityPrimaryKeyInSet{pks: pks}
}

// PrimaryKeys returns the requested keys.
func (c *EntityPrimaryKeyInSet) PrimaryKeys() []uint32 { return c.pks }

func (*EntityPrimaryKeyInSet) isConstraint()  {}
func (c *EntityPrimaryKeyInSet) Name() string { return "entityPrimaryKeyInSet" }
func (c *EntityPrimaryKeyInSet) String() string {
	parts := make([]string, len(c.pks))
	for i, pk := range c.pks {
		parts[i] = fmt.Sprint(pk)
	}
	return c.Name() + "(" + strings.Join(parts, ", ") + ")"
}

// AttributeEquals matches entities whose attribute equals a value.
type AttributeEquals struct {
	attribute string
	value     metadata.Value
}

// NewAttributeEquals creates an equality constraint.
func NewAttributeEquals(attribute string, v metadata.Value) *AttributeEquals {
	return &AttributeEquals{attribute: attribute, value: v}
}

func (c *AttributeEquals) Attribute() string     { return c.attribute }
func (c *AttributeEquals) Value() metadata.Value { return c.value }

func (*AttributeEquals) isConstraint()  {}
func (c *AttributeEquals) Name() string { return "attributeEquals" }
func (c *AttributeEquals) String() string {
	return fmt.Sprintf("%s(%s, %s)", c.Name(), quote(c.attribute), c.value)
}

// AttributeInSet matches entities whose attribute equals any of the values.
type AttributeInSet struct {
	attribute string
	values    []metadata.Value
}

// NewAttributeInSet creates a set membership constraint.
func NewAttributeInSet(attribute string, values ...metadata.Value) *AttributeInSet {
	return &AttributeInSet{attribute: attribute, values: values}
}

func (c *AttributeInSet) Attribute() string        { return c.attribute }
func (c *AttributeInSet) Values() []metadata.Value { return c.values }

func (*AttributeInSet) isConstraint()  {}
func (c *AttributeInSet) Name() string { return "attributeInSet" }
func (c *AttributeInSet) String() string {
	parts := []string{quote(c.attribute)}
	for _, v := range c.values {
		parts = append(parts, v.String())
	}
	return c.Name() + "(" + strings.Join(parts, ", ") + ")"
}

// AttributeBetween matches entities whose attribute lies in [from, to].
// A null bound is open.
type AttributeBetween struct {
	attribute string
	from, to  metadata.Value
}

// NewAttributeBetween creates a range constraint.
func NewAttributeBetween(attribute string, from, to metadata.Value) *AttributeBetween {
	return &AttributeBetween{attribute: attribute, from: from, to: to}
}

func (c *AttributeBetween) Attribute() string    { return c.attribute }
func (c *AttributeBetween) From() metadata.Value { return c.from }
func (c *AttributeBetween) To() metadata.Value   { return c.to }

func (*AttributeBetween) isConstraint()  {}
func (c *AttributeBetween) Name() string { return "attributeBetween" }
func (c *AttributeBetween) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", c.Name(), quote(c.attribute), c.from, c.to)
}

func quote(s string) string { return "'" + s + "'" }
