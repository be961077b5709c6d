package query

import (
	"fmt"
	"strings"
)

// HierarchySpec refines a hierarchy constraint.
type HierarchySpec interface {
	Constraint
	isHierarchySpec()
}

// ExcludingRoot drops the parent node itself from HierarchyWithin.
type ExcludingRoot struct{}

func (ExcludingRoot) isConstraint()    {}
func (ExcludingRoot) isHierarchySpec() {}
func (ExcludingRoot) Name() string     { return "excludingRoot" }
func (c ExcludingRoot) String() string { return c.Name() + "()" }

// Excluding drops the given nodes and their subtrees.
type Excluding struct {
	PrimaryKeys []uint32
}

func (Excluding) isConstraint()    {}
func (Excluding) isHierarchySpec() {}
func (Excluding) Name() string     { return "excluding" }
func (c Excluding) String() string { return c.Name() + "(" + joinKeys(c.PrimaryKeys) + ")" }

// DirectRelation limits the match to entities referencing the parent node
// itself (HierarchyWithin) or a top-level node (HierarchyWithinRoot).
type DirectRelation struct{}

func (DirectRelation) isConstraint()    {}
func (DirectRelation) isHierarchySpec() {}
func (DirectRelation) Name() string     { return "directRelation" }
func (c DirectRelation) String() string { return c.Name() + "()" }

// HierarchyOptions is the resolved form of a list of HierarchySpec.
type HierarchyOptions struct {
	ExcludingRoot  bool
	DirectRelation bool
	Excluded       []uint32
}

// ResolveSpecs folds specs into HierarchyOptions.
func ResolveSpecs(specs []HierarchySpec) HierarchyOptions {
	var o HierarchyOptions
	for _, s := range specs {
		switch s := s.(type) {
		case ExcludingRoot:
			o.ExcludingRoot = true
		case DirectRelation:
			o.DirectRelation = true
		case Excluding:
			o.Excluded = append(o.Excluded, s.PrimaryKeys...)
		}
	}
	return o
}

// HierarchyWithin matches entities referencing the given node of the
// referenced hierarchy or any of its descendants.
type HierarchyWithin struct {
	reference string
	parent    uint32
	specs     []HierarchySpec
}

// NewHierarchyWithin creates a subtree constraint.
func NewHierarchyWithin(reference string, parent uint32, specs ...HierarchySpec) *HierarchyWithin {
	return &HierarchyWithin{reference: reference, parent: parent, specs: specs}
}

func (c *HierarchyWithin) Reference() string         { return c.reference }
func (c *HierarchyWithin) Parent() uint32            { return c.parent }
func (c *HierarchyWithin) Specs() []HierarchySpec    { return c.specs }
func (c *HierarchyWithin) Options() HierarchyOptions { return ResolveSpecs(c.specs) }

func (*HierarchyWithin) isConstraint()  {}
func (c *HierarchyWithin) Name() string { return "hierarchyWithin" }
func (c *HierarchyWithin) String() string {
	args := []string{quote(c.reference), fmt.Sprint(c.parent)}
	return c.Name() + "(" + strings.Join(append(args, specStrings(c.specs)...), ", ") + ")"
}

// HierarchyWithinRoot matches entities referencing any node of the
// referenced hierarchy.
type HierarchyWithinRoot struct {
	reference string
	specs     []HierarchySpec
}

// NewHierarchyWithinRoot creates a whole-tree constraint.
func NewHierarchyWithinRoot(reference string, specs ...HierarchySpec) *HierarchyWithinRoot {
	return &HierarchyWithinRoot{reference: reference, specs: specs}
}

func (c *HierarchyWithinRoot) Reference() string         { return c.reference }
func (c *HierarchyWithinRoot) Specs() []HierarchySpec    { return c.specs }
func (c *HierarchyWithinRoot) Options() HierarchyOptions { return ResolveSpecs(c.specs) }

func (*HierarchyWithinRoot) isConstraint()  {}
func (c *HierarchyWithinRoot) Name() string { return "hierarchyWithinRoot" }
func (c *HierarchyWithinRoot) String() string {
	args := []string{quote(c.reference)}
	return c.Name() + "(" + strings.Join(append(args, specStrings(c.specs)...), ", ") + ")"
}

func specStrings(specs []HierarchySpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String()
	}
	return out
}

func joinKeys(pks []uint32) string {
	parts := make([]string, len(pks))
	for i, pk := range pks {
		parts[i] = fmt.Sprint(pk)
	}
	return strings.Join(parts, ", ")
}
