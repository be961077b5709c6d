package formula

import "slices"

// Mutator decides the replacement of one formula during Clone. Returning f
// itself descends into its children, returning nil omits f, and returning any
// other formula replaces the whole branch without visiting it.
type Mutator func(c *Cloner, f Formula) Formula

// Cloner rewrites a formula tree bottom-up while sharing every node that was
// not affected by the mutator.
type Cloner struct {
	mutator Mutator

	// processed maps node ids to their replacement. A nil value means the
	// node was omitted.
	processed map[uint64]Formula
	frames    [][]Formula
	parents   []Formula
	err       error
}

// Clone applies m to root and every node reachable from it. The original root
// is returned when nothing changed and nil when the root was omitted.
//
// Each node is rewritten at most once per call even when it is shared by
// several parents. A Not whose subtracted operand is omitted collapses to its
// superset; a Not whose superset is omitted is omitted itself. A composite
// that keeps no child at all is omitted.
func Clone(root Formula, m Mutator) (Formula, error) {
	if root == nil {
		return nil, nil
	}
	c := &Cloner{
		mutator:   m,
		processed: make(map[uint64]Formula),
		frames:    [][]Formula{nil},
	}
	root.Accept(c)
	if c.err != nil {
		return nil, c.err
	}
	return c.processed[root.ID()], nil
}

// Parents returns the ancestors of the formula currently passed to the
// mutator, outermost first.
func (c *Cloner) Parents() []Formula { return slices.Clone(c.parents) }

// IsWithin reports whether any ancestor of the current formula has kind k.
func (c *Cloner) IsWithin(k Kind) bool {
	for _, p := range c.parents {
		if p.Kind() == k {
			return true
		}
	}
	return false
}

// Visit implements Visitor.
func (c *Cloner) Visit(f Formula) {
	if c.err != nil {
		return
	}
	if r, ok := c.processed[f.ID()]; ok {
		c.emit(r)
		return
	}

	replacement := c.mutator(c, f)
	if replacement == nil || replacement.ID() != f.ID() {
		c.processed[f.ID()] = replacement
		c.emit(replacement)
		return
	}

	inner := f.InnerFormulas()
	kept := make([]bool, len(inner))
	c.frames = append(c.frames, make([]Formula, 0, len(inner)))
	c.parents = append(c.parents, f)
	for i, in := range inner {
		before := len(c.frames[len(c.frames)-1])
		in.Accept(c)
		kept[i] = len(c.frames[len(c.frames)-1]) > before
	}
	children := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.parents = c.parents[:len(c.parents)-1]
	if c.err != nil {
		return
	}

	r, err := rebuild(f, children, kept)
	if err != nil {
		c.err = err
		return
	}
	c.processed[f.ID()] = r
	c.emit(r)
}

func (c *Cloner) emit(f Formula) {
	if f == nil {
		return
	}
	top := len(c.frames) - 1
	c.frames[top] = append(c.frames[top], f)
}

// rebuild creates the replacement of f over the surviving children. kept
// reports per original child whether it survived.
func rebuild(f Formula, children []Formula, kept []bool) (Formula, error) {
	original := f.InnerFormulas()
	if sameInstances(original, children) {
		return f, nil
	}
	if f.Kind() == KindNot && len(kept) == 2 {
		switch {
		case !kept[1]:
			// nothing left to subtract from
			return nil, nil
		case !kept[0]:
			return children[0], nil
		}
	}
	if len(original) > 0 && len(children) == 0 {
		return nil, nil
	}
	return f.CloneWithInnerFormulas(children...)
}

func sameInstances(a, b []Formula) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}
