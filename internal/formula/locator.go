package formula

type locator struct {
	match Predicate
	found bool
}

// Contains reports whether any formula of the tree satisfies match. The walk
// stops as soon as the first match is seen.
func Contains(root Formula, match Predicate) bool {
	if root == nil {
		return false
	}
	l := &locator{match: match}
	root.Accept(l)
	return l.found
}

// ContainsKind reports whether the tree contains a formula of kind k.
func ContainsKind(root Formula, k Kind) bool {
	return Contains(root, IsKind(k))
}

func (l *locator) Visit(f Formula) {
	if l.found {
		return
	}
	if l.match(f) {
		l.found = true
		return
	}
	for _, in := range f.InnerFormulas() {
		in.Accept(l)
		if l.found {
			return
		}
	}
}
