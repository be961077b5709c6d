package formula

// LookUp controls whether Find descends into matching formulas.
type LookUp uint8

const (
	// Shallow stops at the first match on every path.
	Shallow LookUp = iota
	// Deep also searches inside matches.
	Deep
)

// Predicate selects formulas.
type Predicate func(f Formula) bool

// IsKind returns a predicate matching formulas of kind k.
func IsKind(k Kind) Predicate {
	return func(f Formula) bool { return f.Kind() == k }
}

type finder struct {
	match   Predicate
	skip    Predicate
	lookUp  LookUp
	visited map[uint64]struct{}
	found   []Formula
}

// Find returns the formulas of the tree rooted at root that satisfy match, in
// pre-order of first occurrence. Subtrees whose root satisfies skip are
// pruned before match is evaluated. skip may be nil.
func Find(root Formula, match, skip Predicate, lookUp LookUp) []Formula {
	fd := newFinder(match, skip, lookUp)
	if root != nil {
		root.Accept(fd)
	}
	return fd.found
}

// FindAmongChildren is like Find but never matches root itself.
func FindAmongChildren(root Formula, match, skip Predicate, lookUp LookUp) []Formula {
	fd := newFinder(match, skip, lookUp)
	if root != nil {
		for _, in := range root.InnerFormulas() {
			in.Accept(fd)
		}
	}
	return fd.found
}

// FindOfType returns the formulas of concrete type T.
func FindOfType[T Formula](root Formula, lookUp LookUp) []T {
	found := Find(root, func(f Formula) bool {
		_, ok := f.(T)
		return ok
	}, nil, lookUp)
	out := make([]T, len(found))
	for i, f := range found {
		out[i] = f.(T)
	}
	return out
}

func newFinder(match, skip Predicate, lookUp LookUp) *finder {
	return &finder{
		match:   match,
		skip:    skip,
		lookUp:  lookUp,
		visited: make(map[uint64]struct{}),
	}
}

func (fd *finder) Visit(f Formula) {
	if _, ok := fd.visited[f.ID()]; ok {
		return
	}
	fd.visited[f.ID()] = struct{}{}

	if fd.skip != nil && fd.skip(f) {
		return
	}
	if fd.match(f) {
		fd.found = append(fd.found, f)
		if fd.lookUp == Shallow {
			return
		}
	}
	for _, in := range f.InnerFormulas() {
		in.Accept(fd)
	}
}
