package index

import (
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/query"
)

// HierarchyIndex keeps the tree placement of hierarchical entities.
//
// A node whose parent is not present is an orphan: it is remembered but not
// reachable until the parent appears.
type HierarchyIndex struct {
	mu       sync.RWMutex
	version  uint64
	nodes    map[uint32]struct{}
	parents  map[uint32]uint32
	children map[uint32][]uint32
	roots    []uint32
}

// NewHierarchyIndex creates an empty hierarchy.
func NewHierarchyIndex() *HierarchyIndex {
	return &HierarchyIndex{
		version:  NextVersion(),
		nodes:    make(map[uint32]struct{}),
		parents:  make(map[uint32]uint32),
		children: make(map[uint32][]uint32),
	}
}

// Version returns the version of the current tree.
func (h *HierarchyIndex) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Put places pk under parent, or at the top level when parent is nil.
func (h *HierarchyIndex) Put(pk uint32, parent *uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detachLocked(pk)
	h.nodes[pk] = struct{}{}
	if parent == nil {
		h.roots = insertSorted(h.roots, pk)
	} else {
		h.parents[pk] = *parent
		h.children[*parent] = insertSorted(h.children[*parent], pk)
	}
	h.version = NextVersion()
}

// Remove drops pk. Its children become orphans.
func (h *HierarchyIndex) Remove(pk uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.nodes[pk]; !ok {
		return
	}
	h.detachLocked(pk)
	delete(h.nodes, pk)
	h.version = NextVersion()
}

// Reachable reports whether pk is connected to a top-level node.
func (h *HierarchyIndex) Reachable(pk uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reachableLocked(pk)
}

// NodesWithin resolves the nodes selected by a hierarchyWithin constraint
// rooted at parent. The result is tagged with the hierarchy version.
func (h *HierarchyIndex) NodesWithin(parent uint32, opts query.HierarchyOptions) bitmap.Bitmap {
	h.mu.RLock()
	defer h.mu.RUnlock()

	excluded := excludedSet(opts.Excluded)
	rb := roaring.New()
	if _, skip := excluded[parent]; !skip && h.reachableLocked(parent) {
		switch {
		case opts.DirectRelation:
			if !opts.ExcludingRoot {
				rb.Add(parent)
			}
		default:
			h.collectLocked(parent, excluded, rb)
			if opts.ExcludingRoot {
				rb.Remove(parent)
			}
		}
	}
	return bitmap.Wrap(h.version, rb)
}

// NodesWithinRoot resolves the nodes selected by a hierarchyWithinRoot
// constraint.
func (h *HierarchyIndex) NodesWithinRoot(opts query.HierarchyOptions) bitmap.Bitmap {
	h.mu.RLock()
	defer h.mu.RUnlock()

	excluded := excludedSet(opts.Excluded)
	rb := roaring.New()
	for _, root := range h.roots {
		if _, skip := excluded[root]; skip {
			continue
		}
		if opts.DirectRelation {
			rb.Add(root)
			continue
		}
		h.collectLocked(root, excluded, rb)
	}
	return bitmap.Wrap(h.version, rb)
}

func (h *HierarchyIndex) collectLocked(pk uint32, excluded map[uint32]struct{}, rb *roaring.Bitmap) {
	stack := []uint32{pk}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, skip := excluded[n]; skip {
			continue
		}
		rb.Add(n)
		stack = append(stack, h.children[n]...)
	}
}

func (h *HierarchyIndex) reachableLocked(pk uint32) bool {
	seen := make(map[uint32]struct{})
	for {
		if _, ok := h.nodes[pk]; !ok {
			return false
		}
		parent, hasParent := h.parents[pk]
		if !hasParent {
			return true
		}
		if _, loop := seen[pk]; loop {
			return false
		}
		seen[pk] = struct{}{}
		pk = parent
	}
}

func (h *HierarchyIndex) detachLocked(pk uint32) {
	if parent, ok := h.parents[pk]; ok {
		h.children[parent] = removeSorted(h.children[parent], pk)
		if len(h.children[parent]) == 0 {
			delete(h.children, parent)
		}
		delete(h.parents, pk)
		return
	}
	h.roots = removeSorted(h.roots, pk)
}

func excludedSet(pks []uint32) map[uint32]struct{} {
	out := make(map[uint32]struct{}, len(pks))
	for _, pk := range pks {
		out[pk] = struct{}{}
	}
	return out
}

func insertSorted(s []uint32, v uint32) []uint32 {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

func removeSorted(s []uint32, v uint32) []uint32 {
	i, found := slices.BinarySearch(s, v)
	if !found {
		return s
	}
	return slices.Delete(s, i, i+1)
}
