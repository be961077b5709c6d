package cache

import (
	"container/list"
	"sync"

	"github.com/hupe1980/evigo/internal/resource"
)

// eden is the LRU store of admitted formula results, bounded by payload
// bytes.
type eden struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[uint64]*list.Element
	evictList *list.List
	rc        *resource.Controller

	evictions int64
}

type entry struct {
	hash        uint64
	txIDHash    uint64
	cardinality int
	payload     []byte
}

func newEden(capacity int64, rc *resource.Controller) *eden {
	return &eden{
		capacity:  capacity,
		items:     make(map[uint64]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// get returns the entry stored for hash and marks it as recently used.
func (e *eden) get(hash uint64) (*entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.items[hash]; ok {
		e.evictList.MoveToFront(el)
		return el.Value.(*entry), true
	}
	return nil, false
}

// peek returns the entry stored for hash without touching the LRU order.
func (e *eden) peek(hash uint64) (*entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.items[hash]; ok {
		return el.Value.(*entry), true
	}
	return nil, false
}

// contains reports whether hash is stored for txIDHash, without touching
// the LRU order.
func (e *eden) contains(hash, txIDHash uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.items[hash]
	return ok && el.Value.(*entry).txIDHash == txIDHash
}

// put stores ent, replacing an entry with the same hash. It reports false
// when the entry does not fit.
func (e *eden) put(ent *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.items[ent.hash]; ok {
		e.removeElement(el)
	}

	itemSize := int64(len(ent.payload))
	// If item is larger than capacity, don't cache
	if itemSize > e.capacity {
		return false
	}

	// Evict to make space in local capacity first
	// This helps releasing memory to RC before we try to acquire it back
	for e.size+itemSize > e.capacity {
		el := e.evictList.Back()
		if el == nil {
			break
		}
		e.removeElement(el)
		e.evictions++
	}

	// The controller tracks memory of all caches; when it says no, don't cache.
	if !e.rc.TryAcquireMemory(itemSize) {
		return false
	}

	e.items[ent.hash] = e.evictList.PushFront(ent)
	e.size += itemSize
	return true
}

// remove drops the entry of hash.
func (e *eden) remove(hash uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.items[hash]; ok {
		e.removeElement(el)
	}
}

// purge drops every entry.
func (e *eden) purge() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.evictList.Len() > 0 {
		e.removeElement(e.evictList.Back())
	}
}

func (e *eden) removeElement(el *list.Element) {
	e.evictList.Remove(el)
	ent := el.Value.(*entry)
	delete(e.items, ent.hash)
	itemSize := int64(len(ent.payload))
	e.size -= itemSize
	e.rc.ReleaseMemory(itemSize)
}

// stats returns the entry count, payload bytes and evictions.
func (e *eden) stats() (entries int, bytes, evictions int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items), e.size, e.evictions
}
