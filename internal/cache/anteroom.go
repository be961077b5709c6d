package cache

import "sync"

// anteroom counts how often formulas were requested before they are
// considered for admission.
type anteroom struct {
	mu       sync.Mutex
	capacity int
	usage    map[uint64]int
}

func newAnteroom(capacity int) *anteroom {
	return &anteroom{capacity: capacity, usage: make(map[uint64]int)}
}

// record increments the usage of hash. The anteroom starts over once it
// tracks capacity hashes.
func (a *anteroom) record(hash uint64) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.usage[hash]; !ok && len(a.usage) >= a.capacity {
		clear(a.usage)
	}
	a.usage[hash]++
	return a.usage[hash]
}

func (a *anteroom) count(hash uint64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage[hash]
}

// forget drops hash after admission.
func (a *anteroom) forget(hash uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.usage, hash)
}

func (a *anteroom) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.usage)
}
