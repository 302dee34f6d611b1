package services

import (
	"sort"
	"sync"
)

// ProductLocks serializes stock arithmetic per product: every
// read-availability / decide / mutate sequence runs under the product's
// mutex, so two concurrent operations can never both observe sufficient
// availability and both proceed. Different products never contend.
type ProductLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func NewProductLocks() *ProductLocks {
	return &ProductLocks{m: make(map[string]*sync.Mutex)}
}

func (l *ProductLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.m[id]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.m[id] = m
	return m
}

// Lock acquires the single product's mutex and returns its unlock func.
func (l *ProductLocks) Lock(id string) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

// LockAll acquires several products' mutexes in ascending id order, so
// concurrent multi-product checkouts cannot deadlock against each other.
// Duplicate ids are collapsed.
func (l *ProductLocks) LockAll(ids []string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	locked := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		m := l.get(id)
		m.Lock()
		locked = append(locked, m)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
