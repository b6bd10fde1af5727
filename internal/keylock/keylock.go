// Package keylock provides a registry of exclusive locks keyed by channel id.
//
// The same key always yields the same lock, so both the live ingest path and
// the recalculation engine serialize against each other per channel. Locks
// for different keys are fully independent; the registry never holds more
// than its own guard mutex while handing out a lock, so there is no lock
// ordering to get wrong.
package keylock

import "sync"

// Map hands out one *sync.Mutex per key, created lazily on first use.
// Entries are never evicted; the key space is bounded by the platform's
// channel count.
type Map struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates an empty lock registry.
func New() *Map {
	return &Map{locks: make(map[int64]*sync.Mutex)}
}

// Get returns the lock for key, creating it on first access.
func (m *Map) Get(key int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Len returns the number of keys seen so far.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
