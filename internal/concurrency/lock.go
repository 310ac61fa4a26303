package concurrency

import "sync"

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes work per conversation key. Entries are dropped once
// no goroutine holds or waits on them, so idle sessions cost nothing.
type KeyedMutex struct {
	locks map[string]*keyedEntry
	mu    sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedEntry),
	}
}

func (m *KeyedMutex) Lock(key string) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &keyedEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()
	entry.mu.Lock()
}

func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
	entry.mu.Unlock()
}

// WithLock runs fn while holding the lock for key.
func (m *KeyedMutex) WithLock(key string, fn func()) {
	m.Lock(key)
	defer m.Unlock(key)
	fn()
}

// Len reports how many keys are currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
