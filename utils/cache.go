package utils

import "sync"

// Memo is a mutex-guarded map of computed values. Values are computed at most
// once per key while the key is cached; concurrent callers for the same key
// may both compute, the first stored value wins.
type Memo[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
	limit  int
}

// NewMemo creates a Memo holding at most limit entries. A limit of zero or
// less means unbounded. When full, the cache is reset before inserting.
func NewMemo[K comparable, V any](limit int) *Memo[K, V] {
	return &Memo[K, V]{values: make(map[K]V), limit: limit}
}

// Get returns the cached value for key.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// GetOrCompute returns the cached value or computes, stores and returns it.
// Errors are returned without caching.
func (m *Memo[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok {
		return existing, nil
	}
	if m.limit > 0 && len(m.values) >= m.limit {
		m.values = make(map[K]V)
	}
	m.values[key] = v
	return v, nil
}

// Size returns the number of cached entries.
func (m *Memo[K, V]) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
