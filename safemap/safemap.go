package safemap

import "sync"

// SafeMap is a map guarded by a RWMutex. The actor engine uses it for the
// process registry, which is read by every sender goroutine.
type SafeMap[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}

// SetIfAbsent stores v under k unless k is already present. It returns the
// value now stored under k and whether v was the one stored.
func (s *SafeMap[K, V]) SetIfAbsent(k K, v V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.data[k]; ok {
		return existing, false
	}
	s.data[k] = v
	return v, true
}

func (s *SafeMap[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[k]
	return val, ok
}

// DeleteFunc removes k only when f approves the stored value. This lets a
// caller remove its own entry without racing a newer owner of the same key.
func (s *SafeMap[K, V]) DeleteFunc(k K, f func(V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[k]
	if !ok || !f(v) {
		return false
	}
	delete(s.data, k)
	return true
}

func (s *SafeMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
