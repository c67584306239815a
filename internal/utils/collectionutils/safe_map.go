package collectionutils

import "sync"

type SafeMap[K comparable, V any] struct {
	data  map[K]V
	mutex sync.RWMutex
}

func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}

func (safeMap *SafeMap[K, V]) Get(key K) (V, bool) {
	safeMap.mutex.RLock()
	defer safeMap.mutex.RUnlock()
	value, exists := safeMap.data[key]

	return value, exists
}

// LoadOrStore returns the value stored under key, creating it with create when absent.
// create runs at most once per missing key.
func (safeMap *SafeMap[K, V]) LoadOrStore(key K, create func() V) V {
	if value, ok := safeMap.Get(key); ok {
		return value
	}

	safeMap.mutex.Lock()
	defer safeMap.mutex.Unlock()
	if value, ok := safeMap.data[key]; ok {
		return value
	}
	value := create()
	safeMap.data[key] = value
	return value
}

// DeleteIf removes every entry for which fn reports true.
func (safeMap *SafeMap[K, V]) DeleteIf(fn func(K, V) bool) int {
	safeMap.mutex.Lock()
	defer safeMap.mutex.Unlock()

	removed := 0
	for k, v := range safeMap.data {
		if fn(k, v) {
			delete(safeMap.data, k)
			removed++
		}
	}
	return removed
}

func (safeMap *SafeMap[K, V]) Len() int {
	safeMap.mutex.RLock()
	defer safeMap.mutex.RUnlock()
	return len(safeMap.data)
}
