package consumer

import "sync"

// Registry tracks the single consumer subscribed to each key. It mirrors an
// unordered map: no insertion order is preserved, and a key has zero or one
// consumer at a time.
type Registry[K comparable, V any] struct {
	mu   sync.RWMutex
	refs map[K]Ref[K, V]
}

// NewRegistry constructs an empty Registry.
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{refs: make(map[K]Ref[K, V])}
}

// Register subscribes ref to key if no consumer is already subscribed. It
// reports whether the subscription was created.
func (r *Registry[K, V]) Register(key K, ref Ref[K, V]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.refs[key]; exists {
		return false
	}
	r.refs[key] = ref
	return true
}

// Unregister removes the consumer subscribed to key, if any. It reports
// whether a consumer was removed.
func (r *Registry[K, V]) Unregister(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.refs[key]; !exists {
		return false
	}
	delete(r.refs, key)
	return true
}

// Contains reports whether key currently has a subscribed consumer.
func (r *Registry[K, V]) Contains(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.refs[key]
	return ok
}

// Len reports the number of subscribed keys.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}

// Snapshot returns a point-in-time copy of every key/consumer pair currently
// registered. It is used to split subscribers across worker-pool threads
// when the broker starts.
func (r *Registry[K, V]) Snapshot() map[K]Ref[K, V] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[K]Ref[K, V], len(r.refs))
	for k, v := range r.refs {
		out[k] = v
	}
	return out
}

// Keys returns a snapshot of every subscribed key.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]K, 0, len(r.refs))
	for k := range r.refs {
		keys = append(keys, k)
	}
	return keys
}
