// Package consumer defines the broker's consumer contract and the registry
// that tracks which consumer, if any, is subscribed to each key.
package consumer

// Ref consumes values dequeued from a particular key's queue.
type Ref[K comparable, V any] interface {
	Consume(key K, value V)
}

// Func adapts a plain function into a Ref.
type Func[K comparable, V any] func(key K, value V)

// Consume invokes f.
func (f Func[K, V]) Consume(key K, value V) {
	f(key, value)
}
