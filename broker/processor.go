// Package broker implements the keyed multi-queue processor: producers push
// values into named bounded queues, and a bounded worker pool drives
// delivery to at most one consumer per queue.
package broker

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kbroker/kbroker/config"
	"github.com/kbroker/kbroker/consumer"
	"github.com/kbroker/kbroker/errs"
	"github.com/kbroker/kbroker/observability"
	"github.com/kbroker/kbroker/queue"
	"github.com/kbroker/kbroker/shardedmap"
	"github.com/kbroker/kbroker/worker"
)

// Processor multiplexes many keyed queues over a bounded worker pool. Keys
// are created on demand on first Enqueue or Subscribe call; a key may have
// at most one subscribed consumer at a time. The zero value is not usable;
// construct with New.
type Processor[K comparable, V any] struct {
	maxThreads    int
	queueCapacity int

	queues    *shardedmap.Map[K, *queue.BoundedQueue[V]]
	consumers *consumer.Registry[K, V]

	mu      sync.Mutex
	running atomic.Bool
	pool    *worker.Pool
}

// New constructs a Processor from cfg. It panics if cfg carries an
// explicitly invalid (negative) field; zero-valued fields are filled with
// their defaults.
func New[K comparable, V any](cfg config.Config) *Processor[K, V] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	cfg = cfg.Normalize()

	return &Processor[K, V]{
		maxThreads:    cfg.MaxThreads,
		queueCapacity: cfg.QueueCapacity,
		queues:        shardedmap.New[K, *queue.BoundedQueue[V]](cfg.BucketCount),
		consumers:     consumer.NewRegistry[K, V](),
	}
}

// Enqueue pushes value into the queue bound to key, creating the queue if it
// does not already exist. It reports false if the queue was already at
// capacity.
func (p *Processor[K, V]) Enqueue(key K, value V) bool {
	return p.queueFor(key).Enqueue(value)
}

// Dequeue removes and returns the oldest value buffered under key without
// blocking. Unlike Enqueue, it does not create a queue for a key that has
// never been touched. It reports false if the key is unknown or its queue is
// empty.
func (p *Processor[K, V]) Dequeue(key K) (V, bool) {
	q, ok := p.queues.Find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return q.Dequeue()
}

// Subscribe binds ref as the sole consumer of key's queue. It reports false
// if key already has a subscribed consumer. It panics if ref is nil.
func (p *Processor[K, V]) Subscribe(key K, ref consumer.Ref[K, V]) bool {
	if ref == nil {
		panic(errs.New("broker", errs.CodeInvalidArgument, errs.WithMessage("consumer must not be nil")))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribeLocked(key, ref)
}

// subscribeLocked assumes p.mu is held. If the processor is running and key
// has no existing subscriber, it restarts the worker pool so the new
// consumer's delivery task is spun up; otherwise it just registers the
// consumer without disturbing whatever pool is already running.
func (p *Processor[K, V]) subscribeLocked(key K, ref consumer.Ref[K, V]) bool {
	needsRestart := p.running.Load() && !p.consumers.Contains(key)

	var inserted bool
	if needsRestart {
		p.stopLocked()
		inserted = p.consumers.Register(key, ref)
		p.startLocked()
	} else {
		inserted = p.consumers.Register(key, ref)
	}

	if inserted {
		p.queueFor(key).EnableWaiting()
		observability.Log().Debug("consumer subscribed",
			observability.Int("subscribed_count", p.consumers.Len()))
	}
	return inserted
}

// Unsubscribe removes key's subscribed consumer, if any. Regardless of
// whether a consumer was removed, it always cycles the processor through
// stop and start: a never-started Processor transitions to Running as a
// side effect, because Start is the only place Idle moves to Running and it
// runs unconditionally here.
func (p *Processor[K, V]) Unsubscribe(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unsubscribeLocked(key)
}

func (p *Processor[K, V]) unsubscribeLocked(key K) bool {
	p.stopLocked()
	removed := p.consumers.Unregister(key)
	p.startLocked()

	observability.Log().Debug("consumer unsubscribed",
		observability.String("outcome", outcomeLabel(removed)))
	return removed
}

// Start transitions the processor to Running and spins up a delivery task
// per subscribed consumer, bounded to MaxThreads concurrent worker-pool
// goroutines. It is a no-op if the processor is already running.
func (p *Processor[K, V]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *Processor[K, V]) startLocked() {
	if p.running.Load() {
		return
	}
	p.running.Store(true)

	snapshot := p.consumers.Snapshot()
	tasks := make([]worker.Task, 0, len(snapshot))
	for key, ref := range snapshot {
		tasks = append(tasks, p.deliveryTask(key, ref))
	}

	threadCount := p.maxThreads
	if threadCount > len(tasks) {
		threadCount = len(tasks)
	}

	pl := worker.New(threadCount)
	pl.Start(tasks)
	p.pool = pl

	observability.Log().Debug("processor started",
		observability.Int("threads", threadCount),
		observability.Int("consumers", len(tasks)))
}

// deliveryTask builds the long-running task that repeatedly drains key's
// queue and hands each value to ref until the processor stops. It yields at
// the top of every iteration so a busy consumer cannot starve its sibling
// tasks in the same worker-pool chunk.
func (p *Processor[K, V]) deliveryTask(key K, ref consumer.Ref[K, V]) worker.Task {
	return func() {
		q := p.queueFor(key)
		for p.running.Load() {
			runtime.Gosched()
			q.ConsumeAll(func(value V) {
				p.deliver(key, ref, value)
			})
		}
	}
}

// deliver invokes ref.Consume, isolating the delivery task from a panicking
// consumer so one failing subscriber cannot take down its worker-pool
// goroutine or its sibling tasks.
func (p *Processor[K, V]) deliver(key K, ref consumer.Ref[K, V], value V) {
	defer func() {
		if r := recover(); r != nil {
			observability.Log().Error("consumer panic",
				observability.Err(fmt.Errorf("%v", r)))
		}
	}()
	ref.Consume(key, value)
}

// Stop transitions the processor to Idle, releasing every subscribed
// queue's waiting consumers and blocking until every delivery task has
// returned. It is a no-op if the processor is not running.
func (p *Processor[K, V]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Processor[K, V]) stopLocked() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)

	for _, key := range p.consumers.Keys() {
		if q, ok := p.queues.Find(key); ok {
			q.DisableWaiting()
		}
	}

	if p.pool != nil {
		p.pool.Wait()
		p.pool = nil
	}

	observability.Log().Debug("processor stopped")
}

// queueFor returns key's queue, creating it with the processor's configured
// capacity if it does not already exist.
func (p *Processor[K, V]) queueFor(key K) *queue.BoundedQueue[V] {
	q, _ := p.queues.GetOrInsert(key, queue.New[V](p.queueCapacity, queue.Cooperative))
	return q
}

func outcomeLabel(removed bool) string {
	if removed {
		return "removed"
	}
	return "not_subscribed"
}
