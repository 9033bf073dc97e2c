package pubsub

import (
	"sync"

	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// unboundedQueue is a single-reader, multi-writer FIFO of EventEnvelope
// values with no capacity limit, matching spec.md §4.2's "queues are
// unbounded in the reference design" and §9's "non-blocking writes". Push
// never blocks the appender; pull blocks until an item is available, the
// queue is closed and drained, or the caller-supplied stop channel fires.
type unboundedQueue struct {
	mu     sync.Mutex
	items  []types.EventEnvelope
	closed bool
	wake   chan struct{}
}

func newUnboundedQueue() *unboundedQueue {
	return &unboundedQueue{wake: make(chan struct{}, 1)}
}

func (q *unboundedQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// push appends env to the queue. It is always non-blocking: the queue grows
// as needed, so an appender (the event log, inside Notify) can never be
// stalled by a slow subscriber.
func (q *unboundedQueue) push(env types.EventEnvelope) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, env)
	q.mu.Unlock()
	q.signal()
}

// close marks the writer side closed. Items already pushed remain
// available to pull; once drained, pull reports ok=false.
func (q *unboundedQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// tryPop returns the next item without blocking, if one is present.
func (q *unboundedQueue) tryPop() (types.EventEnvelope, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		return item, true, q.closed
	}
	return types.EventEnvelope{}, false, q.closed
}

// pull blocks until an item is available (ok=true), the queue is closed and
// drained (ok=false, done=true), or stop fires (ok=false, done=false).
func (q *unboundedQueue) pull(stop <-chan struct{}) (env types.EventEnvelope, ok bool, done bool) {
	for {
		item, has, closed := q.tryPop()
		if has {
			return item, true, false
		}
		if closed {
			return types.EventEnvelope{}, false, true
		}
		select {
		case <-q.wake:
		case <-stop:
			return types.EventEnvelope{}, false, false
		}
	}
}
