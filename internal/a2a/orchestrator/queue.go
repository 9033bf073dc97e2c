package orchestrator

import (
	"context"
	"sync"

	"github.com/a2a-labs/agent-runtime/internal/a2a/handler"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

var _ handler.EventQueue = (*boundedQueue)(nil)

// boundedQueue is the handler event queue spec.md §4.3 describes: bounded
// capacity, block-on-full, single reader (the orchestrator's drain loop),
// multi-writer (handler code may fan out across goroutines). It implements
// handler.EventQueue.
type boundedQueue struct {
	ch        chan types.StreamEvent
	closeOnce sync.Once
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{ch: make(chan types.StreamEvent, capacity)}
}

// Push implements handler.EventQueue. It blocks while the queue is full
// until ctx is done or the drain loop frees a slot.
func (q *boundedQueue) Push(ctx context.Context, event types.StreamEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements handler.EventQueue. Safe to call more than once (the
// handler may close it; the orchestrator always closes it too).
func (q *boundedQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
