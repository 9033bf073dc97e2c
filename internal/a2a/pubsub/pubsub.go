// Package pubsub implements the per-task subscriber fan-out described by
// spec.md §4.2: catch-up-then-live tailing with no missed events and no
// duplicates across the catch-up/live transition, terminating on terminal
// task states.
package pubsub

import (
	"context"
	"sync"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// Hub owns one subscriber set per task. It implements eventlog.Notifier:
// stores call Notify after every successful append, outside their own
// per-task append mutex.
type Hub struct {
	mu      sync.Mutex
	perTask map[string]map[int64]*unboundedQueue
	nextID  int64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{perTask: make(map[string]map[int64]*unboundedQueue)}
}

// Notify implements eventlog.Notifier. It snapshots the subscriber set for
// the task under the hub mutex, then pushes to each queue outside the
// mutex — a slow or stuck subscriber can never block the append path. When
// the event is terminal, every queue for the task is closed and the task's
// subscriber set is dropped.
func (h *Hub) Notify(taskID string, envelope types.EventEnvelope) {
	h.mu.Lock()
	subs := h.perTask[taskID]
	snapshot := make([]*unboundedQueue, 0, len(subs))
	for _, q := range subs {
		snapshot = append(snapshot, q)
	}
	terminal := envelope.Event.Final()
	if terminal {
		delete(h.perTask, taskID)
	}
	h.mu.Unlock()

	for _, q := range snapshot {
		q.push(envelope)
		if terminal {
			q.close()
		}
	}
}

func (h *Hub) register(taskID string) (int64, *unboundedQueue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	subs, ok := h.perTask[taskID]
	if !ok {
		subs = make(map[int64]*unboundedQueue)
		h.perTask[taskID] = subs
	}
	q := newUnboundedQueue()
	subs[id] = q
	return id, q
}

func (h *Hub) deregister(taskID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.perTask[taskID]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.perTask, taskID)
	}
}

var _ eventlog.Notifier = (*Hub)(nil)

// Subscribe implements spec.md §4.2's subscribe routine: register before
// reading history (closing the catch-up/live gap), replay persisted events
// from afterVersion+1, then switch to live delivery de-duplicating by
// version. The returned channel is closed when a terminal event has been
// delivered or ctx is done; callers must drain it to completion or abandon
// it on ctx cancellation — either way the subscriber is always deregistered.
func (h *Hub) Subscribe(ctx context.Context, store eventlog.Store, taskID string, afterVersion int64) (<-chan types.EventEnvelope, error) {
	id, q := h.register(taskID)

	out := make(chan types.EventEnvelope, 16)
	go func() {
		defer close(out)
		defer h.deregister(taskID, id)

		cursor := afterVersion
		history, err := store.Read(ctx, taskID, afterVersion+1)
		if err != nil {
			return
		}
		for _, env := range history {
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
			cursor = env.Version
			if env.Event.Final() {
				return
			}
		}

		stop := ctx.Done()
		for {
			env, ok, done := q.pull(stop)
			if !ok {
				if done {
					return
				}
				return // stop fired
			}
			if env.Version <= cursor {
				continue // already delivered during catch-up
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
			cursor = env.Version
			if env.Event.Final() {
				return
			}
		}
	}()

	return out, nil
}
