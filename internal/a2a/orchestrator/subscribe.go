package orchestrator

import (
	"context"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// SubscribeToTask implements spec.md §4.3's Subscribe operation: reject
// unknown or already-terminal tasks, yield the current Task projection as
// the mandatory first event, then tail the event log live via the pub/sub
// hub's catch-up-then-live routine (spec.md §4.2).
//
// Subscribing to an already-terminal task is rejected rather than yielding a
// final Task snapshot, resolving spec.md §9's open question in favor of the
// newer orchestrator behavior.
func (s *Server) SubscribeToTask(ctx context.Context, taskID string) (<-chan StreamItem, error) {
	task, version, err := s.store.GetTaskWithVersion(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternalError, "loading task", err)
	}
	if task == nil {
		return nil, errors.Newf(errors.KindTaskNotFound, "task %q not found", taskID)
	}
	if task.Status.State.IsTerminal() {
		return nil, errors.Newf(errors.KindUnsupportedOperation, "task %q is in terminal state %q", taskID, task.Status.State)
	}

	envelopes, err := s.hub.Subscribe(ctx, s.store, taskID, version)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternalError, "subscribing", err)
	}

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		select {
		case out <- StreamItem{Event: types.NewTaskEvent(*task)}:
		case <-ctx.Done():
			return
		}
		for env := range envelopes {
			select {
			case out <- StreamItem{Event: env.Event}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
