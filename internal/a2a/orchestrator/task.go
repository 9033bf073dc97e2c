package orchestrator

import (
	"context"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// GetTask implements spec.md §4.3's GetTask operation. historyLength, when
// non-nil, trims the returned task's history per §8's boundary behavior: 0
// drops history, negative is rejected, and a value at or beyond the actual
// history length is a no-op.
func (s *Server) GetTask(ctx context.Context, taskID string, historyLength *int) (*types.AgentTask, error) {
	if historyLength != nil && *historyLength < 0 {
		return nil, errors.New(errors.KindInvalidParams, "historyLength must not be negative")
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternalError, "loading task", err)
	}
	if task == nil {
		return nil, errors.Newf(errors.KindTaskNotFound, "task %q not found", taskID)
	}
	if historyLength != nil {
		eventlog.TrimHistory(task, *historyLength)
	}
	return task, nil
}

// CancelTask implements spec.md §4.3's Cancel operation: load the task,
// reject unknown or already-terminal tasks, then invoke the handler's
// cancel contract with a synthetic context built from the task's last
// history message.
func (s *Server) CancelTask(ctx context.Context, taskID string) (*types.AgentTask, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternalError, "loading task", err)
	}
	if task == nil {
		return nil, errors.Newf(errors.KindTaskNotFound, "task %q not found", taskID)
	}
	if task.Status.State.IsTerminal() {
		return nil, errors.Newf(errors.KindTaskNotCancelable, "task %q is already in terminal state %q", taskID, task.Status.State)
	}

	lastMsg := types.Message{MessageID: types.NewID(), Role: types.RoleUser, TaskID: taskID, ContextID: task.ContextID}
	if n := len(task.History); n > 0 {
		lastMsg = task.History[n-1]
	}
	actx := types.AgentContext{
		Message:   lastMsg,
		Task:      task,
		TaskID:    taskID,
		ContextID: task.ContextID,
		Streaming: false,
	}

	queue := newBoundedQueue(s.cfg.queueCapacity())
	errCh := spawnWorker(ctx, queue, func(ctx context.Context, q *boundedQueue) error {
		return s.agent.Cancel(ctx, actx, q)
	})

	for event := range queue.ch {
		if s.cfg.AutoPersistEvents {
			if _, err := s.store.Append(ctx, taskID, event, nil); err != nil {
				return nil, errors.Wrap(errors.KindInternalError, "persisting event", err)
			}
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	final, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternalError, "re-fetching task projection", err)
	}
	return final, nil
}

// ListTasks implements spec.md §4.3's ListTasks operation, delegating
// filtering, sorting, and pagination to the event log's Store.
func (s *Server) ListTasks(ctx context.Context, filter eventlog.ListFilter, page eventlog.Page) (eventlog.ListResult, error) {
	if page.HistoryLength != nil && *page.HistoryLength < 0 {
		return eventlog.ListResult{}, errors.New(errors.KindInvalidParams, "historyLength must not be negative")
	}
	return s.store.ListTasks(ctx, filter, page)
}
