package handler

import (
	"context"
	"time"

	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// TaskUpdater is the convenience façade from spec.md §4.4: each method
// enqueues the corresponding StreamEvent with a UTC timestamp, and the
// terminal operations (Complete, Fail, Cancel, Reject) additionally close
// the queue so the orchestrator's drain loop stops waiting for more events.
type TaskUpdater struct {
	ctx   types.AgentContext
	queue EventQueue
}

// NewTaskUpdater builds a façade bound to actx's task/context ids and queue.
func NewTaskUpdater(actx types.AgentContext, queue EventQueue) *TaskUpdater {
	return &TaskUpdater{ctx: actx, queue: queue}
}

func (u *TaskUpdater) push(ctx context.Context, event types.StreamEvent) error {
	return u.queue.Push(ctx, event)
}

// Submit emits the initial Task event for a freshly minted task, in the
// Submitted state. Handlers that resume an existing task skip this.
func (u *TaskUpdater) Submit(ctx context.Context) error {
	return u.push(ctx, types.NewTaskEvent(types.AgentTask{
		ID:        u.ctx.TaskID,
		ContextID: u.ctx.ContextID,
		Status:    types.TaskStatus{State: types.TaskStateSubmitted, Timestamp: time.Now().UTC()},
	}))
}

// StartWork transitions the task to Working.
func (u *TaskUpdater) StartWork(ctx context.Context) error {
	return u.push(ctx, types.NewStatusUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.TaskStatus{
		State: types.TaskStateWorking, Timestamp: time.Now().UTC(),
	}))
}

// AddArtifact emits an artifact update. When id is empty a fresh id is
// minted. append controls the merge semantics from the projection fold
// (eventlog.Apply): false replaces/upserts the artifact by id, true
// concatenates parts and merges metadata into the existing artifact.
func (u *TaskUpdater) AddArtifact(ctx context.Context, parts []types.Part, id, name, description string, lastChunk, append_ bool) error {
	if id == "" {
		id = types.NewID()
	}
	return u.push(ctx, types.NewArtifactUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.Artifact{
		ArtifactID:  id,
		Name:        name,
		Description: description,
		Parts:       parts,
	}, append_, lastChunk))
}

// Complete transitions the task to Completed, optionally carrying a final
// agent message, and closes the queue.
func (u *TaskUpdater) Complete(ctx context.Context, msg *types.Message) error {
	return u.finish(ctx, types.TaskStateCompleted, msg)
}

// Fail transitions the task to Failed, optionally carrying an explanatory
// agent message, and closes the queue.
func (u *TaskUpdater) Fail(ctx context.Context, msg *types.Message) error {
	return u.finish(ctx, types.TaskStateFailed, msg)
}

// Cancel transitions the task to Canceled and closes the queue. This is the
// operation DefaultCancel delegates to.
func (u *TaskUpdater) Cancel(ctx context.Context) error {
	return u.finish(ctx, types.TaskStateCanceled, nil)
}

// Reject transitions the task to Rejected, optionally carrying an
// explanatory agent message, and closes the queue. Handlers use this when a
// request is well-formed but the agent declines to act on it.
func (u *TaskUpdater) Reject(ctx context.Context, msg *types.Message) error {
	return u.finish(ctx, types.TaskStateRejected, msg)
}

func (u *TaskUpdater) finish(ctx context.Context, state types.TaskState, msg *types.Message) error {
	defer u.queue.Close()
	return u.push(ctx, types.NewStatusUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.TaskStatus{
		State:     state,
		Timestamp: time.Now().UTC(),
		Message:   msg,
	}))
}

// Progress re-emits a Working status update carrying a progress message,
// without closing the queue. Handlers with multi-step work use this to keep
// clients informed between the initial StartWork and the terminal event.
func (u *TaskUpdater) Progress(ctx context.Context, msg types.Message) error {
	return u.push(ctx, types.NewStatusUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.TaskStatus{
		State:     types.TaskStateWorking,
		Timestamp: time.Now().UTC(),
		Message:   &msg,
	}))
}

// RequireInput pauses the task awaiting additional client input. This is not
// a terminal state, so the queue stays open.
func (u *TaskUpdater) RequireInput(ctx context.Context, msg types.Message) error {
	return u.push(ctx, types.NewStatusUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.TaskStatus{
		State:     types.TaskStateInputRequired,
		Timestamp: time.Now().UTC(),
		Message:   &msg,
	}))
}

// RequireAuth pauses the task awaiting out-of-band authentication. Not
// terminal; the queue stays open.
func (u *TaskUpdater) RequireAuth(ctx context.Context, msg *types.Message) error {
	return u.push(ctx, types.NewStatusUpdateEvent(u.ctx.TaskID, u.ctx.ContextID, types.TaskStatus{
		State:     types.TaskStateAuthRequired,
		Timestamp: time.Now().UTC(),
		Message:   msg,
	}))
}
