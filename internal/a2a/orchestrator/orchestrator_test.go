package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/handler"
	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"github.com/a2a-labs/agent-runtime/internal/a2a/pubsub"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

func newServer(agent handler.Agent) *orchestrator.Server {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	return orchestrator.NewServer(store, hub, agent, orchestrator.DefaultConfig())
}

func userMessage(text string) types.Message {
	return types.Message{MessageID: types.NewID(), Role: types.RoleUser, Parts: []types.Part{types.NewTextPart(text)}}
}

// echoHandler replies with a single agent message, never touching the task
// lifecycle — spec.md §8 scenario 1.
type echoHandler struct{}

func (echoHandler) Execute(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	reply := types.Message{
		MessageID: types.NewID(),
		Role:      types.RoleAgent,
		Parts:     []types.Part{types.NewTextPart("Echo: " + actx.Message.Parts[0].Text)},
	}
	return queue.Push(ctx, types.NewMessageEvent(actx.TaskID, actx.ContextID, reply))
}
func (echoHandler) Cancel(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	return handler.DefaultCancel(ctx, actx, queue)
}

func TestSendMessage_Echo(t *testing.T) {
	s := newServer(echoHandler{})
	res, err := s.SendMessage(context.Background(), userMessage("hello"), nil)
	require.NoError(t, err)
	require.Nil(t, res.Task)
	require.NotNil(t, res.Message)
	require.Equal(t, "Echo: hello", res.Message.Parts[0].Text)
}

// lifecycleHandler runs submit -> startWork -> addArtifact -> complete,
// spec.md §8 scenario 2.
type lifecycleHandler struct{}

func (lifecycleHandler) Execute(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	u := handler.NewTaskUpdater(actx, queue)
	if err := u.Submit(ctx); err != nil {
		return err
	}
	if err := u.StartWork(ctx); err != nil {
		return err
	}
	if err := u.AddArtifact(ctx, []types.Part{types.NewTextPart("done")}, "", "", "", true, false); err != nil {
		return err
	}
	return u.Complete(ctx, nil)
}
func (lifecycleHandler) Cancel(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	return handler.DefaultCancel(ctx, actx, queue)
}

func TestSendMessage_TaskLifecycle(t *testing.T) {
	s := newServer(lifecycleHandler{})
	res, err := s.SendMessage(context.Background(), userMessage("build it"), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	require.Equal(t, types.TaskStateCompleted, res.Task.Status.State)
	require.Len(t, res.Task.Artifacts, 1)
	require.Equal(t, "done", res.Task.Artifacts[0].Parts[0].Text)
	require.Empty(t, res.Task.History)

	final, err := s.GetTask(context.Background(), res.Task.ID, nil)
	require.NoError(t, err)
	require.Equal(t, types.TaskStateCompleted, final.Status.State)
}

func TestSubscribeToTask_CatchUpThenLive(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, lifecycleHandler{}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1", Status: types.TaskStatus{State: types.TaskStateSubmitted, Timestamp: time.Now()},
	}), nil)
	require.NoError(t, err)
	_, err = store.Append(ctx, taskID, types.NewStatusUpdateEvent(taskID, "c1", types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()}), nil)
	require.NoError(t, err)

	subCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	items, err := s.SubscribeToTask(subCtx, taskID)
	require.NoError(t, err)

	first := <-items
	require.NoError(t, first.Err)
	taskEvent, ok := first.Event.(types.TaskEvent)
	require.True(t, ok)
	require.Equal(t, types.TaskStateWorking, taskEvent.Task.Status.State)

	_, err = store.Append(ctx, taskID, types.NewStatusUpdateEvent(taskID, "c1", types.TaskStatus{State: types.TaskStateCompleted, Timestamp: time.Now()}), nil)
	require.NoError(t, err)

	second := <-items
	require.NoError(t, second.Err)
	require.True(t, second.Event.Final())

	_, ok = <-items
	require.False(t, ok)
}

// replyHandler emits one agent message; used to test continuation history.
type replyHandler struct{ text string }

func (r replyHandler) Execute(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	reply := types.Message{MessageID: types.NewID(), Role: types.RoleAgent, Parts: []types.Part{types.NewTextPart(r.text)}}
	return queue.Push(ctx, types.NewMessageEvent(actx.TaskID, actx.ContextID, reply))
}
func (replyHandler) Cancel(ctx context.Context, actx types.AgentContext, queue handler.EventQueue) error {
	return handler.DefaultCancel(ctx, actx, queue)
}

func TestSendMessage_ContinuationAppendsHistory(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, replyHandler{text: "reply"}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	original := types.Message{MessageID: types.NewID(), Role: types.RoleUser, Parts: []types.Part{types.NewTextPart("original")}}
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1",
		Status:  types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()},
		History: []types.Message{original},
	}), nil)
	require.NoError(t, err)

	followUp := userMessage("follow-up")
	followUp.TaskID = taskID
	_, err = s.SendMessage(ctx, followUp, nil)
	require.NoError(t, err)

	final, err := s.GetTask(ctx, taskID, nil)
	require.NoError(t, err)
	require.Len(t, final.History, 3)
	require.Equal(t, "original", final.History[0].Parts[0].Text)
	require.Equal(t, "follow-up", final.History[1].Parts[0].Text)
	require.Equal(t, "reply", final.History[2].Parts[0].Text)
}

func TestSendMessage_TerminalGuard(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, echoHandler{}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1", Status: types.TaskStatus{State: types.TaskStateCompleted, Timestamp: time.Now()},
	}), nil)
	require.NoError(t, err)

	msg := userMessage("too late")
	msg.TaskID = taskID
	_, err = s.SendMessage(ctx, msg, nil)
	require.Error(t, err)
	require.Equal(t, errors.KindUnsupportedOperation, errors.Of(err))

	envs, err := store.Read(ctx, taskID, 0)
	require.NoError(t, err)
	require.Len(t, envs, 1)
}

func TestCancelTask_TerminalIsNotCancelable(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, echoHandler{}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1", Status: types.TaskStatus{State: types.TaskStateFailed, Timestamp: time.Now()},
	}), nil)
	require.NoError(t, err)

	_, err = s.CancelTask(ctx, taskID)
	require.Error(t, err)
	require.Equal(t, errors.KindTaskNotCancelable, errors.Of(err))
}

func TestCancelTask_DefaultCancelEmitsCanceled(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, echoHandler{}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1", Status: types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()},
	}), nil)
	require.NoError(t, err)

	final, err := s.CancelTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, types.TaskStateCanceled, final.Status.State)
}

func TestGetTask_HistoryLengthBoundaries(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	s := orchestrator.NewServer(store, hub, echoHandler{}, orchestrator.DefaultConfig())
	ctx := context.Background()

	taskID := types.NewID()
	history := []types.Message{userMessage("a"), userMessage("b"), userMessage("c")}
	_, err := store.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{
		ID: taskID, ContextID: "c1", Status: types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()}, History: history,
	}), nil)
	require.NoError(t, err)

	zero := 0
	trimmed, err := s.GetTask(ctx, taskID, &zero)
	require.NoError(t, err)
	require.Empty(t, trimmed.History)

	negative := -1
	_, err = s.GetTask(ctx, taskID, &negative)
	require.Error(t, err)
	require.Equal(t, errors.KindInvalidParams, errors.Of(err))

	full, err := s.GetTask(ctx, taskID, nil)
	require.NoError(t, err)
	require.Len(t, full.History, 3)
}

func TestSendMessage_RecordsTaskCreatedMetric(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	metrics := telemetry.NewRecordingMetrics()
	s := orchestrator.NewServer(store, hub, lifecycleHandler{}, orchestrator.DefaultConfig(), orchestrator.WithMetrics(metrics))

	res, err := s.SendMessage(context.Background(), userMessage("build it"), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Task)

	require.Equal(t, 1, metrics.CounterCount(telemetry.MetricTaskCreated))
	require.Equal(t, 0, metrics.CounterCount(telemetry.MetricErrorCount))
}

func TestAppend_ConcurrencyConflict(t *testing.T) {
	hub := pubsub.NewHub()
	store := eventlog.NewInMemoryStore(hub)
	ctx := context.Background()
	taskID := types.NewID()

	zero := int64(0)
	_, err := store.Append(ctx, taskID, types.NewStatusUpdateEvent(taskID, "c1", types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()}), &zero)
	require.NoError(t, err)

	_, err = store.Append(ctx, taskID, types.NewStatusUpdateEvent(taskID, "c1", types.TaskStatus{State: types.TaskStateWorking, Timestamp: time.Now()}), &zero)
	require.Error(t, err)
	require.Equal(t, errors.KindInvalidRequest, errors.Of(err))

	envs, err := store.Read(ctx, taskID, 0)
	require.NoError(t, err)
	require.Len(t, envs, 1)
}
