// Package orchestrator implements the A2A request lifecycle: context
// resolution, terminal-state guards, handler worker spawning, event
// persistence, and response materialization (spec.md §4.3).
package orchestrator

import (
	"context"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/handler"
	"github.com/a2a-labs/agent-runtime/internal/a2a/pubsub"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// Config holds the orchestrator's static tunables (spec.md §4.3, §9).
type Config struct {
	// QueueCapacity bounds the handler event queue. Default 16.
	QueueCapacity int
	// AutoAppendHistory appends the inbound user message to the event log as
	// a synthetic Message event before draining the handler, when the
	// request continues an existing task. Default true.
	AutoAppendHistory bool
	// AutoPersistEvents appends every event the handler produces to the
	// event log as it is drained. Default true; an orchestrator with this
	// false is only useful for handler unit tests that don't want
	// persistence side effects.
	AutoPersistEvents bool
}

// DefaultConfig returns the configuration spec.md §4.3 describes.
func DefaultConfig() Config {
	return Config{QueueCapacity: 16, AutoAppendHistory: true, AutoPersistEvents: true}
}

func (c Config) queueCapacity() int {
	if c.QueueCapacity > 0 {
		return c.QueueCapacity
	}
	return 16
}

// Server is the A2AServer: the orchestrator façade the protocol front-end
// dispatches onto. It is safe for concurrent use.
type Server struct {
	store   eventlog.Store
	hub     *pubsub.Hub
	agent   handler.Agent
	cfg     Config
	metrics telemetry.Metrics
	logger  telemetry.Logger
}

// Option configures optional Server aspects.
type Option func(*Server)

// WithMetrics overrides the default no-op Metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger overrides the default no-op Logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer builds a Server over store, hub, and agent. hub must be the same
// Notifier (or feed into the same Notifier chain) the store was constructed
// with, so that subscribers registered through hub observe appends made
// through store.
func NewServer(store eventlog.Store, hub *pubsub.Hub, agent handler.Agent, cfg Config, opts ...Option) *Server {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 16
	}
	s := &Server{
		store:   store,
		hub:     hub,
		agent:   agent,
		cfg:     cfg,
		metrics: telemetry.NewNoopMetrics(),
		logger:  telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// resolveContext implements spec.md §4.3's "Context resolution": if msg
// carries a taskId, the task must already exist and its contextId is
// inherited when msg omits one; otherwise fresh task/context ids are minted.
func (s *Server) resolveContext(ctx context.Context, msg types.Message, metadata map[string]any, streaming bool) (types.AgentContext, error) {
	if msg.MessageID == "" {
		msg.MessageID = types.NewID()
	}

	if msg.TaskID != "" {
		task, err := s.store.GetTask(ctx, msg.TaskID)
		if err != nil {
			return types.AgentContext{}, errors.Wrap(errors.KindInternalError, "loading task", err)
		}
		if task == nil {
			return types.AgentContext{}, errors.Newf(errors.KindTaskNotFound, "task %q not found", msg.TaskID)
		}
		contextID := msg.ContextID
		if contextID == "" {
			contextID = task.ContextID
		}
		msg.ContextID = contextID
		return types.AgentContext{
			Message:   msg,
			Task:      task,
			TaskID:    msg.TaskID,
			ContextID: contextID,
			Streaming: streaming,
			Metadata:  metadata,
		}, nil
	}

	taskID := types.NewID()
	contextID := msg.ContextID
	if contextID == "" {
		contextID = types.NewID()
	}
	msg.TaskID = taskID
	msg.ContextID = contextID
	return types.AgentContext{
		Message:   msg,
		Task:      nil,
		TaskID:    taskID,
		ContextID: contextID,
		Streaming: streaming,
		Metadata:  metadata,
	}, nil
}

// guardTerminal implements spec.md §4.3's "Terminal-state guard": a request
// that continues a task already in a terminal state is rejected before any
// work starts.
func guardTerminal(actx types.AgentContext) error {
	if actx.Task != nil && actx.Task.Status.State.IsTerminal() {
		return errors.Newf(errors.KindUnsupportedOperation, "task %q is in terminal state %q", actx.TaskID, actx.Task.Status.State)
	}
	return nil
}

// spawnWorker runs fn on a new goroutine, always closing queue when fn
// returns (spec.md §4.3: "the worker always closes the queue"), and reports
// fn's error on the returned channel exactly once.
func spawnWorker(ctx context.Context, queue *boundedQueue, fn func(context.Context, *boundedQueue) error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer queue.Close()
		errCh <- fn(ctx, queue)
	}()
	return errCh
}
