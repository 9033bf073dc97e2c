// Package handler defines the contract user-supplied agent logic implements
// and the queue-backed helper that makes satisfying it ergonomic, per
// spec.md §4.4.
package handler

import (
	"context"

	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// EventQueue is the bounded, single-reader, multi-writer channel a handler
// writes StreamEvent values to. The orchestrator owns the concrete queue
// (spec.md §4.3: default capacity 16, block-on-full); handlers only ever see
// this narrow write/close surface.
type EventQueue interface {
	// Push writes an event, blocking while the queue is full until ctx is
	// done or a reader drains space.
	Push(ctx context.Context, event types.StreamEvent) error
	// Close signals that no further events will be written. The orchestrator
	// always closes the queue exactly once after the handler returns,
	// regardless of whether the handler closed it first.
	Close()
}

// Agent is the capability set a handler implements. Cancel has a default
// (DefaultCancel) that most handlers can delegate to.
type Agent interface {
	// Execute performs the work for context, writing any number of events to
	// queue. Returning nil means success; the orchestrator detects
	// completion when Execute returns, not from any particular event.
	// Execute must observe ctx cancellation cooperatively.
	Execute(ctx context.Context, actx types.AgentContext, queue EventQueue) error
	// Cancel runs in place of Execute when the orchestrator is asked to
	// cancel a running or resumed task. Implementations should emit a
	// Canceled status update; DefaultCancel does exactly that.
	Cancel(ctx context.Context, actx types.AgentContext, queue EventQueue) error
}

// DefaultCancel implements the default cancel contract from spec.md §4.4:
// emit a Canceled status update and close the queue. Handlers that have no
// cancellation-specific cleanup can embed this via AgentFuncs or call it
// directly from their own Cancel method.
func DefaultCancel(ctx context.Context, actx types.AgentContext, queue EventQueue) error {
	u := NewTaskUpdater(actx, queue)
	return u.Cancel(ctx)
}

// AgentFuncs adapts two plain functions to the Agent interface, for the
// common case of a handler with no extra state.
type AgentFuncs struct {
	ExecuteFunc func(ctx context.Context, actx types.AgentContext, queue EventQueue) error
	CancelFunc  func(ctx context.Context, actx types.AgentContext, queue EventQueue) error
}

// Execute implements Agent.
func (f AgentFuncs) Execute(ctx context.Context, actx types.AgentContext, queue EventQueue) error {
	return f.ExecuteFunc(ctx, actx, queue)
}

// Cancel implements Agent, falling back to DefaultCancel when CancelFunc is
// nil.
func (f AgentFuncs) Cancel(ctx context.Context, actx types.AgentContext, queue EventQueue) error {
	if f.CancelFunc != nil {
		return f.CancelFunc(ctx, actx, queue)
	}
	return DefaultCancel(ctx, actx, queue)
}
