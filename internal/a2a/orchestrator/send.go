package orchestrator

import (
	"context"
	"time"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// SendResult is the materialized response of SendMessage: exactly one of
// Task or Message is set, fixed by the first Task-or-Message event the
// handler produced (spec.md §4.3 "Non-streaming materialization").
type SendResult struct {
	Task    *types.AgentTask
	Message *types.Message
}

// StreamItem is one element of a SendStreamingMessage or SubscribeToTask
// sequence. Err is set only on the last item before the channel closes: when
// persisting an event failed, or when the handler goroutine returned a
// non-nil error after the queue had been drained.
type StreamItem struct {
	Event types.StreamEvent
	Err   error
}

// SendMessage implements spec.md §4.3 / §4.4's non-streaming materialization.
func (s *Server) SendMessage(ctx context.Context, msg types.Message, metadata map[string]any) (*SendResult, error) {
	actx, err := s.resolveContext(ctx, msg, metadata, false)
	if err != nil {
		s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
		return nil, err
	}
	if err := guardTerminal(actx); err != nil {
		s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
		return nil, err
	}

	if s.cfg.AutoAppendHistory && actx.IsContinuation() {
		if _, err := s.store.Append(ctx, actx.TaskID, types.NewMessageEvent(actx.TaskID, actx.ContextID, actx.Message), nil); err != nil {
			return nil, errors.Wrap(errors.KindInternalError, "appending inbound message", err)
		}
	}

	queue := newBoundedQueue(s.cfg.queueCapacity())
	errCh := spawnWorker(ctx, queue, func(ctx context.Context, q *boundedQueue) error {
		return s.agent.Execute(ctx, actx, q)
	})

	var (
		firstTask    *types.AgentTask
		firstMessage *types.Message
		count        int
	)
	for event := range queue.ch {
		if s.cfg.AutoPersistEvents {
			if _, err := s.store.Append(ctx, actx.TaskID, event, nil); err != nil {
				return nil, errors.Wrap(errors.KindInternalError, "persisting event", err)
			}
		}
		count++
		if firstTask == nil && firstMessage == nil {
			switch e := event.(type) {
			case types.TaskEvent:
				t := e.Task
				firstTask = &t
			case types.MessageEvent:
				m := e.Message
				firstMessage = &m
			}
		}
	}

	if err := <-errCh; err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, errors.New(errors.KindInvalidAgentResponse, "handler produced no events")
	}

	if firstTask != nil {
		s.metrics.IncCounter(telemetry.MetricTaskCreated, 1)
		fresh, err := s.store.GetTask(ctx, actx.TaskID)
		if err != nil {
			return nil, errors.Wrap(errors.KindInternalError, "re-fetching task projection", err)
		}
		return &SendResult{Task: fresh}, nil
	}
	return &SendResult{Message: firstMessage}, nil
}

// SendStreamingMessage implements spec.md §4.3's streaming materialization:
// the same pre-drain history append, then each event is persisted and
// relayed to the caller as it is produced.
func (s *Server) SendStreamingMessage(ctx context.Context, msg types.Message, metadata map[string]any) (<-chan StreamItem, error) {
	actx, err := s.resolveContext(ctx, msg, metadata, true)
	if err != nil {
		s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
		return nil, err
	}
	if err := guardTerminal(actx); err != nil {
		s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
		return nil, err
	}

	if s.cfg.AutoAppendHistory && actx.IsContinuation() {
		if _, err := s.store.Append(ctx, actx.TaskID, types.NewMessageEvent(actx.TaskID, actx.ContextID, actx.Message), nil); err != nil {
			return nil, errors.Wrap(errors.KindInternalError, "appending inbound message", err)
		}
	}

	queue := newBoundedQueue(s.cfg.queueCapacity())
	errCh := spawnWorker(ctx, queue, func(ctx context.Context, q *boundedQueue) error {
		return s.agent.Execute(ctx, actx, q)
	})

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		start := time.Now()
		count := 0
		for event := range queue.ch {
			if s.cfg.AutoPersistEvents {
				if _, err := s.store.Append(ctx, actx.TaskID, event, nil); err != nil {
					select {
					case out <- StreamItem{Err: errors.Wrap(errors.KindInternalError, "persisting event", err)}:
					case <-ctx.Done():
					}
					<-errCh
					return
				}
			}
			count++
			select {
			case out <- StreamItem{Event: event}:
			case <-ctx.Done():
				<-errCh
				return
			}
		}
		s.metrics.RecordTimer(telemetry.MetricRequestDuration, time.Since(start))
		s.metrics.IncCounter(telemetry.MetricStreamEvents, float64(count))
		if err := <-errCh; err != nil {
			out <- StreamItem{Err: err}
		}
	}()

	return out, nil
}
