// Package telemetry defines the Logger/Metrics/Tracer seams the orchestrator
// and protocol front-end depend on, plus a goa.design/clue + OpenTelemetry
// implementation and a no-op implementation for tests. Only the metrics
// below (request count, error count, request-duration histogram,
// stream-event count, task-created count) are global state.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured, context-carried log messages. Key-value pairs
	// are passed as an alternating (key, value, key, value, ...) slice.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records the counters and histograms spec.md §9 permits as
	// global state. Tags are an alternating (key, value, ...) string slice
	// used as metric dimensions.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts and retrieves spans.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is the subset of an OpenTelemetry span the runtime touches.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}
)

// Metric names recorded by the orchestrator and the protocol front-end:
// request count, error count, request-duration histogram, stream-event
// count, task-created count. MetricStreamEvents is a counter to which each
// finished message/stream adds its event total; it is not a histogram, so
// no per-stream distribution of event counts is recorded.
const (
	MetricRequestCount    = "a2a.request.count"
	MetricErrorCount      = "a2a.error.count"
	MetricRequestDuration = "a2a.request.duration"
	MetricStreamEvents    = "a2a.stream.events"
	MetricTaskCreated     = "a2a.task.created"
)
