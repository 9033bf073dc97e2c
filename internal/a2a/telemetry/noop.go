package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// NoopLogger is a no-op implementation of Logger that discards all log messages.
	NoopLogger struct{}

	// NoopMetrics is a no-op implementation of Metrics that discards all metrics.
	NoopMetrics struct{}

	// NoopTracer is a no-op implementation of Tracer that creates no-op spans.
	NoopTracer struct{}

	// noopSpan is a no-op implementation of Span.
	noopSpan struct{}

	// counterCall, timerCall, and gaugeCall capture one recorded invocation
	// against RecordingMetrics, in call order.
	counterCall struct {
		Name  string
		Value float64
		Tags  []string
	}
	timerCall struct {
		Name     string
		Duration time.Duration
		Tags     []string
	}
	gaugeCall struct {
		Name  string
		Value float64
		Tags  []string
	}

	// RecordingMetrics is a Metrics implementation that records every call
	// instead of discarding it, for tests that need to assert an orchestrator
	// or protocol path actually emitted a given metric (e.g. MetricTaskCreated
	// on task creation) without standing up a real OTEL pipeline. Safe for
	// concurrent use, since orchestrator.Server may record metrics from
	// multiple handler goroutines at once.
	RecordingMetrics struct {
		mu       sync.Mutex
		counters []counterCall
		timers   []timerCall
		gauges   []gaugeCall
	}
)

// NewNoopLogger constructs a Logger that discards all log messages.
// Use this for testing or when logging is not required.
func NewNoopLogger() Logger {
	return NoopLogger{}
}

// NewNoopMetrics constructs a Metrics recorder that discards all metrics.
// Use this for testing or when metrics are not required.
func NewNoopMetrics() Metrics {
	return NoopMetrics{}
}

// NewNoopTracer constructs a Tracer that creates no-op spans.
// Use this for testing or when tracing is not required.
func NewNoopTracer() Tracer {
	return NoopTracer{}
}

// Debug discards the log message.
func (NoopLogger) Debug(context.Context, string, ...any) {}

// Info discards the log message.
func (NoopLogger) Info(context.Context, string, ...any) {}

// Warn discards the log message.
func (NoopLogger) Warn(context.Context, string, ...any) {}

// Error discards the log message.
func (NoopLogger) Error(context.Context, string, ...any) {}

// IncCounter discards the counter metric.
func (NoopMetrics) IncCounter(string, float64, ...string) {}

// RecordTimer discards the timer metric.
func (NoopMetrics) RecordTimer(string, time.Duration, ...string) {}

// RecordGauge discards the gauge metric.
func (NoopMetrics) RecordGauge(string, float64, ...string) {}

// Start returns a no-op span without modifying the context.
func (NoopTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	return ctx, noopSpan{}
}

// Span returns a no-op span.
func (NoopTracer) Span(context.Context) Span {
	return noopSpan{}
}

// End is a no-op.
func (noopSpan) End(...trace.SpanEndOption) {}

// AddEvent is a no-op.
func (noopSpan) AddEvent(string, ...any) {}

// SetStatus is a no-op.
func (noopSpan) SetStatus(codes.Code, string) {}

// RecordError is a no-op.
func (noopSpan) RecordError(error, ...trace.EventOption) {}

// NewRecordingMetrics constructs an empty RecordingMetrics.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{}
}

// IncCounter records the call.
func (m *RecordingMetrics) IncCounter(name string, value float64, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, counterCall{Name: name, Value: value, Tags: tags})
}

// RecordTimer records the call.
func (m *RecordingMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers = append(m.timers, timerCall{Name: name, Duration: d, Tags: tags})
}

// RecordGauge records the call.
func (m *RecordingMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, gaugeCall{Name: name, Value: value, Tags: tags})
}

// CounterCount returns how many times IncCounter was called with name.
func (m *RecordingMetrics) CounterCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.counters {
		if c.Name == name {
			n++
		}
	}
	return n
}

// TimerCount returns how many times RecordTimer was called with name.
func (m *RecordingMetrics) TimerCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.timers {
		if c.Name == name {
			n++
		}
	}
	return n
}

// LastGauge returns the most recently recorded value for name and whether
// it was ever recorded.
func (m *RecordingMetrics) LastGauge(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.gauges) - 1; i >= 0; i-- {
		if m.gauges[i].Name == name {
			return m.gauges[i].Value, true
		}
	}
	return 0, false
}
