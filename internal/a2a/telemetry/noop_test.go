package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Debug(context.Background(), "msg", "k", "v")
	l.Info(context.Background(), "msg")
	l.Warn(context.Background(), "msg", "k", 1)
	l.Error(context.Background(), "msg", "k", nil)
}

func TestNoopMetricsDoesNotPanic(t *testing.T) {
	var m Metrics = NoopMetrics{}
	m.IncCounter(MetricRequestCount, 1, "route", "send")
	m.RecordTimer(MetricRequestDuration, time.Millisecond)
	m.RecordGauge("queue.depth", 4)
}

func TestNoopTracerDoesNotPanic(t *testing.T) {
	var tr Tracer = NoopTracer{}
	ctx, span := tr.Start(context.Background(), "op")
	require.Equal(t, context.Background(), ctx)
	span.AddEvent("event")
	span.SetStatus(0, "")
	span.RecordError(nil)
	span.End()
	require.NotNil(t, tr.Span(ctx))
}

func TestRecordingMetricsCapturesCalls(t *testing.T) {
	m := NewRecordingMetrics()

	m.IncCounter(MetricTaskCreated, 1)
	m.IncCounter(MetricTaskCreated, 1)
	m.IncCounter(MetricErrorCount, 1)
	m.RecordTimer(MetricRequestDuration, 50*time.Millisecond)
	m.RecordGauge("queue.depth", 3)
	m.RecordGauge("queue.depth", 7)

	require.Equal(t, 2, m.CounterCount(MetricTaskCreated))
	require.Equal(t, 1, m.CounterCount(MetricErrorCount))
	require.Equal(t, 0, m.CounterCount(MetricStreamEvents))
	require.Equal(t, 1, m.TimerCount(MetricRequestDuration))

	v, ok := m.LastGauge("queue.depth")
	require.True(t, ok)
	require.Equal(t, float64(7), v)

	_, ok = m.LastGauge("missing")
	require.False(t, ok)
}

func TestRecordingMetricsSatisfiesInterface(t *testing.T) {
	var _ Metrics = NewRecordingMetrics()
}
