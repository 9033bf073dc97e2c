package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// instrumentationName identifies this runtime's meter and tracer to
// whatever OTEL exporter Clue is configured with, distinct from any library
// the process happens to also link in.
const instrumentationName = "github.com/a2a-labs/agent-runtime/internal/a2a"

type (
	// ClueLogger emits structured logs through goa.design/clue/log, reading
	// its formatting and debug settings from the request context (set up by
	// cmd/a2aserver via log.Context/log.WithFormat/log.WithDebug).
	ClueLogger struct{}

	// ClueMetrics records the five counters/histograms MetricRequestCount,
	// MetricErrorCount, MetricRequestDuration, MetricStreamEvents, and
	// MetricTaskCreated (and any caller-chosen name) against an OTEL meter,
	// caching one instrument per name so a hot path like per-event metric
	// recording doesn't re-register an instrument on every call.
	ClueMetrics struct {
		meter metric.Meter

		mu         sync.Mutex
		counters   map[string]metric.Float64Counter
		histograms map[string]metric.Float64Histogram
		gauges     map[string]metric.Float64Gauge
	}

	// ClueTracer starts and retrieves spans against an OTEL tracer.
	ClueTracer struct {
		tracer trace.Tracer
	}

	clueSpan struct {
		span trace.Span
	}
)

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log.
func NewClueLogger() Logger {
	return ClueLogger{}
}

// NewClueMetrics constructs a Metrics recorder against the global
// MeterProvider; configure one (via clue.ConfigureOpenTelemetry or
// otel.SetMeterProvider) before the orchestrator starts recording.
func NewClueMetrics() Metrics {
	return &ClueMetrics{
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// NewClueTracer constructs a Tracer against the global TracerProvider;
// configure one the same way as NewClueMetrics' MeterProvider.
func NewClueTracer() Tracer {
	return &ClueTracer{tracer: otel.Tracer(instrumentationName)}
}

// Debug emits a debug-level log message with structured key-value pairs.
func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

// Info emits an info-level log message with structured key-value pairs.
func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}
	log.Warn(ctx, append(fielders, kvSliceToClue(keyvals)...)...)
}

// Error emits an error-level log message with structured key-value pairs.
func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

// counter returns the cached Float64Counter for name, creating it on first use.
func (m *ClueMetrics) counter(name string) metric.Float64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil
	}
	m.counters[name] = c
	return c
}

// histogram returns the cached Float64Histogram for name, creating it on first use.
func (m *ClueMetrics) histogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h
	}
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return nil
	}
	m.histograms[name] = h
	return h
}

// gauge returns the cached Float64Gauge for name, creating it on first use.
func (m *ClueMetrics) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g, err := m.meter.Float64Gauge(name)
	if err != nil {
		return nil
	}
	m.gauges[name] = g
	return g
}

// IncCounter increments the named counter, e.g. MetricRequestCount on every
// dispatched call or MetricErrorCount on every taxonomy-mapped failure.
func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	if c := m.counter(name); c != nil {
		c.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
	}
}

// RecordTimer records a duration against the named histogram, e.g.
// MetricRequestDuration for a completed dispatch.
func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	if h := m.histogram(name); h != nil {
		h.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
	}
}

// RecordGauge records a point-in-time value against a synchronous OTEL
// gauge instrument, e.g. the size of a handler's in-flight queue.
func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	if g := m.gauge(name); g != nil {
		g.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
	}
}

// Start begins a new span named name and returns the context carrying it.
func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &clueSpan{span: span}
}

// Span returns the span already active on ctx, if any.
func (t *ClueTracer) Span(ctx context.Context) Span {
	return &clueSpan{span: trace.SpanFromContext(ctx)}
}

func (s *clueSpan) End(opts ...trace.SpanEndOption) {
	s.span.End(opts...)
}

func (s *clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvSliceToAttrs(attrs)...))
}

func (s *clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// kvSliceToClue converts an alternating (key, value, ...) slice into Clue's
// log.Fielder slice. Non-string keys are dropped; a trailing unpaired key
// gets a nil value.
func kvSliceToClue(keyvals []any) []log.Fielder {
	var fielders []log.Fielder
	for i := 0; i < len(keyvals); i += 2 {
		keyStr, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		fielders = append(fielders, log.KV{K: keyStr, V: v})
	}
	return fielders
}

// tagsToAttrs converts an alternating (key, value, ...) string slice into
// OTEL metric-dimension attributes. A trailing unpaired key gets "".
func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(tags[i], v))
	}
	return attrs
}

// kvSliceToAttrs converts an alternating (key, value, ...) slice into OTEL
// span-event attributes, type-switching value to the closest attribute kind.
func kvSliceToAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(keyvals); i += 2 {
		keyStr, _ := keyvals[i].(string)
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(keyStr, val))
		case int:
			attrs = append(attrs, attribute.Int(keyStr, val))
		case int64:
			attrs = append(attrs, attribute.Int64(keyStr, val))
		case float64:
			attrs = append(attrs, attribute.Float64(keyStr, val))
		case bool:
			attrs = append(attrs, attribute.Bool(keyStr, val))
		default:
			attrs = append(attrs, attribute.String(keyStr, ""))
		}
	}
	return attrs
}
