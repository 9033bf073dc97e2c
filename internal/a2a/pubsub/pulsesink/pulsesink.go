// Package pulsesink republishes task event envelopes onto a goa.design/pulse
// stream backed by Redis, per SPEC_FULL.md §4.7. It is an additive transport:
// the in-process Hub remains the only thing subscribe() calls actually read
// from, and a Sink only gives external consumers (another process, a
// dashboard, an audit drain) a durable, replayable copy of the same events.
package pulsesink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// Envelope is the wire format written to the Pulse stream for one task event.
type Envelope struct {
	TaskID    string    `json:"task_id"`
	Version   int64     `json:"version"`
	Kind      string    `json:"kind"`
	Final     bool      `json:"final"`
	Timestamp time.Time `json:"timestamp"`
	Event     any       `json:"event"`
}

// Options configures a Sink.
type Options struct {
	// Redis backs the Pulse stream. Required.
	Redis *redis.Client
	// StreamName derives the Pulse stream name for a task. Defaults to
	// "a2a-task/<taskID>".
	StreamName func(taskID string) string
	// StreamMaxLen bounds entries retained per task stream. Zero uses Pulse
	// defaults (unbounded).
	StreamMaxLen int
}

// Sink publishes EventEnvelope values to per-task Pulse streams. It
// implements eventlog.Notifier so it can be composed alongside (or instead
// of) the in-process pubsub.Hub, for example via a fan-out Notifier that
// calls both.
type Sink struct {
	redis      *redis.Client
	streamName func(string) string
	maxLen     int
}

// New constructs a Pulse-backed sink. Redis is required.
func New(opts Options) (*Sink, error) {
	if opts.Redis == nil {
		return nil, errors.New("pulsesink: redis client is required")
	}
	name := opts.StreamName
	if name == nil {
		name = defaultStreamName
	}
	return &Sink{redis: opts.Redis, streamName: name, maxLen: opts.StreamMaxLen}, nil
}

func defaultStreamName(taskID string) string {
	return fmt.Sprintf("a2a-task/%s", taskID)
}

// Notify publishes the envelope to the task's Pulse stream. A publish error
// is discarded without being logged or counted; Notify has no error return
// because it must match
// eventlog.Notifier, whose contract (spec.md §4.2) treats notification as
// best-effort fan-out, not a durability guarantee.
func (s *Sink) Notify(taskID string, envelope types.EventEnvelope) {
	_ = s.publish(context.Background(), taskID, envelope)
}

func (s *Sink) publish(ctx context.Context, taskID string, envelope types.EventEnvelope) error {
	var opts []streamopts.Stream
	if s.maxLen > 0 {
		opts = append(opts, streamopts.WithStreamMaxLen(s.maxLen))
	}
	stream, err := streaming.NewStream(s.streamName(taskID), s.redis, opts...)
	if err != nil {
		return fmt.Errorf("pulsesink: open stream: %w", err)
	}
	env := Envelope{
		TaskID:    taskID,
		Version:   envelope.Version,
		Kind:      string(envelope.Event.Kind()),
		Final:     envelope.Event.Final(),
		Timestamp: time.Now().UTC(),
		Event:     envelope.Event,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("pulsesink: marshal envelope: %w", err)
	}
	if _, err := stream.Add(ctx, env.Kind, payload); err != nil {
		return fmt.Errorf("pulsesink: publish: %w", err)
	}
	return nil
}
