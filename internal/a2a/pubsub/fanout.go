package pubsub

import "github.com/a2a-labs/agent-runtime/internal/a2a/types"

// FanoutNotifier broadcasts an append notification to every wrapped
// notifier, letting a store drive both the in-process Hub and an optional
// external republisher such as pulsesink.Sink from a single Notifier value.
type FanoutNotifier struct {
	targets []Notifier
}

// Notifier matches eventlog.Notifier without importing it, so this package
// stays independent of the store package it is wired alongside.
type Notifier interface {
	Notify(taskID string, envelope types.EventEnvelope)
}

// NewFanoutNotifier returns a Notifier that forwards to all of targets, in
// order, skipping nil entries.
func NewFanoutNotifier(targets ...Notifier) *FanoutNotifier {
	nonNil := make([]Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			nonNil = append(nonNil, t)
		}
	}
	return &FanoutNotifier{targets: nonNil}
}

// Notify implements Notifier.
func (f *FanoutNotifier) Notify(taskID string, envelope types.EventEnvelope) {
	for _, t := range f.targets {
		t.Notify(taskID, envelope)
	}
}
