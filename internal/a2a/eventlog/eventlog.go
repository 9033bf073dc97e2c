// Package eventlog implements the durable, ordered, per-task append log of
// types.StreamEvent values together with the inline projection fold that
// maintains the current types.AgentTask for O(1) lookup (spec.md §4.1).
//
// Store is the only interface the orchestrator depends on; the in-memory
// implementation in this package is the reference, and redisstore/mongostore
// provide conforming alternatives over the same contract.
package eventlog

import (
	"context"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// ListFilter narrows listTasks (spec.md §4.1 "Listing semantics").
type ListFilter struct {
	ContextID            string
	State                types.TaskState
	StatusTimestampAfter  int64 // unix nanos, 0 means unset
}

// Page is a request for one page of listTasks, plus the returned page shape.
type Page struct {
	PageSize  int
	PageToken string
	// HistoryLength, when non-nil, trims each returned task's history to its
	// last N messages (0 drops history entirely). Nil leaves history
	// untouched (spec.md §4.1 "Listing semantics").
	HistoryLength *int
	// IncludeArtifacts, when false (the default), strips artifacts from
	// returned pages.
	IncludeArtifacts bool
}

// ListResult is the page returned by listTasks.
type ListResult struct {
	Tasks         []*types.AgentTask
	TotalSize     int
	NextPageToken string
	PageSize      int
}

// Store is the append-only per-task event log with its inline projection.
// Implementations must serialize the (version-assignment, append,
// projection-update) critical section per task (spec.md §4.1 "Concurrency
// discipline"); this package's in-memory Store does so with a per-task
// mutex, and notifies the pubsub.Hub for the task outside that mutex.
type Store interface {
	// Append stores event as the next entry for taskID and returns its
	// assigned version. When expectedVersion is non-nil and does not equal
	// the task's current length, Append fails with a KindInvalidRequest
	// *errors.Error (optimistic concurrency) and does not append.
	Append(ctx context.Context, taskID string, event types.StreamEvent, expectedVersion *int64) (int64, error)

	// Read returns the events stored for taskID at or after fromVersion, in
	// version order. An unknown taskID returns an empty, non-nil slice.
	Read(ctx context.Context, taskID string, fromVersion int64) ([]types.EventEnvelope, error)

	// Exists reports whether any event has been appended for taskID.
	Exists(ctx context.Context, taskID string) (bool, error)

	// LatestVersion returns the version of the most recently appended event
	// for taskID, or -1 if the task has no events.
	LatestVersion(ctx context.Context, taskID string) (int64, error)

	// GetTask returns a deep clone of the current projection for taskID, or
	// nil if the task has no events. Mutating the result never affects
	// stored state.
	GetTask(ctx context.Context, taskID string) (*types.AgentTask, error)

	// GetTaskWithVersion is GetTask plus the version it was read at, captured
	// atomically.
	GetTaskWithVersion(ctx context.Context, taskID string) (*types.AgentTask, int64, error)

	// ListTasks returns a page of projections matching filter, sorted
	// descending by status timestamp (tasks without one sort last).
	ListTasks(ctx context.Context, filter ListFilter, page Page) (ListResult, error)
}

// Notifier is implemented by the pub/sub hub and invoked by Store
// implementations after every successful append, outside the per-task
// append mutex, so that a slow or blocked subscriber can never stall a
// writer (spec.md §4.2 "Notification rule").
type Notifier interface {
	Notify(taskID string, envelope types.EventEnvelope)
}

// Apply is the projection fold described by spec.md §4.1's event table. It
// is a pure function: given a state (possibly nil, meaning "no task yet")
// and an event, it returns the new state. Store implementations call Apply
// once per appended event while holding the per-task mutex; tests call it
// directly to verify "replay equals inline projection" (spec.md §8).
func Apply(state *types.AgentTask, event types.StreamEvent) *types.AgentTask {
	switch e := event.(type) {
	case types.TaskEvent:
		t := e.Task.Clone()
		return t

	case types.MessageEvent:
		if state == nil {
			return nil
		}
		cp := state.Clone()
		cp.History = append(cp.History, e.Message.Clone())
		return cp

	case types.StatusUpdateEvent:
		if state == nil {
			return nil
		}
		cp := state.Clone()
		if cp.Status.Message != nil {
			cp.History = append(cp.History, *cp.Status.Message)
		}
		cp.Status = e.Status.Clone()
		return cp

	case types.ArtifactUpdateEvent:
		if state == nil {
			return nil
		}
		cp := state.Clone()
		cp.Artifacts = applyArtifactUpdate(cp.Artifacts, e)
		return cp

	default:
		return state
	}
}

// applyArtifactUpdate centralizes the artifact merge rules so every Store
// implementation (in-memory, Redis, Mongo) shares identical semantics, per
// spec.md §9's "Store variability" design note: "the orchestrator's
// artifact/history semantics are centralized in a helper... shared by all
// store implementations."
func applyArtifactUpdate(artifacts []types.Artifact, e types.ArtifactUpdateEvent) []types.Artifact {
	idx := -1
	for i, a := range artifacts {
		if a.ArtifactID == e.Artifact.ArtifactID {
			idx = i
			break
		}
	}

	if !e.Append {
		incoming := e.Artifact.Clone()
		if idx >= 0 {
			out := append([]types.Artifact(nil), artifacts...)
			out[idx] = incoming
			return out
		}
		return append(append([]types.Artifact(nil), artifacts...), incoming)
	}

	if idx < 0 {
		return append(append([]types.Artifact(nil), artifacts...), e.Artifact.Clone())
	}

	out := append([]types.Artifact(nil), artifacts...)
	existing := out[idx]
	merged := existing.Clone()
	merged.Parts = append(merged.Parts, cloneAppendParts(e.Artifact.Parts)...)
	if e.Artifact.Name != "" {
		merged.Name = e.Artifact.Name
	}
	if e.Artifact.Description != "" {
		merged.Description = e.Artifact.Description
	}
	merged.Metadata = mergeMetadata(merged.Metadata, e.Artifact.Metadata)
	merged.Extensions = unionExtensions(merged.Extensions, e.Artifact.Extensions)
	out[idx] = merged
	return out
}

func cloneAppendParts(parts []types.Part) []types.Part {
	out := make([]types.Part, len(parts))
	for i, p := range parts {
		a := types.Artifact{Parts: []types.Part{p}}
		out[i] = a.Clone().Parts[0]
	}
	return out
}

func mergeMetadata(base, incoming map[string]any) map[string]any {
	if len(incoming) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

func unionExtensions(base, incoming []string) []string {
	if len(incoming) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base))
	out := append([]string(nil), base...)
	for _, e := range base {
		seen[e] = true
	}
	for _, e := range incoming {
		if !seen[e] {
			out = append(out, e)
			seen[e] = true
		}
	}
	return out
}

// TrimHistory returns a task whose History is truncated to its last n
// messages, sharing no backing array with the caller's copy. n <= 0 drops
// history entirely; n >= len(History) is a no-op. Callers always pass an
// already-owned clone (getTask/listTasks results), so mutating in place is
// safe.
func TrimHistory(t *types.AgentTask, n int) *types.AgentTask {
	if t == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n >= len(t.History) {
		return t
	}
	t.History = append([]types.Message(nil), t.History[len(t.History)-n:]...)
	return t
}

// StripArtifacts clears a task's Artifacts slice in place and returns it.
func StripArtifacts(t *types.AgentTask) *types.AgentTask {
	if t == nil {
		return nil
	}
	t.Artifacts = nil
	return t
}

// ErrVersionConflict is returned (wrapped in an *errors.Error of
// KindInvalidRequest) when an Append's expectedVersion does not match the
// task's current length.
func ErrVersionConflict(taskID string, expected, actual int64) error {
	return errors.Newf(errors.KindInvalidRequest, "task %q: expected version %d, have %d", taskID, expected, actual)
}
