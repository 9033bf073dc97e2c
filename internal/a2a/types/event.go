package types

// StreamEvent is the tagged union flowing through the event log and the
// subscriber fan-out. Every concrete variant embeds Base, which carries the
// shared Kind/TaskID/ContextID accessors; EventLog and Hub only ever depend
// on the StreamEvent interface, never on the concrete types.
type StreamEvent interface {
	// Kind returns the wire discriminator for this event.
	Kind() EventKind
	// TaskID returns the task partition this event belongs to.
	TaskID() string
	// ContextID returns the context the task belongs to.
	ContextID() string
	// Final reports whether this event carries or follows a terminal task
	// state. The event log closes subscriber queues after delivering one.
	Final() bool
}

// EventKind is the wire discriminator named "kind" in spec.md §6.
type EventKind string

const (
	EventKindTask           EventKind = "task"
	EventKindMessage        EventKind = "message"
	EventKindStatusUpdate   EventKind = "status-update"
	EventKindArtifactUpdate EventKind = "artifact-update"
)

// Base holds the fields every StreamEvent variant shares. Field names are
// abbreviated because consumers use the interface accessors or type-assert
// to the concrete variant; Base fields are rarely touched directly.
type Base struct {
	k EventKind
	t string
	c string
	f bool
}

// NewBase constructs a Base with the given kind, task/context id, and
// finality flag.
func NewBase(k EventKind, taskID, contextID string, final bool) Base {
	return Base{k: k, t: taskID, c: contextID, f: final}
}

func (b Base) Kind() EventKind      { return b.k }
func (b Base) TaskID() string       { return b.t }
func (b Base) ContextID() string    { return b.c }
func (b Base) Final() bool          { return b.f }

type (
	// TaskEvent carries a full AgentTask snapshot. The projection fold
	// (eventlog.Apply) replaces the entire state with Task when one arrives;
	// the orchestrator emits it as the very first persisted event for a new
	// task and as the mandatory first yield of SubscribeToTask.
	TaskEvent struct {
		Base
		Task AgentTask
	}

	// MessageEvent carries a Message appended to task history.
	MessageEvent struct {
		Base
		Message Message
	}

	// StatusUpdateEvent carries a TaskStatus transition.
	StatusUpdateEvent struct {
		Base
		Status TaskStatus
	}

	// ArtifactUpdateEvent carries an artifact delta. Append controls whether
	// the projection fold concatenates (Append=true) or upserts wholesale
	// (Append=false, the default "replace" semantics). LastChunk is a hint
	// from the handler that no further updates to this artifact id will
	// arrive; the projection does not itself enforce sealing (spec.md §9
	// Open Questions).
	ArtifactUpdateEvent struct {
		Base
		Artifact  Artifact
		Append    bool
		LastChunk bool
	}
)

// NewTaskEvent constructs a TaskEvent. A Task event is never terminal by
// itself; finality is carried by the status embedded in task.Status.
func NewTaskEvent(task AgentTask) TaskEvent {
	return TaskEvent{
		Base: NewBase(EventKindTask, task.ID, task.ContextID, task.Status.State.IsTerminal()),
		Task: task,
	}
}

// NewMessageEvent constructs a MessageEvent.
func NewMessageEvent(taskID, contextID string, msg Message) MessageEvent {
	return MessageEvent{
		Base:    NewBase(EventKindMessage, taskID, contextID, false),
		Message: msg,
	}
}

// NewStatusUpdateEvent constructs a StatusUpdateEvent; Final is derived from
// status.State.
func NewStatusUpdateEvent(taskID, contextID string, status TaskStatus) StatusUpdateEvent {
	return StatusUpdateEvent{
		Base:   NewBase(EventKindStatusUpdate, taskID, contextID, status.State.IsTerminal()),
		Status: status,
	}
}

// NewArtifactUpdateEvent constructs an ArtifactUpdateEvent.
func NewArtifactUpdateEvent(taskID, contextID string, artifact Artifact, appendDelta, lastChunk bool) ArtifactUpdateEvent {
	return ArtifactUpdateEvent{
		Base:      NewBase(EventKindArtifactUpdate, taskID, contextID, false),
		Artifact:  artifact,
		Append:    appendDelta,
		LastChunk: lastChunk,
	}
}

// EventEnvelope pairs a StreamEvent with its 0-based, contiguous, per-task
// monotonic version (spec.md §3 invariant 1).
type EventEnvelope struct {
	Version int64
	Event   StreamEvent
}
