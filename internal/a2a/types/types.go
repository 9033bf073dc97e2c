// Package types defines the A2A wire and domain model: polymorphic message
// content, tasks, artifacts, and the tagged-union stream events that flow
// between the orchestrator, the event log, and subscribers.
//
// Every type in this package is a plain value or a small interface; nothing
// here performs I/O. Event construction and the deep-clone helpers used by
// the event log's projection live alongside their types so that ownership of
// "how to copy this safely" stays with the type that defines the shape.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies the originator of a Message. The wire encoding is the
// SCREAMING_SNAKE string literal, never the Go identifier.
type Role string

const (
	// RoleUnspecified is the zero value; well-formed messages never carry it.
	RoleUnspecified Role = "ROLE_UNSPECIFIED"
	// RoleUser identifies a message sent by the calling client.
	RoleUser Role = "ROLE_USER"
	// RoleAgent identifies a message produced by agent handler logic.
	RoleAgent Role = "ROLE_AGENT"
)

// TaskState is the task status-machine state. The four states after
// InputRequired/AuthRequired (Completed, Failed, Canceled, Rejected) are
// terminal; see IsTerminal.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "TASK_STATE_SUBMITTED"
	TaskStateWorking       TaskState = "TASK_STATE_WORKING"
	TaskStateInputRequired TaskState = "TASK_STATE_INPUT_REQUIRED"
	TaskStateAuthRequired  TaskState = "TASK_STATE_AUTH_REQUIRED"
	TaskStateCompleted     TaskState = "TASK_STATE_COMPLETED"
	TaskStateFailed        TaskState = "TASK_STATE_FAILED"
	TaskStateCanceled      TaskState = "TASK_STATE_CANCELED"
	TaskStateRejected      TaskState = "TASK_STATE_REJECTED"
)

// IsTerminal reports whether the state is one of the four canonical result
// states. InputRequired and AuthRequired are pauses, not terminals.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

// NewID mints a collision-resistant random identifier suitable for task,
// context, message, and artifact ids.
func NewID() string {
	return uuid.NewString()
}

type (
	// Part is a polymorphic content unit carried by Message and Artifact. Exactly
	// one of Text, File, or Data is populated per variant; Kind discriminates.
	// Metadata carries caller- or handler-provided side information.
	Part struct {
		Kind     PartKind       `json:"kind"`
		Text     string         `json:"text,omitempty"`
		File     *FileContent   `json:"file,omitempty"`
		Data     json.RawMessage `json:"data,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// PartKind discriminates the Part variants.
	PartKind string

	// FileContent carries either inline bytes (base64 in the wire form) or a
	// URI, never both, never neither. Callers construct it via NewFileBytes or
	// NewFileURI so the invariant can't be violated in-process; wire decoding
	// validates it explicitly (see the protocol package).
	FileContent struct {
		Name     string `json:"name,omitempty"`
		MIMEType string `json:"mimeType,omitempty"`
		Bytes    []byte `json:"bytes,omitempty"`
		URI      string `json:"uri,omitempty"`
	}

	// Message is an immutable conversational turn: a user request or an agent
	// reply. Once appended to the event log it is never mutated; projections
	// only ever append or supersede whole Message values.
	Message struct {
		MessageID        string         `json:"messageId"`
		Role             Role           `json:"role"`
		Parts            []Part         `json:"parts"`
		TaskID           string         `json:"taskId,omitempty"`
		ContextID        string         `json:"contextId,omitempty"`
		ReferenceTaskIDs []string       `json:"referenceTaskIds,omitempty"`
		Extensions       []string       `json:"extensions,omitempty"`
		Metadata         map[string]any `json:"metadata,omitempty"`
	}

	// Artifact is a structured agent output, mutable under the append semantics
	// in eventlog's projection fold (§4.1's apply table). Identity is ArtifactID;
	// all other fields may change across appends.
	Artifact struct {
		ArtifactID  string         `json:"artifactId"`
		Name        string         `json:"name,omitempty"`
		Description string         `json:"description,omitempty"`
		Parts       []Part         `json:"parts"`
		Metadata    map[string]any `json:"metadata,omitempty"`
		Extensions  []string       `json:"extensions,omitempty"`
	}

	// TaskStatus is the current lifecycle snapshot of a task.
	TaskStatus struct {
		State     TaskState `json:"state"`
		Timestamp time.Time `json:"timestamp"`
		Message   *Message  `json:"message,omitempty"`
	}

	// AgentTask is the projected aggregate: the fold of a task's event log up
	// to some version. Values handed to callers (getTask, listTasks) are
	// always defensive copies; see Clone.
	AgentTask struct {
		ID        string         `json:"id"`
		ContextID string         `json:"contextId"`
		Status    TaskStatus     `json:"status"`
		History   []Message      `json:"history"`
		Artifacts []Artifact     `json:"artifacts"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}

	// AgentContext is the per-request value handed to handler workers. It is
	// built once by the orchestrator during context resolution and never
	// mutated afterward.
	AgentContext struct {
		Message   Message
		Task      *AgentTask
		TaskID    string
		ContextID string
		Streaming bool
		Metadata  map[string]any
	}
)

const (
	PartKindText           PartKind = "text"
	PartKindFileBytes      PartKind = "file_bytes"
	PartKindFileURI        PartKind = "file_uri"
	PartKindStructuredData PartKind = "data"
)

// NewTextPart constructs a text Part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// NewFileBytesPart constructs a file Part carrying inline bytes.
func NewFileBytesPart(name, mimeType string, data []byte) Part {
	return Part{Kind: PartKindFileBytes, File: &FileContent{Name: name, MIMEType: mimeType, Bytes: data}}
}

// NewFileURIPart constructs a file Part referencing a URI.
func NewFileURIPart(name, mimeType, uri string) Part {
	return Part{Kind: PartKindFileURI, File: &FileContent{Name: name, MIMEType: mimeType, URI: uri}}
}

// NewDataPart constructs a structured-data Part from an arbitrary JSON-
// serializable value.
func NewDataPart(v any) (Part, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Part{}, err
	}
	return Part{Kind: PartKindStructuredData, Data: raw}, nil
}

// IsContinuation reports whether the context resolved an existing task
// rather than minting a fresh one.
func (c AgentContext) IsContinuation() bool {
	return c.Task != nil
}

// clonePart returns an owned copy of p with no shared mutable substructure.
func clonePart(p Part) Part {
	cp := p
	if p.File != nil {
		f := *p.File
		if p.File.Bytes != nil {
			f.Bytes = append([]byte(nil), p.File.Bytes...)
		}
		cp.File = &f
	}
	if p.Data != nil {
		cp.Data = append(json.RawMessage(nil), p.Data...)
	}
	cp.Metadata = cloneMetadata(p.Metadata)
	return cp
}

func cloneParts(ps []Part) []Part {
	if ps == nil {
		return nil
	}
	out := make([]Part, len(ps))
	for i, p := range ps {
		out[i] = clonePart(p)
	}
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a deep, independent copy of the message.
func (m Message) Clone() Message {
	cp := m
	cp.Parts = cloneParts(m.Parts)
	cp.ReferenceTaskIDs = append([]string(nil), m.ReferenceTaskIDs...)
	cp.Extensions = append([]string(nil), m.Extensions...)
	cp.Metadata = cloneMetadata(m.Metadata)
	return cp
}

// Clone returns a deep, independent copy of the artifact.
func (a Artifact) Clone() Artifact {
	cp := a
	cp.Parts = cloneParts(a.Parts)
	cp.Metadata = cloneMetadata(a.Metadata)
	cp.Extensions = append([]string(nil), a.Extensions...)
	return cp
}

// Clone returns a deep, independent copy of the status, including its
// optional message.
func (s TaskStatus) Clone() TaskStatus {
	cp := s
	if s.Message != nil {
		m := s.Message.Clone()
		cp.Message = &m
	}
	return cp
}

// Clone returns a deep, independent copy of the task. Mutating the result
// never affects the projection stored by the event log — this is the
// "defensive copy" invariant required of getTask/listTasks (spec.md §4.1).
func (t *AgentTask) Clone() *AgentTask {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Status = t.Status.Clone()
	cp.History = make([]Message, len(t.History))
	for i, m := range t.History {
		cp.History[i] = m.Clone()
	}
	cp.Artifacts = make([]Artifact, len(t.Artifacts))
	for i, a := range t.Artifacts {
		cp.Artifacts[i] = a.Clone()
	}
	cp.Metadata = cloneMetadata(t.Metadata)
	return &cp
}
