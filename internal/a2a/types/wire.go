package types

import (
	"encoding/json"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
)

// wirePartKind is the three-valued discriminator the wire format actually
// carries; the fourth internal distinction (file-with-bytes vs
// file-with-uri) is structural, read off FileContent's populated field, per
// spec.md §9's "for FileContent on structural presence of bytes vs uri."
type wirePartKind string

const (
	wireKindText wirePartKind = "text"
	wireKindFile wirePartKind = "file"
	wireKindData wirePartKind = "data"
)

type partWire struct {
	Kind     wirePartKind    `json:"kind"`
	Text     string          `json:"text,omitempty"`
	File     *FileContent    `json:"file,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// MarshalJSON renders Part's internal four-way Kind down to the wire's
// three-valued discriminator; FileContent carries the bytes/uri distinction
// structurally.
func (p Part) MarshalJSON() ([]byte, error) {
	w := partWire{Text: p.Text, File: p.File, Data: p.Data, Metadata: p.Metadata}
	switch p.Kind {
	case PartKindText:
		w.Kind = wireKindText
	case PartKindFileBytes, PartKindFileURI:
		w.Kind = wireKindFile
	case PartKindStructuredData:
		w.Kind = wireKindData
	default:
		return nil, errors.Newf(errors.KindInvalidRequest, "part: unknown kind %q", p.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire's three-valued discriminator and, for a file
// part, derives the internal file-with-bytes/file-with-uri distinction from
// which of FileContent's Bytes/URI fields is populated — exactly one must be,
// spec.md §6's FileContent discrimination invariant.
func (p *Part) UnmarshalJSON(data []byte) error {
	var w partWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(errors.KindInvalidRequest, "part: malformed JSON", err)
	}
	p.Text = w.Text
	p.File = w.File
	p.Data = w.Data
	p.Metadata = w.Metadata

	switch w.Kind {
	case wireKindText:
		p.Kind = PartKindText
	case wireKindData:
		p.Kind = PartKindStructuredData
	case wireKindFile:
		if w.File == nil {
			return errors.New(errors.KindInvalidRequest, "part: file kind requires a file object")
		}
		hasBytes := len(w.File.Bytes) > 0
		hasURI := w.File.URI != ""
		if hasBytes == hasURI {
			return errors.New(errors.KindInvalidRequest, "part: file must carry exactly one of bytes or uri")
		}
		if hasBytes {
			p.Kind = PartKindFileBytes
		} else {
			p.Kind = PartKindFileURI
		}
	default:
		return errors.Newf(errors.KindInvalidRequest, "part: unknown or missing kind %q", w.Kind)
	}
	return nil
}

// eventWire is the flattened wire envelope every StreamEvent variant
// marshals to and unmarshals from, discriminated by Kind (spec.md §6).
type eventWire struct {
	Kind      EventKind  `json:"kind"`
	TaskID    string     `json:"taskId"`
	ContextID string     `json:"contextId"`
	Final     bool       `json:"final,omitempty"`
	Task      *AgentTask `json:"task,omitempty"`
	Message   *Message   `json:"message,omitempty"`
	Status    *TaskStatus `json:"status,omitempty"`
	Artifact  *Artifact  `json:"artifact,omitempty"`
	Append    bool       `json:"append,omitempty"`
	LastChunk bool       `json:"lastChunk,omitempty"`
}

// MarshalJSON implements json.Marshaler for TaskEvent.
func (e TaskEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{Kind: e.Kind(), TaskID: e.TaskID(), ContextID: e.ContextID(), Final: e.Final(), Task: &e.Task})
}

// MarshalJSON implements json.Marshaler for MessageEvent.
func (e MessageEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{Kind: e.Kind(), TaskID: e.TaskID(), ContextID: e.ContextID(), Final: e.Final(), Message: &e.Message})
}

// MarshalJSON implements json.Marshaler for StatusUpdateEvent.
func (e StatusUpdateEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{Kind: e.Kind(), TaskID: e.TaskID(), ContextID: e.ContextID(), Final: e.Final(), Status: &e.Status})
}

// MarshalJSON implements json.Marshaler for ArtifactUpdateEvent.
func (e ArtifactUpdateEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		Kind: e.Kind(), TaskID: e.TaskID(), ContextID: e.ContextID(), Final: e.Final(),
		Artifact: &e.Artifact, Append: e.Append, LastChunk: e.LastChunk,
	})
}

// UnmarshalStreamEvent decodes one wire-format StreamEvent, selecting the
// concrete variant by its "kind" discriminator. A missing or unrecognized
// kind fails with KindInvalidRequest (spec.md §6).
func UnmarshalStreamEvent(data []byte) (StreamEvent, error) {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(errors.KindInvalidRequest, "event: malformed JSON", err)
	}
	switch w.Kind {
	case EventKindTask:
		if w.Task == nil {
			return nil, errors.New(errors.KindInvalidRequest, "event: task kind requires a task object")
		}
		return NewTaskEvent(*w.Task), nil
	case EventKindMessage:
		if w.Message == nil {
			return nil, errors.New(errors.KindInvalidRequest, "event: message kind requires a message object")
		}
		return NewMessageEvent(w.TaskID, w.ContextID, *w.Message), nil
	case EventKindStatusUpdate:
		if w.Status == nil {
			return nil, errors.New(errors.KindInvalidRequest, "event: status-update kind requires a status object")
		}
		return NewStatusUpdateEvent(w.TaskID, w.ContextID, *w.Status), nil
	case EventKindArtifactUpdate:
		if w.Artifact == nil {
			return nil, errors.New(errors.KindInvalidRequest, "event: artifact-update kind requires an artifact object")
		}
		return NewArtifactUpdateEvent(w.TaskID, w.ContextID, *w.Artifact, w.Append, w.LastChunk), nil
	default:
		return nil, errors.Newf(errors.KindInvalidRequest, "event: unknown or missing kind %q", w.Kind)
	}
}
