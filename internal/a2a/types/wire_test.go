package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

func TestPart_RoundTrip_Text(t *testing.T) {
	p := types.NewTextPart("hello")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"text","text":"hello"}`, string(data))

	var got types.Part
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, p, got)
}

func TestPart_RoundTrip_FileBytes(t *testing.T) {
	p := types.NewFileBytesPart("report.pdf", "application/pdf", []byte("abc"))
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got types.Part
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, types.PartKindFileBytes, got.Kind)
	require.Equal(t, []byte("abc"), got.File.Bytes)
}

func TestPart_RoundTrip_FileURI(t *testing.T) {
	p := types.NewFileURIPart("report.pdf", "application/pdf", "https://example.com/r.pdf")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got types.Part
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, types.PartKindFileURI, got.Kind)
	require.Equal(t, "https://example.com/r.pdf", got.File.URI)
}

func TestPart_FileContent_BothBytesAndURI_Invalid(t *testing.T) {
	raw := []byte(`{"kind":"file","file":{"bytes":"YWJj","uri":"https://example.com/x"}}`)
	var p types.Part
	err := json.Unmarshal(raw, &p)
	require.Error(t, err)
}

func TestPart_FileContent_NeitherBytesNorURI_Invalid(t *testing.T) {
	raw := []byte(`{"kind":"file","file":{}}`)
	var p types.Part
	err := json.Unmarshal(raw, &p)
	require.Error(t, err)
}

func TestPart_UnknownKind_Invalid(t *testing.T) {
	raw := []byte(`{"kind":"bogus"}`)
	var p types.Part
	err := json.Unmarshal(raw, &p)
	require.Error(t, err)
}

func TestStreamEvent_RoundTrip_Task(t *testing.T) {
	task := types.AgentTask{
		ID:        "t1",
		ContextID: "c1",
		Status:    types.TaskStatus{State: types.TaskStateSubmitted, Timestamp: time.Now().UTC()},
	}
	ev := types.NewTaskEvent(task)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := types.UnmarshalStreamEvent(data)
	require.NoError(t, err)
	te, ok := decoded.(types.TaskEvent)
	require.True(t, ok)
	require.Equal(t, task.ID, te.Task.ID)
	require.Equal(t, types.EventKindTask, te.Kind())
}

func TestStreamEvent_RoundTrip_StatusUpdate(t *testing.T) {
	ev := types.NewStatusUpdateEvent("t1", "c1", types.TaskStatus{State: types.TaskStateCompleted, Timestamp: time.Now().UTC()})
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := types.UnmarshalStreamEvent(data)
	require.NoError(t, err)
	su, ok := decoded.(types.StatusUpdateEvent)
	require.True(t, ok)
	require.True(t, su.Final())
	require.Equal(t, types.TaskStateCompleted, su.Status.State)
}

func TestStreamEvent_UnknownKind_Invalid(t *testing.T) {
	_, err := types.UnmarshalStreamEvent([]byte(`{"kind":"bogus","taskId":"t1","contextId":"c1"}`))
	require.Error(t, err)
}

func TestStreamEvent_MissingKind_Invalid(t *testing.T) {
	_, err := types.UnmarshalStreamEvent([]byte(`{"taskId":"t1","contextId":"c1"}`))
	require.Error(t, err)
}
