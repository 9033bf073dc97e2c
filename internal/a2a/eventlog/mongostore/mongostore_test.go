package mongostore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// These tests cover the pure helpers shared with redisstore (matchesFilter,
// offset-token pagination) plus eventDoc's JSON-string payload round trip.
// Append/Find/the unique-index behavior need a live MongoDB and are not
// exercised here; see DESIGN.md's "Known gaps".

func TestEventDocPayloadRoundTrip(t *testing.T) {
	event := types.NewStatusUpdateEvent("task-1", "ctx-1", types.TaskStatus{
		State:     types.TaskStateWorking,
		Timestamp: time.Unix(0, 0).UTC(),
	})
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	doc := eventDoc{TaskID: "task-1", Version: 2, Kind: string(event.Kind()), Payload: string(payload)}
	decoded, err := types.UnmarshalStreamEvent([]byte(doc.Payload))
	require.NoError(t, err)
	su, ok := decoded.(types.StatusUpdateEvent)
	require.True(t, ok)
	require.Equal(t, types.TaskStateWorking, su.Status.State)
}

func TestMatchesFilter(t *testing.T) {
	task := &types.AgentTask{
		ContextID: "ctx-1",
		Status:    types.TaskStatus{State: types.TaskStateCompleted, Timestamp: time.Unix(100, 0)},
	}

	require.True(t, matchesFilter(task, eventlog.ListFilter{}))
	require.True(t, matchesFilter(task, eventlog.ListFilter{ContextID: "ctx-1"}))
	require.False(t, matchesFilter(task, eventlog.ListFilter{ContextID: "ctx-2"}))
	require.True(t, matchesFilter(task, eventlog.ListFilter{State: types.TaskStateCompleted}))
	require.False(t, matchesFilter(task, eventlog.ListFilter{State: types.TaskStateFailed}))
	require.True(t, matchesFilter(task, eventlog.ListFilter{StatusTimestampAfter: 50 * int64(time.Second)}))
	require.False(t, matchesFilter(task, eventlog.ListFilter{StatusTimestampAfter: 200 * int64(time.Second)}))
}

func TestOffsetTokenRoundTrip(t *testing.T) {
	token := formatOffsetToken(7)
	require.Equal(t, "7", token)
	n, err := parseOffsetToken(token)
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestParseOffsetTokenRejectsNegative(t *testing.T) {
	_, err := parseOffsetToken("-3")
	require.Error(t, err)
}

func TestParseOffsetTokenRejectsGarbage(t *testing.T) {
	_, err := parseOffsetToken("nope")
	require.Error(t, err)
}

func TestProjectionDocCarriesTaskID(t *testing.T) {
	task := &types.AgentTask{ID: "task-9"}
	doc := projectionDoc("task-9", task)
	require.Equal(t, "task-9", doc.ID)
	require.Same(t, task, doc.Task)
}
