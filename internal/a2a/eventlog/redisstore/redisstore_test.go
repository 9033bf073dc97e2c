package redisstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// These tests cover the pure helpers a live Redis connection isn't needed
// for: key naming, envelope (de)serialization, and the filter/pagination
// logic shared with mongostore. The transactional Append path needs a real
// WATCH/MULTI round trip against Redis and is exercised in
// redisstore_integration_test.go against a container, not here.

func TestKeyNaming(t *testing.T) {
	s := &Store{prefix: "a2a"}
	require.Equal(t, "a2a:log:task-1", s.logKey("task-1"))
	require.Equal(t, "a2a:task:task-1", s.taskKey("task-1"))
	require.Equal(t, "a2a:index", s.indexKey())
}

func TestDecodeEnvelopeRoundTrip(t *testing.T) {
	event := types.NewStatusUpdateEvent("task-1", "ctx-1", types.TaskStatus{
		State:     types.TaskStateWorking,
		Timestamp: time.Unix(0, 0).UTC(),
	})
	eventJSON := marshalOrFail(t, event)
	doc := envelopeDoc{Version: 3, Event: eventJSON}
	raw := marshalOrFail(t, doc)

	env, err := decodeEnvelope(string(raw))
	require.NoError(t, err)
	require.Equal(t, int64(3), env.Version)
	su, ok := env.Event.(types.StatusUpdateEvent)
	require.True(t, ok)
	require.Equal(t, types.TaskStateWorking, su.Status.State)
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	_, err := decodeEnvelope("not json")
	require.Error(t, err)
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
	token := formatOffsetToken(42)
	require.Equal(t, "42", token)
	n, err := parseOffsetToken(token)
	require.NoError(t, err)
	require.Equal(t, 42, n)
}

func TestParseOffsetTokenRejectsNegative(t *testing.T) {
	_, err := parseOffsetToken("-1")
	require.Error(t, err)
}

func TestParseOffsetTokenRejectsGarbage(t *testing.T) {
	_, err := parseOffsetToken("not-a-number")
	require.Error(t, err)
}

func marshalOrFail(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
