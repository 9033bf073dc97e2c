package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// startRedisContainer spins up a disposable redis:7 container, same
// docker-unavailable-skips-rather-than-fails shape as
// mongostore's startMongoContainer (both grounded on the teacher's
// registry/store/mongo/mongo_test.go setupMongoDB).
func startRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker not available, skipping redisstore integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(pctx).Err())
	return client
}

func newTestRedisStore(t *testing.T, client *redis.Client) *Store {
	t.Helper()
	prefix := fmt.Sprintf("a2a_test_%d", time.Now().UnixNano())
	return New(client, nil, WithPrefix(prefix))
}

// TestRedisStoreAppendEnforcesExpectedVersion exercises the WATCH/MULTI
// transaction itself, which the pure unit tests in redisstore_test.go
// cannot: a stale expectedVersion must be rejected as a conflict rather than
// silently overwriting the log.
func TestRedisStoreAppendEnforcesExpectedVersion(t *testing.T) {
	client := startRedisContainer(t)
	st := newTestRedisStore(t, client)
	ctx := context.Background()

	event := types.NewStatusUpdateEvent("task-1", "ctx-1", types.TaskStatus{State: types.TaskStateWorking})

	v, err := st.Append(ctx, "task-1", event, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), v)

	var stale int64
	_, err = st.Append(ctx, "task-1", event, &stale)
	require.Error(t, err, "replaying version 0 against a log already at version 1 must conflict")

	v, err = st.Append(ctx, "task-1", event, &v)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestRedisStorePersistenceRoundTrip(t *testing.T) {
	client := startRedisContainer(t)
	prefix := fmt.Sprintf("a2a_test_%d", time.Now().UnixNano())
	ctx := context.Background()

	store1 := New(client, nil, WithPrefix(prefix))
	created := types.NewTaskEvent(types.AgentTask{
		ID:        "task-2",
		ContextID: "ctx-2",
		Status:    types.TaskStatus{State: types.TaskStateCompleted},
	})
	_, err := store1.Append(ctx, "task-2", created, nil)
	require.NoError(t, err)

	store2 := New(client, nil, WithPrefix(prefix))
	task, version, err := store2.GetTaskWithVersion(ctx, "task-2")
	require.NoError(t, err)
	require.Equal(t, int64(0), version)
	require.Equal(t, types.TaskStateCompleted, task.Status.State)

	events, err := store2.Read(ctx, "task-2", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRedisStoreListTasksFiltersAndPaginates(t *testing.T) {
	client := startRedisContainer(t)
	st := newTestRedisStore(t, client)
	ctx := context.Background()

	for i, state := range []types.TaskState{types.TaskStateWorking, types.TaskStateCompleted, types.TaskStateFailed} {
		taskID := fmt.Sprintf("task-%d", i)
		_, err := st.Append(ctx, taskID, types.NewTaskEvent(types.AgentTask{ID: taskID, ContextID: "ctx", Status: types.TaskStatus{State: state}}), nil)
		require.NoError(t, err)
	}

	result, err := st.ListTasks(ctx, eventlog.ListFilter{State: types.TaskStateCompleted}, eventlog.Page{})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	require.Equal(t, types.TaskStateCompleted, result.Tasks[0].Status.State)

	page, err := st.ListTasks(ctx, eventlog.ListFilter{}, eventlog.Page{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 2)
	require.NotEmpty(t, page.NextPageToken)
	require.Equal(t, 3, page.TotalSize)
}
