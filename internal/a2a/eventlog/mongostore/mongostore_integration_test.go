package mongostore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// startMongoContainer spins up a disposable mongo:7 container, grounded on
// the teacher's registry/store/mongo/mongo_test.go setupMongoDB: when Docker
// is unavailable in the sandbox this is running in, the test is skipped
// rather than failed.
func startMongoContainer(t *testing.T) *mongo.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
		Tmpfs:        map[string]string{"/data/db": "rw"},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker not available, skipping mongostore integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(pctx, nil))
	return client
}

func newTestMongoStore(t *testing.T, client *mongo.Client) *Store {
	t.Helper()
	db := fmt.Sprintf("a2a_test_%d", time.Now().UnixNano())
	st, err := New(context.Background(), Options{Client: client, Database: db}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Database(db).Drop(context.Background()) })
	return st
}

// TestMongoStoreAppendEnforcesUniqueVersion exercises what the pure unit
// tests in mongostore_test.go cannot: Append against a live server rejecting
// a stale expectedVersion. The rejection comes from Append's count check
// before the insert; this sequential test does not race two writers, so the
// unique (task_id, version) index is not what rejects it here.
func TestMongoStoreAppendEnforcesUniqueVersion(t *testing.T) {
	client := startMongoContainer(t)
	st := newTestMongoStore(t, client)
	ctx := context.Background()

	event := types.NewStatusUpdateEvent("task-1", "ctx-1", types.TaskStatus{State: types.TaskStateWorking})

	v, err := st.Append(ctx, "task-1", event, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), v)

	var zero int64
	_, err = st.Append(ctx, "task-1", event, &zero)
	require.Error(t, err, "replaying version 0 must be rejected as a conflict")

	v, err = st.Append(ctx, "task-1", event, &v)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

// TestMongoStorePersistenceRoundTrip verifies events and the cached
// projection survive across Store instances backed by the same collections,
// the MongoDB-specific half of Property: store recreation preserves state.
func TestMongoStorePersistenceRoundTrip(t *testing.T) {
	client := startMongoContainer(t)
	db := fmt.Sprintf("a2a_test_%d", time.Now().UnixNano())
	ctx := context.Background()
	t.Cleanup(func() { _ = client.Database(db).Drop(context.Background()) })

	store1, err := New(ctx, Options{Client: client, Database: db}, nil)
	require.NoError(t, err)

	created := types.NewTaskEvent(types.AgentTask{
		ID:        "task-2",
		ContextID: "ctx-2",
		Status:    types.TaskStatus{State: types.TaskStateCompleted},
	})
	_, err = store1.Append(ctx, "task-2", created, nil)
	require.NoError(t, err)

	store2, err := New(ctx, Options{Client: client, Database: db}, nil)
	require.NoError(t, err)

	task, version, err := store2.GetTaskWithVersion(ctx, "task-2")
	require.NoError(t, err)
	require.Equal(t, int64(0), version)
	require.Equal(t, types.TaskStateCompleted, task.Status.State)

	events, err := store2.Read(ctx, "task-2", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMongoStoreListTasksFiltersAndPaginates(t *testing.T) {
	client := startMongoContainer(t)
	st := newTestMongoStore(t, client)
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
