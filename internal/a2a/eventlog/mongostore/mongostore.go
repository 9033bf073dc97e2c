// Package mongostore implements eventlog.Store over MongoDB, grounded on
// goadesign-goa-ai's features/run/mongo client: one collection holding every
// event document with a unique compound index on (task_id, version) so a
// concurrent writer's duplicate-version insert fails fast, and a second
// collection caching the current projection per task for O(1) GetTask.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	a2aerrors "github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

const (
	defaultEventsCollection     = "a2a_events"
	defaultProjectionCollection = "a2a_tasks"
	defaultOpTimeout            = 5 * time.Second
)

// Options configures a Store.
type Options struct {
	Client               *mongo.Client
	Database             string
	EventsCollection     string
	ProjectionCollection string
	Timeout              time.Duration
}

// Store is a MongoDB-backed eventlog.Store.
type Store struct {
	events     *mongo.Collection
	tasks      *mongo.Collection
	notifier   eventlog.Notifier
	timeout    time.Duration
}

// eventDoc stores the event payload as JSON text rather than a native BSON
// subdocument: StreamEvent's wire shape is defined by its MarshalJSON/
// UnmarshalJSON pair (types/wire.go), and BSON's struct-tag-driven encoding
// would bypass that, producing a document types.UnmarshalStreamEvent can't
// read back.
type eventDoc struct {
	TaskID  string `bson:"task_id"`
	Version int64  `bson:"version"`
	Kind    string `bson:"kind"`
	Payload string `bson:"payload"`
}

// New constructs a Store, ensuring the unique (task_id, version) index
// exists before returning.
func New(ctx context.Context, opts Options, notifier eventlog.Notifier) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database is required")
	}
	eventsColl := opts.EventsCollection
	if eventsColl == "" {
		eventsColl = defaultEventsCollection
	}
	tasksColl := opts.ProjectionCollection
	if tasksColl == "" {
		tasksColl = defaultProjectionCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	db := opts.Client.Database(opts.Database)
	events := db.Collection(eventsColl)
	tasks := db.Collection(tasksColl)

	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "task_id", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := events.Indexes().CreateOne(ictx, index); err != nil {
		return nil, fmt.Errorf("mongostore: creating index: %w", err)
	}

	return &Store{events: events, tasks: tasks, notifier: notifier, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Append implements eventlog.Store. The optimistic-concurrency check relies
// on the unique (task_id, version) index: we compute the next version from a
// count, then attempt the insert; a duplicate-key error means a concurrent
// append won the race for that version, which we surface as the same
// conflict the caller's expectedVersion check would have produced.
func (s *Store) Append(ctx context.Context, taskID string, event types.StreamEvent, expectedVersion *int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.events.CountDocuments(ctx, bson.M{"task_id": taskID})
	if err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "counting events", err)
	}
	if expectedVersion != nil && *expectedVersion != current {
		return 0, eventlog.ErrVersionConflict(taskID, *expectedVersion, current)
	}
	version := current

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "marshaling event", err)
	}
	doc := eventDoc{TaskID: taskID, Version: version, Kind: string(event.Kind()), Payload: string(payload)}
	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, eventlog.ErrVersionConflict(taskID, version, version+1)
		}
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "inserting event", err)
	}

	proj, err := s.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	proj = eventlog.Apply(proj, event)
	if _, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": taskID}, projectionDoc(taskID, proj), options.Replace().SetUpsert(true)); err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "updating projection cache", err)
	}

	envelope := types.EventEnvelope{Version: version, Event: event}
	if s.notifier != nil {
		s.notifier.Notify(taskID, envelope)
	}
	return version, nil
}

type taskProjectionDoc struct {
	ID   string           `bson:"_id"`
	Task *types.AgentTask `bson:"task,omitempty"`
}

func projectionDoc(taskID string, task *types.AgentTask) taskProjectionDoc {
	return taskProjectionDoc{ID: taskID, Task: task}
}

// Read implements eventlog.Store.
func (s *Store) Read(ctx context.Context, taskID string, fromVersion int64) ([]types.EventEnvelope, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if fromVersion < 0 {
		fromVersion = 0
	}
	filter := bson.M{"task_id": taskID, "version": bson.M{"$gte": fromVersion}}
	cur, err := s.events.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, a2aerrors.Wrap(a2aerrors.KindInternalError, "querying events", err)
	}
	defer cur.Close(ctx)

	out := []types.EventEnvelope{}
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, a2aerrors.Wrap(a2aerrors.KindInternalError, "decoding event document", err)
		}
		event, err := types.UnmarshalStreamEvent([]byte(doc.Payload))
		if err != nil {
			return nil, err
		}
		out = append(out, types.EventEnvelope{Version: doc.Version, Event: event})
	}
	if err := cur.Err(); err != nil {
		return nil, a2aerrors.Wrap(a2aerrors.KindInternalError, "iterating events", err)
	}
	return out, nil
}

// Exists implements eventlog.Store.
func (s *Store) Exists(ctx context.Context, taskID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.events.CountDocuments(ctx, bson.M{"task_id": taskID}, options.Count().SetLimit(1))
	if err != nil {
		return false, a2aerrors.Wrap(a2aerrors.KindInternalError, "counting events", err)
	}
	return n > 0, nil
}

// LatestVersion implements eventlog.Store.
func (s *Store) LatestVersion(ctx context.Context, taskID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.events.CountDocuments(ctx, bson.M{"task_id": taskID})
	if err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "counting events", err)
	}
	return n - 1, nil
}

// GetTask implements eventlog.Store.
func (s *Store) GetTask(ctx context.Context, taskID string) (*types.AgentTask, error) {
	task, _, err := s.GetTaskWithVersion(ctx, taskID)
	return task, err
}

// GetTaskWithVersion implements eventlog.Store.
func (s *Store) GetTaskWithVersion(ctx context.Context, taskID string) (*types.AgentTask, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc taskProjectionDoc
	err := s.tasks.FindOne(ctx, bson.M{"_id": taskID}).Decode(&doc)
	version, verr := s.LatestVersion(ctx, taskID)
	if verr != nil {
		return nil, 0, verr
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, version, nil
	}
	if err != nil {
		return nil, 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "loading projection", err)
	}
	return doc.Task, version, nil
}

// ListTasks implements eventlog.Store.
func (s *Store) ListTasks(ctx context.Context, filter eventlog.ListFilter, page eventlog.Page) (eventlog.ListResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	offset := 0
	if page.PageToken != "" {
		n, err := parseOffsetToken(page.PageToken)
		if err != nil {
			return eventlog.ListResult{}, a2aerrors.Wrap(a2aerrors.KindInvalidParams, "invalid pageToken", err)
		}
		offset = n
	}
	size := page.PageSize
	if size <= 0 {
		size = 50
	}

	cur, err := s.tasks.Find(ctx, bson.M{})
	if err != nil {
		return eventlog.ListResult{}, a2aerrors.Wrap(a2aerrors.KindInternalError, "querying projections", err)
	}
	defer cur.Close(ctx)

	all := make([]*types.AgentTask, 0)
	for cur.Next(ctx) {
		var doc taskProjectionDoc
		if err := cur.Decode(&doc); err != nil {
			return eventlog.ListResult{}, a2aerrors.Wrap(a2aerrors.KindInternalError, "decoding projection", err)
		}
		if doc.Task == nil {
			continue
		}
		if matchesFilter(doc.Task, filter) {
			all = append(all, doc.Task)
		}
	}
	if err := cur.Err(); err != nil {
		return eventlog.ListResult{}, a2aerrors.Wrap(a2aerrors.KindInternalError, "iterating projections", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		ti, tj := all[i].Status.Timestamp, all[j].Status.Timestamp
		if ti.IsZero() && tj.IsZero() {
			return false
		}
		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}
		return ti.After(tj)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + size
	if end > total {
		end = total
	}
	pageTasks := all[offset:end]
	for _, t := range pageTasks {
		if page.HistoryLength != nil {
			eventlog.TrimHistory(t, *page.HistoryLength)
		}
		if !page.IncludeArtifacts {
			eventlog.StripArtifacts(t)
		}
	}

	result := eventlog.ListResult{Tasks: pageTasks, TotalSize: total, PageSize: size}
	if end < total {
		result.NextPageToken = formatOffsetToken(end)
	}
	return result, nil
}

func matchesFilter(t *types.AgentTask, f eventlog.ListFilter) bool {
	if f.ContextID != "" && t.ContextID != f.ContextID {
		return false
	}
	if f.State != "" && t.Status.State != f.State {
		return false
	}
	if f.StatusTimestampAfter != 0 && t.Status.Timestamp.UnixNano() <= f.StatusTimestampAfter {
		return false
	}
	return true
}

func parseOffsetToken(token string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(token, "%d", &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative page token %q", token)
	}
	return n, nil
}

func formatOffsetToken(n int) string {
	return fmt.Sprintf("%d", n)
}

var _ eventlog.Store = (*Store)(nil)
