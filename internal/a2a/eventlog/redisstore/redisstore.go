// Package redisstore implements eventlog.Store over Redis, grounded on
// AltairaLabs-PromptKit's runtime/statestore.RedisStore: RPUSH/LRANGE for the
// ordered event vector, a JSON projection cached under its own key, and
// WATCH/MULTI around Append for the optimistic-concurrency check spec.md
// §4.1's "Concurrency discipline" requires (the in-memory Store gets this for
// free from its per-task mutex; Redis needs an explicit transaction).
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	a2aerrors "github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

const defaultOpTimeout = 5 * time.Second

// Store is a Redis-backed eventlog.Store. Task event vectors live under
// "<prefix>:log:<taskID>" as a list of JSON-encoded envelopes; the current
// projection is cached under "<prefix>:task:<taskID>" so GetTask never
// replays the whole log; task ids observed are indexed into
// "<prefix>:index" (a Redis set) so ListTasks can enumerate them.
type Store struct {
	client   *redis.Client
	notifier eventlog.Notifier
	prefix   string
	timeout  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the default "a2a" key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTimeout overrides the default 5s per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// New returns a Store backed by client. notifier may be nil.
func New(client *redis.Client, notifier eventlog.Notifier, opts ...Option) *Store {
	s := &Store{client: client, notifier: notifier, prefix: "a2a", timeout: defaultOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) logKey(taskID string) string   { return fmt.Sprintf("%s:log:%s", s.prefix, taskID) }
func (s *Store) taskKey(taskID string) string  { return fmt.Sprintf("%s:task:%s", s.prefix, taskID) }
func (s *Store) indexKey() string              { return fmt.Sprintf("%s:index", s.prefix) }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// envelopeDoc is the JSON shape stored per event list entry: the raw
// StreamEvent payload plus enough of the taxonomy to reconstruct it via
// types.UnmarshalStreamEvent, which already discriminates on "kind".
type envelopeDoc struct {
	Version int64           `json:"version"`
	Event   json.RawMessage `json:"event"`
}

// Append implements eventlog.Store using WATCH on the log key: a concurrent
// writer that appends between our LLEN and our MULTI/EXEC aborts the
// transaction, which go-redis surfaces as redis.TxFailedErr; we retry the
// version check (not the whole operation) since a changed length always
// means the caller's expectedVersion is now stale.
func (s *Store) Append(ctx context.Context, taskID string, event types.StreamEvent, expectedVersion *int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "marshaling event", err)
	}

	logKey := s.logKey(taskID)
	var version int64
	txf := func(tx *redis.Tx) error {
		current, err := tx.LLen(ctx, logKey).Result()
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != current {
			return eventlog.ErrVersionConflict(taskID, *expectedVersion, current)
		}
		version = current

		projRaw, err := tx.Get(ctx, s.taskKey(taskID)).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		var proj *types.AgentTask
		if len(projRaw) > 0 {
			proj = &types.AgentTask{}
			if err := json.Unmarshal(projRaw, proj); err != nil {
				return err
			}
		}
		proj = eventlog.Apply(proj, event)
		projJSON, err := json.Marshal(proj)
		if err != nil {
			return err
		}

		doc := envelopeDoc{Version: version, Event: eventJSON}
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, logKey, docJSON)
			pipe.Set(ctx, s.taskKey(taskID), projJSON, 0)
			pipe.SAdd(ctx, s.indexKey(), taskID)
			return nil
		})
		return err
	}

	const maxTxAttempts = 5
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, logKey, s.taskKey(taskID))
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		var aerr *a2aerrors.Error
		if errors.As(err, &aerr) {
			return 0, err
		}
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis append transaction", err)
	}

	envelope := types.EventEnvelope{Version: version, Event: event}
	if s.notifier != nil {
		s.notifier.Notify(taskID, envelope)
	}
	return version, nil
}

// Read implements eventlog.Store.
func (s *Store) Read(ctx context.Context, taskID string, fromVersion int64) ([]types.EventEnvelope, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if fromVersion < 0 {
		fromVersion = 0
	}
	vals, err := s.client.LRange(ctx, s.logKey(taskID), fromVersion, -1).Result()
	if err != nil {
		return nil, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis lrange", err)
	}
	out := make([]types.EventEnvelope, 0, len(vals))
	for _, v := range vals {
		env, err := decodeEnvelope(v)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func decodeEnvelope(raw string) (types.EventEnvelope, error) {
	var doc envelopeDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return types.EventEnvelope{}, a2aerrors.Wrap(a2aerrors.KindInternalError, "decoding stored envelope", err)
	}
	event, err := types.UnmarshalStreamEvent(doc.Event)
	if err != nil {
		return types.EventEnvelope{}, err
	}
	return types.EventEnvelope{Version: doc.Version, Event: event}, nil
}

// Exists implements eventlog.Store.
func (s *Store) Exists(ctx context.Context, taskID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.LLen(ctx, s.logKey(taskID)).Result()
	if err != nil {
		return false, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis llen", err)
	}
	return n > 0, nil
}

// LatestVersion implements eventlog.Store.
func (s *Store) LatestVersion(ctx context.Context, taskID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.LLen(ctx, s.logKey(taskID)).Result()
	if err != nil {
		return 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis llen", err)
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

	pipe := s.client.Pipeline()
	projCmd := pipe.Get(ctx, s.taskKey(taskID))
	lenCmd := pipe.LLen(ctx, s.logKey(taskID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis pipeline", err)
	}

	version := lenCmd.Val() - 1
	data, err := projCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, nil
	}
	if err != nil {
		return nil, 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis get", err)
	}
	var task types.AgentTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, 0, a2aerrors.Wrap(a2aerrors.KindInternalError, "decoding stored projection", err)
	}
	return &task, version, nil
}

// ListTasks implements eventlog.Store. It enumerates the task id index,
// loads each projection, then applies the same filter/sort/paginate logic
// eventlog.InMemoryStore uses (spec.md §9 "Store variability": listing
// semantics are identical across backends, only the task enumeration
// mechanism differs).
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

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return eventlog.ListResult{}, a2aerrors.Wrap(a2aerrors.KindInternalError, "redis smembers", err)
	}

	all := make([]*types.AgentTask, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			return eventlog.ListResult{}, err
		}
		if task == nil {
			continue
		}
		if matchesFilter(task, filter) {
			all = append(all, task)
		}
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
