package eventlog

import (
	"context"
	"sort"
	"sync"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// InMemoryStore is the reference Store implementation: a per-task mutex
// guarding an ordered event vector and the inline projection, kept in a
// process-local map. It is not durable; it is the default.
type InMemoryStore struct {
	notifier Notifier

	mu    sync.Mutex
	tasks map[string]*taskLog
}

type taskLog struct {
	mu         sync.Mutex
	events     []types.EventEnvelope
	projection *types.AgentTask
}

// NewInMemoryStore returns an empty in-memory Store. notifier may be nil,
// in which case appends are not fanned out (useful in isolated tests of the
// projection fold).
func NewInMemoryStore(notifier Notifier) *InMemoryStore {
	return &InMemoryStore{notifier: notifier, tasks: make(map[string]*taskLog)}
}

func (s *InMemoryStore) logFor(taskID string) *taskLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.tasks[taskID]
	if !ok {
		l = &taskLog{}
		s.tasks[taskID] = l
	}
	return l
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, taskID string, event types.StreamEvent, expectedVersion *int64) (int64, error) {
	l := s.logFor(taskID)

	l.mu.Lock()
	current := int64(len(l.events))
	if expectedVersion != nil && *expectedVersion != current {
		l.mu.Unlock()
		return 0, ErrVersionConflict(taskID, *expectedVersion, current)
	}
	version := current
	l.projection = Apply(l.projection, event)
	envelope := types.EventEnvelope{Version: version, Event: event}
	l.events = append(l.events, envelope)
	l.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Notify(taskID, envelope)
	}
	return version, nil
}

// Read implements Store.
func (s *InMemoryStore) Read(_ context.Context, taskID string, fromVersion int64) ([]types.EventEnvelope, error) {
	l := s.logFor(taskID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if fromVersion < 0 {
		fromVersion = 0
	}
	if fromVersion >= int64(len(l.events)) {
		return []types.EventEnvelope{}, nil
	}
	out := make([]types.EventEnvelope, len(l.events)-int(fromVersion))
	copy(out, l.events[fromVersion:])
	return out, nil
}

// Exists implements Store.
func (s *InMemoryStore) Exists(_ context.Context, taskID string) (bool, error) {
	l := s.logFor(taskID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events) > 0, nil
}

// LatestVersion implements Store.
func (s *InMemoryStore) LatestVersion(_ context.Context, taskID string) (int64, error) {
	l := s.logFor(taskID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.events)) - 1, nil
}

// GetTask implements Store.
func (s *InMemoryStore) GetTask(_ context.Context, taskID string) (*types.AgentTask, error) {
	l := s.logFor(taskID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection.Clone(), nil
}

// GetTaskWithVersion implements Store.
func (s *InMemoryStore) GetTaskWithVersion(_ context.Context, taskID string) (*types.AgentTask, int64, error) {
	l := s.logFor(taskID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection.Clone(), int64(len(l.events)) - 1, nil
}

// ListTasks implements Store. Pagination uses a numeric offset token;
// invalid tokens fail with KindInvalidParams (spec.md §4.1 "Listing
// semantics").
func (s *InMemoryStore) ListTasks(_ context.Context, filter ListFilter, page Page) (ListResult, error) {
	offset := 0
	if page.PageToken != "" {
		n, err := parseOffsetToken(page.PageToken)
		if err != nil {
			return ListResult{}, errors.Wrap(errors.KindInvalidParams, "invalid pageToken", err)
		}
		offset = n
	}
	size := page.PageSize
	if size <= 0 {
		size = 50
	}

	s.mu.Lock()
	all := make([]*types.AgentTask, 0, len(s.tasks))
	for _, l := range s.tasks {
		l.mu.Lock()
		t := l.projection.Clone()
		l.mu.Unlock()
		if t == nil {
			continue
		}
		if matchesFilter(t, filter) {
			all = append(all, t)
		}
	}
	s.mu.Unlock()

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
			TrimHistory(t, *page.HistoryLength)
		}
		if !page.IncludeArtifacts {
			StripArtifacts(t)
		}
	}

	result := ListResult{
		Tasks:     pageTasks,
		TotalSize: total,
		PageSize:  size,
	}
	if end < total {
		result.NextPageToken = formatOffsetToken(end)
	}
	return result, nil
}

func matchesFilter(t *types.AgentTask, f ListFilter) bool {
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
