package protocol

import (
	"encoding/json"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
	"github.com/a2a-labs/agent-runtime/internal/a2a/validate"
)

// messageConfiguration is the optional "configuration" object validate.go's
// schema allows alongside message/send and message/stream params.
type messageConfiguration struct {
	HistoryLength *int `json:"historyLength,omitempty"`
	Blocking      *bool `json:"blocking,omitempty"`
}

// sendMessageParams is the decoded body of message/send and message/stream,
// and of the REST /v1/message:send and /v1/message:stream equivalents.
type sendMessageParams struct {
	Message       types.Message          `json:"message"`
	Metadata      map[string]any         `json:"metadata,omitempty"`
	Configuration *messageConfiguration  `json:"configuration,omitempty"`
}

func decodeSendMessageParams(raw json.RawMessage) (sendMessageParams, error) {
	if err := validate.SendMessageParams(raw); err != nil {
		return sendMessageParams{}, err
	}
	var p sendMessageParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return sendMessageParams{}, errors.Wrap(errors.KindInvalidParams, "decoding message params", err)
	}
	return p, nil
}

// sendMessageResult renders orchestrator.SendResult: exactly one of Task or
// Message is populated, per spec.md §4.3's materialization rule.
type sendMessageResult struct {
	Task    *types.AgentTask `json:"task,omitempty"`
	Message *types.Message   `json:"message,omitempty"`
}

// getTaskParams is the decoded body of tasks/get.
type getTaskParams struct {
	ID            string `json:"id"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

func decodeGetTaskParams(raw json.RawMessage) (getTaskParams, error) {
	var p getTaskParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return getTaskParams{}, errors.Wrap(errors.KindInvalidParams, "decoding tasks/get params", err)
	}
	if p.ID == "" {
		return getTaskParams{}, errors.New(errors.KindInvalidParams, "id is required")
	}
	return p, nil
}

// taskIDParams is the decoded body of tasks/cancel, tasks/subscribe, and
// tasks/resubscribe: all three take only {id}.
type taskIDParams struct {
	ID string `json:"id"`
}

func decodeTaskIDParams(raw json.RawMessage) (taskIDParams, error) {
	var p taskIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return taskIDParams{}, errors.Wrap(errors.KindInvalidParams, "decoding params", err)
	}
	if p.ID == "" {
		return taskIDParams{}, errors.New(errors.KindInvalidParams, "id is required")
	}
	return p, nil
}

// listTasksParams is the decoded query of the REST /v1/tasks list endpoint;
// spec.md's JSON-RPC dispatch table has no tasks/list entry (listing is
// REST-only, per §4.5's "Query parameters replace JSON-RPC params").
type listTasksParams struct {
	ContextID            string
	State                string
	StatusTimestampAfter int64
	PageSize             int
	PageToken            string
	HistoryLength        *int
	IncludeArtifacts     bool
}

func (p listTasksParams) toFilterAndPage() (eventlog.ListFilter, eventlog.Page, error) {
	filter := eventlog.ListFilter{
		ContextID:            p.ContextID,
		StatusTimestampAfter: p.StatusTimestampAfter,
	}
	if p.State != "" {
		state := types.TaskState(p.State)
		if !validTaskState(state) {
			return eventlog.ListFilter{}, eventlog.Page{}, errors.Newf(errors.KindInvalidParams, "unknown status filter %q", p.State)
		}
		filter.State = state
	}
	page := eventlog.Page{
		PageSize:         p.PageSize,
		PageToken:        p.PageToken,
		HistoryLength:    p.HistoryLength,
		IncludeArtifacts: p.IncludeArtifacts,
	}
	return filter, page, nil
}

func validTaskState(s types.TaskState) bool {
	switch s {
	case types.TaskStateSubmitted, types.TaskStateWorking, types.TaskStateInputRequired,
		types.TaskStateAuthRequired, types.TaskStateCompleted, types.TaskStateFailed,
		types.TaskStateCanceled, types.TaskStateRejected:
		return true
	default:
		return false
	}
}

// listTasksResult is the wire shape of a ListTasks page.
type listTasksResult struct {
	Tasks         []*types.AgentTask `json:"tasks"`
	TotalSize     int                `json:"totalSize"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
	PageSize      int                `json:"pageSize"`
}

func toListTasksResult(r eventlog.ListResult) listTasksResult {
	return listTasksResult{
		Tasks:         r.Tasks,
		TotalSize:     r.TotalSize,
		NextPageToken: r.NextPageToken,
		PageSize:      r.PageSize,
	}
}
