package protocol

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
)

// restError is the REST error body: {kind, message}, the taxonomy Kind and
// its message, distinct from the JSON-RPC {code:int,...} envelope since REST
// errors carry no numeric code of their own (the HTTP status is the code).
type restError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RESTHandler returns the REST-over-HTTP surface from spec.md §4.5: a small
// set of paths under /v1 mirroring the JSON-RPC dispatch table, with query
// parameters replacing JSON-RPC params where natural.
func (s *Server) RESTHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/card", s.restCard)
	mux.HandleFunc("/v1/message:send", s.restSendMessage)
	mux.HandleFunc("/v1/message:stream", s.restSendStreamingMessage)
	mux.HandleFunc("/v1/tasks", s.restListTasks)
	mux.HandleFunc("/v1/tasks/", s.restTaskRoute)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) writeRESTError(w http.ResponseWriter, err error) {
	s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
	kind := errors.Of(err)
	s.writeJSON(w, errors.HTTPStatus(kind), restError{Kind: string(kind), Message: err.Error()})
}

func requireJSONContentType(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil
	}
	if mediaType := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]); mediaType != "application/json" {
		return errors.Newf(errors.KindContentTypeNotSupported, "unsupported content type %q", ct)
	}
	return nil
}

// restCard serves GET /v1/card: the public card, skill-filtered by any
// X-A2A-{Allow,Deny}-Skills policy headers.
func (s *Server) restCard(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)
	if r.Method != http.MethodGet {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	if s.card == nil {
		s.writeRESTError(w, errors.New(errors.KindExtendedAgentCardNotConfigured, "no agent card is configured"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.card.publicCard(requestPolicy(r)))
}

// restSendMessage serves POST /v1/message:send.
func (s *Server) restSendMessage(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)
	if r.Method != http.MethodPost {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	if err := requireJSONContentType(r); err != nil {
		s.writeRESTError(w, err)
		return
	}
	raw, err := readRawBody(r)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	p, err := decodeSendMessageParams(raw)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	res, err := s.orch.SendMessage(r.Context(), p.Message, p.Metadata)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sendMessageResultOf(res))
}

// restSendStreamingMessage serves POST /v1/message:stream: SSE with raw
// event payloads (spec.md §6: "on REST streams the payload is the raw event
// object"), not the JSON-RPC envelope message/stream uses.
func (s *Server) restSendStreamingMessage(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)
	if r.Method != http.MethodPost {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	if err := requireJSONContentType(r); err != nil {
		s.writeRESTError(w, err)
		return
	}
	raw, err := readRawBody(r)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	p, err := decodeSendMessageParams(raw)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	items, err := s.orch.SendStreamingMessage(r.Context(), p.Message, p.Metadata)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	s.streamRaw(w, r, items)
}

// restListTasks serves GET /v1/tasks.
func (s *Server) restListTasks(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)
	if r.Method != http.MethodGet {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	q := r.URL.Query()
	params := listTasksParams{
		ContextID: q.Get("contextId"),
		State:     q.Get("status"),
		PageToken: q.Get("pageToken"),
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeRESTError(w, errors.New(errors.KindInvalidParams, "pageSize must be an integer"))
			return
		}
		params.PageSize = n
	}
	if v := q.Get("historyLength"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeRESTError(w, errors.New(errors.KindInvalidParams, "historyLength must be an integer"))
			return
		}
		params.HistoryLength = &n
	}
	if v := q.Get("includeArtifacts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeRESTError(w, errors.New(errors.KindInvalidParams, "includeArtifacts must be a boolean"))
			return
		}
		params.IncludeArtifacts = b
	}

	filter, page, err := params.toFilterAndPage()
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	result, err := s.orch.ListTasks(r.Context(), filter, page)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toListTasksResult(result))
}

// restTaskRoute dispatches everything under /v1/tasks/: {id}, {id}:cancel,
// and {id}/pushNotificationConfigs.
func (s *Server) restTaskRoute(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	if rest == "" {
		s.writeRESTError(w, errors.New(errors.KindTaskNotFound, "missing task id"))
		return
	}

	switch {
	case strings.HasSuffix(rest, ":cancel"):
		s.restCancelTask(w, r, strings.TrimSuffix(rest, ":cancel"))
	case strings.Contains(rest, "/pushNotificationConfigs"):
		id := strings.SplitN(rest, "/pushNotificationConfigs", 2)[0]
		s.restPushNotificationConfig(w, r, id)
	default:
		s.restGetTask(w, r, rest)
	}
}

func (s *Server) restGetTask(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	var historyLength *int
	if v := r.URL.Query().Get("historyLength"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeRESTError(w, errors.New(errors.KindInvalidParams, "historyLength must be an integer"))
			return
		}
		historyLength = &n
	}
	task, err := s.orch.GetTask(r.Context(), id, historyLength)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) restCancelTask(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
		return
	}
	task, err := s.orch.CancelTask(r.Context(), id)
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

// restPushNotificationConfig handles the CRUD-shaped
// /v1/tasks/{id}/pushNotificationConfigs surface. GET/POST map onto the
// JSON-RPC get/set operations; DELETE has no JSON-RPC equivalent and answers
// PushNotificationNotSupported directly, per SPEC_FULL.md §4.9.
func (s *Server) restPushNotificationConfig(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		raw, _ := json.Marshal(GetTaskPushNotificationConfigParams{TaskID: id})
		result, err := s.getPushNotificationConfig(ctx, raw)
		if err != nil {
			s.writeRESTError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	case http.MethodPost:
		if err := requireJSONContentType(r); err != nil {
			s.writeRESTError(w, err)
			return
		}
		body, err := readRawBody(r)
		if err != nil {
			s.writeRESTError(w, err)
			return
		}
		var cfg PushNotificationConfig
		if err := json.Unmarshal(body, &cfg); err != nil {
			s.writeRESTError(w, errors.Wrap(errors.KindInvalidParams, "decoding pushNotificationConfig body", err))
			return
		}
		raw, _ := json.Marshal(SetTaskPushNotificationConfigParams{TaskID: id, PushNotificationConfig: cfg})
		result, err := s.setPushNotificationConfig(ctx, raw)
		if err != nil {
			s.writeRESTError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	case http.MethodDelete:
		s.writeRESTError(w, errors.New(errors.KindPushNotificationNotSupported, "push notification delivery is not supported"))
	default:
		s.writeRESTError(w, errors.New(errors.KindMethodNotFound, "method not allowed"))
	}
}

// streamRaw drains items onto an SSE stream with unwrapped event payloads.
func (s *Server) streamRaw(w http.ResponseWriter, r *http.Request, items <-chan orchestrator.StreamItem) {
	sse, err := newSSEWriter(r.Context(), w, s.newConnectionLimiter())
	if err != nil {
		s.writeRESTError(w, err)
		return
	}
	for {
		select {
		case item, ok := <-items:
			if !ok {
				return
			}
			if item.Err != nil {
				s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
				_ = sse.writeRawEvent(restError{Kind: string(errors.Of(item.Err)), Message: item.Err.Error()})
				return
			}
			if err := sse.writeRawEvent(item.Event); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func readRawBody(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.KindParseError, "reading request body", err)
	}
	return raw, nil
}
