package protocol

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
)

// Dispatch table method names, spec.md §4.5.
const (
	methodSendMessage         = "message/send"
	methodSendStreamingMsg    = "message/stream"
	methodGetTask             = "tasks/get"
	methodCancelTask          = "tasks/cancel"
	methodSubscribeA          = "tasks/subscribe"
	methodSubscribeB          = "tasks/resubscribe"
	methodPushConfigSet       = "tasks/pushNotificationConfig/set"
	methodPushConfigGet       = "tasks/pushNotificationConfig/get"
	methodGetExtendedCard     = "agent/getAuthenticatedExtendedCard"
)

// paramsOptional reports whether method is the one spec.md §4.5 exempts from
// the "params required" envelope check.
func paramsOptional(method string) bool {
	return method == methodGetExtendedCard
}

// HandleJSONRPC serves a single JSON-RPC 2.0 endpoint, dispatching onto the
// orchestrator and the card source per spec.md §4.5's dispatch table.
// Well-formed JSON-RPC always answers HTTP 200; errors ride in the envelope.
func (s *Server) HandleJSONRPC(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCounter(telemetry.MetricRequestCount, 1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeSingle(w, errorResponse(nullID, errors.Wrap(errors.KindParseError, "reading request body", err)))
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		s.writeSingle(w, errorResponse(nullID, err))
		return
	}
	id := req.id()

	if !paramsOptional(req.Method) && len(req.Params) == 0 {
		if !isDispatchable(req.Method) {
			s.writeSingle(w, errorResponse(id, errors.Newf(errors.KindMethodNotFound, "unknown method %q", req.Method)))
			return
		}
		s.writeSingle(w, errorResponse(id, errors.New(errors.KindInvalidParams, "params is required")))
		return
	}

	switch req.Method {
	case methodSendMessage:
		s.dispatchSendMessage(w, r, id, req.Params)
	case methodSendStreamingMsg:
		s.dispatchSendStreamingMessage(w, r, id, req.Params)
	case methodGetTask:
		s.dispatchGetTask(w, r, id, req.Params)
	case methodCancelTask:
		s.dispatchCancelTask(w, r, id, req.Params)
	case methodSubscribeA, methodSubscribeB:
		s.dispatchSubscribe(w, r, id, req.Params)
	case methodPushConfigSet:
		result, err := s.setPushNotificationConfig(r.Context(), req.Params)
		s.writeResult(w, id, result, err)
	case methodPushConfigGet:
		result, err := s.getPushNotificationConfig(r.Context(), req.Params)
		s.writeResult(w, id, result, err)
	case methodGetExtendedCard:
		s.dispatchExtendedCard(w, r, id)
	default:
		s.writeSingle(w, errorResponse(id, errors.Newf(errors.KindMethodNotFound, "unknown method %q", req.Method)))
	}
}

func isDispatchable(method string) bool {
	switch method {
	case methodSendMessage, methodSendStreamingMsg, methodGetTask, methodCancelTask,
		methodSubscribeA, methodSubscribeB, methodPushConfigSet, methodPushConfigGet, methodGetExtendedCard:
		return true
	default:
		return false
	}
}

// writeSingle renders a complete JSON-RPC response envelope.
func (s *Server) writeSingle(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeResult renders result as a success envelope, or err (taxonomy-mapped)
// as an error envelope, recording the error counter on failure.
func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result any, err error) {
	if err != nil {
		s.metrics.IncCounter(telemetry.MetricErrorCount, 1)
		s.writeSingle(w, errorResponse(id, err))
		return
	}
	s.writeSingle(w, resultResponse(id, result))
}

func (s *Server) dispatchSendMessage(w http.ResponseWriter, r *http.Request, id json.RawMessage, raw json.RawMessage) {
	p, err := decodeSendMessageParams(raw)
	if err != nil {
		s.writeResult(w, id, nil, err)
		return
	}
	res, err := s.orch.SendMessage(r.Context(), p.Message, p.Metadata)
	if err != nil {
		s.writeResult(w, id, nil, err)
		return
	}
	s.writeResult(w, id, sendMessageResultOf(res), nil)
}

func sendMessageResultOf(res *orchestrator.SendResult) sendMessageResult {
	return sendMessageResult{Task: res.Task, Message: res.Message}
}

func (s *Server) dispatchSendStreamingMessage(w http.ResponseWriter, r *http.Request, id json.RawMessage, raw json.RawMessage) {
	p, err := decodeSendMessageParams(raw)
	if err != nil {
		s.writeSingle(w, errorResponse(id, err))
		return
	}
	items, err := s.orch.SendStreamingMessage(r.Context(), p.Message, p.Metadata)
	if err != nil {
		s.writeSingle(w, errorResponse(id, err))
		return
	}
	s.streamRPC(w, r, id, items)
}

func (s *Server) dispatchGetTask(w http.ResponseWriter, r *http.Request, id json.RawMessage, raw json.RawMessage) {
	p, err := decodeGetTaskParams(raw)
	if err != nil {
		s.writeResult(w, id, nil, err)
		return
	}
	task, err := s.orch.GetTask(r.Context(), p.ID, p.HistoryLength)
	s.writeResult(w, id, task, err)
}

func (s *Server) dispatchCancelTask(w http.ResponseWriter, r *http.Request, id json.RawMessage, raw json.RawMessage) {
	p, err := decodeTaskIDParams(raw)
	if err != nil {
		s.writeResult(w, id, nil, err)
		return
	}
	task, err := s.orch.CancelTask(r.Context(), p.ID)
	s.writeResult(w, id, task, err)
}

func (s *Server) dispatchSubscribe(w http.ResponseWriter, r *http.Request, id json.RawMessage, raw json.RawMessage) {
	p, err := decodeTaskIDParams(raw)
	if err != nil {
		s.writeSingle(w, errorResponse(id, err))
		return
	}
	items, err := s.orch.SubscribeToTask(r.Context(), p.ID)
	if err != nil {
		s.writeSingle(w, errorResponse(id, err))
		return
	}
	s.streamRPC(w, r, id, items)
}

func (s *Server) dispatchExtendedCard(w http.ResponseWriter, r *http.Request, id json.RawMessage) {
	if s.card == nil {
		s.writeResult(w, id, nil, errors.New(errors.KindExtendedAgentCardNotConfigured, "no agent card is configured"))
		return
	}
	card, err := s.card.extendedCard(r, requestPolicy(r))
	s.writeResult(w, id, card, err)
}

// streamRPC drains items onto an SSE stream, wrapping each event as a
// JSON-RPC response per spec.md §4.5/§6. Client disconnect (r.Context done)
// ends the stream silently; a late handler error after headers are sent gets
// one best-effort final error event.
func (s *Server) streamRPC(w http.ResponseWriter, r *http.Request, id json.RawMessage, items <-chan orchestrator.StreamItem) {
	sse, err := newSSEWriter(r.Context(), w, s.newConnectionLimiter())
	if err != nil {
		s.writeSingle(w, errorResponse(id, err))
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
				sse.writeRPCFinalError(id, item.Err)
				return
			}
			if err := sse.writeRPCEvent(id, item.Event); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
