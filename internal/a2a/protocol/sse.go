package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
)

// defaultSSERate and defaultSSEBurst bound how fast a single streaming
// connection may emit frames. They exist to pace keep-alive/backlog replay
// (a newly-subscribed client catching up on a long event history, or a
// runaway handler loop) rather than to throttle normal traffic, hence the
// generous default.
const (
	defaultSSERate  = rate.Limit(200)
	defaultSSEBurst = 50
)

// sseWriter formats spec.md §4.5/§6's SSE stream: text/event-stream,
// Cache-Control: no-cache, no-store, response buffering disabled, one
// `data: <json>\n\n` record per event, no `event:`/`id:` fields. Every write
// is paced through a per-connection token bucket so one slow or unbounded
// consumer can't be driven to emit faster than the configured cap.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	limiter *rate.Limiter
}

// newSSEWriter sets the streaming response headers and returns a writer, or
// an error if the underlying ResponseWriter cannot flush incrementally.
// limiter paces this one connection's event rate; ctx governs Wait on that
// limiter so a client disconnect (or request cancellation) unblocks it
// immediately instead of holding the pace indefinitely.
func newSSEWriter(ctx context.Context, w http.ResponseWriter, limiter *rate.Limiter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New(errors.KindInternalError, "response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher, ctx: ctx, limiter: limiter}, nil
}

// writeJSON marshals payload and writes it as a single SSE data record,
// blocking on the connection's rate limiter first.
func (s *sseWriter) writeJSON(payload any) error {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// writeRPCEvent wraps event as JsonRpcResponse{id, result=event} per the
// JSON-RPC SSE framing spec.md §4.5 describes.
func (s *sseWriter) writeRPCEvent(id json.RawMessage, event any) error {
	return s.writeJSON(Response{JSONRPC: "2.0", ID: id, Result: marshalRaw(event)})
}

// writeRPCFinalError emits a best-effort single error event after headers
// have already been sent (spec.md §4.5/§7 "mid-stream failures": the status
// line can't change, so the error rides inside the stream).
func (s *sseWriter) writeRPCFinalError(id json.RawMessage, err error) {
	_ = s.writeJSON(errorResponse(id, err))
}

// writeRawEvent writes event unwrapped, the REST SSE framing (spec.md §6:
// "on REST streams the payload is the raw event object").
func (s *sseWriter) writeRawEvent(event any) error {
	return s.writeJSON(event)
}
