// Package httpclient implements a JSON-RPC 2.0 HTTP client for the A2A
// runtime's /rpc endpoint, grounded on the teacher's runtime/a2a HTTP caller
// (same Option/functional-options shape, same request/response envelope
// plumbing) but speaking this module's own dispatch table and wire types
// instead of goa-ai's SendTaskRequest/SendTaskResponse. Transient transport
// failures (connection refused, timeouts, a dropped SSE handshake) are
// retried per internal/a2a/retry's backoff policy; a handler-raised JSON-RPC
// error never is, since the server already ran the request to completion.
package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/a2a-labs/agent-runtime/internal/a2a/errors"
	"github.com/a2a-labs/agent-runtime/internal/a2a/retry"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

type (
	// Option configures a Client.
	Option func(*Client)

	// Client is a minimal JSON-RPC 2.0 HTTP client for the server implemented
	// in internal/a2a/protocol. It exists for integration tests and for
	// embedding in tools that talk to a running a2aserver without pulling in
	// the whole orchestrator.
	Client struct {
		endpoint  string
		http      *http.Client
		headers   http.Header
		id        uint64
		retryCfg  retry.Config
		streamCfg retry.StreamReconnectConfig
	}

	rpcRequest struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		ID      uint64 `json:"id"`
		Params  any    `json:"params,omitempty"`
	}

	rpcResponse struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *rpcError       `json:"error"`
		ID      uint64          `json:"id"`
	}

	rpcError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)

// Error implements the error interface as "a2a error <code>: <message>",
// using the numeric JSON-RPC code the server sent. It does not reproduce the
// taxonomy's *errors.Error "<Kind>: <message>" rendering.
func (e *rpcError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

// WithHTTPClient overrides the underlying *http.Client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithHeader adds a static header to all outgoing requests.
func WithHeader(name, value string) Option {
	return func(cl *Client) {
		if cl.headers == nil {
			cl.headers = make(http.Header)
		}
		cl.headers.Add(name, value)
	}
}

// WithBearerToken configures the client to send an Authorization Bearer token.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithRetry overrides the backoff policy applied to transient transport
// failures on both single-response calls and stream handshakes.
func WithRetry(cfg retry.Config) Option {
	return func(cl *Client) { cl.retryCfg = cfg }
}

// WithStreamReconnect overrides the backoff policy and attempt budget used by
// SubscribeWithReconnect when a tasks/subscribe connection drops before the
// task reaches a terminal state.
func WithStreamReconnect(cfg retry.StreamReconnectConfig) Option {
	return func(cl *Client) { cl.streamCfg = cfg }
}

// New constructs a Client against endpoint, the server's JSON-RPC URL (for
// example "http://127.0.0.1:8080/rpc").
func New(endpoint string, opts ...Option) *Client {
	cl := &Client{
		endpoint:  endpoint,
		http:      &http.Client{Timeout: 30 * time.Second},
		headers:   make(http.Header),
		retryCfg:  retry.DefaultConfig(),
		streamCfg: retry.DefaultStreamReconnectConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cl)
		}
	}
	return cl
}

func (c *Client) nextID() uint64 {
	return atomic.AddUint64(&c.id, 1)
}

func (c *Client) newRequest(ctx context.Context, method string, params any) (*http.Request, uint64, error) {
	id := c.nextID()
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, ID: id, Params: params})
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, id, nil
}

// call issues a single-response JSON-RPC request and decodes the result into
// out (which may be nil to discard the result). The round trip is retried per
// c.retryCfg on transient transport failures; a decoded JSON-RPC error or a
// body-decode failure is returned to the caller on the first attempt, since
// neither means the request can be usefully replayed.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	var rpcResp rpcResponse
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		req, _, err := c.newRequest(ctx, method, params)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &retry.HTTPStatusError{StatusCode: resp.StatusCode, Message: string(msg)}
		}

		rpcResp = rpcResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
			return fmt.Errorf("decoding rpc response: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

// sendMessageParams/-Result mirror the unexported shapes protocol/methods.go
// defines server-side; the client keeps its own copy since the wire contract,
// not the Go type, is the actual interface between processes.
type sendMessageParams struct {
	Message  types.Message  `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SendMessageResult carries exactly one of Task or Message, mirroring
// orchestrator.SendResult's materialization rule.
type SendMessageResult struct {
	Task    *types.AgentTask `json:"task,omitempty"`
	Message *types.Message   `json:"message,omitempty"`
}

// SendMessage invokes message/send.
func (c *Client) SendMessage(ctx context.Context, msg types.Message, metadata map[string]any) (*SendMessageResult, error) {
	var out SendMessageResult
	if err := c.call(ctx, "message/send", sendMessageParams{Message: msg, Metadata: metadata}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask invokes tasks/get.
func (c *Client) GetTask(ctx context.Context, taskID string, historyLength *int) (*types.AgentTask, error) {
	params := struct {
		ID            string `json:"id"`
		HistoryLength *int   `json:"historyLength,omitempty"`
	}{ID: taskID, HistoryLength: historyLength}
	var task types.AgentTask
	if err := c.call(ctx, "tasks/get", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask invokes tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*types.AgentTask, error) {
	var task types.AgentTask
	if err := c.call(ctx, "tasks/cancel", taskIDParams{ID: taskID}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

type taskIDParams struct {
	ID string `json:"id"`
}

// StreamItem is one element of a streaming response: exactly one of Event or
// Err is set, mirroring orchestrator.StreamItem on the wire.
type StreamItem struct {
	Event types.StreamEvent
	Err   error
}

// SendStreamingMessage invokes message/stream and returns a channel of
// decoded StreamEvent values, closed when the server closes the SSE
// connection or ctx is done.
func (c *Client) SendStreamingMessage(ctx context.Context, msg types.Message, metadata map[string]any) (<-chan StreamItem, error) {
	return c.openStream(ctx, "message/stream", sendMessageParams{Message: msg, Metadata: metadata})
}

// Subscribe invokes tasks/subscribe and returns a channel of decoded
// StreamEvent values.
func (c *Client) Subscribe(ctx context.Context, taskID string) (<-chan StreamItem, error) {
	return c.openStream(ctx, "tasks/subscribe", taskIDParams{ID: taskID})
}

// SubscribeWithReconnect behaves like Subscribe, except a connection that
// drops before the task reaches a terminal state is re-established per
// c.streamCfg instead of surfacing as a closed channel. Re-subscribing is
// safe to retry because tasks/subscribe always resumes from the task's
// current version rather than replaying history (orchestrator.
// SubscribeToTask), unlike message/stream, which would resubmit the
// message; callers that need reconnect semantics for a running stream
// should subscribe to the task ID returned by the initial send rather than
// retrying SendStreamingMessage.
func (c *Client) SubscribeWithReconnect(ctx context.Context, taskID string) (<-chan StreamItem, error) {
	out := make(chan StreamItem)
	go func() {
		defer close(out)
		state := &retry.StreamState{}
		for {
			items, err := c.openStream(ctx, "tasks/subscribe", taskIDParams{ID: taskID})
			if err != nil {
				if !retry.IsRetryable(err) || state.ReconnectAttempts >= c.streamCfg.MaxAttempts-1 {
					select {
					case out <- StreamItem{Err: err}:
					case <-ctx.Done():
					}
					return
				}
				state.ReconnectAttempts++
				select {
				case <-ctx.Done():
					return
				case <-time.After(retry.Backoff(c.streamCfg.Config, state.ReconnectAttempts)):
				}
				continue
			}
			state.Reset()

			terminal := false
			for item := range items {
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
				if item.Err != nil {
					return
				}
				if item.Event != nil && item.Event.Final() {
					terminal = true
				}
			}
			if terminal {
				return
			}
			// the stream closed without a terminal event: the connection
			// dropped, reconnect.
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return out, nil
}

func (c *Client) openStream(ctx context.Context, method string, params any) (<-chan StreamItem, error) {
	var resp *http.Response
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		req, _, err := c.newRequest(ctx, method, params)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/event-stream")
		r, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			return &retry.HTTPStatusError{StatusCode: r.StatusCode, Message: string(msg)}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			item, ok := decodeRPCStreamLine([]byte(payload))
			if !ok {
				continue
			}
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
			if item.Err != nil {
				return
			}
			if item.Event != nil && item.Event.Final() {
				return
			}
		}
	}()
	return out, nil
}

// decodeRPCStreamLine decodes one SSE data line, which is a full JSON-RPC
// Response envelope per the server's streamRPC framing (protocol/dispatch.go).
func decodeRPCStreamLine(raw []byte) (StreamItem, bool) {
	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return StreamItem{}, false
	}
	if resp.Error != nil {
		return StreamItem{Err: resp.Error}, true
	}
	event, err := types.UnmarshalStreamEvent(resp.Result)
	if err != nil {
		return StreamItem{Err: errors.Wrap(errors.KindInvalidAgentResponse, "decoding stream event", err)}, true
	}
	return StreamItem{Event: event}, true
}
