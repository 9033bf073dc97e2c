// Package protocol implements spec.md §4.5's two wire surfaces over the
// orchestrator: JSON-RPC 2.0 dispatch (dispatch.go) and REST-over-HTTP
// (rest.go), sharing the SSE framing in sse.go and the error taxonomy
// mapping in the errors package.
package protocol

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/a2a-labs/agent-runtime/internal/a2a/orchestrator"
	"github.com/a2a-labs/agent-runtime/internal/a2a/policy"
	"github.com/a2a-labs/agent-runtime/internal/a2a/telemetry"
)

// Server is the protocol front-end: it owns no state of its own beyond the
// orchestrator it dispatches onto and the agent card it serves, and is safe
// for concurrent use (the orchestrator and card source are).
type Server struct {
	orch     *orchestrator.Server
	card     *CardSource
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	sseRate  rate.Limit
	sseBurst int
}

// Option configures optional Server aspects.
type Option func(*Server)

// WithLogger overrides the default no-op Logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics overrides the default no-op Metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSSERateLimit overrides the per-connection SSE pacing cap (events per
// second, with burst headroom for catch-up replay). The default is generous
// enough to be invisible to normal traffic; lower it to bound how fast a
// single subscriber can be driven, e.g. by a long backlog replay.
func WithSSERateLimit(eventsPerSecond float64, burst int) Option {
	return func(s *Server) {
		s.sseRate = rate.Limit(eventsPerSecond)
		s.sseBurst = burst
	}
}

// NewServer builds a protocol Server dispatching onto orch and serving card.
// card may be nil, in which case /v1/card and agent/getAuthenticatedExtendedCard
// both answer as if no card were configured.
func NewServer(orch *orchestrator.Server, card *CardSource, opts ...Option) *Server {
	s := &Server{
		orch:     orch,
		card:     card,
		logger:   telemetry.NewNoopLogger(),
		metrics:  telemetry.NewNoopMetrics(),
		sseRate:  defaultSSERate,
		sseBurst: defaultSSEBurst,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// newConnectionLimiter builds a fresh token bucket for one SSE connection
// from the server's configured pacing. Each connection gets its own bucket
// so one slow subscriber's backlog replay can't borrow burst capacity from
// another's.
func (s *Server) newConnectionLimiter() *rate.Limiter {
	return rate.NewLimiter(s.sseRate, s.sseBurst)
}

// requestPolicy extracts a skill access Policy from the A2A policy headers,
// per internal/a2a/policy's header contract. Returns nil (no filtering) when
// neither header is present.
func requestPolicy(r *http.Request) *policy.Policy {
	allow := r.Header.Get(policy.AllowSkillsHeader)
	deny := r.Header.Get(policy.DenySkillsHeader)
	if allow == "" && deny == "" {
		return nil
	}
	return policy.ExtractPolicyFromHeaders(allow, deny)
}
