// Package retry is the backoff and reconnection policy httpclient.Client
// applies when talking to an A2A JSON-RPC server. A transient transport
// failure on message/send, tasks/get, or an SSE handshake for
// message/stream and tasks/subscribe gets retried; a JSON-RPC error decoded
// from a well-formed response never does, since the server already finished
// handling the request by the time it replied.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Config is one backoff policy: how many attempts to make and how long to
// wait between them.
type Config struct {
	// MaxAttempts caps the number of attempts, including the first. 0 or 1
	// disables retrying entirely.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay regardless of how many attempts have passed.
	MaxBackoff time.Duration
	// BackoffMultiplier scales the delay after each failed attempt; 2.0 is
	// standard exponential backoff.
	BackoffMultiplier float64
	// Jitter randomizes the computed delay by up to this fraction in either
	// direction, to keep many reconnecting clients from synchronizing.
	Jitter float64
}

// DefaultConfig is the policy applied to single-response RPCs
// (message/send, tasks/get, tasks/cancel, ...) when a Client is not given
// one via WithRetry.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// ExhaustedError is what Do returns when every attempt failed with a
// retryable error.
type ExhaustedError struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts over %v: %v", e.Attempts, e.TotalDuration, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// HTTPStatusError wraps a non-2xx response from the A2A server so
// IsRetryable can classify it without the caller needing to know the
// transport details.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err represents a transient failure worth
// retrying: a deadline, a timed-out or temporarily-failing network dial, or
// one of the handful of HTTP statuses an A2A server returns when it is
// overloaded or mid-restart rather than genuinely rejecting the request.
// A user-canceled context and a decoded JSON-RPC error are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusServiceUnavailable, http.StatusTooManyRequests,
			http.StatusBadGateway, http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// Do runs fn, retrying per cfg while IsRetryable(err) holds. It returns nil
// on the first success, the error unchanged on the first non-retryable
// failure, and an *ExhaustedError once cfg.MaxAttempts is spent.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	started := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateBackoff(cfg, attempt)):
		}
	}

	return &ExhaustedError{
		Attempts:      cfg.MaxAttempts,
		TotalDuration: time.Since(started),
		LastError:     lastErr,
	}
}

// Backoff exposes calculateBackoff to callers that manage their own retry
// loop instead of using Do, such as httpclient.Client's stream-level
// reconnect loop, which retries across whole dropped connections on a
// looser schedule than Do's per-attempt one.
func Backoff(cfg Config, attempt int) time.Duration {
	return calculateBackoff(cfg, attempt)
}

// calculateBackoff is the delay before retry attempt+1: InitialBackoff
// scaled exponentially by BackoffMultiplier, capped at MaxBackoff, then
// jittered by +/-Jitter.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 {
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter has no security requirement
	}
	return time.Duration(delay)
}

// StreamReconnectConfig is the backoff policy for re-establishing a dropped
// tasks/subscribe connection: a looser attempt budget than a single RPC,
// since a long-running stream is expected to outlive several blips.
type StreamReconnectConfig struct {
	Config
	// TrackLastEventID marks whether a caller that manages its own
	// StreamState records the most recent event seen via UpdateLastEventID.
	// httpclient.Client.SubscribeWithReconnect does not read this flag and
	// records no event IDs.
	TrackLastEventID bool
}

// DefaultStreamReconnectConfig is the policy httpclient.Client.
// SubscribeWithReconnect uses when a caller does not supply one via
// WithStreamReconnect.
func DefaultStreamReconnectConfig() StreamReconnectConfig {
	return StreamReconnectConfig{
		Config: Config{
			MaxAttempts:       5,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            0.1,
		},
		TrackLastEventID: true,
	}
}

// StreamState is the reconnect bookkeeping for one logical subscription:
// how many reconnect attempts have been made since the last good connection,
// and the last event ID seen on it.
type StreamState struct {
	LastEventID       string
	ReconnectAttempts int
}

// Reset clears ReconnectAttempts after a connection is (re-)established
// successfully, without touching LastEventID.
func (s *StreamState) Reset() {
	s.ReconnectAttempts = 0
}

// UpdateLastEventID records id as the most recently observed event, unless
// id is empty.
func (s *StreamState) UpdateLastEventID(id string) {
	if id != "" {
		s.LastEventID = id
	}
}
