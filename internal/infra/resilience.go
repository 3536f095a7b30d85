// Package infra provides shared infrastructure for the MAST MCP server: a
// circuit breaker for upstream archives, coalescing of identical in-flight
// requests, and an optional response cache.
package infra

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSharedCallTimeout bounds a coalesced call once it no longer follows
// the context of the caller that started it.
const DefaultSharedCallTimeout = 5 * time.Minute

// Coalescer merges identical in-flight calls. While a call for a key is
// running, later callers with the same key wait for it and receive its
// result instead of issuing their own upstream request.
//
// The shared call keeps the values of the first caller's context but not its
// cancellation, so one caller giving up never fails the others.
type Coalescer[T any] struct {
	group   singleflight.Group
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoalescer creates an empty Coalescer. A non-positive timeout uses
// DefaultSharedCallTimeout.
func NewCoalescer[T any](timeout time.Duration) *Coalescer[T] {
	if timeout <= 0 {
		timeout = DefaultSharedCallTimeout
	}
	return &Coalescer[T]{timeout: timeout, inflight: make(map[string]struct{})}
}

// PanicError is returned to every caller of a coalesced call that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in coalesced call: %v", e.Value)
}

// Do runs fn unless a call with the same key is already running, in which
// case it waits for that call. shared reports whether the result went to
// more than one caller. A caller whose ctx ends stops waiting and gets
// ctx.Err(); the running call is not interrupted.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (val T, shared bool, err error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return c.run(ctx, key, fn)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return val, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	case <-ctx.Done():
		return val, false, ctx.Err()
	}
}

func (c *Coalescer[T]) run(ctx context.Context, key string, fn func(context.Context) (T, error)) (val any, err error) {
	c.mu.Lock()
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	// singleflight re-panics on another goroutine for DoChan callers, so
	// panics are turned into errors here
	defer func() {
		if r := recover(); r != nil {
			val, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	return fn(callCtx)
}

// InFlight returns the number of keys with a call in progress.
func (c *Coalescer[T]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures that open the circuit
	ResetTimeout     time.Duration // how long the circuit stays open
	HalfOpenRequests uint32        // requests let through while half-open

	// IsSuccessful classifies a returned error as a success, such as a 4xx
	// from a healthy upstream. Nil counts only nil errors as success.
	IsSuccessful func(err error) bool
}

// DefaultBreakerConfig opens after 5 consecutive failures and tries again
// after 30 seconds with 2 requests.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenRequests: 2,
	}
}

// Breaker fails fast while an upstream archive is unresponsive. Calls that
// end because their context was canceled or timed out are not counted.
type Breaker struct {
	upstream string
	cfg      BreakerConfig
	cb       *gobreaker.CircuitBreaker[[]byte]

	mu           sync.Mutex
	openedAt     time.Time
	tripFailures uint32
}

// NewBreaker creates a closed Breaker for the named upstream. Zero fields in
// cfg take their default values.
func NewBreaker(upstream string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}

	b := &Breaker{upstream: upstream, cfg: cfg}
	threshold := cfg.FailureThreshold
	b.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        upstream,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures < threshold {
				return false
			}
			b.mu.Lock()
			b.tripFailures = counts.ConsecutiveFailures
			b.mu.Unlock()
			return true
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (cfg.IsSuccessful != nil && cfg.IsSuccessful(err))
		},
		IsExcluded: isCanceled,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.openedAt = time.Now()
				b.mu.Unlock()
			}
		},
	})
	return b
}

// Execute runs fn if the circuit allows it. A rejected call returns
// *ErrCircuitOpen without running fn.
func (b *Breaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	body, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		stats := b.Stats()
		return nil, &ErrCircuitOpen{
			Upstream: b.upstream,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}
	return body, err
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Stats returns a snapshot of the breaker.
func (b *Breaker) Stats() BreakerStats {
	state := b.cb.State()
	stats := BreakerStats{
		State:            state.String(),
		ConsecutiveFails: int(b.cb.Counts().ConsecutiveFailures),
	}
	// counts restart when the circuit opens
	if state == gobreaker.StateOpen {
		b.mu.Lock()
		stats.ConsecutiveFails = int(b.tripFailures)
		stats.RetryAt = b.openedAt.Add(b.cfg.ResetTimeout)
		b.mu.Unlock()
	}
	return stats
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// BreakerStats is a point-in-time view of a Breaker.
type BreakerStats struct {
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	RetryAt          time.Time `json:"retry_at,omitempty"`
}

// ErrCircuitOpen is returned instead of calling an upstream whose circuit is open.
type ErrCircuitOpen struct {
	Upstream string
	RetryAt  time.Time
	Failures int
}

func (e *ErrCircuitOpen) Error() string {
	return "circuit breaker is open for " + e.Upstream + ": retry after " + e.RetryAt.Format(time.RFC3339)
}
