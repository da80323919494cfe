// Package ratelimit bounds concurrent provider API calls for one scan
// context and retries throttled calls with jittered exponential backoff.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultMaxConcurrent caps in-flight API calls per scan context.
	DefaultMaxConcurrent = 10
	// DefaultMaxRetries bounds retries for throttled/transient calls.
	DefaultMaxRetries = 5

	baseDelay = 250 * time.Millisecond
	maxDelay  = 30 * time.Second
)

// Stats is a point-in-time snapshot of limiter counters. Counters track
// attempts, so TotalRequests == ThrottledRequests + SuccessfulRequests +
// TerminalFailures.
type Stats struct {
	TotalRequests      int64
	ThrottledRequests  int64
	SuccessfulRequests int64
	TerminalFailures   int64
	CurrentConcurrent  int
	QueueLength        int
	ThrottleRate       float64
}

// Limiter is the shared gate for one scanner context. Safe for concurrent
// use; one instance serves all API calls of a discovery session.
type Limiter struct {
	sem        chan struct{}
	maxRetries int
	baseDelay  time.Duration

	mu         sync.Mutex
	total      int64
	throttled  int64
	successful int64
	terminal   int64
	inFlight   int
	waiting    int

	attemptCounter  metric.Int64Counter
	throttleCounter metric.Int64Counter
}

// Option overrides a limiter default.
type Option func(*Limiter)

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(l *Limiter) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithBaseDelay overrides the backoff base delay.
func WithBaseDelay(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.baseDelay = d
		}
	}
}

// New returns a limiter with the given concurrency cap; values below one
// fall back to the default.
func New(maxConcurrent int, opts ...Option) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	meter := otel.Meter("stratoscan/ratelimit")
	attempts, _ := meter.Int64Counter("discovery.api.attempts")
	throttles, _ := meter.Int64Counter("discovery.api.throttles")

	l := &Limiter{
		sem:             make(chan struct{}, maxConcurrent),
		maxRetries:      DefaultMaxRetries,
		baseDelay:       baseDelay,
		attemptCounter:  attempts,
		throttleCounter: throttles,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithBackoff acquires a concurrency slot, invokes op, and retries calls
// classified as throttled or transient. The slot is held across retries so
// backoff sleeps keep pressure bounded. Terminal errors return immediately;
// a cancelled context fails fast, including while waiting for a slot.
func (l *Limiter) WithBackoff(ctx context.Context, op func(ctx context.Context) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, l.backoffDelay(attempt-1)); err != nil {
				return err
			}
		}

		l.recordAttempt(ctx)
		err := op(ctx)
		if err == nil {
			l.recordOutcome(func(l *Limiter) { l.successful++ })
			return nil
		}

		switch Classify(err) {
		case KindThrottled, KindTransient:
			l.recordOutcome(func(l *Limiter) { l.throttled++ })
			l.throttleCounter.Add(ctx, 1)
			lastErr = err
		default:
			l.recordOutcome(func(l *Limiter) { l.terminal++ })
			return err
		}
	}

	return fmt.Errorf("retry budget exhausted after %d attempts: %w", l.maxRetries+1, lastErr)
}

// Do wraps a value-returning API call in WithBackoff.
func Do[T any](ctx context.Context, l *Limiter, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := l.WithBackoff(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// GetStats returns a counter snapshot.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		TotalRequests:      l.total,
		ThrottledRequests:  l.throttled,
		SuccessfulRequests: l.successful,
		TerminalFailures:   l.terminal,
		CurrentConcurrent:  l.inFlight,
		QueueLength:        l.waiting,
	}
	if stats.TotalRequests > 0 {
		stats.ThrottleRate = float64(stats.ThrottledRequests) / float64(stats.TotalRequests)
	}
	return stats
}

func (l *Limiter) acquire(ctx context.Context) error {
	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	select {
	case l.sem <- struct{}{}:
		l.mu.Lock()
		l.inFlight++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) release() {
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
	<-l.sem
}

func (l *Limiter) recordAttempt(ctx context.Context) {
	l.mu.Lock()
	l.total++
	l.mu.Unlock()
	l.attemptCounter.Add(ctx, 1)
}

func (l *Limiter) recordOutcome(f func(*Limiter)) {
	l.mu.Lock()
	f(l)
	l.mu.Unlock()
}

// backoffDelay computes base*2^retry plus jitter in [0, base), capped.
func (l *Limiter) backoffDelay(retry int) time.Duration {
	delay := l.baseDelay << uint(retry)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(l.baseDelay)))
	if delay+jitter > maxDelay {
		return maxDelay
	}
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
