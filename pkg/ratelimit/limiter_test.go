package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func throttleErr() error {
	return &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
}

func TestWithBackoffThrottledThenSuccess(t *testing.T) {
	l := New(2, WithBaseDelay(time.Millisecond))

	calls := 0
	err := l.WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return throttleErr()
		}
		return nil
	})
	require.NoError(t, err)

	stats := l.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.ThrottledRequests)
	assert.Equal(t, int64(1), stats.SuccessfulRequests)
}

func TestWithBackoffTerminalNoRetry(t *testing.T) {
	l := New(2, WithBaseDelay(time.Millisecond))

	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}
	calls := 0
	err := l.WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return denied
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	stats := l.GetStats()
	assert.Equal(t, int64(1), stats.TerminalFailures)
}

func TestWithBackoffExhaustsBudget(t *testing.T) {
	l := New(1, WithBaseDelay(time.Millisecond), WithMaxRetries(3))

	calls := 0
	err := l.WithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return throttleErr()
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
	assert.ErrorContains(t, err, "retry budget exhausted")

	// Counter invariant holds even on exhaustion.
	stats := l.GetStats()
	assert.Equal(t, stats.TotalRequests,
		stats.ThrottledRequests+stats.SuccessfulRequests+stats.TerminalFailures)
}

func TestConcurrencyCap(t *testing.T) {
	const limit = 3
	l := New(limit)

	var current, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithBackoff(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int64(limit))
	assert.Equal(t, 0, l.GetStats().CurrentConcurrent)
}

func TestAcquireCancelledWhileWaiting(t *testing.T) {
	l := New(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.WithBackoff(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.WithBackoff(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}

func TestCancelledDuringBackoffSleep(t *testing.T) {
	l := New(1, WithBaseDelay(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.WithBackoff(ctx, func(ctx context.Context) error {
			return throttleErr()
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("backoff sleep ignored cancellation")
	}
}

func TestDo(t *testing.T) {
	l := New(1, WithBaseDelay(time.Millisecond))

	v, err := Do(context.Background(), l, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	_, err = Do(context.Background(), l, func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindTerminal},
		{"throttling code", &smithy.GenericAPIError{Code: "ThrottlingException"}, KindThrottled},
		{"request limit", &smithy.GenericAPIError{Code: "RequestLimitExceeded"}, KindThrottled},
		{"too many requests", &smithy.GenericAPIError{Code: "TooManyRequestsException"}, KindThrottled},
		{"service unavailable", &smithy.GenericAPIError{Code: "ServiceUnavailable"}, KindTransient},
		{"request timeout", &smithy.GenericAPIError{Code: "RequestTimeout"}, KindTransient},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, KindTerminal},
		{"not found", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, KindTerminal},
		{"rate exceeded message", errors.New("operation failed: Rate exceeded"), KindThrottled},
		{"throttled message", errors.New("request throttled by upstream"), KindThrottled},
		{"plain error", errors.New("boom"), KindTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "AccessDenied", ErrorCode(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}
