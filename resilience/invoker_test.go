package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/lib-core/circuitbreaker"
	"github.com/stockpulse/lib-core/log"
)

func newTestInvoker(t *testing.T, opts ...InvokerOption) (*Invoker, circuitbreaker.Manager) {
	t.Helper()

	manager, err := circuitbreaker.NewManager(log.NewNop())
	require.NoError(t, err)

	inv, err := NewInvoker(manager, log.NewNop(), opts...)
	require.NoError(t, err)

	return inv, manager
}

func TestNewInvoker_Validation(t *testing.T) {
	t.Parallel()

	manager, err := circuitbreaker.NewManager(log.NewNop())
	require.NoError(t, err)

	_, err = NewInvoker(nil, log.NewNop())
	assert.ErrorIs(t, err, ErrManagerRequired)

	_, err = NewInvoker(manager, nil)
	assert.ErrorIs(t, err, ErrLoggerRequired)
}

func TestExecute_Success(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	value, err := inv.Execute(context.Background(), "quote", time.Second, func(ctx context.Context) (any, error) {
		return "150.25", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "150.25", value)

	status := manager.AllStatus()["quote"]
	assert.Equal(t, circuitbreaker.StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount)
}

func TestExecute_NilCall(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInvoker(t)

	_, err := inv.Execute(context.Background(), "quote", time.Second, nil)
	assert.ErrorIs(t, err, ErrCallRequired)
}

func TestExecute_UpstreamErrorIsClassifiedAndCounted(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	cause := errors.New("500 from analytics service")

	_, err := inv.Execute(context.Background(), "analysis", time.Second, func(ctx context.Context) (any, error) {
		return nil, cause
	})

	var upstream *UpstreamError

	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "analysis", upstream.Name)
	assert.ErrorIs(t, err, cause)
	assert.False(t, Unavailable(err))

	assert.Equal(t, 1, manager.AllStatus()["analysis"].FailureCount)
}

func TestExecute_TimeoutIsClassifiedAndCounted(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	start := time.Now()

	_, err := inv.Execute(context.Background(), "sector", 30*time.Millisecond, func(ctx context.Context) (any, error) {
		select {
		case <-time.After(5 * time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, Unavailable(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, manager.AllStatus()["sector"].FailureCount)
}

func TestExecute_LateResultAfterDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	// The delegate ignores ctx and eventually "succeeds" - after the
	// deadline has fired that must still surface as a timeout.
	_, err := inv.Execute(context.Background(), "history", 20*time.Millisecond, func(ctx context.Context) (any, error) {
		time.Sleep(80 * time.Millisecond)
		return "stale", nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, manager.AllStatus()["history"].FailureCount)
}

func TestExecute_CallerCancellationIsNotCharged(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := inv.Execute(ctx, "quote", time.Minute, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, manager.AllStatus()["quote"].FailureCount)
}

func TestExecute_FastFailWhenOpen(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInvoker(t, WithConfigResolver(func(string) circuitbreaker.Config {
		return circuitbreaker.Config{FailureThreshold: 5, OpenDuration: time.Hour, HalfOpenTrials: 1}
	}))

	var calls atomic.Int64

	delegate := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}

	for i := 0; i < 5; i++ {
		_, err := inv.Execute(context.Background(), "analysis", time.Second, delegate)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
	}

	// The 6th call fast-fails without invoking the delegate.
	start := time.Now()
	_, err := inv.Execute(context.Background(), "analysis", time.Second, delegate)

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, Unavailable(err))
	assert.Equal(t, int64(5), calls.Load(), "delegate must not be invoked while open")
	assert.Less(t, time.Since(start), 100*time.Millisecond, "fast-fail must not consume the deadline")
}

func TestExecute_RecoveryThroughHalfOpen(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t, WithConfigResolver(func(string) circuitbreaker.Config {
		return circuitbreaker.Config{FailureThreshold: 2, OpenDuration: 30 * time.Millisecond, HalfOpenTrials: 1}
	}))

	fail := func(ctx context.Context) (any, error) { return nil, errors.New("down") }
	ok := func(ctx context.Context) (any, error) { return "up", nil }

	for i := 0; i < 2; i++ {
		_, _ = inv.Execute(context.Background(), "email", time.Second, fail)
	}

	require.Equal(t, circuitbreaker.StateOpen, manager.GetState("email"))

	time.Sleep(40 * time.Millisecond)

	value, err := inv.Execute(context.Background(), "email", time.Second, ok)
	require.NoError(t, err)
	assert.Equal(t, "up", value)

	status := manager.AllStatus()["email"]
	assert.Equal(t, circuitbreaker.StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount)
}

func TestInvoke_Typed(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInvoker(t)

	type quote struct {
		Symbol string
		Price  float64
	}

	got, err := Invoke(context.Background(), inv, "quote", time.Second, func(ctx context.Context) (quote, error) {
		return quote{Symbol: "AAPL", Price: 150.0}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, quote{Symbol: "AAPL", Price: 150.0}, got)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	assert.True(t, Unavailable(ErrCircuitOpen))
	assert.True(t, Unavailable(ErrTimeout))
	assert.False(t, Unavailable(&UpstreamError{Name: "quote", Cause: errors.New("boom")}))
	assert.False(t, Unavailable(nil))
}
