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
)

// fakeFeed simulates a gateway subscription and reports whether it was
// released.
type fakeFeed struct {
	values   []int
	interval time.Duration
	released atomic.Bool
}

func (f *fakeFeed) open(ctx context.Context) (<-chan int, <-chan error, error) {
	items := make(chan int)

	go func() {
		defer close(items)
		defer f.released.Store(true)

		for _, v := range f.values {
			if f.interval > 0 {
				select {
				case <-time.After(f.interval):
				case <-ctx.Done():
					return
				}
			}

			select {
			case items <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return items, nil, nil
}

func drain[T any](s *Stream[T]) []T {
	var out []T
	for v := range s.Items() {
		out = append(out, v)
	}

	return out
}

func TestOpenStream_NormalCompletion(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	feed := &fakeFeed{values: []int{1, 2, 3}}

	stream, err := OpenStream(context.Background(), inv, "history", time.Second, feed.open)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, drain(stream))
	assert.NoError(t, stream.Err())

	status := manager.AllStatus()["history"]
	assert.Equal(t, circuitbreaker.StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount, "a completed stream counts as exactly one success")
}

func TestOpenStream_DeadlineCancelsSubscriptionAndCountsOneFailure(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	// Endless slow feed; the 50ms stream deadline must cut it off.
	feed := &fakeFeed{values: make([]int, 1000), interval: 20 * time.Millisecond}

	stream, err := OpenStream(context.Background(), inv, "history", 50*time.Millisecond, feed.open)
	require.NoError(t, err)

	received := drain(stream)
	assert.Less(t, len(received), 1000)
	assert.ErrorIs(t, stream.Err(), ErrTimeout)

	assert.Eventually(t, feed.released.Load, time.Second, 10*time.Millisecond,
		"deadline expiry must release the underlying subscription")

	status := manager.AllStatus()["history"]
	assert.Equal(t, 1, status.FailureCount, "exactly one failure, not zero and not two")
}

func TestOpenStream_DeadlineDuringOpenIsTimeout(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	// The subscription setup outlives the deadline; the caller must get a
	// timeout, never a live stream.
	open := func(ctx context.Context) (<-chan int, <-chan error, error) {
		<-ctx.Done()

		items := make(chan int)
		close(items)

		return items, nil, nil
	}

	_, err := OpenStream(context.Background(), inv, "history", 20*time.Millisecond, open)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, manager.AllStatus()["history"].FailureCount)
}

func TestOpenStream_SourceCloseTiedWithDeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	// When the source close and the deadline expiry become observable at the
	// same instant, the pump's select picks a branch arbitrarily. Every
	// repetition must still classify the stream as a timeout with exactly
	// one recorded failure.
	inv, manager := newTestInvoker(t, WithConfigResolver(func(string) circuitbreaker.Config {
		return circuitbreaker.Config{FailureThreshold: 1 << 20, OpenDuration: time.Hour, HalfOpenTrials: 1}
	}))

	const rounds = 50

	for i := 0; i < rounds; i++ {
		open := func(ctx context.Context) (<-chan int, <-chan error, error) {
			items := make(chan int)

			go func() {
				<-ctx.Done()
				close(items)
			}()

			return items, nil, nil
		}

		stream, err := OpenStream(context.Background(), inv, "history", 5*time.Millisecond, open)
		if err != nil {
			// The deadline beat the open handshake; still a timeout.
			require.ErrorIs(t, err, ErrTimeout)
			continue
		}

		drain(stream)
		require.ErrorIs(t, stream.Err(), ErrTimeout,
			"an expired stream must never end as success (round %d)", i)
	}

	assert.Equal(t, rounds, manager.AllStatus()["history"].FailureCount)
}

func TestOpenStream_MidStreamErrorIsUpstream(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	cause := errors.New("feed interrupted")

	open := func(ctx context.Context) (<-chan int, <-chan error, error) {
		items := make(chan int)
		errs := make(chan error, 1)

		go func() {
			items <- 7
			errs <- cause
		}()

		return items, errs, nil
	}

	stream, err := OpenStream(context.Background(), inv, "history", time.Second, open)
	require.NoError(t, err)

	assert.Equal(t, []int{7}, drain(stream))

	var upstream *UpstreamError

	require.ErrorAs(t, stream.Err(), &upstream)
	assert.ErrorIs(t, stream.Err(), cause)
	assert.Equal(t, 1, manager.AllStatus()["history"].FailureCount)
}

func TestOpenStream_OpenFailure(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	cause := errors.New("subscription refused")

	_, err := OpenStream(context.Background(), inv, "history", time.Second,
		func(ctx context.Context) (<-chan int, <-chan error, error) {
			return nil, nil, cause
		})

	var upstream *UpstreamError

	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 1, manager.AllStatus()["history"].FailureCount)
}

func TestOpenStream_FastFailWhenOpen(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInvoker(t, WithConfigResolver(func(string) circuitbreaker.Config {
		return circuitbreaker.Config{FailureThreshold: 1, OpenDuration: time.Hour, HalfOpenTrials: 1}
	}))

	var opened atomic.Int64

	failing := func(ctx context.Context) (<-chan int, <-chan error, error) {
		opened.Add(1)
		return nil, nil, errors.New("down")
	}

	_, err := OpenStream(context.Background(), inv, "history", time.Second, failing)
	require.Error(t, err)

	_, err = OpenStream(context.Background(), inv, "history", time.Second, failing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int64(1), opened.Load(), "delegate must not be opened while the breaker is open")
}

func TestOpenStream_CallerCancelIsNotCharged(t *testing.T) {
	t.Parallel()

	inv, manager := newTestInvoker(t)

	feed := &fakeFeed{values: make([]int, 1000), interval: 10 * time.Millisecond}

	stream, err := OpenStream(context.Background(), inv, "history", time.Minute, feed.open)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		stream.Cancel()
	}()

	drain(stream)

	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, 0, manager.AllStatus()["history"].FailureCount)
}
