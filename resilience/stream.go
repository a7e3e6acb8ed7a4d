package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stockpulse/lib-core/circuitbreaker"
)

// StreamOpen opens a subscription against the gateway. Values arrive on
// items, which is closed on normal completion. A terminal mid-stream failure
// is delivered on errs (which may be nil when the gateway cannot fail
// mid-stream). An immediate open failure is returned as err.
type StreamOpen[T any] func(ctx context.Context) (items <-chan T, errs <-chan error, err error)

// Stream is a cancellable sequence of values produced by OpenStream.
type Stream[T any] struct {
	items  <-chan T
	cancel context.CancelFunc

	// err is written by the pump goroutine before items is closed, so a
	// reader that has observed the close may read it without locking.
	err error
}

// Items returns the value channel. It is closed when the stream terminates,
// after which Err reports how it ended.
func (s *Stream[T]) Items() <-chan T {
	return s.items
}

// Err returns the terminal error of the stream: nil on normal completion,
// ErrTimeout when the deadline fired, an *UpstreamError on a mid-stream
// failure, or a context error when the caller cancelled. Only valid once
// Items has been closed.
func (s *Stream[T]) Err() error {
	return s.err
}

// Cancel aborts the stream and releases the underlying subscription. Safe to
// call multiple times.
func (s *Stream[T]) Cancel() {
	s.cancel()
}

// OpenStream runs a streaming delegate through the named breaker.
//
// The admission contract matches Invoker.Execute, but the deadline and the
// breaker bookkeeping span the entire lifetime of the stream: a terminal
// failure anywhere counts as exactly one failure, a normal completion as
// exactly one success. Expiry of the deadline cancels the underlying
// subscription and is recorded as a timeout, never as success.
func OpenStream[T any](ctx context.Context, inv *Invoker, name string, timeout time.Duration, open StreamOpen[T]) (*Stream[T], error) {
	if open == nil {
		return nil, ErrCallRequired
	}

	breaker := inv.manager.GetOrCreate(name, inv.configFor(name))

	if !breaker.AllowRequest() {
		inv.logger.Warnf("Circuit breaker [%s] rejected stream request - failing fast", name)
		return nil, fmt.Errorf("operation %q: %w", name, ErrCircuitOpen)
	}

	streamCtx, cancel := context.WithTimeout(ctx, timeout)

	source, sourceErrs, err := open(streamCtx)
	if err != nil {
		cancel()

		if errors.Is(err, context.DeadlineExceeded) {
			breaker.RecordFailure()
			return nil, fmt.Errorf("operation %q: %w", name, ErrTimeout)
		}

		breaker.RecordFailure()
		inv.logger.Errorf("Stream [%s] failed to open: %v", name, err)

		return nil, &UpstreamError{Name: name, Cause: err}
	}

	// The deadline may have fired while the subscription was being set up.
	// An expired stream must never be handed to the caller as live.
	if streamCtx.Err() != nil {
		err := terminalCtxErr(streamCtx, name, breaker, inv)
		cancel()

		return nil, err
	}

	out := make(chan T)

	stream := &Stream[T]{
		items:  out,
		cancel: cancel,
	}

	go func() {
		defer close(out)
		defer cancel()

		for {
			select {
			case value, ok := <-source:
				if !ok {
					// The select picks arbitrarily when the close and the
					// deadline race, so a completion observed after expiry
					// still counts as a timeout, never as success.
					if streamCtx.Err() != nil {
						stream.err = terminalCtxErr(streamCtx, name, breaker, inv)
						return
					}

					breaker.RecordSuccess()

					return
				}

				select {
				case out <- value:
				case <-streamCtx.Done():
					stream.err = terminalCtxErr(streamCtx, name, breaker, inv)
					return
				}

			case err := <-sourceErrs:
				if err == nil {
					continue
				}

				breaker.RecordFailure()
				inv.logger.Errorf("Stream [%s] failed mid-stream: %v", name, err)
				stream.err = &UpstreamError{Name: name, Cause: err}

				return

			case <-streamCtx.Done():
				stream.err = terminalCtxErr(streamCtx, name, breaker, inv)
				return
			}
		}
	}()

	return stream, nil
}

// terminalCtxErr classifies a context-driven stream termination. Deadline
// expiry is a breaker failure; caller cancellation is not charged against
// the upstream.
func terminalCtxErr(streamCtx context.Context, name string, breaker *circuitbreaker.Breaker, inv *Invoker) error {
	if errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		breaker.RecordFailure()
		inv.logger.Warnf("Stream [%s] cancelled by deadline", name)

		return fmt.Errorf("operation %q: %w", name, ErrTimeout)
	}

	return fmt.Errorf("operation %q: %w", name, streamCtx.Err())
}
