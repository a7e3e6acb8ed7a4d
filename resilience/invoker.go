package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stockpulse/lib-core/circuitbreaker"
	"github.com/stockpulse/lib-core/log"
)

// Call is a single-value delegate. It must honor ctx cancellation.
type Call func(ctx context.Context) (any, error)

// ConfigResolver maps a breaker name to the config used when the breaker is
// created lazily.
type ConfigResolver func(name string) circuitbreaker.Config

// Invoker is the only path through which request handlers reach the external
// gateway. It owns no goroutines of its own for single-value calls; streams
// run one pump goroutine per open stream.
type Invoker struct {
	manager   circuitbreaker.Manager
	logger    log.Logger
	configFor ConfigResolver
}

// InvokerOption customizes an Invoker.
type InvokerOption func(inv *Invoker)

// WithConfigResolver overrides the per-name breaker config. The default
// resolver returns circuitbreaker.DefaultConfig for every name.
func WithConfigResolver(resolver ConfigResolver) InvokerOption {
	return func(inv *Invoker) {
		if resolver != nil {
			inv.configFor = resolver
		}
	}
}

// NewInvoker creates an Invoker on top of a breaker registry.
func NewInvoker(manager circuitbreaker.Manager, logger log.Logger, opts ...InvokerOption) (*Invoker, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}

	if logger == nil {
		return nil, ErrLoggerRequired
	}

	inv := &Invoker{
		manager: manager,
		logger:  logger,
		configFor: func(string) circuitbreaker.Config {
			return circuitbreaker.DefaultConfig()
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}

	return inv, nil
}

// Execute runs call through the named breaker under the given deadline.
//
// When the breaker rejects, Execute fails with ErrCircuitOpen and the
// delegate is never invoked. Otherwise the outcome is classified into the
// closed error set: deadline expiry becomes ErrTimeout, any other delegate
// failure becomes *UpstreamError. Exactly one success or one failure is
// recorded against the breaker per admitted call.
func (inv *Invoker) Execute(ctx context.Context, name string, timeout time.Duration, call Call) (any, error) {
	if call == nil {
		return nil, ErrCallRequired
	}

	breaker := inv.manager.GetOrCreate(name, inv.configFor(name))

	if !breaker.AllowRequest() {
		inv.logger.Warnf("Circuit breaker [%s] rejected request - failing fast", name)
		return nil, fmt.Errorf("operation %q: %w", name, ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := call(callCtx)

	switch outcome := classify(callCtx, err); outcome {
	case outcomeSuccess:
		breaker.RecordSuccess()
		return value, nil

	case outcomeTimeout:
		breaker.RecordFailure()
		inv.logger.Warnf("Operation [%s] exceeded its %v deadline", name, timeout)

		return nil, fmt.Errorf("operation %q: %w", name, ErrTimeout)

	case outcomeCanceled:
		// The caller walked away; the upstream is not to blame, so no
		// breaker outcome is recorded.
		return nil, fmt.Errorf("operation %q: %w", name, ctx.Err())

	default:
		breaker.RecordFailure()
		inv.logger.Errorf("Operation [%s] failed upstream: %v", name, err)

		return nil, &UpstreamError{Name: name, Cause: err}
	}
}

// Invoke is the typed variant of Execute.
func Invoke[T any](ctx context.Context, inv *Invoker, name string, timeout time.Duration, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	value, err := inv.Execute(ctx, name, timeout, func(ctx context.Context) (any, error) {
		return call(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("operation %q: unexpected result type %T", name, value)
	}

	return typed, nil
}

type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeTimeout
	outcomeCanceled
	outcomeUpstream
)

// classify maps a delegate result onto the closed outcome set. A call whose
// context deadline has fired is a timeout even if the delegate returned a
// value: it must never silently succeed after the deadline.
func classify(callCtx context.Context, err error) outcome {
	ctxErr := callCtx.Err()

	if errors.Is(ctxErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimeout
	}

	if errors.Is(ctxErr, context.Canceled) {
		return outcomeCanceled
	}

	if err == nil {
		return outcomeSuccess
	}

	if errors.Is(err, context.Canceled) {
		return outcomeCanceled
	}

	return outcomeUpstream
}
