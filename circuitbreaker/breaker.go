package circuitbreaker

import (
	"sync"
	"time"
)

// Breaker is the fault-isolation state machine for one named operation.
//
// State only advances through the cycle closed -> open -> half-open and from
// half-open back to closed (trial success) or open (trial failure). All
// transitions happen under the breaker mutex, so concurrent AllowRequest,
// RecordSuccess and RecordFailure calls are linearizable.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	onStateChange func(name string, from, to State)
	onReject      func(name string)

	mu             sync.Mutex
	state          State
	failureCount   int
	lastFailure    time.Time
	openedAt       time.Time
	halfOpenTrials int
}

// BreakerOption customizes a Breaker.
type BreakerOption func(b *Breaker)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateChangeFunc installs a transition callback. The callback runs with
// the breaker mutex held and must not call back into the breaker or block.
func WithStateChangeFunc(fn func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// WithRejectFunc installs a callback invoked whenever AllowRequest rejects.
// Same constraints as WithStateChangeFunc.
func WithRejectFunc(fn func(name string)) BreakerOption {
	return func(b *Breaker) {
		b.onReject = fn
	}
}

// NewBreaker creates a closed breaker for the given operation name.
func NewBreaker(name string, cfg Config, opts ...BreakerOption) *Breaker {
	cfg.normalize()

	breaker := &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(breaker)
		}
	}

	return breaker
}

// Name returns the operation name this breaker protects.
func (b *Breaker) Name() string {
	return b.name
}

// AllowRequest reports whether a request against the protected operation may
// proceed.
//
// Closed breakers always admit. Open breakers admit only once OpenDuration
// has elapsed since opening; that first admission also moves the breaker to
// half-open. Half-open breakers admit up to HalfOpenTrials requests until a
// recorded outcome resolves the probe.
func (b *Breaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenDuration {
			b.reject()
			return false
		}

		// Cool-down elapsed: this admission is the first recovery trial.
		b.transition(StateHalfOpen)
		b.halfOpenTrials = 1

		return true

	case StateHalfOpen:
		if b.halfOpenTrials >= b.cfg.HalfOpenTrials {
			b.reject()
			return false
		}

		b.halfOpenTrials++

		return true
	}

	return false
}

// RecordSuccess records a successful call. A success while half-open closes
// the breaker and zeroes the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
}

// RecordFailure records a failed call. While closed, reaching
// FailureThreshold trips the breaker open. While half-open, a single failure
// reopens it immediately and restarts the cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// Status returns a read-only snapshot of the breaker.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Name:            b.name,
		State:           b.state,
		FailureCount:    b.failureCount,
		LastFailureTime: b.lastFailure,
	}
}

// Reset forces the breaker closed and zeroes its counters, regardless of the
// current state. Reserved for explicit administrative action.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.transition(StateClosed)
		return
	}

	b.failureCount = 0
	b.halfOpenTrials = 0
}

// transition applies a state change. Must be called with the mutex held.
// Entering closed is the only place the failure count is zeroed.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to

	switch to {
	case StateClosed:
		b.failureCount = 0
		b.halfOpenTrials = 0
	case StateOpen:
		b.openedAt = b.now()
		b.halfOpenTrials = 0
	}

	if b.onStateChange != nil && from != to {
		b.onStateChange(b.name, from, to)
	}
}

func (b *Breaker) reject() {
	if b.onReject != nil {
		b.onReject(b.name)
	}
}
