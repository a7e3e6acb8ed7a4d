package resilience

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when the breaker rejects a request before
	// the delegate is invoked. No deadline budget is consumed.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when the caller-supplied deadline fires before
	// the delegate completes.
	ErrTimeout = errors.New("resilience: deadline exceeded")

	// ErrManagerRequired indicates a nil breaker manager was passed to
	// NewInvoker.
	ErrManagerRequired = errors.New("resilience: breaker manager is required")

	// ErrLoggerRequired indicates a nil logger was passed to NewInvoker.
	ErrLoggerRequired = errors.New("resilience: logger is required")

	// ErrCallRequired indicates a nil delegate was passed to Execute.
	ErrCallRequired = errors.New("resilience: call is required")
)

// UpstreamError means the delegate call completed but failed. The gateway's
// native error is kept as the cause; callers never see it as their own type.
type UpstreamError struct {
	Name  string
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("resilience: upstream operation %q failed: %v", e.Name, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Unavailable reports whether err should degrade to a uniform "service
// temporarily unavailable" signal at the boundary: fast-fails and timeouts
// qualify, upstream failures do not.
func Unavailable(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTimeout)
}
