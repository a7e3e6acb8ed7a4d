package backoff

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// maxShift caps the exponent so the bit shift cannot overflow int64.
const maxShift = 62

// Exponential returns base * 2^attempt with overflow protection. Negative
// attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1) << attempt

	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(int64(base) * multiplier)
}

// FullJitter returns a uniformly random duration in [0, delay). Returns 0
// for zero or negative delays.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(delay)))
}

// ExponentialWithJitter combines exponential backoff with full jitter,
// returning a random duration in [0, base * 2^attempt). This is the "Full
// Jitter" strategy recommended by AWS.
func ExponentialWithJitter(base time.Duration, attempt int) time.Duration {
	return FullJitter(Exponential(base, attempt))
}

// SleepWithContext sleeps for the given duration, respecting context
// cancellation. Returns immediately for zero or negative durations.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
