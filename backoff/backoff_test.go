package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100*time.Millisecond, Exponential(100*time.Millisecond, 0))
	assert.Equal(t, 400*time.Millisecond, Exponential(100*time.Millisecond, 2))
	assert.Equal(t, 100*time.Millisecond, Exponential(100*time.Millisecond, -3))
	assert.Equal(t, time.Duration(0), Exponential(0, 5))

	// Large attempts saturate instead of overflowing.
	assert.Equal(t, time.Duration(math.MaxInt64), Exponential(time.Hour, 62))
}

func TestFullJitter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))

	for i := 0; i < 100; i++ {
		jittered := FullJitter(time.Second)
		assert.GreaterOrEqual(t, jittered, time.Duration(0))
		assert.Less(t, jittered, time.Second)
	}
}

func TestExponentialWithJitter(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 5; attempt++ {
		jittered := ExponentialWithJitter(50*time.Millisecond, attempt)
		assert.GreaterOrEqual(t, jittered, time.Duration(0))
		assert.Less(t, jittered, Exponential(50*time.Millisecond, attempt))
	}
}

func TestSleepWithContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, SleepWithContext(context.Background(), 0))
	require.NoError(t, SleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepWithContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
