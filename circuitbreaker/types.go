package circuitbreaker

import "time"

// State represents the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Status is a read-only snapshot of one breaker, safe to hand to
// observability endpoints.
type Status struct {
	Name            string    `json:"name"`
	State           State     `json:"state"`
	FailureCount    int       `json:"failureCount"`
	LastFailureTime time.Time `json:"lastFailureTime"`
}

// Config holds the knobs of a single breaker.
type Config struct {
	// FailureThreshold is the number of recorded failures that trips a
	// closed breaker open.
	FailureThreshold int

	// OpenDuration is how long an open breaker rejects requests before the
	// next admission check moves it to half-open.
	OpenDuration time.Duration

	// HalfOpenTrials caps how many trial requests are admitted while
	// half-open and unresolved.
	HalfOpenTrials int
}

// normalize replaces non-positive fields with the default preset values.
func (c *Config) normalize() {
	def := DefaultConfig()

	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}

	if c.OpenDuration <= 0 {
		c.OpenDuration = def.OpenDuration
	}

	if c.HalfOpenTrials <= 0 {
		c.HalfOpenTrials = def.HalfOpenTrials
	}
}

// StateChangeListener is notified when a breaker changes state.
type StateChangeListener interface {
	// OnStateChange is called after a transition has been applied. It runs
	// on its own goroutine and must tolerate concurrent invocations.
	OnStateChange(name string, from State, to State)
}
