package circuitbreaker

import "time"

// DefaultConfig provides balanced settings for most operations.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenDuration:     30 * time.Second,
		HalfOpenTrials:   3,
	}
}

// AggressiveConfig for operations requiring fast failure detection.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold: 3,
		OpenDuration:     10 * time.Second,
		HalfOpenTrials:   1,
	}
}

// ConservativeConfig for operations that should tolerate more failures.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold: 10,
		OpenDuration:     2 * time.Minute,
		HalfOpenTrials:   5,
	}
}

// QuoteConfig is tuned for high-volume realtime quote lookups, where a stuck
// upstream must be cut off quickly.
func QuoteConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenDuration:     15 * time.Second,
		HalfOpenTrials:   3,
	}
}

// AnalyticsConfig is tuned for expensive analysis and sector operations.
// These calls are slow and rare, so the breaker waits longer before probing.
func AnalyticsConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenDuration:     60 * time.Second,
		HalfOpenTrials:   2,
	}
}

// EmailConfig is tuned for outbound mail delivery. Mail providers flap, so
// this tolerates more failures before opening.
func EmailConfig() Config {
	return Config{
		FailureThreshold: 8,
		OpenDuration:     45 * time.Second,
		HalfOpenTrials:   2,
	}
}
