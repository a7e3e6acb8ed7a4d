// Package circuitbreaker provides per-operation fault isolation for calls to
// the external analytics service.
//
// Each named operation owns a Breaker, a small state machine cycling through
// closed, open and half-open. Use NewManager to create breakers lazily by
// name, inspect them through AllStatus, and force recovery with Reset.
package circuitbreaker
