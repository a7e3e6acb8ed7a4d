// Package backoff provides exponential backoff with jitter for retry loops.
package backoff
