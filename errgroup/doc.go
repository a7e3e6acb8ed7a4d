// Package errgroup provides a goroutine group with shared cancellation,
// first-error capture, and panic recovery. It mirrors the semantics of
// golang.org/x/sync/errgroup while converting panics in member goroutines
// into errors instead of crashing the process, which matters when the
// group runs third-party subscriber callbacks.
package errgroup
