// Package cqrs provides the command dispatch core for stock-domain state
// changes.
//
// Commands are a closed, tagged set of immutable values. A Bus routes each
// command to the single handler registered for its type; a missing handler is
// a normal Result value, never an error. Handlers are registered once at
// process start, after which the registry is effectively read-only.
package cqrs
