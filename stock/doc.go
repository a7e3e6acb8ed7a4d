// Package stock is the command side of the stock-analysis domain. Each
// command is handled by exactly one handler that appends a domain event to
// the event store under optimistic concurrency and, only after the append
// has durably succeeded, publishes the persisted record to subscribers.
package stock
