// Package eventbus delivers persisted event records to in-process
// subscribers. Delivery is at-least-once: each subscriber is retried with
// jittered exponential backoff until it succeeds or the attempt budget is
// exhausted. Callers must only publish records that have already been
// appended to the event store; the bus itself never persists anything.
//
// By default subscribers for a record run concurrently, so two subscribers
// may observe events for the same aggregate in different relative orders.
// Use WithSerializedDelivery when ordering across subscribers matters.
package eventbus
