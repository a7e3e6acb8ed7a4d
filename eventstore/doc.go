// Package eventstore provides the append-only event log for stock-domain
// state changes.
//
// Records are versioned per aggregate with a strictly increasing, gapless
// sequence. Appends declare the version they expect to extend; stale writers
// are rejected with a VersionConflictError instead of locking in advance.
// MemoryStore backs tests and single-node setups; the postgres subpackage
// provides the durable adapter.
package eventstore
