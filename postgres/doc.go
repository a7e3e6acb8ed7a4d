// Package postgres manages the PostgreSQL connections backing the event
// store. It opens a primary plus a read-only replica behind a round-robin
// resolver, applies pool limits, and runs file-based schema migrations on
// the primary before the first query.
package postgres
