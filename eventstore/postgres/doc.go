// Package postgres provides the durable PostgreSQL adapter for the event
// store. Schema migrations live under migrations and are applied by the
// postgres connection helper.
package postgres
