// Package log defines the logging façade shared by every lib-core package.
//
// Components accept a log.Logger so callers decide the backend: GoLogger for
// plain stdlib output, ZapLogger for structured production logging, and
// NopLogger for tests and optional wiring.
package log
