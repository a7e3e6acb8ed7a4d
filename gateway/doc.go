// Package gateway defines the external analytics provider surface and a
// client that routes every remote operation through a circuit breaker and a
// per-operation deadline. Request handlers depend on Client; nothing in the
// codebase calls an AnalyticsAPI implementation directly.
package gateway
