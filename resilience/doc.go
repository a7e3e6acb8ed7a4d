// Package resilience wraps calls to the external analytics service with
// circuit breaker admission, a caller-supplied deadline, and a closed error
// taxonomy.
//
// Every request-handling path reaches the gateway through an Invoker: Execute
// for single-value calls, OpenStream for streaming calls. The invoker records
// exactly one breaker outcome per call or per stream, so failure accounting
// and cancellation never diverge.
package resilience
