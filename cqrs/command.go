package cqrs

// Command is an intention to change stock-domain state. Implementations are
// immutable values; CommandType returns the discriminant used for dispatch.
type Command interface {
	CommandType() string
}

// Result is the outcome of dispatching a command. It is always returned as a
// value, even for "no handler" outcomes.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a successful result.
func OK(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail builds a failed result.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}
