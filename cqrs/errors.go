package cqrs

import "errors"

var (
	// ErrHandlerRequired indicates a nil handler was passed to Register.
	ErrHandlerRequired = errors.New("cqrs: handler is required")

	// ErrHandlerConflict indicates two handlers claimed the same command
	// type. Registration is a startup-time configuration step, so the
	// conflict is rejected rather than resolved silently.
	ErrHandlerConflict = errors.New("cqrs: handler already registered for command type")

	// ErrCommandTypeRequired indicates a handler declared an empty command
	// type.
	ErrCommandTypeRequired = errors.New("cqrs: command type is required")

	// ErrLoggerRequired indicates a nil logger was passed to NewBus.
	ErrLoggerRequired = errors.New("cqrs: logger is required")
)
