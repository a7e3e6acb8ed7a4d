package cqrs

import "context"

// Handler processes one or more command types.
//
// HandledCommands declares the command discriminants the handler claims; the
// bus builds its dispatch table from these at registration time, so there is
// no per-dispatch type inspection.
type Handler interface {
	HandledCommands() []string
	Handle(ctx context.Context, cmd Command) Result
}
