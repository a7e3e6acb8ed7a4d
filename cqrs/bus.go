package cqrs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stockpulse/lib-core/log"
)

// Bus routes commands to their registered handlers.
//
// The dispatch table is keyed by command type. Registration happens once at
// process start; Send is safe under concurrent callers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   log.Logger
}

// NewBus creates an empty command bus.
func NewBus(logger log.Logger) (*Bus, error) {
	if logger == nil {
		return nil, ErrLoggerRequired
	}

	return &Bus{
		handlers: make(map[string]Handler),
		logger:   logger,
	}, nil
}

// Register adds a handler for every command type it claims. Registering a
// second handler for an already-claimed type fails with ErrHandlerConflict
// and leaves the bus unchanged.
func (b *Bus) Register(handler Handler) error {
	if handler == nil {
		return ErrHandlerRequired
	}

	types := handler.HandledCommands()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Validate the whole claim set before mutating anything.
	for _, commandType := range types {
		commandType = strings.TrimSpace(commandType)
		if commandType == "" {
			return ErrCommandTypeRequired
		}

		if _, exists := b.handlers[commandType]; exists {
			return fmt.Errorf("%w: %s", ErrHandlerConflict, commandType)
		}
	}

	for _, commandType := range types {
		b.handlers[strings.TrimSpace(commandType)] = handler
	}

	b.logger.Debugf("Registered command handler for types: %v", types)

	return nil
}

// Send dispatches a command to the handler registered for its type.
//
// A missing handler is a normal outcome: Send returns a failed Result whose
// message names the command type. Send never panics outward and never
// returns an error.
func (b *Bus) Send(ctx context.Context, cmd Command) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Command handler panic: %v", r)
			result = Fail(fmt.Sprintf("command handler panic: %v", r))
		}
	}()

	if cmd == nil {
		return Fail("No handler found for <nil>")
	}

	commandType := cmd.CommandType()

	b.mu.RLock()
	handler, exists := b.handlers[commandType]
	b.mu.RUnlock()

	if !exists {
		b.logger.Warnf("No handler found for command type: %s", commandType)
		return Fail(fmt.Sprintf("No handler found for %s", commandType))
	}

	return handler.Handle(ctx, cmd)
}
