package cqrs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/lib-core/log"
)

type fakeCommand struct {
	kind string
}

func (c fakeCommand) CommandType() string { return c.kind }

type fakeHandler struct {
	types  []string
	handle func(ctx context.Context, cmd Command) Result
}

func (h *fakeHandler) HandledCommands() []string { return h.types }

func (h *fakeHandler) Handle(ctx context.Context, cmd Command) Result {
	if h.handle != nil {
		return h.handle(ctx, cmd)
	}

	return OK("handled "+cmd.CommandType(), nil)
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()

	bus, err := NewBus(log.NewNop())
	require.NoError(t, err)

	return bus
}

func TestNewBus_RequiresLogger(t *testing.T) {
	t.Parallel()

	_, err := NewBus(nil)
	assert.ErrorIs(t, err, ErrLoggerRequired)
}

func TestBus_SendDispatchesByType(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	require.NoError(t, bus.Register(&fakeHandler{types: []string{"UpdateStockPrice"}}))
	require.NoError(t, bus.Register(&fakeHandler{types: []string{"AnalyzeStock", "GenerateTradingSignal"}}))

	result := bus.Send(context.Background(), fakeCommand{kind: "AnalyzeStock"})

	assert.True(t, result.Success)
	assert.Equal(t, "handled AnalyzeStock", result.Message)
}

func TestBus_SendWithoutHandlerReturnsValue(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	result := bus.Send(context.Background(), fakeCommand{kind: "DeleteEverything"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No handler found")
	assert.Contains(t, result.Message, "DeleteEverything")
}

func TestBus_SendNilCommand(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	result := bus.Send(context.Background(), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No handler found")
}

func TestBus_RegisterConflictRejected(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	require.NoError(t, bus.Register(&fakeHandler{types: []string{"UpdateStockPrice"}}))

	err := bus.Register(&fakeHandler{types: []string{"UpdateStockPrice"}})
	assert.ErrorIs(t, err, ErrHandlerConflict)

	// A partial conflict must leave the bus unchanged.
	err = bus.Register(&fakeHandler{types: []string{"NewCommand", "UpdateStockPrice"}})
	assert.ErrorIs(t, err, ErrHandlerConflict)

	result := bus.Send(context.Background(), fakeCommand{kind: "NewCommand"})
	assert.False(t, result.Success)
}

func TestBus_RegisterValidation(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	assert.ErrorIs(t, bus.Register(nil), ErrHandlerRequired)
	assert.ErrorIs(t, bus.Register(&fakeHandler{types: []string{"  "}}), ErrCommandTypeRequired)
}

func TestBus_HandlerPanicBecomesFailedResult(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	require.NoError(t, bus.Register(&fakeHandler{
		types: []string{"Explode"},
		handle: func(ctx context.Context, cmd Command) Result {
			panic("boom")
		},
	}))

	result := bus.Send(context.Background(), fakeCommand{kind: "Explode"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "panic")
}

func TestBus_ConcurrentSend(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	require.NoError(t, bus.Register(&fakeHandler{types: []string{"UpdateStockPrice"}}))

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result := bus.Send(context.Background(), fakeCommand{kind: "UpdateStockPrice"})
			assert.True(t, result.Success)
		}()
	}

	wg.Wait()
}
