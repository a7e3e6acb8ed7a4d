package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockpulse/lib-core/cqrs"
	"github.com/stockpulse/lib-core/eventbus"
	"github.com/stockpulse/lib-core/eventstore"
	"github.com/stockpulse/lib-core/log"
)

var (
	// ErrStoreRequired is returned by handler constructors when no event
	// store is provided.
	ErrStoreRequired = errors.New("stock: event store is required")

	// ErrLoggerRequired is returned by handler constructors when no logger
	// is provided.
	ErrLoggerRequired = errors.New("stock: logger is required")
)

// appendAttempts bounds how often a handler re-reads the head version after
// losing an optimistic concurrency race to a concurrent writer.
const appendAttempts = 3

// journal is the shared persist-then-publish machinery of every handler.
// The publisher may be nil, in which case events are persisted but not
// delivered anywhere.
type journal struct {
	store     eventstore.Store
	publisher *eventbus.Publisher
	logger    log.Logger
	now       func() time.Time
}

func newJournal(store eventstore.Store, publisher *eventbus.Publisher, logger log.Logger) (journal, error) {
	if store == nil {
		return journal{}, ErrStoreRequired
	}

	if logger == nil {
		return journal{}, ErrLoggerRequired
	}

	return journal{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// record marshals the event, appends it at the aggregate's current head and
// publishes the persisted record. Publication happens strictly after the
// append has succeeded; a failed append publishes nothing.
func (j *journal) record(ctx context.Context, symbol, eventType string, event any) (*eventstore.Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("stock: marshal %s event: %w", eventType, err)
	}

	var lastErr error

	for attempt := 0; attempt < appendAttempts; attempt++ {
		head, err := j.store.CurrentVersion(ctx, symbol)
		if err != nil {
			return nil, err
		}

		rec, err := j.store.Append(ctx, symbol, eventType, payload, head)
		if err == nil {
			j.publish(ctx, rec)
			return rec, nil
		}

		if !eventstore.IsVersionConflict(err) {
			return nil, err
		}

		// Lost the race to a concurrent writer; re-read the head.
		lastErr = err
	}

	return nil, lastErr
}

// publish delivers the persisted record. A delivery failure does not undo
// the append: the record is durable and delivery is at-least-once, so the
// failure is logged and the command still succeeds.
func (j *journal) publish(ctx context.Context, rec *eventstore.Record) {
	if j.publisher == nil {
		return
	}

	if err := j.publisher.Publish(ctx, rec); err != nil {
		j.logger.Errorf("Event %s v%d for aggregate %s persisted but delivery failed: %v",
			rec.EventType, rec.Version, rec.AggregateID, err)
	}
}

func conflictResult(symbol string, err error) cqrs.Result {
	var conflict *eventstore.VersionConflictError
	if errors.As(err, &conflict) {
		return cqrs.Fail(fmt.Sprintf("Concurrent update for %s (expected version %d, actual %d), please retry",
			symbol, conflict.Expected, conflict.Actual))
	}

	return cqrs.Fail(err.Error())
}

// UpdatePriceHandler handles UpdateStockPrice commands.
type UpdatePriceHandler struct {
	journal
}

// NewUpdatePriceHandler creates the handler. publisher may be nil.
func NewUpdatePriceHandler(store eventstore.Store, publisher *eventbus.Publisher, logger log.Logger) (*UpdatePriceHandler, error) {
	j, err := newJournal(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	return &UpdatePriceHandler{journal: j}, nil
}

// HandledCommands implements cqrs.Handler.
func (h *UpdatePriceHandler) HandledCommands() []string {
	return []string{CommandUpdateStockPrice}
}

// Handle appends a PriceUpdated event for the symbol. ChangePercent is
// computed against the symbol's previous PriceUpdated event.
func (h *UpdatePriceHandler) Handle(ctx context.Context, cmd cqrs.Command) cqrs.Result {
	update, ok := cmd.(UpdateStockPrice)
	if !ok {
		return cqrs.Fail(fmt.Sprintf("Unexpected command %T for %s handler", cmd, CommandUpdateStockPrice))
	}

	if strings.TrimSpace(update.Symbol) == "" {
		return cqrs.Fail("Symbol is required")
	}

	if update.Price <= 0 {
		return cqrs.Fail(fmt.Sprintf("Price must be positive, got %v", update.Price))
	}

	if update.Volume < 0 {
		return cqrs.Fail(fmt.Sprintf("Volume must not be negative, got %d", update.Volume))
	}

	change, err := h.changePercent(ctx, update.Symbol, update.Price)
	if err != nil {
		return cqrs.Fail(err.Error())
	}

	event := PriceUpdated{
		Symbol:        update.Symbol,
		Price:         update.Price,
		Volume:        update.Volume,
		ChangePercent: change,
		At:            h.now().UTC(),
	}

	rec, err := h.record(ctx, update.Symbol, EventPriceUpdated, event)
	if err != nil {
		return conflictResult(update.Symbol, err)
	}

	return cqrs.OK(fmt.Sprintf("Price updated for %s", update.Symbol), rec)
}

// changePercent finds the symbol's most recent PriceUpdated event and
// computes the relative change of price against it. Returns 0 when the
// symbol has no prior price.
func (h *UpdatePriceHandler) changePercent(ctx context.Context, symbol string, price float64) (float64, error) {
	records, err := h.store.Load(ctx, symbol)
	if err != nil {
		return 0, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		if records[i].EventType != EventPriceUpdated {
			continue
		}

		var previous PriceUpdated
		if err := json.Unmarshal(records[i].Payload, &previous); err != nil {
			return 0, fmt.Errorf("stock: decode prior %s event v%d: %w", EventPriceUpdated, records[i].Version, err)
		}

		if previous.Price == 0 {
			return 0, nil
		}

		return (price - previous.Price) / previous.Price * 100, nil
	}

	return 0, nil
}

// AnalyzeHandler handles AnalyzeStock commands.
type AnalyzeHandler struct {
	journal
}

// NewAnalyzeHandler creates the handler. publisher may be nil.
func NewAnalyzeHandler(store eventstore.Store, publisher *eventbus.Publisher, logger log.Logger) (*AnalyzeHandler, error) {
	j, err := newJournal(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	return &AnalyzeHandler{journal: j}, nil
}

// HandledCommands implements cqrs.Handler.
func (h *AnalyzeHandler) HandledCommands() []string {
	return []string{CommandAnalyzeStock}
}

// Handle appends an AnalysisRequested event for the symbol.
func (h *AnalyzeHandler) Handle(ctx context.Context, cmd cqrs.Command) cqrs.Result {
	analyze, ok := cmd.(AnalyzeStock)
	if !ok {
		return cqrs.Fail(fmt.Sprintf("Unexpected command %T for %s handler", cmd, CommandAnalyzeStock))
	}

	if strings.TrimSpace(analyze.Symbol) == "" {
		return cqrs.Fail("Symbol is required")
	}

	event := AnalysisRequested{Symbol: analyze.Symbol, At: h.now().UTC()}

	rec, err := h.record(ctx, analyze.Symbol, EventAnalysisRequested, event)
	if err != nil {
		return conflictResult(analyze.Symbol, err)
	}

	return cqrs.OK(fmt.Sprintf("Analysis requested for %s", analyze.Symbol), rec)
}

// SignalHandler handles GenerateTradingSignal commands.
type SignalHandler struct {
	journal
}

// NewSignalHandler creates the handler. publisher may be nil.
func NewSignalHandler(store eventstore.Store, publisher *eventbus.Publisher, logger log.Logger) (*SignalHandler, error) {
	j, err := newJournal(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	return &SignalHandler{journal: j}, nil
}

// HandledCommands implements cqrs.Handler.
func (h *SignalHandler) HandledCommands() []string {
	return []string{CommandGenerateTradingSignal}
}

// Handle appends a SignalGenerated event for the symbol. The signal must be
// one of BUY, SELL or HOLD.
func (h *SignalHandler) Handle(ctx context.Context, cmd cqrs.Command) cqrs.Result {
	generate, ok := cmd.(GenerateTradingSignal)
	if !ok {
		return cqrs.Fail(fmt.Sprintf("Unexpected command %T for %s handler", cmd, CommandGenerateTradingSignal))
	}

	if strings.TrimSpace(generate.Symbol) == "" {
		return cqrs.Fail("Symbol is required")
	}

	switch generate.Signal {
	case SignalBuy, SignalSell, SignalHold:
	default:
		return cqrs.Fail(fmt.Sprintf("Unknown trading signal %q", generate.Signal))
	}

	event := SignalGenerated{Symbol: generate.Symbol, Signal: generate.Signal, At: h.now().UTC()}

	rec, err := h.record(ctx, generate.Symbol, EventSignalGenerated, event)
	if err != nil {
		return conflictResult(generate.Symbol, err)
	}

	return cqrs.OK(fmt.Sprintf("Signal %s generated for %s", generate.Signal, generate.Symbol), rec)
}

// NewCommandBus wires a command bus with every stock handler registered.
// publisher may be nil when event delivery is not needed.
func NewCommandBus(store eventstore.Store, publisher *eventbus.Publisher, logger log.Logger) (*cqrs.Bus, error) {
	bus, err := cqrs.NewBus(logger)
	if err != nil {
		return nil, err
	}

	priceHandler, err := NewUpdatePriceHandler(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	analyzeHandler, err := NewAnalyzeHandler(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	signalHandler, err := NewSignalHandler(store, publisher, logger)
	if err != nil {
		return nil, err
	}

	for _, handler := range []cqrs.Handler{priceHandler, analyzeHandler, signalHandler} {
		if err := bus.Register(handler); err != nil {
			return nil, err
		}
	}

	return bus, nil
}
