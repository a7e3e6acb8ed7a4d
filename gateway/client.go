package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/stockpulse/lib-core/circuitbreaker"
	"github.com/stockpulse/lib-core/log"
	"github.com/stockpulse/lib-core/resilience"
)

// Breaker names, one per remote operation. Each operation trips
// independently so a degraded analysis pipeline does not take quotes down
// with it.
const (
	BreakerSymbols  = "symbols"
	BreakerQuote    = "quote"
	BreakerAnalysis = "analysis"
	BreakerHistory  = "history"
	BreakerSector   = "sector"
	BreakerEmail    = "email"
)

// ErrAPIRequired is returned by NewClient when no AnalyticsAPI is provided.
var ErrAPIRequired = errors.New("gateway: analytics api is required")

// Timeouts holds the per-operation deadlines applied by Client.
type Timeouts struct {
	Symbols time.Duration
	Quote   time.Duration
	Analyze time.Duration
	History time.Duration
	Sector  time.Duration
	Email   time.Duration
}

// DefaultTimeouts returns the deadlines used when none are configured.
// Quotes are latency-sensitive; analysis and history are allowed to run
// longer.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Symbols: 5 * time.Second,
		Quote:   2 * time.Second,
		Analyze: 15 * time.Second,
		History: 30 * time.Second,
		Sector:  15 * time.Second,
		Email:   10 * time.Second,
	}
}

func (t Timeouts) normalize() Timeouts {
	defaults := DefaultTimeouts()

	if t.Symbols <= 0 {
		t.Symbols = defaults.Symbols
	}

	if t.Quote <= 0 {
		t.Quote = defaults.Quote
	}

	if t.Analyze <= 0 {
		t.Analyze = defaults.Analyze
	}

	if t.History <= 0 {
		t.History = defaults.History
	}

	if t.Sector <= 0 {
		t.Sector = defaults.Sector
	}

	if t.Email <= 0 {
		t.Email = defaults.Email
	}

	return t
}

// Client wraps an AnalyticsAPI so that every remote operation goes through
// its own circuit breaker and deadline. It also exposes the admin surface
// for inspecting and resetting breakers.
type Client struct {
	api      AnalyticsAPI
	invoker  *resilience.Invoker
	manager  circuitbreaker.Manager
	timeouts Timeouts
}

// ClientOption customizes a Client.
type ClientOption func(c *Client)

// WithTimeouts overrides the per-operation deadlines. Zero fields keep
// their defaults.
func WithTimeouts(timeouts Timeouts) ClientOption {
	return func(c *Client) {
		c.timeouts = timeouts
	}
}

// NewClient creates a Client on top of an existing breaker registry. The
// registry is shared so operators see gateway breakers alongside any others
// the process owns.
func NewClient(api AnalyticsAPI, manager circuitbreaker.Manager, logger log.Logger, opts ...ClientOption) (*Client, error) {
	if api == nil {
		return nil, ErrAPIRequired
	}

	invoker, err := resilience.NewInvoker(manager, logger,
		resilience.WithConfigResolver(breakerConfigFor))
	if err != nil {
		return nil, err
	}

	client := &Client{
		api:      api,
		invoker:  invoker,
		manager:  manager,
		timeouts: DefaultTimeouts(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	client.timeouts = client.timeouts.normalize()

	return client, nil
}

// breakerConfigFor picks the breaker profile for an operation. Quotes trip
// fast and recover fast; analysis tolerates more failures before opening;
// email is the most conservative since the relay is flaky by nature.
func breakerConfigFor(name string) circuitbreaker.Config {
	switch name {
	case BreakerQuote:
		return circuitbreaker.QuoteConfig()
	case BreakerAnalysis, BreakerSector:
		return circuitbreaker.AnalyticsConfig()
	case BreakerEmail:
		return circuitbreaker.EmailConfig()
	default:
		return circuitbreaker.DefaultConfig()
	}
}

// Symbols lists the instruments the provider can analyze.
func (c *Client) Symbols(ctx context.Context) ([]SymbolInfo, error) {
	return resilience.Invoke(ctx, c.invoker, BreakerSymbols, c.timeouts.Symbols,
		func(ctx context.Context) ([]SymbolInfo, error) {
			return c.api.Symbols(ctx)
		})
}

// Quote returns the current market snapshot for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (QuoteSnapshot, error) {
	return resilience.Invoke(ctx, c.invoker, BreakerQuote, c.timeouts.Quote,
		func(ctx context.Context) (QuoteSnapshot, error) {
			return c.api.Quote(ctx, symbol)
		})
}

// Analyze runs the provider's analysis pipeline for one symbol.
func (c *Client) Analyze(ctx context.Context, symbol string) (AnalysisReport, error) {
	return resilience.Invoke(ctx, c.invoker, BreakerAnalysis, c.timeouts.Analyze,
		func(ctx context.Context) (AnalysisReport, error) {
			return c.api.Analyze(ctx, symbol)
		})
}

// History streams historical candles for the symbol. The stream's deadline
// covers its entire lifetime; expiry cancels the underlying subscription.
func (c *Client) History(ctx context.Context, symbol string, days int) (*resilience.Stream[Candle], error) {
	return resilience.OpenStream(ctx, c.invoker, BreakerHistory, c.timeouts.History,
		func(ctx context.Context) (<-chan Candle, <-chan error, error) {
			return c.api.History(ctx, symbol, days)
		})
}

// SectorAnalysis aggregates analysis across a market sector.
func (c *Client) SectorAnalysis(ctx context.Context, sector string) (SectorReport, error) {
	return resilience.Invoke(ctx, c.invoker, BreakerSector, c.timeouts.Sector,
		func(ctx context.Context) (SectorReport, error) {
			return c.api.SectorAnalysis(ctx, sector)
		})
}

// SendEmail delivers an outbound notification through the provider's relay.
func (c *Client) SendEmail(ctx context.Context, req EmailRequest) error {
	_, err := resilience.Invoke(ctx, c.invoker, BreakerEmail, c.timeouts.Email,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.api.SendEmail(ctx, req)
		})

	return err
}

// BreakerStatus reports the status of every breaker in the shared registry.
func (c *Client) BreakerStatus() map[string]circuitbreaker.Status {
	return c.manager.AllStatus()
}

// ResetBreaker forces the named breaker back to closed with a zero failure
// count. Unknown names are ignored.
func (c *Client) ResetBreaker(name string) {
	c.manager.Reset(name)
}
