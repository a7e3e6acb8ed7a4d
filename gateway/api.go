package gateway

import "context"

//go:generate mockgen --destination=api_mock.go --package=gateway . AnalyticsAPI

// AnalyticsAPI is the raw remote surface of the stock analytics provider.
// Implementations perform the actual network I/O and must honor ctx
// cancellation. They are never called directly by request handlers; all
// traffic goes through Client so that every operation is guarded by a
// circuit breaker and a deadline.
type AnalyticsAPI interface {
	// Symbols lists the instruments the provider can analyze.
	Symbols(ctx context.Context) ([]SymbolInfo, error)

	// Quote returns the current market snapshot for one symbol.
	Quote(ctx context.Context, symbol string) (QuoteSnapshot, error)

	// Analyze runs the provider's analysis pipeline for one symbol.
	Analyze(ctx context.Context, symbol string) (AnalysisReport, error)

	// History opens a subscription streaming historical candles for the
	// symbol. Candles arrive on the first channel, which is closed on
	// normal completion. A terminal mid-stream failure arrives on the
	// second channel. An immediate open failure is returned as err.
	History(ctx context.Context, symbol string, days int) (<-chan Candle, <-chan error, error)

	// SectorAnalysis aggregates analysis across a market sector.
	SectorAnalysis(ctx context.Context, sector string) (SectorReport, error)

	// SendEmail delivers an outbound notification.
	SendEmail(ctx context.Context, req EmailRequest) error
}
