package stock

import "time"

// Event types appended to the event store. The aggregate ID is always the
// stock symbol.
const (
	EventPriceUpdated      = "price.updated"
	EventAnalysisRequested = "analysis.requested"
	EventSignalGenerated   = "signal.generated"
)

// PriceUpdated is appended when a new market price is recorded. ChangePercent
// is relative to the previous PriceUpdated event of the same symbol, 0 when
// there is none.
type PriceUpdated struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        int64     `json:"volume"`
	ChangePercent float64   `json:"changePercent"`
	At            time.Time `json:"at"`
}

// AnalysisRequested is appended when an analysis run is requested.
type AnalysisRequested struct {
	Symbol string    `json:"symbol"`
	At     time.Time `json:"at"`
}

// SignalGenerated is appended when a trading signal decision is recorded.
type SignalGenerated struct {
	Symbol string    `json:"symbol"`
	Signal string    `json:"signal"`
	At     time.Time `json:"at"`
}
