package gateway

import "time"

// SymbolInfo identifies a tradeable instrument known to the provider.
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
}

// QuoteSnapshot is a point-in-time market quote.
type QuoteSnapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        int64     `json:"volume"`
	ChangePercent float64   `json:"changePercent"`
	At            time.Time `json:"at"`
}

// AnalysisReport is the provider's verdict for a single symbol.
type AnalysisReport struct {
	Symbol         string    `json:"symbol"`
	Signal         string    `json:"signal"`
	Confidence     float64   `json:"confidence"`
	TargetPrice    float64   `json:"targetPrice"`
	Summary        string    `json:"summary"`
	GeneratedAt    time.Time `json:"generatedAt"`
	IndicatorScore float64   `json:"indicatorScore"`
}

// Candle is one bar of historical price data.
type Candle struct {
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	At     time.Time `json:"at"`
}

// SectorReport aggregates provider analysis across one market sector.
type SectorReport struct {
	Sector        string    `json:"sector"`
	TopSymbols    []string  `json:"topSymbols"`
	AverageChange float64   `json:"averageChange"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// EmailRequest is an outbound notification handed to the provider's mail
// relay.
type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
