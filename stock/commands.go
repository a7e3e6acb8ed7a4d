package stock

// Command discriminants dispatched through the command bus.
const (
	CommandUpdateStockPrice      = "UpdateStockPrice"
	CommandAnalyzeStock          = "AnalyzeStock"
	CommandGenerateTradingSignal = "GenerateTradingSignal"
)

// Trading signals accepted by GenerateTradingSignal.
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalHold = "HOLD"
)

// UpdateStockPrice records a new market price for a symbol.
type UpdateStockPrice struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// CommandType implements cqrs.Command.
func (UpdateStockPrice) CommandType() string { return CommandUpdateStockPrice }

// AnalyzeStock requests an analysis run for a symbol.
type AnalyzeStock struct {
	Symbol string `json:"symbol"`
}

// CommandType implements cqrs.Command.
func (AnalyzeStock) CommandType() string { return CommandAnalyzeStock }

// GenerateTradingSignal records a trading signal decision for a symbol.
type GenerateTradingSignal struct {
	Symbol string `json:"symbol"`
	Signal string `json:"signal"`
}

// CommandType implements cqrs.Command.
func (GenerateTradingSignal) CommandType() string { return CommandGenerateTradingSignal }
