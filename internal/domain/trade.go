package domain

// TradeOutcome represents one closed trade as reported by the orchestrator.
// Recorded outcomes are never mutated; stores and the ledger keep copies.
type TradeOutcome struct {
	TradeID    string // deterministic hash, assigned on persistence
	Instrument string // exchange pair, e.g. "XBTUSD"

	// Execution
	EntryPrice   float64
	ExitPrice    float64
	Leverage     float64 // 1-10x
	HoldSeconds  int     // actual hold time
	PositionSize float64 // quote units

	// P&L
	NetPnL   float64 // after fees
	GrossPnL float64 // before fees
	FeesPaid float64

	Timestamp  int64 // close time (ms)
	ExitReason string

	// Market context at entry
	VolatilityAtEntry float64 // % 24h volatility
	SpreadAtEntry     float64 // % bid/ask spread

	// Excursion markers
	BarsToHigh     int     // bars from entry until peak
	BarsToLow      int     // bars from entry until trough
	MaxProfit      float64 // peak unrealized profit
	MaxLoss        float64 // peak unrealized loss
	TrendDirection float64 // 1.0 up, -1.0 down, 0.0 neutral
}

// Exit reason codes
const (
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTimeout    = "timeout"
	ExitReasonManual     = "manual"
)

// IsWin reports whether the trade closed with positive net P&L.
func (t TradeOutcome) IsWin() bool {
	return t.NetPnL > 0
}

// ROI returns net P&L as a percentage of position size.
// A zero-size position has an ROI of 0.
func (t TradeOutcome) ROI() float64 {
	if t.PositionSize == 0 {
		return 0
	}
	return t.NetPnL / t.PositionSize * 100
}
