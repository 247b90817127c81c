package reporting

import "time"

// Report is the pattern-mining report rendered to Markdown and CSV.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string // last analysis run, empty if none completed
	Status      string

	Summary      DataSummary
	Patterns     []PatternRow // sorted by pattern key
	Winners      []PatternRow // trustworthy patterns ranked by profit factor
	Correlations []CorrelationRow
	Drift        DriftSection
	Strategies   []StrategyRow
}

// DataSummary describes the ledger as a whole.
type DataSummary struct {
	TotalTrades    int
	Instruments    int
	WinRate        float64
	TotalPnL       float64
	TotalFees      float64
	DrawdownRisk   float64 // max drawdown of the ledger ROI series
	WinRateAt95    float64 // one-sided 95% lower bound of the win rate
	Regime         string
	DateRangeStart int64 // Unix ms, 0 if unknown
	DateRangeEnd   int64 // Unix ms, 0 if unknown
	PatternCount   int
	StrategyCount  int
}

// PatternRow is one line of the pattern table.
type PatternRow struct {
	Pattern      string
	Trades       int
	WinRate      float64
	TotalPnL     float64
	AvgWin       float64
	AvgLoss      float64
	ProfitFactor float64
	MaxDrawdown  float64
	Sharpe       float64
	Sortino      float64
	Confidence   float64
	HasEdge      bool
	Edge         float64
}

// CorrelationRow is one correlated pattern pair.
type CorrelationRow struct {
	A           string
	B           string
	Correlation float64
}

// DriftSection reports win-rate drift between ledger halves.
type DriftSection struct {
	Sufficient    bool
	OldWinRate    float64
	RecentWinRate float64
	Shifted       bool
}

// StrategyRow is one synthesized strategy.
type StrategyRow struct {
	Name          string
	Instrument    string
	Leverage      float64
	HoldSeconds   int
	MinVolatility float64
	MaxSpreadPct  float64
	TakeProfitPct float64
	StopLossPct   float64
	PositionSize  float64
	TrailingStop  bool
	TrailingPct   float64
	PartialExits  bool
	Edge          float64
}
