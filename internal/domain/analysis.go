package domain

// Analysis status codes
const (
	AnalysisStatusInsufficientData = "insufficient_data"
	AnalysisStatusComplete         = "complete"
)

// Regime labels
const (
	RegimeUnknown        = "unknown"
	RegimeHighVolatility = "high_volatility"
	RegimeTrendingUp     = "trending_up"
	RegimeTrendingDown   = "trending_down"
	RegimeConsolidating  = "consolidating"
)

// PatternCorrelation is the Pearson correlation of two patterns' win/loss sequences.
type PatternCorrelation struct {
	A           PatternKey
	B           PatternKey
	Correlation float64
}

// DriftReport compares win rates of the older and recent halves of the ledger.
type DriftReport struct {
	Sufficient    bool // false when the ledger is too small
	OldWinRate    float64
	RecentWinRate float64
	Shifted       bool
}

// AnalysisReport summarizes one analysis pass.
type AnalysisReport struct {
	RunID        string
	Status       string
	TradeCount   int
	MinTrades    int
	PatternCount int
	Winners      []PatternMetrics // trustworthy patterns ranked by profit factor
	Correlations []PatternCorrelation
	Drift        DriftReport
	Regime       string
	Strategies   int
}

// Summary is the engine-level statistics snapshot exposed to callers.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	Instruments   int     `json:"instruments"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	PatternCount  int     `json:"patterns_found"`
	StrategyCount int     `json:"strategies"`
	Regime        string  `json:"regime"`
}

// PatternSnapshot is one pattern record captured by an analysis run.
// Corresponds to pattern_snapshots table in ClickHouse.
type PatternSnapshot struct {
	RunID   string // analysis run identifier (ULID)
	TakenAt int64  // snapshot time (ms)
	Metrics PatternMetrics
}
