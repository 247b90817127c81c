package service

import "trade-pattern-lab/internal/domain"

// TradeRequest is the POST /trades body. Field names follow the ledger
// document; gross_pnl defaults to pnl + fees.
type TradeRequest struct {
	Pair         string   `json:"pair"`
	Entry        float64  `json:"entry"`
	Exit         float64  `json:"exit"`
	Leverage     float64  `json:"leverage"`
	HoldSeconds  int      `json:"hold_seconds"`
	PositionSize float64  `json:"position_size"`
	PnL          float64  `json:"pnl"`
	GrossPnL     *float64 `json:"gross_pnl,omitempty"`
	Fees         float64  `json:"fees"`
	Timestamp    int64    `json:"timestamp"`
	Reason       string   `json:"reason"`
	Volatility   float64  `json:"volatility"`
	Spread       float64  `json:"spread"`

	BarsToHigh     int     `json:"bars_to_high"`
	BarsToLow      int     `json:"bars_to_low"`
	MaxProfit      float64 `json:"max_profit"`
	MaxLoss        float64 `json:"max_loss"`
	TrendDirection float64 `json:"trend_direction"`
}

// Outcome converts the request into a trade outcome.
func (r TradeRequest) Outcome() domain.TradeOutcome {
	gross := r.PnL + r.Fees
	if r.GrossPnL != nil {
		gross = *r.GrossPnL
	}
	return domain.TradeOutcome{
		Instrument:        r.Pair,
		EntryPrice:        r.Entry,
		ExitPrice:         r.Exit,
		Leverage:          r.Leverage,
		HoldSeconds:       r.HoldSeconds,
		PositionSize:      r.PositionSize,
		NetPnL:            r.PnL,
		GrossPnL:          gross,
		FeesPaid:          r.Fees,
		Timestamp:         r.Timestamp,
		ExitReason:        r.Reason,
		VolatilityAtEntry: r.Volatility,
		SpreadAtEntry:     r.Spread,
		BarsToHigh:        r.BarsToHigh,
		BarsToLow:         r.BarsToLow,
		MaxProfit:         r.MaxProfit,
		MaxLoss:           r.MaxLoss,
		TrendDirection:    r.TrendDirection,
	}
}

// TradeView is the JSON form of a stored trade.
type TradeView struct {
	TradeID string `json:"trade_id"`
	TradeRequest
}

// NewTradeView converts a stored trade.
func NewTradeView(t domain.TradeOutcome) TradeView {
	gross := t.GrossPnL
	return TradeView{
		TradeID: t.TradeID,
		TradeRequest: TradeRequest{
			Pair:           t.Instrument,
			Entry:          t.EntryPrice,
			Exit:           t.ExitPrice,
			Leverage:       t.Leverage,
			HoldSeconds:    t.HoldSeconds,
			PositionSize:   t.PositionSize,
			PnL:            t.NetPnL,
			GrossPnL:       &gross,
			Fees:           t.FeesPaid,
			Timestamp:      t.Timestamp,
			Reason:         t.ExitReason,
			Volatility:     t.VolatilityAtEntry,
			Spread:         t.SpreadAtEntry,
			BarsToHigh:     t.BarsToHigh,
			BarsToLow:      t.BarsToLow,
			MaxProfit:      t.MaxProfit,
			MaxLoss:        t.MaxLoss,
			TrendDirection: t.TrendDirection,
		},
	}
}

// RecordResponse is the POST /trades reply.
type RecordResponse struct {
	TradeID  string      `json:"trade_id"`
	Analyzed bool        `json:"analyzed"`
	Report   *ReportView `json:"report,omitempty"`
}

// PatternView is the JSON form of a pattern record.
type PatternView struct {
	Pattern       string  `json:"pattern"`
	Instrument    string  `json:"instrument"`
	Leverage      int     `json:"leverage"`
	HoldBucket    int     `json:"hold_bucket"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	TotalFees     float64 `json:"total_fees"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Sharpe        float64 `json:"sharpe"`
	Sortino       float64 `json:"sortino"`
	Confidence    float64 `json:"confidence"`
	HasEdge       bool    `json:"has_edge"`
	EdgePct       float64 `json:"edge_pct"`
}

// NewPatternView converts a pattern record.
func NewPatternView(p domain.PatternMetrics) PatternView {
	return PatternView{
		Pattern:       p.Key.String(),
		Instrument:    p.Key.Instrument,
		Leverage:      p.Key.Leverage,
		HoldBucket:    p.Key.HoldBucket,
		TotalTrades:   p.TotalTrades,
		WinningTrades: p.WinningTrades,
		LosingTrades:  p.LosingTrades,
		TotalPnL:      p.TotalPnL,
		TotalFees:     p.TotalFees,
		AvgWin:        p.AvgWin,
		AvgLoss:       p.AvgLoss,
		WinRate:       p.WinRate,
		ProfitFactor:  p.ProfitFactor,
		MaxDrawdown:   p.MaxDrawdown,
		Sharpe:        p.SharpeRatio,
		Sortino:       p.SortinoRatio,
		Confidence:    p.ConfidenceScore,
		HasEdge:       p.HasEdge,
		EdgePct:       p.EdgePercentage,
	}
}

func patternViews(patterns []domain.PatternMetrics) []PatternView {
	out := make([]PatternView, len(patterns))
	for i, p := range patterns {
		out[i] = NewPatternView(p)
	}
	return out
}

// StrategyView is the JSON form of a strategy config.
type StrategyView struct {
	Name            string  `json:"name"`
	Instrument      string  `json:"instrument,omitempty"`
	Leverage        float64 `json:"leverage"`
	HoldSeconds     int     `json:"hold_seconds"`
	MinVolatility   float64 `json:"min_volatility"`
	MaxSpreadPct    float64 `json:"max_spread_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	PositionSize    float64 `json:"position_size"`
	UseTrailingStop bool    `json:"use_trailing_stop"`
	TrailingStopPct float64 `json:"trailing_stop_pct"`
	UsePartialExits bool    `json:"use_partial_exits"`
	IsValidated     bool    `json:"is_validated"`
	EstimatedEdge   float64 `json:"estimated_edge"`
}

// NewStrategyView converts a strategy config.
func NewStrategyView(c domain.StrategyConfig) StrategyView {
	return StrategyView{
		Name:            c.Name,
		Instrument:      c.Instrument,
		Leverage:        c.Leverage,
		HoldSeconds:     c.HoldSeconds,
		MinVolatility:   c.MinVolatility,
		MaxSpreadPct:    c.MaxSpreadPct,
		TakeProfitPct:   c.TakeProfitPct,
		StopLossPct:     c.StopLossPct,
		PositionSize:    c.PositionSize,
		UseTrailingStop: c.UseTrailingStop,
		TrailingStopPct: c.TrailingStopPct,
		UsePartialExits: c.UsePartialExits,
		IsValidated:     c.IsValidated,
		EstimatedEdge:   c.EstimatedEdge,
	}
}

// CorrelationView is one correlated pattern pair.
type CorrelationView struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

// DriftView is the JSON form of a drift report.
type DriftView struct {
	Sufficient    bool    `json:"sufficient"`
	OldWinRate    float64 `json:"old_win_rate"`
	RecentWinRate float64 `json:"recent_win_rate"`
	Shifted       bool    `json:"shifted"`
}

// NewDriftView converts a drift report.
func NewDriftView(d domain.DriftReport) DriftView {
	return DriftView{
		Sufficient:    d.Sufficient,
		OldWinRate:    d.OldWinRate,
		RecentWinRate: d.RecentWinRate,
		Shifted:       d.Shifted,
	}
}

// ReportView is the JSON form of an analysis report. It is also the
// payload of analysis_complete events.
type ReportView struct {
	RunID        string            `json:"run_id,omitempty"`
	Status       string            `json:"status"`
	TradeCount   int               `json:"trade_count"`
	MinTrades    int               `json:"min_trades"`
	PatternCount int               `json:"pattern_count"`
	Strategies   int               `json:"strategies"`
	Regime       string            `json:"regime,omitempty"`
	Winners      []PatternView     `json:"winners"`
	Correlations []CorrelationView `json:"correlations"`
	Drift        DriftView         `json:"drift"`
}

// NewReportView converts an analysis report.
func NewReportView(r domain.AnalysisReport) ReportView {
	corr := make([]CorrelationView, len(r.Correlations))
	for i, c := range r.Correlations {
		corr[i] = CorrelationView{A: c.A.String(), B: c.B.String(), Correlation: c.Correlation}
	}
	return ReportView{
		RunID:        r.RunID,
		Status:       r.Status,
		TradeCount:   r.TradeCount,
		MinTrades:    r.MinTrades,
		PatternCount: r.PatternCount,
		Strategies:   r.Strategies,
		Regime:       r.Regime,
		Winners:      patternViews(r.Winners),
		Correlations: corr,
		Drift:        NewDriftView(r.Drift),
	}
}

// SummaryView extends the engine summary with the risk estimates.
type SummaryView struct {
	domain.Summary
	DrawdownRisk   float64 `json:"drawdown_risk"`
	WinRateLower95 float64 `json:"win_rate_lower_95"`
	LastRunID      string  `json:"last_run_id,omitempty"`
}

// SnapshotView is one historical pattern snapshot.
type SnapshotView struct {
	RunID   string      `json:"run_id"`
	TakenAt int64       `json:"taken_at"`
	Pattern PatternView `json:"pattern"`
}

// RunView is the pattern database recorded by one analysis run.
type RunView struct {
	RunID    string        `json:"run_id"`
	TakenAt  int64         `json:"taken_at"`
	Patterns []PatternView `json:"patterns"`
}
