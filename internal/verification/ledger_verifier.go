package verification

import (
	"context"
	"fmt"
	"log/slog"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/engine"
	"trade-pattern-lab/internal/storage"
)

// PatternSource is the live side of a pattern comparison.
type PatternSource interface {
	LastReport() domain.AnalysisReport
	Patterns() []domain.PatternMetrics
}

// LedgerVerifier verifies a trade store and the engine built from it.
type LedgerVerifier struct {
	trades storage.TradeOutcomeStore
	opts   engine.Options
}

// NewLedgerVerifier creates a verifier. opts must match the options the
// live engine runs with, since they shape the pattern metrics.
func NewLedgerVerifier(trades storage.TradeOutcomeStore, opts engine.Options) *LedgerVerifier {
	return &LedgerVerifier{trades: trades, opts: opts}
}

// VerifyTrade verifies a single stored trade.
func (v *LedgerVerifier) VerifyTrade(ctx context.Context, tradeID string) (*TradeResult, error) {
	stored, err := v.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get trade %s: %w", tradeID, err)
	}
	d := CheckTrade(*stored)
	return &TradeResult{TradeID: tradeID, Match: len(d) == 0, Divergences: d}, nil
}

// VerifySnapshot checks every trade of a loaded ledger. With live set, it
// also replays the ledger prefix the live engine last analyzed and compares
// pattern databases. Callers that serialize writes read the ledger and the
// live state together and pass both here.
func (v *LedgerVerifier) VerifySnapshot(trades []domain.TradeOutcome, live PatternSource) *Report {
	report := &Report{TotalTrades: len(trades)}
	for _, t := range trades {
		d := CheckTrade(t)
		if len(d) == 0 {
			report.MatchedTrades++
			continue
		}
		report.DivergentTrades++
		report.Trades = append(report.Trades, TradeResult{TradeID: t.TradeID, Divergences: d})
	}
	if live != nil {
		report.ReplayedTrades, report.Patterns = v.replayPatterns(trades, live)
	}
	return report
}

func (v *LedgerVerifier) replayPatterns(trades []domain.TradeOutcome, live PatternSource) (int, []PatternResult) {
	n := live.LastReport().TradeCount
	if n > len(trades) {
		return n, []PatternResult{{
			Pattern:     "*",
			Divergences: []FieldDivergence{{Field: "TradeCount", Expected: len(trades), Actual: n}},
		}}
	}
	replayed, _ := engine.NewFromTrades(v.opts, trades[:n],
		engine.WithLogger(slog.New(slog.DiscardHandler)), engine.WithRunIDs(func() string { return "verify" }))
	return n, ComparePatterns(replayed.Patterns(), live.Patterns())
}
