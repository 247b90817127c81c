package metrics

import (
	"math"
	"testing"

	"trade-pattern-lab/internal/domain"
)

// trade builds an outcome with a fixed 100-unit position.
func trade(instrument string, leverage float64, holdSeconds int, gross, fees float64) domain.TradeOutcome {
	return domain.TradeOutcome{
		Instrument:   instrument,
		Leverage:     leverage,
		HoldSeconds:  holdSeconds,
		PositionSize: 100,
		GrossPnL:     gross,
		FeesPaid:     fees,
		NetPnL:       gross - fees,
		ExitReason:   domain.ExitReasonTimeout,
	}
}

// sevenThree builds 7 wins and 3 losses of equal magnitude, interleaved.
func sevenThree(instrument string, fees float64) []domain.TradeOutcome {
	pattern := []bool{true, true, false, true, true, false, true, true, false, true}
	trades := make([]domain.TradeOutcome, 0, len(pattern))
	for _, win := range pattern {
		gross := 10.0 + fees
		if !win {
			gross = -10.0 + fees
		}
		trades = append(trades, trade(instrument, 3, 45, gross, fees))
	}
	return trades
}

func TestComputePattern_SevenWinsThreeLosses(t *testing.T) {
	trades := sevenThree("XBTUSD", 0)
	key := domain.KeyFor(trades[0])

	m := computePattern(key, trades, DefaultOptions())

	if m.TotalTrades != 10 || m.WinningTrades != 7 || m.LosingTrades != 3 {
		t.Fatalf("unexpected counts: total=%d wins=%d losses=%d", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	}
	if m.TotalTrades != m.WinningTrades+m.LosingTrades {
		t.Error("total must equal wins + losses")
	}
	if math.Abs(m.WinRate-0.7) > 1e-12 {
		t.Errorf("expected win rate 0.7, got %f", m.WinRate)
	}
	// wins_sum / losses_sum = 70 / 30
	if math.Abs(m.ProfitFactor-70.0/30.0) > 1e-12 {
		t.Errorf("expected profit factor %f, got %f", 70.0/30.0, m.ProfitFactor)
	}
	if m.AvgWin != 10 || m.AvgLoss != 10 {
		t.Errorf("expected avg win/loss 10/10, got %f/%f", m.AvgWin, m.AvgLoss)
	}
	// expectancy = 0.7*10 - 0.3*10 = 4; no fees -> edge
	if !m.HasEdge {
		t.Error("expected edge without fees")
	}
	if math.Abs(m.EdgePercentage-40) > 1e-9 {
		t.Errorf("expected edge percentage 40, got %f", m.EdgePercentage)
	}
	// 0.4*10/30 + 0.3*1 + 0.3*1
	if math.Abs(m.ConfidenceScore-(0.4/3+0.6)) > 1e-9 {
		t.Errorf("unexpected confidence %f", m.ConfidenceScore)
	}
}

func TestComputePattern_AllWinnersConfidenceCapped(t *testing.T) {
	trades := make([]domain.TradeOutcome, 30)
	for i := range trades {
		trades[i] = trade("XBTUSD", 2, 45, 10, 0)
	}

	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())
	if math.Abs(m.ConfidenceScore-1) > 1e-9 {
		t.Errorf("expected confidence 1 for 30 straight winners, got %f", m.ConfidenceScore)
	}
}

func TestComputePattern_IndependentOfKey(t *testing.T) {
	a := sevenThree("XBTUSD", 0.5)
	b := sevenThree("ETHUSD", 0.5)

	ma := computePattern(domain.KeyFor(a[0]), a, DefaultOptions())
	mb := computePattern(domain.KeyFor(b[0]), b, DefaultOptions())

	ma.Key = domain.PatternKey{}
	mb.Key = domain.PatternKey{}
	if ma != mb {
		t.Errorf("metrics differ between keys:\n%+v\n%+v", ma, mb)
	}
}

func TestComputePattern_FeesBlockEdge(t *testing.T) {
	// expectancy 0.7*11 - 0.3*9 = 5 vs total fees 10 * 1.5
	trades := sevenThree("XBTUSD", 1)
	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())

	if m.HasEdge {
		t.Errorf("expected no edge: fees %f", m.TotalFees)
	}
	if math.Abs(m.TotalFees-10) > 1e-9 {
		t.Errorf("expected total fees 10, got %f", m.TotalFees)
	}
}

func TestComputePattern_NoLosses(t *testing.T) {
	var trades []domain.TradeOutcome
	for i := 0; i < 5; i++ {
		trades = append(trades, trade("XBTUSD", 2, 10, float64(i+1), 0))
	}
	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())

	// gross wins 1+2+3+4+5
	if m.ProfitFactor != 15 {
		t.Errorf("expected profit factor to fall back to gross wins 15, got %f", m.ProfitFactor)
	}
	if m.AvgLoss != 0 || m.LosingTrades != 0 {
		t.Errorf("expected no losses, got avg %f count %d", m.AvgLoss, m.LosingTrades)
	}
	if m.SortinoRatio != 0 {
		t.Errorf("expected sortino 0 without downside, got %f", m.SortinoRatio)
	}
}

func TestComputePattern_NoWins(t *testing.T) {
	var trades []domain.TradeOutcome
	for i := 0; i < 5; i++ {
		trades = append(trades, trade("XBTUSD", 2, 10, -2, 0))
	}
	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())

	if m.WinRate != 0 || m.AvgWin != 0 {
		t.Errorf("expected zero win stats, got wr %f avg %f", m.WinRate, m.AvgWin)
	}
	if m.ProfitFactor != 0 {
		t.Errorf("expected profit factor 0, got %f", m.ProfitFactor)
	}
	if m.EdgePercentage != 0 {
		t.Errorf("expected edge percentage 0 without wins, got %f", m.EdgePercentage)
	}
	if m.HasEdge {
		t.Error("expected no edge")
	}
}

func TestComputePattern_IdenticalROI(t *testing.T) {
	var trades []domain.TradeOutcome
	for i := 0; i < 6; i++ {
		trades = append(trades, trade("XBTUSD", 1, 90, 3, 1))
	}
	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())

	if m.SharpeRatio != 0 || m.SortinoRatio != 0 {
		t.Errorf("expected zero ratios for zero variance, got sharpe %f sortino %f", m.SharpeRatio, m.SortinoRatio)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("expected no drawdown, got %f", m.MaxDrawdown)
	}
}

func TestComputePattern_DrawdownInLedgerOrder(t *testing.T) {
	// ROI: 5, -3, 4, -6, 1 -> peak 5, trough -6
	grosses := []float64{5, -3, 4, -6, 1}
	var trades []domain.TradeOutcome
	for _, g := range grosses {
		trades = append(trades, trade("XBTUSD", 1, 5, g, 0))
	}
	m := computePattern(domain.KeyFor(trades[0]), trades, DefaultOptions())

	if math.Abs(m.MaxDrawdown-11) > 1e-9 {
		t.Errorf("expected drawdown 11, got %f", m.MaxDrawdown)
	}
}

func TestComputePattern_OutlierFilterIsOptIn(t *testing.T) {
	var trades []domain.TradeOutcome
	for i := 0; i < 19; i++ {
		g := 1.0
		if i%2 == 0 {
			g = 2.0
		}
		trades = append(trades, trade("XBTUSD", 1, 5, g, 0))
	}
	trades = append(trades, trade("XBTUSD", 1, 5, -80, 0))
	key := domain.KeyFor(trades[0])

	plain := computePattern(key, trades, DefaultOptions())

	opts := DefaultOptions()
	opts.FilterOutliers = true
	filtered := computePattern(key, trades, opts)

	if plain.SharpeRatio >= 0 {
		t.Errorf("expected the -80 trade to drag sharpe negative, got %f", plain.SharpeRatio)
	}
	if filtered.SharpeRatio <= 0 {
		t.Errorf("expected positive sharpe with outlier removed, got %f", filtered.SharpeRatio)
	}
	if filtered.MaxDrawdown != plain.MaxDrawdown {
		t.Error("drawdown must not depend on outlier filtering")
	}
}

func TestComputeEdgePercentage(t *testing.T) {
	if got := computeEdgePercentage(4, 0); got != 0 {
		t.Errorf("expected 0 when avg win is 0, got %f", got)
	}
	if got := computeEdgePercentage(-2, 8); got != -25 {
		t.Errorf("expected -25, got %f", got)
	}
}
