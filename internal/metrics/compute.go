package metrics

import (
	"math"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/stats"
)

// computePattern calculates all metrics for one pattern bucket.
// Trades must be in ledger order; drawdown is order-dependent.
func computePattern(key domain.PatternKey, trades []domain.TradeOutcome, opts Options) domain.PatternMetrics {
	m := domain.PatternMetrics{
		Key:         key,
		TotalTrades: len(trades),
	}
	if len(trades) == 0 {
		return m
	}

	returns := make([]float64, 0, len(trades))
	grossWins := 0.0
	grossLosses := 0.0

	for _, t := range trades {
		if t.IsWin() {
			m.WinningTrades++
			grossWins += t.GrossPnL
		} else {
			m.LosingTrades++
			grossLosses += math.Abs(t.GrossPnL)
		}
		returns = append(returns, t.ROI())
		m.TotalPnL += t.NetPnL
		m.TotalFees += t.FeesPaid
	}

	m.WinRate = computeWinRate(m.WinningTrades, m.TotalTrades)
	m.AvgWin = computeAverage(grossWins, m.WinningTrades)
	m.AvgLoss = computeAverage(grossLosses, m.LosingTrades)
	m.ProfitFactor = computeProfitFactor(grossWins, grossLosses)

	// Risk ratios optionally ignore extreme single trades; drawdown always
	// walks the full series.
	ratioReturns := returns
	if opts.FilterOutliers {
		ratioReturns = stats.RemoveOutliers(returns, opts.OutlierStdDevs)
	}
	m.SharpeRatio = stats.Sharpe(ratioReturns)
	m.SortinoRatio = stats.Sortino(ratioReturns)
	m.MaxDrawdown = stats.MaxDrawdown(returns)

	m.ConfidenceScore = stats.Confidence(m.TotalTrades, m.WinRate, m.ProfitFactor)

	expected := expectedPnL(m.WinRate, m.AvgWin, m.AvgLoss)
	m.HasEdge = expected > m.TotalFees*opts.FeeMargin
	m.EdgePercentage = computeEdgePercentage(expected, m.AvgWin)

	return m
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeAverage returns sum / count, or 0 when count is 0.
func computeAverage(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// computeProfitFactor returns gross wins / gross losses.
// With no losing magnitude it falls back to gross wins.
func computeProfitFactor(grossWins, grossLosses float64) float64 {
	if grossLosses == 0 {
		return grossWins
	}
	return grossWins / grossLosses
}

// expectedPnL is the per-trade expectancy: wr*avgWin - (1-wr)*avgLoss.
func expectedPnL(winRate, avgWin, avgLoss float64) float64 {
	return winRate*avgWin - (1-winRate)*avgLoss
}

// computeEdgePercentage expresses expectancy relative to the average win.
func computeEdgePercentage(expected, avgWin float64) float64 {
	if avgWin > 0 {
		return expected / avgWin * 100
	}
	return 0
}
