package analysis

import (
	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/stats"
)

// Fixed regime policy thresholds, in ROI-percentage units.
const (
	highVolatilityStdDev = 5.0
	trendingUpMean       = 2.0
	trendingDownMean     = -2.0
)

// DetectDrift splits the ledger in half by position and compares win rates.
// A shift is flagged when the recent half falls more than DriftThreshold
// below the old half. Ledgers below DriftMinTrades are reported as insufficient.
func DetectDrift(trades []domain.TradeOutcome, opts Options) domain.DriftReport {
	if len(trades) < opts.DriftMinTrades || len(trades) < 2 {
		return domain.DriftReport{}
	}

	cutoff := len(trades) / 2
	oldWR := winRate(trades[:cutoff])
	recentWR := winRate(trades[cutoff:])

	return domain.DriftReport{
		Sufficient:    true,
		OldWinRate:    oldWR,
		RecentWinRate: recentWR,
		Shifted:       recentWR < oldWR-opts.DriftThreshold,
	}
}

// Regime classifies the given (most recent) trades by ROI dispersion and mean.
func Regime(recent []domain.TradeOutcome) string {
	if len(recent) == 0 {
		return domain.RegimeUnknown
	}

	rois := make([]float64, len(recent))
	for i, t := range recent {
		rois[i] = t.ROI()
	}
	mean := stats.Mean(rois)

	switch {
	case stats.StdDev(rois) > highVolatilityStdDev:
		return domain.RegimeHighVolatility
	case mean > trendingUpMean:
		return domain.RegimeTrendingUp
	case mean < trendingDownMean:
		return domain.RegimeTrendingDown
	default:
		return domain.RegimeConsolidating
	}
}

func winRate(trades []domain.TradeOutcome) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.IsWin() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}
