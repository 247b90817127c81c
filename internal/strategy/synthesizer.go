// Package strategy turns trustworthy patterns into strategy configurations
// and selects the best one for a given market context.
package strategy

import "trade-pattern-lab/internal/domain"

// DefaultConfidenceThreshold is the minimum confidence a pattern needs
// before it is turned into a strategy.
const DefaultConfidenceThreshold = 0.6

// Rebuild derives one strategy per trustworthy pattern, in pattern order.
// The previous set is discarded by the caller; nothing is merged.
func Rebuild(patterns []domain.PatternMetrics, threshold float64) []domain.StrategyConfig {
	var out []domain.StrategyConfig
	for _, p := range patterns {
		if !p.Trustworthy(threshold) {
			continue
		}
		out = append(out, FromPattern(p))
	}
	return out
}

// FromPattern builds the strategy configuration for a single pattern.
// Take profit and stop loss are the pattern's average win and loss scaled
// down by 100; hold time is the midpoint of the pattern's bucket.
func FromPattern(p domain.PatternMetrics) domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:            p.Key.String(),
		Instrument:      p.Key.Instrument,
		Leverage:        float64(p.Key.Leverage),
		HoldSeconds:     p.Key.BucketMidpointSeconds(),
		MinVolatility:   domain.DefaultMinVolatility,
		MaxSpreadPct:    domain.DefaultMaxSpreadPct,
		TakeProfitPct:   p.AvgWin / 100,
		StopLossPct:     p.AvgLoss / 100,
		PositionSize:    domain.DefaultPositionSize,
		UseTrailingStop: true,
		TrailingStopPct: domain.DefaultTrailingStopPct,
		UsePartialExits: true,
		IsValidated:     true,
		EstimatedEdge:   p.EdgePercentage,
	}
}
