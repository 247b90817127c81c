package strategy

import (
	"errors"
	"fmt"

	"trade-pattern-lab/internal/domain"
)

// EnsembleName is the name given to blended configurations.
const EnsembleName = "ensemble"

// Validation errors
var (
	ErrNoCandidates      = errors.New("ensemble requires at least one candidate")
	ErrInvalidLeverage   = errors.New("leverage must be positive")
	ErrInvalidHold       = errors.New("hold seconds must be positive")
	ErrInvalidExitLevels = errors.New("take profit and stop loss must be non-negative")
	ErrInvalidPosition   = errors.New("position size must be positive")
	ErrMixedInstruments  = errors.New("ensemble candidates span several instruments")
)

// Validate checks that a configuration is usable by an executor.
func Validate(cfg domain.StrategyConfig) error {
	switch {
	case cfg.Leverage <= 0:
		return fmt.Errorf("%s: %w", cfg.Name, ErrInvalidLeverage)
	case cfg.HoldSeconds <= 0:
		return fmt.Errorf("%s: %w", cfg.Name, ErrInvalidHold)
	case cfg.TakeProfitPct < 0 || cfg.StopLossPct < 0:
		return fmt.Errorf("%s: %w", cfg.Name, ErrInvalidExitLevels)
	case cfg.PositionSize <= 0:
		return fmt.Errorf("%s: %w", cfg.Name, ErrInvalidPosition)
	}
	return nil
}

// Ensemble blends candidates of one instrument into a single configuration.
// Numeric parameters are averaged with weights proportional to each
// candidate's positive estimated edge; when no candidate has a positive
// edge the weights are uniform. The result is never validated: it has not
// been observed in the ledger.
func Ensemble(candidates []domain.StrategyConfig) (domain.StrategyConfig, error) {
	if len(candidates) == 0 {
		return domain.StrategyConfig{}, ErrNoCandidates
	}

	instrument := candidates[0].Instrument
	weights := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		if c.Instrument != instrument {
			return domain.StrategyConfig{}, ErrMixedInstruments
		}
		if c.EstimatedEdge > 0 {
			weights[i] = c.EstimatedEdge
			total += c.EstimatedEdge
		}
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	out := domain.StrategyConfig{
		Name:       EnsembleName,
		Instrument: instrument,
	}
	var hold, minVol float64
	for i, c := range candidates {
		w := weights[i] / total
		out.Leverage += w * c.Leverage
		hold += w * float64(c.HoldSeconds)
		minVol += w * c.MinVolatility
		out.TakeProfitPct += w * c.TakeProfitPct
		out.StopLossPct += w * c.StopLossPct
		out.PositionSize += w * c.PositionSize
		out.TrailingStopPct += w * c.TrailingStopPct
		out.EstimatedEdge += w * c.EstimatedEdge
		out.UseTrailingStop = out.UseTrailingStop || c.UseTrailingStop
		out.UsePartialExits = out.UsePartialExits || c.UsePartialExits
		if i == 0 || c.MaxSpreadPct < out.MaxSpreadPct {
			out.MaxSpreadPct = c.MaxSpreadPct
		}
	}
	out.HoldSeconds = int(hold + 0.5)
	out.MinVolatility = minVol

	if err := Validate(out); err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("blend candidates: %w", err)
	}
	return out, nil
}
