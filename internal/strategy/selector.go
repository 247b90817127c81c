package strategy

import "trade-pattern-lab/internal/domain"

// candidate pairs a strategy with the Sharpe ratio of the pattern it came from.
type candidate struct {
	config domain.StrategyConfig
	sharpe float64
}

// Candidates returns the configs eligible for instrument at the given
// volatility: the instrument must match exactly and volatility must meet
// the config's gate. A NaN volatility meets no gate. Order follows configs.
func Candidates(configs []domain.StrategyConfig, instrument string, volatility float64) []domain.StrategyConfig {
	var out []domain.StrategyConfig
	for _, c := range configs {
		if c.Instrument != instrument || !(volatility >= c.MinVolatility) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SelectBest picks the eligible config whose source pattern has the highest
// Sharpe ratio. sharpe maps config name to Sharpe; unknown names score 0.
// Ties keep the earlier config. With no eligible config the safe default
// is returned.
func SelectBest(configs []domain.StrategyConfig, sharpe map[string]float64, instrument string, volatility float64) domain.StrategyConfig {
	eligible := Candidates(configs, instrument, volatility)
	if len(eligible) == 0 {
		return domain.SafeDefault()
	}

	pool := make([]candidate, len(eligible))
	for i, c := range eligible {
		pool[i] = candidate{config: c, sharpe: sharpe[c.Name]}
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.sharpe > best.sharpe {
			best = c
		}
	}
	return best.config
}
