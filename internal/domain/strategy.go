package domain

// StrategyConfig is a synthesized trading policy derived from a validated pattern.
// Configs are rebuilt wholesale on every analysis pass and never mutated in place.
type StrategyConfig struct {
	Name       string // pattern key string or SafeDefaultName
	Instrument string

	Leverage      float64 // 1-10x
	HoldSeconds   int     // how long to hold
	MinVolatility float64 // only trade if vol >= this (%)
	MaxSpreadPct  float64 // skip if spread > this (%)
	TakeProfitPct float64
	StopLossPct   float64
	PositionSize  float64 // base size, quote units

	UseTrailingStop bool
	TrailingStopPct float64
	UsePartialExits bool

	IsValidated   bool
	EstimatedEdge float64
}

// SafeDefaultName is the reserved name of the fallback strategy.
const SafeDefaultName = "safe_default"

// Uniform gates applied to every synthesized strategy.
// These are not pattern-specific.
const (
	DefaultMinVolatility   = 0.5
	DefaultMaxSpreadPct    = 0.1
	DefaultPositionSize    = 100.0
	DefaultTrailingStopPct = 0.5
)

// SafeDefault returns the fallback strategy used when no validated config matches.
// It is never validated and never carries an edge.
func SafeDefault() StrategyConfig {
	return StrategyConfig{
		Name:          SafeDefaultName,
		Leverage:      1,
		HoldSeconds:   60,
		TakeProfitPct: 0.02,
		StopLossPct:   0.03,
		PositionSize:  50,
	}
}

// IsSafeDefault reports whether c is the fallback strategy.
func (c StrategyConfig) IsSafeDefault() bool {
	return c.Name == SafeDefaultName
}
