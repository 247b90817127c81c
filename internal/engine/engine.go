// Package engine owns the trade ledger, the pattern database and the
// strategy set, and exposes the synchronous learning API.
package engine

import (
	"log/slog"
	"sync"

	"trade-pattern-lab/internal/analysis"
	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/idhash"
	"trade-pattern-lab/internal/ledger"
	"trade-pattern-lab/internal/metrics"
	"trade-pattern-lab/internal/stats"
	"trade-pattern-lab/internal/strategy"
)

// DefaultMinTrades is the ledger size below which analysis is skipped.
const DefaultMinTrades = 25

// DefaultTopWinners is the number of winners included in a report.
const DefaultTopWinners = 5

// Options configures the engine.
type Options struct {
	BatchSize           int
	MinTrades           int
	ConfidenceThreshold float64
	TopWinners          int
	Metrics             metrics.Options
	Analysis            analysis.Options
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:           ledger.DefaultBatchSize,
		MinTrades:           DefaultMinTrades,
		ConfidenceThreshold: strategy.DefaultConfidenceThreshold,
		TopWinners:          DefaultTopWinners,
		Metrics:             metrics.DefaultOptions(),
		Analysis:            analysis.DefaultOptions(),
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger used for analysis output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRunIDs overrides the analysis run id generator.
func WithRunIDs(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newRunID = next
		}
	}
}

// Engine is the single owned aggregate. Every method holds the engine
// mutex for its whole duration, so concurrent callers are serialized.
type Engine struct {
	mu sync.Mutex

	opts     Options
	logger   *slog.Logger
	newRunID func() string

	ledger *ledger.Ledger
	agg    *metrics.Aggregator

	// Rebuilt wholesale by each analysis pass.
	patterns     map[domain.PatternKey]domain.PatternMetrics
	ordered      []domain.PatternMetrics
	strategies   []domain.StrategyConfig
	correlations []domain.PatternCorrelation
	lastReport   domain.AnalysisReport
}

// New creates an empty engine.
func New(opts Options, options ...Option) *Engine {
	if opts.MinTrades <= 0 {
		opts.MinTrades = DefaultMinTrades
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = strategy.DefaultConfidenceThreshold
	}
	if opts.TopWinners <= 0 {
		opts.TopWinners = DefaultTopWinners
	}
	opts.Analysis = withAnalysisDefaults(opts.Analysis)

	e := &Engine{
		logger:   slog.Default(),
		newRunID: idhash.NewRunID,
		ledger:   ledger.New(opts.BatchSize),
		agg:      metrics.NewAggregator(opts.Metrics),
		patterns: make(map[domain.PatternKey]domain.PatternMetrics),
	}
	for _, o := range options {
		o(e)
	}

	opts.BatchSize = e.ledger.BatchSize()
	opts.Metrics = e.agg.Options()
	e.opts = opts
	return e
}

// NewFromTrades creates an engine whose ledger holds trades in the given
// order, then runs one analysis pass.
func NewFromTrades(opts Options, trades []domain.TradeOutcome, options ...Option) (*Engine, domain.AnalysisReport) {
	e := New(opts, options...)
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range trades {
		e.ledger.Append(t)
	}
	return e, e.analyzeLocked()
}

func withAnalysisDefaults(o analysis.Options) analysis.Options {
	def := analysis.DefaultOptions()
	if o.CorrelationThreshold <= 0 {
		o.CorrelationThreshold = def.CorrelationThreshold
	}
	if o.TopCorrelations <= 0 {
		o.TopCorrelations = def.TopCorrelations
	}
	if o.DriftMinTrades <= 0 {
		o.DriftMinTrades = def.DriftMinTrades
	}
	if o.DriftThreshold <= 0 {
		o.DriftThreshold = def.DriftThreshold
	}
	if o.RegimeLookback <= 0 {
		o.RegimeLookback = def.RegimeLookback
	}
	return o
}

// Options returns the effective settings.
func (e *Engine) Options() Options {
	return e.opts
}

// Record appends a trade. When the ledger reaches a positive multiple of
// the batch size an analysis pass runs and its report is returned with
// analyzed set to true.
func (e *Engine) Record(t domain.TradeOutcome) (report domain.AnalysisReport, analyzed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ledger.Append(t) {
		return domain.AnalysisReport{}, false
	}
	return e.analyzeLocked(), true
}

// Analyze rebuilds the pattern database and strategy set from the whole
// ledger. Below MinTrades nothing changes and the report status is
// insufficient_data.
func (e *Engine) Analyze() domain.AnalysisReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzeLocked()
}

// SelectBest returns the best validated strategy for the instrument at the
// given volatility, or the safe default.
func (e *Engine) SelectBest(instrument string, volatility float64) domain.StrategyConfig {
	e.mu.Lock()
	defer e.mu.Unlock()

	sharpe := make(map[string]float64, len(e.ordered))
	for _, p := range e.ordered {
		sharpe[p.Key.String()] = p.SharpeRatio
	}
	return strategy.SelectBest(e.strategies, sharpe, instrument, volatility)
}

// Summary returns engine-level statistics.
func (e *Engine) Summary() domain.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	wins, pnl := e.ledger.Totals()
	var wr float64
	if n := e.ledger.Len(); n > 0 {
		wr = float64(wins) / float64(n)
	}
	return domain.Summary{
		TotalTrades:   e.ledger.Len(),
		Instruments:   e.ledger.Instruments(),
		WinRate:       wr,
		TotalPnL:      pnl,
		PatternCount:  len(e.patterns),
		StrategyCount: len(e.strategies),
		Regime:        e.regimeLocked(),
	}
}

// PatternMetrics looks up one pattern. A missing pattern yields a zero
// record and ok=false.
func (e *Engine) PatternMetrics(key domain.PatternKey) (domain.PatternMetrics, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.patterns[key]
	return p, ok
}

// Patterns returns the pattern database sorted by key string.
func (e *Engine) Patterns() []domain.PatternMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.PatternMetrics, len(e.ordered))
	copy(out, e.ordered)
	return out
}

// Strategies returns the current strategy set in rebuild order.
func (e *Engine) Strategies() []domain.StrategyConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.StrategyConfig, len(e.strategies))
	copy(out, e.strategies)
	return out
}

// Correlations returns the correlated pattern pairs found by the last pass.
func (e *Engine) Correlations() []domain.PatternCorrelation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.PatternCorrelation, len(e.correlations))
	copy(out, e.correlations)
	return out
}

// LastReport returns the report of the most recent analysis pass.
func (e *Engine) LastReport() domain.AnalysisReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReport
}

// Regime classifies the most recent trades.
func (e *Engine) Regime() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regimeLocked()
}

// Drift compares the win rates of the older and recent halves of the ledger.
func (e *Engine) Drift() domain.DriftReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return analysis.DetectDrift(e.ledger.All(), e.opts.Analysis)
}

// EstimateDrawdownRisk returns the maximum drawdown of the ledger's ROI
// series, in ROI-percentage points.
func (e *Engine) EstimateDrawdownRisk() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return stats.MaxDrawdown(e.ledger.ROIs())
}

// EstimateWinRateAtConfidence returns a lower bound on the ledger win rate
// that holds at the given one-sided confidence level.
func (e *Engine) EstimateWinRateAtConfidence(level float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	wins, _ := e.ledger.Totals()
	return stats.WinRateLowerBound(wins, e.ledger.Len(), level)
}

// Trades returns a copy of the ledger in arrival order.
func (e *Engine) Trades() []domain.TradeOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.All()
}

// Len returns the ledger size.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Len()
}

func (e *Engine) regimeLocked() string {
	return analysis.Regime(e.ledger.Last(e.opts.Analysis.RegimeLookback))
}
