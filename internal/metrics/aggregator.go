package metrics

import (
	"fmt"
	"sort"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/stats"
)

// DefaultMinPatternTrades is the smallest bucket that becomes a pattern.
const DefaultMinPatternTrades = 5

// DefaultFeeMargin is the multiple of total fees expectancy must beat.
const DefaultFeeMargin = 1.5

// Options configures pattern aggregation.
type Options struct {
	MinPatternTrades int
	FeeMargin        float64

	// FilterOutliers drops returns beyond OutlierStdDevs before computing
	// Sharpe and Sortino. Drawdown always uses the full series.
	FilterOutliers bool
	OutlierStdDevs float64
}

// DefaultOptions returns the standard aggregation settings.
func DefaultOptions() Options {
	return Options{
		MinPatternTrades: DefaultMinPatternTrades,
		FeeMargin:        DefaultFeeMargin,
		FilterOutliers:   false,
		OutlierStdDevs:   stats.DefaultOutlierStdDevs,
	}
}

// Result is the outcome of one full aggregation pass.
type Result struct {
	// Patterns holds one record per qualifying bucket, sorted by key string.
	Patterns []domain.PatternMetrics

	// Groups holds the trades of every qualifying bucket in ledger order.
	Groups map[domain.PatternKey][]domain.TradeOutcome

	// Skipped tracks buckets dropped for size (for data quality reporting).
	// Key: pattern key, Value: trade count.
	Skipped map[domain.PatternKey]int
}

// Aggregator computes pattern metrics from trade outcomes.
type Aggregator struct {
	opts Options
}

// NewAggregator creates a new pattern aggregator.
// Zero-valued options fall back to defaults.
func NewAggregator(opts Options) *Aggregator {
	def := DefaultOptions()
	if opts.MinPatternTrades <= 0 {
		opts.MinPatternTrades = def.MinPatternTrades
	}
	if opts.FeeMargin <= 0 {
		opts.FeeMargin = def.FeeMargin
	}
	if opts.OutlierStdDevs <= 0 {
		opts.OutlierStdDevs = def.OutlierStdDevs
	}
	return &Aggregator{opts: opts}
}

// Options returns the effective aggregation settings.
func (a *Aggregator) Options() Options {
	return a.opts
}

// ComputeAll partitions trades by pattern key and computes a fresh record
// for every bucket with at least MinPatternTrades trades.
// The result depends only on the input, so repeated calls are idempotent.
func (a *Aggregator) ComputeAll(trades []domain.TradeOutcome) *Result {
	groups := GroupByPattern(trades)

	res := &Result{
		Groups:  make(map[domain.PatternKey][]domain.TradeOutcome),
		Skipped: make(map[domain.PatternKey]int),
	}

	for _, key := range SortedKeys(groups) {
		bucket := groups[key]
		if len(bucket) < a.opts.MinPatternTrades {
			res.Skipped[key] = len(bucket)
			continue
		}
		res.Groups[key] = bucket
		res.Patterns = append(res.Patterns, computePattern(key, bucket, a.opts))
	}

	return res
}

// GroupByPattern partitions trades into buckets, preserving ledger order
// inside each bucket.
func GroupByPattern(trades []domain.TradeOutcome) map[domain.PatternKey][]domain.TradeOutcome {
	groups := make(map[domain.PatternKey][]domain.TradeOutcome)
	for _, t := range trades {
		key := domain.KeyFor(t)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// SortedKeys returns the keys of groups sorted by their string form.
func SortedKeys[V any](groups map[domain.PatternKey]V) []domain.PatternKey {
	keys := make([]domain.PatternKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// RankWinners returns trustworthy patterns ordered by profit factor DESC,
// key ASC, truncated to limit (limit <= 0 means no limit).
func RankWinners(patterns []domain.PatternMetrics, threshold float64, limit int) []domain.PatternMetrics {
	var winners []domain.PatternMetrics
	for _, p := range patterns {
		if p.Trustworthy(threshold) {
			winners = append(winners, p)
		}
	}

	sort.SliceStable(winners, func(i, j int) bool {
		if winners[i].ProfitFactor != winners[j].ProfitFactor {
			return winners[i].ProfitFactor > winners[j].ProfitFactor
		}
		return winners[i].Key.String() < winners[j].Key.String()
	})

	if limit > 0 && len(winners) > limit {
		winners = winners[:limit]
	}
	return winners
}

// GetSkippedPatternNotes returns data quality notes for undersized buckets.
// Sorted by key for deterministic output.
func (r *Result) GetSkippedPatternNotes() []string {
	if len(r.Skipped) == 0 {
		return nil
	}

	keys := SortedKeys(r.Skipped)
	notes := make([]string, len(keys))
	for i, key := range keys {
		notes[i] = fmt.Sprintf("pattern %s skipped with %d trade(s)", key, r.Skipped[key])
	}
	return notes
}
