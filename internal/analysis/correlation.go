// Package analysis annotates a pattern database with cross-pattern
// correlation, win-rate drift and a coarse market regime label.
package analysis

import (
	"math"
	"sort"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/stats"
)

// Options configures correlation and regime analysis.
type Options struct {
	CorrelationThreshold float64 // report pairs with |r| above this
	TopCorrelations      int
	DriftMinTrades       int
	DriftThreshold       float64 // recent win rate must fall this far below old
	RegimeLookback       int
}

// DefaultOptions returns the standard analysis settings.
func DefaultOptions() Options {
	return Options{
		CorrelationThreshold: 0.3,
		TopCorrelations:      3,
		DriftMinTrades:       20,
		DriftThreshold:       0.15,
		RegimeLookback:       20,
	}
}

// WinSequence maps trades to 1.0 for a win and 0.0 otherwise.
func WinSequence(trades []domain.TradeOutcome) []float64 {
	seq := make([]float64, len(trades))
	for i, t := range trades {
		if t.IsWin() {
			seq[i] = 1
		}
	}
	return seq
}

// Correlate computes the Pearson correlation of win/loss sequences for every
// unordered pair of edge-qualified patterns. Pairs whose correlation is
// undefined (zero variance, fewer than 2 aligned trades) are skipped.
// Returns pairs with |r| above the threshold ranked by |r| DESC, truncated
// to TopCorrelations.
func Correlate(patterns []domain.PatternMetrics, groups map[domain.PatternKey][]domain.TradeOutcome, opts Options) []domain.PatternCorrelation {
	var edged []domain.PatternKey
	for _, p := range patterns {
		if p.HasEdge {
			edged = append(edged, p.Key)
		}
	}
	sort.Slice(edged, func(i, j int) bool {
		return edged[i].String() < edged[j].String()
	})

	seqs := make(map[domain.PatternKey][]float64, len(edged))
	for _, k := range edged {
		seqs[k] = WinSequence(groups[k])
	}

	var out []domain.PatternCorrelation
	for i := 0; i < len(edged); i++ {
		for j := i + 1; j < len(edged); j++ {
			r, ok := stats.Pearson(seqs[edged[i]], seqs[edged[j]])
			if !ok || math.Abs(r) <= opts.CorrelationThreshold {
				continue
			}
			out = append(out, domain.PatternCorrelation{A: edged[i], B: edged[j], Correlation: r})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Correlation) > math.Abs(out[j].Correlation)
	})

	if opts.TopCorrelations > 0 && len(out) > opts.TopCorrelations {
		out = out[:opts.TopCorrelations]
	}
	return out
}
