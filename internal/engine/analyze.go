package engine

import (
	"log/slog"

	"trade-pattern-lab/internal/analysis"
	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/metrics"
	"trade-pattern-lab/internal/strategy"
)

// analyzeLocked runs one full analysis pass. Caller holds e.mu.
func (e *Engine) analyzeLocked() domain.AnalysisReport {
	report := domain.AnalysisReport{
		RunID:      e.newRunID(),
		TradeCount: e.ledger.Len(),
		MinTrades:  e.opts.MinTrades,
	}

	if report.TradeCount < e.opts.MinTrades {
		report.Status = domain.AnalysisStatusInsufficientData
		e.logger.Info("analysis skipped",
			slog.String("run_id", report.RunID),
			slog.Int("trades", report.TradeCount),
			slog.Int("min_trades", e.opts.MinTrades),
		)
		return report
	}

	trades := e.ledger.All()
	res := e.agg.ComputeAll(trades)

	patterns := make(map[domain.PatternKey]domain.PatternMetrics, len(res.Patterns))
	for _, p := range res.Patterns {
		patterns[p.Key] = p
		e.logger.Info("pattern",
			slog.String("run_id", report.RunID),
			slog.String("pattern", p.Key.String()),
			slog.Int("trades", p.TotalTrades),
			slog.Float64("win_rate", p.WinRate),
			slog.Float64("pf", p.ProfitFactor),
			slog.Float64("sharpe", p.SharpeRatio),
			slog.Float64("confidence", p.ConfidenceScore),
			slog.Bool("edge", p.HasEdge),
		)
	}
	for _, note := range res.GetSkippedPatternNotes() {
		e.logger.Debug(note, slog.String("run_id", report.RunID))
	}

	e.patterns = patterns
	e.ordered = res.Patterns
	e.strategies = strategy.Rebuild(res.Patterns, e.opts.ConfidenceThreshold)
	e.correlations = analysis.Correlate(res.Patterns, res.Groups, e.opts.Analysis)

	report.Status = domain.AnalysisStatusComplete
	report.PatternCount = len(res.Patterns)
	report.Winners = metrics.RankWinners(res.Patterns, e.opts.ConfidenceThreshold, e.opts.TopWinners)
	report.Correlations = append([]domain.PatternCorrelation(nil), e.correlations...)
	report.Drift = analysis.DetectDrift(trades, e.opts.Analysis)
	report.Regime = e.regimeLocked()
	report.Strategies = len(e.strategies)

	e.logReport(report)
	e.lastReport = report
	return report
}

func (e *Engine) logReport(report domain.AnalysisReport) {
	for i, w := range report.Winners {
		e.logger.Info("winner",
			slog.String("run_id", report.RunID),
			slog.Int("rank", i+1),
			slog.String("pattern", w.Key.String()),
			slog.Float64("pf", w.ProfitFactor),
			slog.Float64("edge_pct", w.EdgePercentage),
		)
	}
	for _, c := range report.Correlations {
		e.logger.Info("correlation",
			slog.String("run_id", report.RunID),
			slog.String("a", c.A.String()),
			slog.String("b", c.B.String()),
			slog.Float64("r", c.Correlation),
		)
	}
	if report.Drift.Shifted {
		e.logger.Warn("regime shift",
			slog.String("run_id", report.RunID),
			slog.Float64("old_win_rate", report.Drift.OldWinRate),
			slog.Float64("recent_win_rate", report.Drift.RecentWinRate),
		)
	}
	e.logger.Info("analysis complete",
		slog.String("run_id", report.RunID),
		slog.Int("trades", report.TradeCount),
		slog.Int("patterns", report.PatternCount),
		slog.Int("strategies", report.Strategies),
		slog.String("regime", report.Regime),
	)
}
