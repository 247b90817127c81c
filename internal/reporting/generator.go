package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade-pattern-lab/internal/domain"
)

// Output file names written by WriteFiles.
const (
	ReportFile     = "PATTERN_REPORT.md"
	PatternsFile   = "patterns.csv"
	StrategiesFile = "strategies.csv"
)

// Source is the read side of the learning engine used to build a report.
type Source interface {
	Summary() domain.Summary
	Patterns() []domain.PatternMetrics
	Strategies() []domain.StrategyConfig
	Correlations() []domain.PatternCorrelation
	Drift() domain.DriftReport
	LastReport() domain.AnalysisReport
	Trades() []domain.TradeOutcome
	EstimateDrawdownRisk() float64
	EstimateWinRateAtConfidence(level float64) float64
}

// Generator produces reports from engine state.
type Generator struct {
	src Source
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(src Source) *Generator {
	return &Generator{
		src: src,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report from the current engine state.
func (g *Generator) Generate() *Report {
	summary := g.src.Summary()
	last := g.src.LastReport()
	trades := g.src.Trades()

	ds := DataSummary{
		TotalTrades:   summary.TotalTrades,
		WinRate:       summary.WinRate,
		TotalPnL:      summary.TotalPnL,
		DrawdownRisk:  g.src.EstimateDrawdownRisk(),
		WinRateAt95:   g.src.EstimateWinRateAtConfidence(0.95),
		Regime:        summary.Regime,
		PatternCount:  summary.PatternCount,
		StrategyCount: summary.StrategyCount,
	}
	instruments := make(map[string]struct{})
	for _, t := range trades {
		instruments[t.Instrument] = struct{}{}
		ds.TotalFees += t.FeesPaid
		if t.Timestamp <= 0 {
			continue
		}
		if ds.DateRangeStart == 0 || t.Timestamp < ds.DateRangeStart {
			ds.DateRangeStart = t.Timestamp
		}
		if t.Timestamp > ds.DateRangeEnd {
			ds.DateRangeEnd = t.Timestamp
		}
	}
	ds.Instruments = len(instruments)

	drift := g.src.Drift()
	return &Report{
		GeneratedAt:  g.now(),
		RunID:        last.RunID,
		Status:       last.Status,
		Summary:      ds,
		Patterns:     patternRows(g.src.Patterns()),
		Winners:      patternRows(last.Winners),
		Correlations: correlationRows(g.src.Correlations()),
		Drift: DriftSection{
			Sufficient:    drift.Sufficient,
			OldWinRate:    drift.OldWinRate,
			RecentWinRate: drift.RecentWinRate,
			Shifted:       drift.Shifted,
		},
		Strategies: strategyRows(g.src.Strategies()),
	}
}

// WriteFiles renders the report into dir, creating it if needed.
func WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{PatternsFile, RenderPatternsCSV(r.Patterns)},
		{StrategiesFile, RenderStrategiesCSV(r.Strategies)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func patternRows(patterns []domain.PatternMetrics) []PatternRow {
	rows := make([]PatternRow, 0, len(patterns))
	for _, p := range patterns {
		rows = append(rows, PatternRow{
			Pattern:      p.Key.String(),
			Trades:       p.TotalTrades,
			WinRate:      p.WinRate,
			TotalPnL:     p.TotalPnL,
			AvgWin:       p.AvgWin,
			AvgLoss:      p.AvgLoss,
			ProfitFactor: p.ProfitFactor,
			MaxDrawdown:  p.MaxDrawdown,
			Sharpe:       p.SharpeRatio,
			Sortino:      p.SortinoRatio,
			Confidence:   p.ConfidenceScore,
			HasEdge:      p.HasEdge,
			Edge:         p.EdgePercentage,
		})
	}
	return rows
}

func correlationRows(pairs []domain.PatternCorrelation) []CorrelationRow {
	rows := make([]CorrelationRow, 0, len(pairs))
	for _, c := range pairs {
		rows = append(rows, CorrelationRow{A: c.A.String(), B: c.B.String(), Correlation: c.Correlation})
	}
	return rows
}

func strategyRows(configs []domain.StrategyConfig) []StrategyRow {
	rows := make([]StrategyRow, 0, len(configs))
	for _, c := range configs {
		rows = append(rows, StrategyRow{
			Name:          c.Name,
			Instrument:    c.Instrument,
			Leverage:      c.Leverage,
			HoldSeconds:   c.HoldSeconds,
			MinVolatility: c.MinVolatility,
			MaxSpreadPct:  c.MaxSpreadPct,
			TakeProfitPct: c.TakeProfitPct,
			StopLossPct:   c.StopLossPct,
			PositionSize:  c.PositionSize,
			TrailingStop:  c.UseTrailingStop,
			TrailingPct:   c.TrailingStopPct,
			PartialExits:  c.UsePartialExits,
			Edge:          c.EstimatedEdge,
		})
	}
	return rows
}
