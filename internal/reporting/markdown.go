package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Pattern Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Analysis run: %s (%s)\n\n", r.RunID, r.Status))
	} else {
		sb.WriteString("No analysis run has completed yet.\n\n")
	}

	// Data Summary
	s := r.Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Instruments | %d |\n", s.Instruments))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Win Rate (95%% lower bound) | %.4f |\n", s.WinRateAt95))
	sb.WriteString(fmt.Sprintf("| Total P&L | %.4f |\n", s.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Total Fees | %.4f |\n", s.TotalFees))
	sb.WriteString(fmt.Sprintf("| Drawdown Risk (ROI %%) | %.4f |\n", s.DrawdownRisk))
	sb.WriteString(fmt.Sprintf("| Regime | %s |\n", s.Regime))
	sb.WriteString(fmt.Sprintf("| Patterns | %d |\n", s.PatternCount))
	sb.WriteString(fmt.Sprintf("| Strategies | %d |\n", s.StrategyCount))
	if s.DateRangeStart > 0 {
		sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", s.DateRangeStart))
		sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", s.DateRangeEnd))
	}
	sb.WriteString("\n")

	// Winners
	sb.WriteString("## Top Patterns\n\n")
	if len(r.Winners) > 0 {
		for i, w := range r.Winners {
			sb.WriteString(fmt.Sprintf("%d. **%s**: WR %.1f%% | PF %.2f | Sharpe %.2f | Confidence %.2f\n",
				i+1, w.Pattern, w.WinRate*100, w.ProfitFactor, w.Sharpe, w.Confidence))
		}
	} else {
		sb.WriteString("No trustworthy patterns yet.\n")
	}
	sb.WriteString("\n")

	// Pattern table
	sb.WriteString("## Patterns\n\n")
	if len(r.Patterns) > 0 {
		sb.WriteString("| Pattern | Trades | WinRate | PnL | AvgWin | AvgLoss | PF | MaxDD | Sharpe | Sortino | Confidence | Edge% |\n")
		sb.WriteString("|---------|--------|---------|-----|--------|---------|----|-------|--------|---------|------------|-------|\n")
		for _, p := range r.Patterns {
			edge := "-"
			if p.HasEdge {
				edge = fmt.Sprintf("%.2f", p.Edge)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %s |\n",
				p.Pattern, p.Trades, p.WinRate, p.TotalPnL, p.AvgWin, p.AvgLoss,
				p.ProfitFactor, p.MaxDrawdown, p.Sharpe, p.Sortino, p.Confidence, edge))
		}
	} else {
		sb.WriteString("No patterns available.\n")
	}
	sb.WriteString("\n")

	// Correlations
	sb.WriteString("## Correlated Patterns\n\n")
	if len(r.Correlations) > 0 {
		sb.WriteString("| Pattern A | Pattern B | Correlation |\n")
		sb.WriteString("|-----------|-----------|-------------|\n")
		for _, c := range r.Correlations {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f |\n", c.A, c.B, c.Correlation))
		}
	} else {
		sb.WriteString("No correlated pattern pairs.\n")
	}
	sb.WriteString("\n")

	// Drift
	sb.WriteString("## Win Rate Drift\n\n")
	if r.Drift.Sufficient {
		sb.WriteString(fmt.Sprintf("Older half: %.1f%% | Recent half: %.1f%%\n\n",
			r.Drift.OldWinRate*100, r.Drift.RecentWinRate*100))
		if r.Drift.Shifted {
			sb.WriteString("**Regime shift detected.** Recent win rate fell below the older half.\n")
		} else {
			sb.WriteString("No regime shift detected.\n")
		}
	} else {
		sb.WriteString("Not enough trades to measure drift.\n")
	}
	sb.WriteString("\n")

	// Strategies
	sb.WriteString("## Strategies\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Name | Instrument | Leverage | Hold(s) | MinVol | MaxSpread | TP% | SL% | Size | Trailing | Edge% |\n")
		sb.WriteString("|------|------------|----------|---------|--------|-----------|-----|-----|------|----------|-------|\n")
		for _, st := range r.Strategies {
			trailing := "off"
			if st.TrailingStop {
				trailing = fmt.Sprintf("%.2f%%", st.TrailingPct)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1f | %d | %.2f | %.2f | %.4f | %.4f | %.2f | %s | %.2f |\n",
				st.Name, st.Instrument, st.Leverage, st.HoldSeconds, st.MinVolatility, st.MaxSpreadPct,
				st.TakeProfitPct, st.StopLossPct, st.PositionSize, trailing, st.Edge))
		}
	} else {
		sb.WriteString("No validated strategies. Selection falls back to the safe default.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
