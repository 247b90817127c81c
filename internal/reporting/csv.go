package reporting

import (
	"fmt"
	"strings"
)

// RenderPatternsCSV renders the pattern table as CSV string.
func RenderPatternsCSV(rows []PatternRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("pattern,total_trades,win_rate,total_pnl,avg_win,avg_loss,profit_factor,")
	sb.WriteString("max_drawdown,sharpe,sortino,confidence,has_edge,edge_pct\n")

	// Rows
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%t,%.6f\n",
			p.Pattern,
			p.Trades,
			p.WinRate,
			p.TotalPnL,
			p.AvgWin,
			p.AvgLoss,
			p.ProfitFactor,
			p.MaxDrawdown,
			p.Sharpe,
			p.Sortino,
			p.Confidence,
			p.HasEdge,
			p.Edge,
		))
	}

	return sb.String()
}

// RenderStrategiesCSV renders synthesized strategies as CSV string.
func RenderStrategiesCSV(rows []StrategyRow) string {
	var sb strings.Builder

	sb.WriteString("name,instrument,leverage,hold_seconds,min_volatility,max_spread_pct,")
	sb.WriteString("take_profit_pct,stop_loss_pct,position_size,trailing_stop,trailing_stop_pct,partial_exits,estimated_edge\n")

	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%d,%.4f,%.4f,%.6f,%.6f,%.2f,%t,%.4f,%t,%.6f\n",
			s.Name,
			s.Instrument,
			s.Leverage,
			s.HoldSeconds,
			s.MinVolatility,
			s.MaxSpreadPct,
			s.TakeProfitPct,
			s.StopLossPct,
			s.PositionSize,
			s.TrailingStop,
			s.TrailingPct,
			s.PartialExits,
			s.Edge,
		))
	}

	return sb.String()
}
