package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trade-pattern-lab/internal/engine"
	"trade-pattern-lab/internal/reporting"
	"trade-pattern-lab/internal/storage/document"
)

var (
	analyzeLedger    string
	analyzeReportDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a ledger file offline",
	Long: `Load a JSON or YAML ledger document, replay it into a fresh engine and
print the resulting patterns and strategies.

With --report-dir, also write PATTERN_REPORT.md, patterns.csv and
strategies.csv into that directory.`,
	Example: `  patternlab analyze --ledger trades.json
  patternlab analyze --ledger trades.yaml --report-dir out`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeLedger, "ledger", "l", "", "Ledger document (.json, .yaml)")
	analyzeCmd.Flags().StringVarP(&analyzeReportDir, "report-dir", "o", "", "Directory for report files")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := ledgerOrDefault(analyzeLedger)
	if path == "" {
		return fmt.Errorf("--ledger is required")
	}
	trades, err := document.Load(path)
	if err != nil {
		return err
	}

	eng, report := engine.NewFromTrades(cfg.EngineOptions(), trades, engine.WithLogger(logger))
	sum := eng.Summary()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ledger:     %s\n", path)
	fmt.Fprintf(out, "Trades:     %d\n", sum.TotalTrades)
	fmt.Fprintf(out, "Status:     %s\n", report.Status)
	fmt.Fprintf(out, "Win rate:   %.1f%%\n", sum.WinRate*100)
	fmt.Fprintf(out, "Total PnL:  %.4f\n", sum.TotalPnL)
	fmt.Fprintf(out, "Regime:     %s\n", sum.Regime)
	fmt.Fprintf(out, "Patterns:   %d\n", sum.PatternCount)
	fmt.Fprintf(out, "Strategies: %d\n", sum.StrategyCount)

	if strategies := eng.Strategies(); len(strategies) > 0 {
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STRATEGY\tLEVERAGE\tHOLD\tTP%\tSL%\tEDGE")
		for _, s := range strategies {
			fmt.Fprintf(tw, "%s\t%.0fx\t%ds\t%.2f\t%.2f\t%.2f%%\n",
				s.Name, s.Leverage, s.HoldSeconds, s.TakeProfitPct, s.StopLossPct, s.EstimatedEdge)
		}
		tw.Flush()
	}

	if analyzeReportDir != "" {
		if err := os.MkdirAll(analyzeReportDir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		if err := reporting.WriteFiles(analyzeReportDir, reporting.NewGenerator(eng).Generate()); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nReport written to %s\n", analyzeReportDir)
	}
	return nil
}
