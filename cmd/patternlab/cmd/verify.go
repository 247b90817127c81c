package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyTradeID string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the stored ledger for tampered or inconsistent trades",
	Long: `Recompute each stored trade's content-derived id and its
net = gross - fees identity, then check that replaying the ledger
reproduces the pattern database the engine analyzed.

With --trade only that trade is checked and no replay runs.

Exits non-zero when any divergence is found.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyTradeID, "trade", "", "check a single trade by id")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, st, err := newStoreService(ctx, "verify")
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if verifyTradeID != "" {
		res, err := svc.VerifyTrade(ctx, verifyTradeID)
		if err != nil {
			return err
		}
		for _, d := range res.Divergences {
			fmt.Fprintf(out, "  trade %s: %s expected %v, got %v\n", res.TradeID, d.Field, d.Expected, d.Actual)
		}
		if !res.Match {
			return fmt.Errorf("trade %s failed verification", res.TradeID)
		}
		fmt.Fprintln(out, "OK")
		return nil
	}

	if _, err := svc.Bootstrap(ctx); err != nil {
		return err
	}
	report, err := svc.Verify(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Trades:    %d (%d matched, %d divergent)\n",
		report.TotalTrades, report.MatchedTrades, report.DivergentTrades)
	fmt.Fprintf(out, "Replayed:  %d\n", report.ReplayedTrades)
	for _, tr := range report.Trades {
		for _, d := range tr.Divergences {
			fmt.Fprintf(out, "  trade %s: %s expected %v, got %v\n", tr.TradeID, d.Field, d.Expected, d.Actual)
		}
	}
	for _, p := range report.Patterns {
		for _, d := range p.Divergences {
			fmt.Fprintf(out, "  pattern %s: %s expected %v, got %v\n", p.Pattern, d.Field, d.Expected, d.Actual)
		}
	}

	if !report.OK() {
		return fmt.Errorf("ledger verification failed")
	}
	fmt.Fprintln(out, "OK")
	return nil
}
