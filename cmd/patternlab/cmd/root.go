// Package cmd holds the patternlab command tree.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"trade-pattern-lab/internal/config"
)

var (
	configPath string
	logFormat  string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "patternlab",
	Short: "Trade outcome pattern mining and strategy scoring",
	Long: `patternlab groups closed trades into (instrument, leverage, hold bucket)
patterns, scores each pattern for a statistical edge after fees, and turns
the trustworthy ones into strategy configs.

Run it as an HTTP service with "serve", or analyze a ledger file offline
with "analyze".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-format") {
			c.Log.Format = logFormat
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		cfg = c
		logger = cfg.Log.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// ledgerOrDefault returns the flag value, falling back to the configured
// ledger path.
func ledgerOrDefault(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Service.LedgerPath
}
