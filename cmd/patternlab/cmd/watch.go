package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trade-pattern-lab/internal/notify"
)

var watchTypes []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream analysis events from Redis",
	Long: `Subscribe to the Redis channels a running service publishes on and
print each event as one JSON line until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVarP(&watchTypes, "type", "t",
		[]string{notify.EventAnalysisComplete, notify.EventRegimeShift}, "event types to follow")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cfg.Service.RedisAddr == "" {
		return errors.New("watch needs redis_addr")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := notify.NewRedisPublisher(cfg.Service.RedisAddr, cfg.Service.RedisPassword,
		cfg.Service.RedisDB, cfg.Service.RedisPrefix, logger)
	defer sub.Close()
	if err := sub.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}

	out := cmd.OutOrStdout()
	logger.Info("watching events", "addr", cfg.Service.RedisAddr, "types", watchTypes)
	return sub.Subscribe(ctx, func(ev *notify.Event) {
		data, err := ev.Marshal()
		if err != nil {
			logger.Warn("marshal event failed", "id", ev.ID, "error", err)
			return
		}
		fmt.Fprintln(out, string(data))
	}, watchTypes...)
}
