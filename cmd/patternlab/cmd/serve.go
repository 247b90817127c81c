package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trade-pattern-lab/internal/notify"
	"trade-pattern-lab/internal/observability"
	"trade-pattern-lab/internal/service"
	"trade-pattern-lab/internal/storage/document"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the learning engine as an HTTP service.

The stored ledger is replayed into the engine at startup. Recorded trades
are persisted before they reach the engine. Analysis reports go to
websocket clients on /ws and, when redis_addr is set, to Redis channels.

In memory mode with ledger_path set, the ledger file seeds the store.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := observability.DefaultMetrics
	hub := notify.NewHub(logger, func(n int) { metrics.WSClients.Set(float64(n)) })
	defer hub.Close()
	publishers := []notify.Publisher{hub}

	if cfg.Service.RedisAddr != "" {
		rp := notify.NewRedisPublisher(cfg.Service.RedisAddr, cfg.Service.RedisPassword,
			cfg.Service.RedisDB, cfg.Service.RedisPrefix, logger)
		if err := rp.HealthCheck(ctx); err != nil {
			rp.Close()
			return fmt.Errorf("redis health check: %w", err)
		}
		defer rp.Close()
		publishers = append(publishers, rp)
		logger.Info("redis publisher ready", "addr", cfg.Service.RedisAddr, "prefix", cfg.Service.RedisPrefix)
	}

	svc := service.New(service.Deps{
		Engine:     cfg.EngineOptions(),
		Trades:     st.trades,
		Snapshots:  st.snapshots,
		Publishers: publishers,
		Metrics:    metrics,
		Logger:     logger,
	})

	if cfg.Service.UseMemory && cfg.Service.LedgerPath != "" {
		trades, err := document.Load(cfg.Service.LedgerPath)
		if err != nil {
			return err
		}
		n, err := svc.ImportTrades(ctx, trades)
		if err != nil {
			return err
		}
		logger.Info("ledger seeded", "path", cfg.Service.LedgerPath, "trades", n)
	}

	report, err := svc.Bootstrap(ctx)
	if err != nil {
		return err
	}
	logger.Info("engine ready", "trades", report.TradeCount, "status", report.Status, "regime", report.Regime)

	addr := cfg.Service.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: service.NewHandler(svc, hub),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
