package cmd

import (
	"context"
	"fmt"

	"trade-pattern-lab/internal/storage"
	chstore "trade-pattern-lab/internal/storage/clickhouse"
	"trade-pattern-lab/internal/storage/memory"
	"trade-pattern-lab/internal/storage/migrations"
	pgstore "trade-pattern-lab/internal/storage/postgres"
)

// stores holds the opened storage backends and their cleanup.
type stores struct {
	trades    storage.TradeOutcomeStore
	snapshots storage.PatternSnapshotStore
	closers   []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores opens the configured backends. In memory mode both stores are
// process-local. Otherwise trades go to Postgres, and pattern snapshots go
// to ClickHouse when a DSN is set.
func openStores(ctx context.Context) (*stores, error) {
	sc := cfg.Service
	if sc.UseMemory {
		logger.Info("using in-memory storage")
		return &stores{
			trades:    memory.NewTradeOutcomeStore(),
			snapshots: memory.NewPatternSnapshotStore(),
		}, nil
	}

	if sc.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is required unless use_memory is set")
	}

	s := &stores{}
	pool, err := pgstore.NewPool(ctx, sc.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("postgres ready", "migrations_applied", len(applied))
	s.trades = pgstore.NewTradeOutcomeStore(pool)

	if sc.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, sc.ClickHouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.snapshots = chstore.NewPatternSnapshotStore(conn)
		logger.Info("clickhouse ready")
	}
	return s, nil
}
