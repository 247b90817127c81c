package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/storage"
)

// TradeOutcomeStore implements storage.TradeOutcomeStore using PostgreSQL.
// Arrival order is the BIGSERIAL seq column.
type TradeOutcomeStore struct {
	pool *Pool
}

// NewTradeOutcomeStore creates a new TradeOutcomeStore.
func NewTradeOutcomeStore(pool *Pool) *TradeOutcomeStore {
	return &TradeOutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeOutcomeStore = (*TradeOutcomeStore)(nil)

const insertTradeOutcome = `
	INSERT INTO trade_outcomes (
		trade_id, instrument,
		entry_price, exit_price, leverage, hold_seconds, position_size,
		net_pnl, gross_pnl, fees_paid,
		timestamp_ms, exit_reason,
		volatility_at_entry, spread_at_entry,
		bars_to_high, bars_to_low, max_profit, max_loss, trend_direction
	) VALUES (
		$1, $2,
		$3, $4, $5, $6, $7,
		$8, $9, $10,
		$11, $12,
		$13, $14,
		$15, $16, $17, $18, $19
	)
`

const selectTradeOutcome = `
	SELECT
		trade_id, instrument,
		entry_price, exit_price, leverage, hold_seconds, position_size,
		net_pnl, gross_pnl, fees_paid,
		timestamp_ms, exit_reason,
		volatility_at_entry, spread_at_entry,
		bars_to_high, bars_to_low, max_profit, max_loss, trend_direction
	FROM trade_outcomes
`

func insertArgs(t *domain.TradeOutcome) []any {
	return []any{
		t.TradeID, t.Instrument,
		t.EntryPrice, t.ExitPrice, t.Leverage, t.HoldSeconds, t.PositionSize,
		t.NetPnL, t.GrossPnL, t.FeesPaid,
		t.Timestamp, t.ExitReason,
		t.VolatilityAtEntry, t.SpreadAtEntry,
		t.BarsToHigh, t.BarsToLow, t.MaxProfit, t.MaxLoss, t.TrendDirection,
	}
}

// Insert adds a new outcome. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeOutcomeStore) Insert(ctx context.Context, t *domain.TradeOutcome) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeOutcome, insertArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade outcome: %w", err)
	}
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *TradeOutcomeStore) InsertBulk(ctx context.Context, trades []*domain.TradeOutcome) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range trades {
			batch.Queue(insertTradeOutcome, insertArgs(t)...)
		}

		results := tx.SendBatch(ctx, batch)
		for range trades {
			if _, err := results.Exec(); err != nil {
				results.Close()
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert trade outcome in bulk: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an outcome by its ID. Returns ErrNotFound if not exists.
func (s *TradeOutcomeStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeOutcome, error) {
	row := s.pool.QueryRow(ctx, selectTradeOutcome+` WHERE trade_id = $1`, tradeID)

	t, err := scanTradeOutcome(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade outcome by id: %w", err)
	}
	return t, nil
}

// GetByInstrument retrieves all outcomes for an instrument in arrival order.
func (s *TradeOutcomeStore) GetByInstrument(ctx context.Context, instrument string) ([]*domain.TradeOutcome, error) {
	rows, err := s.pool.Query(ctx, selectTradeOutcome+` WHERE instrument = $1 ORDER BY seq ASC`, instrument)
	if err != nil {
		return nil, fmt.Errorf("get trade outcomes by instrument: %w", err)
	}
	defer rows.Close()

	return scanTradeOutcomes(rows)
}

// GetAll retrieves every outcome in arrival order.
func (s *TradeOutcomeStore) GetAll(ctx context.Context) ([]*domain.TradeOutcome, error) {
	rows, err := s.pool.Query(ctx, selectTradeOutcome+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all trade outcomes: %w", err)
	}
	defer rows.Close()

	return scanTradeOutcomes(rows)
}

// Count returns the number of stored outcomes.
func (s *TradeOutcomeStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM trade_outcomes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trade outcomes: %w", err)
	}
	return int(n), nil
}

// scanTradeOutcome scans a single row into a TradeOutcome.
func scanTradeOutcome(row pgx.Row) (*domain.TradeOutcome, error) {
	var t domain.TradeOutcome

	err := row.Scan(
		&t.TradeID, &t.Instrument,
		&t.EntryPrice, &t.ExitPrice, &t.Leverage, &t.HoldSeconds, &t.PositionSize,
		&t.NetPnL, &t.GrossPnL, &t.FeesPaid,
		&t.Timestamp, &t.ExitReason,
		&t.VolatilityAtEntry, &t.SpreadAtEntry,
		&t.BarsToHigh, &t.BarsToLow, &t.MaxProfit, &t.MaxLoss, &t.TrendDirection,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTradeOutcomes scans multiple rows into a slice of TradeOutcome.
func scanTradeOutcomes(rows pgx.Rows) ([]*domain.TradeOutcome, error) {
	var trades []*domain.TradeOutcome

	for rows.Next() {
		t, err := scanTradeOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade outcome row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade outcome rows: %w", err)
	}
	return trades, nil
}
