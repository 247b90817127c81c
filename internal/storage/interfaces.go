package storage

import (
	"context"

	"trade-pattern-lab/internal/domain"
)

// TradeOutcomeStore provides access to trade_outcomes storage.
// Outcomes are append-only; arrival order is preserved and is the ledger order.
type TradeOutcomeStore interface {
	// Insert adds a new outcome. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeOutcome) error

	// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeOutcome) error

	// GetByID retrieves an outcome by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeOutcome, error)

	// GetByInstrument retrieves all outcomes for an instrument in arrival order.
	GetByInstrument(ctx context.Context, instrument string) ([]*domain.TradeOutcome, error)

	// GetAll retrieves every outcome in arrival order.
	GetAll(ctx context.Context) ([]*domain.TradeOutcome, error)

	// Count returns the number of stored outcomes.
	Count(ctx context.Context) (int, error)
}

// PatternSnapshotStore provides access to pattern_snapshots storage.
// Each analysis run writes the full pattern database under its run ID.
type PatternSnapshotStore interface {
	// InsertBulk adds all snapshots of one run. Returns ErrDuplicateKey if
	// the run already has snapshots, ErrInvalidInput on mixed run IDs.
	InsertBulk(ctx context.Context, snapshots []*domain.PatternSnapshot) error

	// GetByRun retrieves the snapshots of a run ordered by pattern key.
	GetByRun(ctx context.Context, runID string) ([]*domain.PatternSnapshot, error)

	// GetLatestRunID returns the most recent run ID. Returns ErrNotFound if empty.
	GetLatestRunID(ctx context.Context) (string, error)

	// GetHistory retrieves every snapshot of one pattern ordered by run.
	GetHistory(ctx context.Context, key domain.PatternKey) ([]*domain.PatternSnapshot, error)
}
