package clickhouse

import (
	"context"
	"fmt"
	"sort"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/storage"
)

// PatternSnapshotStore implements storage.PatternSnapshotStore using ClickHouse.
type PatternSnapshotStore struct {
	conn *Conn
}

// NewPatternSnapshotStore creates a new PatternSnapshotStore.
func NewPatternSnapshotStore(conn *Conn) *PatternSnapshotStore {
	return &PatternSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PatternSnapshotStore = (*PatternSnapshotStore)(nil)

const snapshotColumns = `
	run_id, taken_at,
	instrument, leverage, hold_bucket,
	total_trades, winning_trades, losing_trades,
	total_pnl, total_fees, avg_win, avg_loss, win_rate, profit_factor,
	max_drawdown, sharpe_ratio, sortino_ratio,
	confidence_score, has_edge, edge_percentage
`

// InsertBulk adds all snapshots of one run in a single batch.
// MergeTree does not enforce uniqueness, so a run that already has rows
// is rejected before the batch is prepared.
func (s *PatternSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PatternSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	runID := snapshots[0].RunID
	seen := make(map[domain.PatternKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" || snap.RunID != runID {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[snap.Metrics.Key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[snap.Metrics.Key] = struct{}{}
	}

	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO pattern_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		m := snap.Metrics
		var hasEdge uint8
		if m.HasEdge {
			hasEdge = 1
		}
		err = batch.Append(
			snap.RunID, uint64(snap.TakenAt),
			m.Key.Instrument, int32(m.Key.Leverage), uint8(m.Key.HoldBucket),
			uint32(m.TotalTrades), uint32(m.WinningTrades), uint32(m.LosingTrades),
			m.TotalPnL, m.TotalFees, m.AvgWin, m.AvgLoss, m.WinRate, m.ProfitFactor,
			m.MaxDrawdown, m.SharpeRatio, m.SortinoRatio,
			m.ConfidenceScore, hasEdge, m.EdgePercentage,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves the snapshots of a run ordered by pattern key string.
func (s *PatternSnapshotStore) GetByRun(ctx context.Context, runID string) ([]*domain.PatternSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM pattern_snapshots
		WHERE run_id = ?
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	snapshots, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Metrics.Key.String() < snapshots[j].Metrics.Key.String()
	})
	return snapshots, nil
}

// GetLatestRunID returns the greatest run ID. Run IDs are ULIDs, so the
// lexical maximum is the most recent run.
func (s *PatternSnapshotStore) GetLatestRunID(ctx context.Context) (string, error) {
	var (
		runID string
		count uint64
	)
	err := s.conn.QueryRow(ctx, `SELECT max(run_id), count() FROM pattern_snapshots`).Scan(&runID, &count)
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	if count == 0 {
		return "", storage.ErrNotFound
	}
	return runID, nil
}

// GetHistory retrieves every snapshot of one pattern ordered by run.
func (s *PatternSnapshotStore) GetHistory(ctx context.Context, key domain.PatternKey) ([]*domain.PatternSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM pattern_snapshots
		WHERE instrument = ? AND leverage = ? AND hold_bucket = ?
		ORDER BY run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, key.Instrument, int32(key.Leverage), uint8(key.HoldBucket))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// runExists checks if a run already has snapshots.
func (s *PatternSnapshotStore) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM pattern_snapshots WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanSnapshots scans multiple rows into a slice.
// Column types are unsigned/narrow in ClickHouse and widened here.
func scanSnapshots(rows chRows) ([]*domain.PatternSnapshot, error) {
	var snapshots []*domain.PatternSnapshot

	for rows.Next() {
		var (
			snap                domain.PatternSnapshot
			takenAt             uint64
			leverage            int32
			bucket, hasEdge     uint8
			total, wins, losses uint32
		)
		m := &snap.Metrics
		err := rows.Scan(
			&snap.RunID, &takenAt,
			&m.Key.Instrument, &leverage, &bucket,
			&total, &wins, &losses,
			&m.TotalPnL, &m.TotalFees, &m.AvgWin, &m.AvgLoss, &m.WinRate, &m.ProfitFactor,
			&m.MaxDrawdown, &m.SharpeRatio, &m.SortinoRatio,
			&m.ConfidenceScore, &hasEdge, &m.EdgePercentage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.TakenAt = int64(takenAt)
		m.Key.Leverage = int(leverage)
		m.Key.HoldBucket = int(bucket)
		m.TotalTrades = int(total)
		m.WinningTrades = int(wins)
		m.LosingTrades = int(losses)
		m.HasEdge = hasEdge == 1

		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}
