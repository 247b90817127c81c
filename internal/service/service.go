// Package service wires the learning engine to durable storage, metrics
// and event publishers, and serves it over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/engine"
	"trade-pattern-lab/internal/idhash"
	"trade-pattern-lab/internal/notify"
	"trade-pattern-lab/internal/observability"
	"trade-pattern-lab/internal/storage"
	"trade-pattern-lab/internal/verification"
)

// Deps holds the collaborators of a Service. Only Trades is required.
type Deps struct {
	Engine     engine.Options
	Trades     storage.TradeOutcomeStore
	Snapshots  storage.PatternSnapshotStore // optional
	Publishers []notify.Publisher
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Service owns one engine and keeps it in step with the trade store.
type Service struct {
	// mu serializes writes so the store's arrival order is the ledger order.
	mu        sync.Mutex
	engine    atomic.Pointer[engine.Engine]
	lastStamp int64 // guarded by mu

	opts       engine.Options
	trades     storage.TradeOutcomeStore
	snapshots  storage.PatternSnapshotStore
	publishers []notify.Publisher
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
	started    time.Time
}

// New creates a service with an empty engine. Call Bootstrap to load the
// stored ledger.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.DefaultMetrics
	}
	s := &Service{
		opts:       d.Engine,
		trades:     d.Trades,
		snapshots:  d.Snapshots,
		publishers: d.Publishers,
		metrics:    d.Metrics,
		logger:     d.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.started = s.now()
	s.engine.Store(engine.New(d.Engine, engine.WithLogger(d.Logger)))
	return s
}

// Engine returns the current engine.
func (s *Service) Engine() *engine.Engine {
	return s.engine.Load()
}

// Bootstrap replaces the engine with one built from every stored trade in
// stored order, then runs one analysis pass.
func (s *Service) Bootstrap(ctx context.Context) (domain.AnalysisReport, error) {
	s.mu.Lock()

	start := time.Now()
	stored, err := s.trades.GetAll(ctx)
	s.metrics.RecordDBQuery("trades", "get_all", time.Since(start).Seconds(), err)
	if err != nil {
		s.mu.Unlock()
		return domain.AnalysisReport{}, fmt.Errorf("load trades: %w", err)
	}

	trades := make([]domain.TradeOutcome, len(stored))
	for i, t := range stored {
		trades[i] = *t
	}

	start = time.Now()
	eng, report := engine.NewFromTrades(s.opts, trades, engine.WithLogger(s.logger))
	elapsed := time.Since(start)
	s.engine.Store(eng)
	patterns := eng.Patterns()
	s.mu.Unlock()

	s.metrics.LedgerSize.Set(float64(len(trades)))
	s.logger.Info("ledger loaded", "trades", len(trades), "status", report.Status)
	s.afterAnalysis(ctx, report, patterns, elapsed)
	return report, nil
}

// RecordResult describes one recorded trade.
type RecordResult struct {
	Trade    domain.TradeOutcome
	Analyzed bool
	Report   domain.AnalysisReport // set when Analyzed
}

// maxStampAttempts bounds the retries of an auto-stamped trade whose id is
// already taken.
const maxStampAttempts = 8

// RecordTrade persists a trade and appends it to the ledger. The trade id
// is derived from the trade's fields. A trade without a timestamp gets a
// fresh one, and a new one if that id is already stored. A client-stamped
// trade already in the store yields storage.ErrDuplicateKey and leaves the
// engine untouched. Malformed trades yield storage.ErrInvalidInput.
func (s *Service) RecordTrade(ctx context.Context, t domain.TradeOutcome) (RecordResult, error) {
	if err := validateTrade(t); err != nil {
		s.metrics.RecordRejected("invalid")
		return RecordResult{}, err
	}
	stamped := t.Timestamp == 0

	s.mu.Lock()
	var err error
	for attempt := 1; ; attempt++ {
		if stamped {
			t.Timestamp = s.nextStamp(s.now().UnixMilli())
		}
		t.TradeID = idhash.ComputeTradeID(t)

		start := time.Now()
		err = s.trades.Insert(ctx, &t)
		s.metrics.RecordDBQuery("trades", "insert", time.Since(start).Seconds(), err)
		if !stamped || attempt == maxStampAttempts || !errors.Is(err, storage.ErrDuplicateKey) {
			break
		}
	}
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.metrics.RecordRejected("duplicate")
		}
		return RecordResult{}, fmt.Errorf("store trade %s: %w", t.TradeID, err)
	}

	eng := s.engine.Load()
	start := time.Now()
	report, analyzed := eng.Record(t)
	elapsed := time.Since(start)
	size := eng.Len()
	var patterns []domain.PatternMetrics
	if analyzed {
		patterns = eng.Patterns()
	}
	s.mu.Unlock()

	s.metrics.RecordTrade(t.NetPnL, size)
	if analyzed {
		s.afterAnalysis(ctx, report, patterns, elapsed)
	}
	return RecordResult{Trade: t, Analyzed: analyzed, Report: report}, nil
}

// Analyze runs an analysis pass on demand.
func (s *Service) Analyze(ctx context.Context) domain.AnalysisReport {
	s.mu.Lock()
	eng := s.engine.Load()
	start := time.Now()
	report := eng.Analyze()
	elapsed := time.Since(start)
	patterns := eng.Patterns()
	s.mu.Unlock()

	s.afterAnalysis(ctx, report, patterns, elapsed)
	return report
}

// SelectStrategy returns the best strategy for the instrument at the given
// volatility, or the safe default.
func (s *Service) SelectStrategy(instrument string, volatility float64) domain.StrategyConfig {
	cfg := s.Engine().SelectBest(instrument, volatility)
	s.metrics.RecordSelection(cfg.IsSafeDefault())
	return cfg
}

// ImportTrades assigns ids to trades and stores them in one batch, in
// order. Trades without a timestamp are stamped with increasing
// milliseconds so identical rows stay distinct. The engine is not touched;
// call Bootstrap.
func (s *Service) ImportTrades(ctx context.Context, trades []domain.TradeOutcome) (int, error) {
	for i, t := range trades {
		if err := validateTrade(t); err != nil {
			return 0, fmt.Errorf("trade %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	batch := make([]*domain.TradeOutcome, 0, len(trades))
	for i := range trades {
		t := trades[i]
		if t.Timestamp == 0 {
			t.Timestamp = s.nextStamp(now)
		}
		if t.TradeID == "" {
			t.TradeID = idhash.ComputeTradeID(t)
		}
		batch = append(batch, &t)
	}

	start := time.Now()
	err := s.trades.InsertBulk(ctx, batch)
	s.metrics.RecordDBQuery("trades", "insert_bulk", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("import trades: %w", err)
	}
	return len(batch), nil
}

// StoredTrades returns every stored trade in arrival order.
func (s *Service) StoredTrades(ctx context.Context) ([]domain.TradeOutcome, error) {
	stored, err := s.trades.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	out := make([]domain.TradeOutcome, len(stored))
	for i, t := range stored {
		out[i] = *t
	}
	return out, nil
}

// TradesByInstrument returns the stored trades of one instrument in
// arrival order.
func (s *Service) TradesByInstrument(ctx context.Context, instrument string) ([]domain.TradeOutcome, error) {
	start := time.Now()
	stored, err := s.trades.GetByInstrument(ctx, instrument)
	s.metrics.RecordDBQuery("trades", "get_by_instrument", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load %s trades: %w", instrument, err)
	}
	out := make([]domain.TradeOutcome, len(stored))
	for i, t := range stored {
		out[i] = *t
	}
	return out, nil
}

// StoredCount returns the number of trades in the store.
func (s *Service) StoredCount(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.trades.Count(ctx)
	s.metrics.RecordDBQuery("trades", "count", time.Since(start).Seconds(), err)
	return n, err
}

// RunSnapshots returns the pattern snapshots of one analysis run, or of the
// latest run when runID is empty. A run with no snapshots, or a service
// without a snapshot store, yields storage.ErrNotFound.
func (s *Service) RunSnapshots(ctx context.Context, runID string) (string, []*domain.PatternSnapshot, error) {
	if s.snapshots == nil {
		return "", nil, fmt.Errorf("no snapshot store: %w", storage.ErrNotFound)
	}
	if runID == "" {
		latest, err := s.snapshots.GetLatestRunID(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("latest run: %w", err)
		}
		runID = latest
	}
	start := time.Now()
	rows, err := s.snapshots.GetByRun(ctx, runID)
	s.metrics.RecordDBQuery("snapshots", "get_by_run", time.Since(start).Seconds(), err)
	if err != nil {
		return "", nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	return runID, rows, nil
}

// PatternHistory returns the recorded snapshots of one pattern across runs.
func (s *Service) PatternHistory(ctx context.Context, key domain.PatternKey) ([]*domain.PatternSnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.GetHistory(ctx, key)
}

// Verify checks every stored trade and compares the live pattern database
// with a replay of the stored ledger.
func (s *Service) Verify(ctx context.Context) (*verification.Report, error) {
	s.mu.Lock()
	trades, err := s.StoredTrades(ctx)
	eng := s.engine.Load()
	live := liveState{report: eng.LastReport(), patterns: eng.Patterns()}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	report := verification.NewLedgerVerifier(s.trades, s.opts).VerifySnapshot(trades, live)
	if !report.OK() {
		s.logger.Warn("ledger verification found divergences",
			"divergent_trades", report.DivergentTrades, "divergent_patterns", len(report.Patterns))
	}
	return report, nil
}

// VerifyTrade checks one stored trade's id and P&L identity.
func (s *Service) VerifyTrade(ctx context.Context, tradeID string) (*verification.TradeResult, error) {
	return verification.NewLedgerVerifier(s.trades, s.opts).VerifyTrade(ctx, tradeID)
}

// liveState is the engine state captured under the write lock.
type liveState struct {
	report   domain.AnalysisReport
	patterns []domain.PatternMetrics
}

func (l liveState) LastReport() domain.AnalysisReport { return l.report }
func (l liveState) Patterns() []domain.PatternMetrics { return l.patterns }

// afterAnalysis records metrics, snapshots the pattern database and
// publishes the report. Storage and publish failures are logged only.
func (s *Service) afterAnalysis(ctx context.Context, report domain.AnalysisReport, patterns []domain.PatternMetrics, elapsed time.Duration) {
	now := s.now()
	s.metrics.RecordAnalysis(report.Status, elapsed.Seconds(), report.PatternCount, report.Strategies,
		report.Drift.Shifted, now.Unix())

	if report.Status != domain.AnalysisStatusComplete {
		return
	}

	if s.snapshots != nil && len(patterns) > 0 {
		rows := make([]*domain.PatternSnapshot, len(patterns))
		for i, p := range patterns {
			rows[i] = &domain.PatternSnapshot{RunID: report.RunID, TakenAt: now.UnixMilli(), Metrics: p}
		}
		start := time.Now()
		err := s.snapshots.InsertBulk(ctx, rows)
		s.metrics.RecordDBQuery("snapshots", "insert_bulk", time.Since(start).Seconds(), err)
		if err != nil {
			s.logger.Error("snapshot failed", "run_id", report.RunID, "error", err)
		}
	}

	s.publish(ctx, notify.EventAnalysisComplete, NewReportView(report))
	if report.Drift.Shifted {
		s.publish(ctx, notify.EventRegimeShift, NewDriftView(report.Drift))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if len(s.publishers) == 0 {
		return
	}
	ev, err := notify.NewEvent(eventType, payload)
	if err != nil {
		s.logger.Error("build event failed", "event_type", eventType, "error", err)
		return
	}
	for _, p := range s.publishers {
		err := p.Publish(ctx, ev)
		s.metrics.RecordPublish(p.Name(), err)
		if err != nil {
			s.logger.Warn("publish failed", "sink", p.Name(), "event_type", eventType, "error", err)
		}
	}
}

// nextStamp returns now, or one past the previous stamp if that is not
// later. Callers hold s.mu.
func (s *Service) nextStamp(now int64) int64 {
	if now <= s.lastStamp {
		now = s.lastStamp + 1
	}
	s.lastStamp = now
	return now
}

// validateTrade rejects trades the engine cannot score.
func validateTrade(t domain.TradeOutcome) error {
	if t.Instrument == "" {
		return fmt.Errorf("%w: instrument is required", storage.ErrInvalidInput)
	}
	for name, v := range map[string]float64{
		"entry": t.EntryPrice, "exit": t.ExitPrice, "leverage": t.Leverage,
		"position_size": t.PositionSize, "pnl": t.NetPnL, "gross_pnl": t.GrossPnL,
		"fees": t.FeesPaid, "volatility": t.VolatilityAtEntry, "spread": t.SpreadAtEntry,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", storage.ErrInvalidInput, name)
		}
	}
	if t.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive", storage.ErrInvalidInput)
	}
	if t.HoldSeconds < 0 || t.PositionSize < 0 || t.FeesPaid < 0 {
		return fmt.Errorf("%w: hold_seconds, position_size and fees must not be negative", storage.ErrInvalidInput)
	}
	return nil
}
