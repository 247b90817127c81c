package engine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"

	"trade-pattern-lab/internal/domain"
)

// series returns n trades for one pattern where positions with i%10 < 7 win
// (+11 gross) and the rest lose (-9 gross), with a small fee on each.
func series(instrument string, leverage float64, hold, n int) []domain.TradeOutcome {
	out := make([]domain.TradeOutcome, n)
	for i := range out {
		gross := -9.0
		if i%10 < 7 {
			gross = 11
		}
		out[i] = domain.TradeOutcome{
			Instrument:        instrument,
			Leverage:          leverage,
			HoldSeconds:       hold,
			PositionSize:      100,
			GrossPnL:          gross,
			FeesPaid:          0.05,
			NetPnL:            gross - 0.05,
			Timestamp:         int64(1704067200000 + i*1000),
			ExitReason:        domain.ExitReasonManual,
			VolatilityAtEntry: 1.0,
		}
	}
	return out
}

func quietEngine(opts Options) *Engine {
	seq := 0
	return New(opts,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRunIDs(func() string {
			seq++
			return fmt.Sprintf("run-%d", seq)
		}),
	)
}

func TestEngine_BelowMinimumStaysEmpty(t *testing.T) {
	e := quietEngine(DefaultOptions())
	for _, tr := range series("XBTUSD", 2, 40, 24) {
		if _, analyzed := e.Record(tr); analyzed {
			t.Fatal("no analysis expected before the first batch")
		}
	}

	report := e.Analyze()
	if report.Status != domain.AnalysisStatusInsufficientData {
		t.Errorf("expected insufficient_data, got %s", report.Status)
	}
	if len(e.Patterns()) != 0 || len(e.Strategies()) != 0 {
		t.Error("pattern database and strategy set must stay empty")
	}
	if got := e.SelectBest("XBTUSD", 1.0); !got.IsSafeDefault() {
		t.Errorf("expected safe default, got %s", got.Name)
	}
}

func TestEngine_BatchTriggersAnalysis(t *testing.T) {
	e := quietEngine(DefaultOptions())
	trades := series("XBTUSD", 2, 40, 25)

	var last domain.AnalysisReport
	triggers := 0
	for _, tr := range trades {
		if report, analyzed := e.Record(tr); analyzed {
			triggers++
			last = report
		}
	}

	if triggers != 1 {
		t.Fatalf("expected one analysis at 25 trades, got %d", triggers)
	}
	if last.Status != domain.AnalysisStatusComplete || last.TradeCount != 25 {
		t.Errorf("unexpected report %+v", last)
	}
	if last.PatternCount != 1 || last.Strategies != 1 {
		t.Errorf("expected 1 pattern and 1 strategy, got %d/%d", last.PatternCount, last.Strategies)
	}
	if len(last.Winners) != 1 || last.Winners[0].Key.String() != "XBTUSD_2x_1" {
		t.Errorf("unexpected winners %+v", last.Winners)
	}
	if e.LastReport().RunID != last.RunID {
		t.Error("last report not retained")
	}
}

func TestEngine_AnalyzeIsIdempotent(t *testing.T) {
	trades := append(series("XBTUSD", 2, 40, 30), series("ETHUSD", 3, 90, 30)...)
	e, _ := NewFromTrades(DefaultOptions(), trades,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	patterns, strategies := e.Patterns(), e.Strategies()
	e.Analyze()

	if !reflect.DeepEqual(patterns, e.Patterns()) {
		t.Error("pattern database changed on re-analysis")
	}
	if !reflect.DeepEqual(strategies, e.Strategies()) {
		t.Error("strategy set changed on re-analysis")
	}
}

func TestEngine_SelectBest(t *testing.T) {
	e, _ := NewFromTrades(DefaultOptions(), series("XBTUSD", 2, 40, 30),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	got := e.SelectBest("XBTUSD", 1.0)
	if got.Name != "XBTUSD_2x_1" || !got.IsValidated {
		t.Fatalf("expected validated XBTUSD_2x_1, got %+v", got)
	}
	if got.HoldSeconds != 45 {
		t.Errorf("expected hold 45s, got %d", got.HoldSeconds)
	}

	if got := e.SelectBest("XBTUSD", 0.3); !got.IsSafeDefault() {
		t.Errorf("expected safe default under the volatility gate, got %s", got.Name)
	}
	if got := e.SelectBest("ETHUSD", 1.0); !got.IsSafeDefault() {
		t.Errorf("expected safe default for unknown instrument, got %s", got.Name)
	}
}

func TestEngine_SelectBestPrefersHigherSharpe(t *testing.T) {
	// The wide-swing pattern sorts first in rebuild order but has the lower
	// Sharpe: 0.7*12 - 0.3*20 still clears the fee margin.
	wild := series("XBTUSD", 2, 40, 30)
	for i := range wild {
		if wild[i].GrossPnL > 0 {
			wild[i].GrossPnL = 12
		} else {
			wild[i].GrossPnL = -20
		}
		wild[i].NetPnL = wild[i].GrossPnL - wild[i].FeesPaid
	}
	steady := series("XBTUSD", 5, 40, 30)

	e, _ := NewFromTrades(DefaultOptions(), append(wild, steady...),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if n := len(e.Strategies()); n != 2 {
		t.Fatalf("expected both patterns to yield strategies, got %d", n)
	}
	wildM, _ := e.PatternMetrics(domain.PatternKey{Instrument: "XBTUSD", Leverage: 2, HoldBucket: 1})
	steadyM, _ := e.PatternMetrics(domain.PatternKey{Instrument: "XBTUSD", Leverage: 5, HoldBucket: 1})
	if wildM.SharpeRatio >= steadyM.SharpeRatio {
		t.Fatalf("fixture broken: wild sharpe %f >= steady %f", wildM.SharpeRatio, steadyM.SharpeRatio)
	}

	if got := e.SelectBest("XBTUSD", 1.0); got.Name != "XBTUSD_5x_1" {
		t.Errorf("expected higher-Sharpe XBTUSD_5x_1, got %s", got.Name)
	}
}

func TestEngine_PatternKeyIndependence(t *testing.T) {
	base := series("XBTUSD", 2, 40, 30)
	e1, _ := NewFromTrades(DefaultOptions(), base,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	mixed := append(append([]domain.TradeOutcome{}, base...), series("ETHUSD", 2, 10, 30)...)
	e2, _ := NewFromTrades(DefaultOptions(), mixed,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	key := domain.PatternKey{Instrument: "XBTUSD", Leverage: 2, HoldBucket: 1}
	a, _ := e1.PatternMetrics(key)
	b, _ := e2.PatternMetrics(key)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("unrelated trades changed pattern metrics:\n%+v\n%+v", a, b)
	}
}

func TestEngine_MissingPattern(t *testing.T) {
	e := quietEngine(DefaultOptions())
	got, ok := e.PatternMetrics(domain.PatternKey{Instrument: "XBTUSD", Leverage: 9, HoldBucket: 3})
	if ok {
		t.Error("expected ok=false for missing pattern")
	}
	if !reflect.DeepEqual(got, domain.PatternMetrics{}) {
		t.Errorf("expected zero record, got %+v", got)
	}
}

func TestEngine_Summary(t *testing.T) {
	e, _ := NewFromTrades(DefaultOptions(), series("XBTUSD", 2, 40, 30),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s := e.Summary()
	if s.TotalTrades != 30 || s.Instruments != 1 || s.PatternCount != 1 || s.StrategyCount != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.WinRate-0.7) > 1e-12 {
		t.Errorf("expected win rate 0.7, got %f", s.WinRate)
	}
	// 21 * 10.95 - 9 * 9.05
	if math.Abs(s.TotalPnL-148.5) > 1e-9 {
		t.Errorf("expected total pnl 148.5, got %f", s.TotalPnL)
	}
	if s.Regime == domain.RegimeUnknown {
		t.Error("expected a regime label with trades present")
	}
}

func TestEngine_Estimates(t *testing.T) {
	e := quietEngine(DefaultOptions())
	if e.EstimateDrawdownRisk() != 0 || e.EstimateWinRateAtConfidence(0.95) != 0 {
		t.Error("empty ledger estimates must be 0")
	}

	for _, tr := range series("XBTUSD", 2, 40, 30) {
		e.Record(tr)
	}
	if dd := e.EstimateDrawdownRisk(); dd <= 0 {
		t.Errorf("expected positive drawdown, got %f", dd)
	}
	lb := e.EstimateWinRateAtConfidence(0.95)
	if lb <= 0 || lb >= 0.7 {
		t.Errorf("expected lower bound in (0, 0.7), got %f", lb)
	}
	if e.EstimateWinRateAtConfidence(1.5) != 0 {
		t.Error("out of range level must yield 0")
	}
}

func TestEngine_DriftAndCorrelations(t *testing.T) {
	trades := append(series("XBTUSD", 2, 40, 30), series("ETHUSD", 2, 40, 30)...)
	e, report := NewFromTrades(DefaultOptions(), trades,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if !e.Drift().Sufficient {
		t.Error("expected drift report with 60 trades")
	}
	// identical win sequences
	if len(report.Correlations) != 1 || math.Abs(report.Correlations[0].Correlation-1) > 1e-9 {
		t.Errorf("expected one perfectly correlated pair, got %+v", report.Correlations)
	}
	if len(e.Correlations()) != 1 {
		t.Errorf("expected correlations retained, got %d", len(e.Correlations()))
	}
}

func TestEngine_TradesAreCopies(t *testing.T) {
	e := quietEngine(DefaultOptions())
	e.Record(series("XBTUSD", 2, 40, 1)[0])

	got := e.Trades()
	got[0].NetPnL = 1e9
	if e.Trades()[0].NetPnL == 1e9 {
		t.Error("ledger mutated through returned slice")
	}
}

func TestEngine_ConcurrentRecord(t *testing.T) {
	e := quietEngine(DefaultOptions())
	trades := series("XBTUSD", 2, 40, 200)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(trades); i += 4 {
				e.Record(trades[i])
				e.SelectBest("XBTUSD", 1.0)
			}
		}(w)
	}
	wg.Wait()

	if e.Len() != 200 {
		t.Errorf("expected 200 trades, got %d", e.Len())
	}
}

func TestEngine_LogsAnalysis(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	NewFromTrades(DefaultOptions(), series("XBTUSD", 2, 40, 30), WithLogger(logger))

	out := buf.String()
	for _, want := range []string{"analysis complete", "pattern=XBTUSD_2x_1", "winner"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	e := New(Options{})
	opts := e.Options()
	if opts.BatchSize != 25 || opts.MinTrades != 25 || opts.ConfidenceThreshold != 0.6 {
		t.Errorf("unexpected defaults %+v", opts)
	}
	if opts.Analysis.TopCorrelations != 3 || opts.Metrics.MinPatternTrades != 5 {
		t.Errorf("unexpected nested defaults %+v", opts)
	}
}
