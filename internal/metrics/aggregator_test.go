package metrics

import (
	"reflect"
	"testing"

	"trade-pattern-lab/internal/domain"
)

func TestComputeAll_DropsSmallBuckets(t *testing.T) {
	var trades []domain.TradeOutcome
	// 6 trades in XBTUSD_2x_0, 4 in ETHUSD_2x_0
	for i := 0; i < 6; i++ {
		trades = append(trades, trade("XBTUSD", 2, 10, 3, 0.1))
	}
	for i := 0; i < 4; i++ {
		trades = append(trades, trade("ETHUSD", 2, 10, 3, 0.1))
	}

	res := NewAggregator(DefaultOptions()).ComputeAll(trades)

	if len(res.Patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(res.Patterns))
	}
	if res.Patterns[0].Key.Instrument != "XBTUSD" {
		t.Errorf("unexpected pattern %s", res.Patterns[0].Key)
	}
	small := domain.PatternKey{Instrument: "ETHUSD", Leverage: 2, HoldBucket: 0}
	if _, ok := res.Groups[small]; ok {
		t.Error("undersized bucket must be absent, not zeroed")
	}
	if res.Skipped[small] != 4 {
		t.Errorf("expected skipped count 4, got %d", res.Skipped[small])
	}

	notes := res.GetSkippedPatternNotes()
	if len(notes) != 1 || notes[0] != "pattern ETHUSD_2x_0 skipped with 4 trade(s)" {
		t.Errorf("unexpected notes: %v", notes)
	}
}

func TestComputeAll_Deterministic(t *testing.T) {
	var trades []domain.TradeOutcome
	for i := 0; i < 30; i++ {
		gross := 4.0
		if i%3 == 0 {
			gross = -5
		}
		trades = append(trades, trade([]string{"XBTUSD", "ETHUSD"}[i%2], float64(1+i%2), 20+i*5, gross, 0.2))
	}

	agg := NewAggregator(DefaultOptions())
	first := agg.ComputeAll(trades)
	for run := 0; run < 5; run++ {
		again := agg.ComputeAll(trades)
		if !reflect.DeepEqual(first.Patterns, again.Patterns) {
			t.Fatalf("run %d produced different patterns", run)
		}
	}
}

func TestComputeAll_SortedByKey(t *testing.T) {
	var trades []domain.TradeOutcome
	for _, inst := range []string{"XBTUSD", "ADAUSD", "ETHUSD"} {
		for i := 0; i < 5; i++ {
			trades = append(trades, trade(inst, 1, 200, 1, 0))
		}
	}

	res := NewAggregator(DefaultOptions()).ComputeAll(trades)

	var got []string
	for _, p := range res.Patterns {
		got = append(got, p.Key.String())
	}
	want := []string{"ADAUSD_1x_3", "ETHUSD_1x_3", "XBTUSD_1x_3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNewAggregator_ZeroOptionsUseDefaults(t *testing.T) {
	agg := NewAggregator(Options{})
	if agg.Options() != DefaultOptions() {
		t.Errorf("expected defaults, got %+v", agg.Options())
	}
}

func TestGroupByPattern_PreservesOrder(t *testing.T) {
	trades := []domain.TradeOutcome{
		trade("XBTUSD", 1, 5, 1, 0),
		trade("XBTUSD", 1, 500, 2, 0),
		trade("XBTUSD", 1, 5, 3, 0),
	}
	groups := GroupByPattern(trades)

	bucket := groups[domain.PatternKey{Instrument: "XBTUSD", Leverage: 1, HoldBucket: 0}]
	if len(bucket) != 2 || bucket[0].GrossPnL != 1 || bucket[1].GrossPnL != 3 {
		t.Errorf("unexpected bucket contents: %+v", bucket)
	}
}

func TestRankWinners(t *testing.T) {
	mk := func(inst string, pf, conf float64, edge bool) domain.PatternMetrics {
		return domain.PatternMetrics{
			Key:             domain.PatternKey{Instrument: inst, Leverage: 1},
			ProfitFactor:    pf,
			ConfidenceScore: conf,
			HasEdge:         edge,
		}
	}
	patterns := []domain.PatternMetrics{
		mk("A", 1.2, 0.9, true),
		mk("B", 3.0, 0.9, true),
		mk("C", 9.0, 0.5, true),  // below threshold
		mk("D", 9.0, 0.9, false), // no edge
		mk("E", 2.0, 0.6, true),
	}

	winners := RankWinners(patterns, 0.6, 2)
	if len(winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(winners))
	}
	if winners[0].Key.Instrument != "B" || winners[1].Key.Instrument != "E" {
		t.Errorf("unexpected order: %s, %s", winners[0].Key, winners[1].Key)
	}

	if all := RankWinners(patterns, 0.6, 0); len(all) != 3 {
		t.Errorf("expected 3 winners without limit, got %d", len(all))
	}
}
