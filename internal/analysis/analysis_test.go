package analysis

import (
	"math"
	"testing"

	"trade-pattern-lab/internal/domain"
)

func outcome(instrument string, net float64) domain.TradeOutcome {
	return domain.TradeOutcome{
		Instrument:   instrument,
		Leverage:     2,
		HoldSeconds:  40,
		PositionSize: 100,
		NetPnL:       net,
		GrossPnL:     net,
	}
}

// fromWins builds trades whose net P&L is +1 for true and -1 for false.
func fromWins(instrument string, wins []bool) []domain.TradeOutcome {
	out := make([]domain.TradeOutcome, len(wins))
	for i, w := range wins {
		net := -1.0
		if w {
			net = 1
		}
		out[i] = outcome(instrument, net)
	}
	return out
}

func TestDetectDrift_FlagsShift(t *testing.T) {
	// first 10: 8 wins; last 10: 5 wins
	first := []bool{true, true, true, false, true, true, true, false, true, true}
	last := []bool{true, false, true, false, true, false, true, false, true, false}
	trades := append(fromWins("XBTUSD", first), fromWins("XBTUSD", last)...)

	report := DetectDrift(trades, DefaultOptions())

	if !report.Sufficient {
		t.Fatal("expected sufficient data with 20 trades")
	}
	if math.Abs(report.OldWinRate-0.8) > 1e-12 || math.Abs(report.RecentWinRate-0.5) > 1e-12 {
		t.Errorf("unexpected win rates old=%f recent=%f", report.OldWinRate, report.RecentWinRate)
	}
	if !report.Shifted {
		t.Error("expected regime shift to be flagged")
	}
}

func TestDetectDrift_NoShift(t *testing.T) {
	wins := make([]bool, 20)
	for i := range wins {
		wins[i] = i%2 == 0
	}
	report := DetectDrift(fromWins("XBTUSD", wins), DefaultOptions())
	if !report.Sufficient || report.Shifted {
		t.Errorf("expected stable win rate, got %+v", report)
	}
}

func TestDetectDrift_Insufficient(t *testing.T) {
	report := DetectDrift(fromWins("XBTUSD", make([]bool, 19)), DefaultOptions())
	if report.Sufficient || report.Shifted {
		t.Errorf("expected insufficient data, got %+v", report)
	}
}

func TestRegime(t *testing.T) {
	tests := []struct {
		name string
		rois []float64
		want string
	}{
		{"empty", nil, domain.RegimeUnknown},
		{"high volatility", []float64{10, -10, 10, -10}, domain.RegimeHighVolatility},
		{"trending up", []float64{3, 3, 2.5, 3.5}, domain.RegimeTrendingUp},
		{"trending down", []float64{-3, -3, -2.5, -3.5}, domain.RegimeTrendingDown},
		{"consolidating", []float64{1, -1, 0.5, -0.5}, domain.RegimeConsolidating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trades []domain.TradeOutcome
			for _, r := range tt.rois {
				trades = append(trades, outcome("XBTUSD", r))
			}
			if got := Regime(trades); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCorrelate_IdenticalSequences(t *testing.T) {
	seq := []bool{true, false, true, true, false, true}
	a := domain.PatternKey{Instrument: "XBTUSD", Leverage: 2, HoldBucket: 1}
	b := domain.PatternKey{Instrument: "ETHUSD", Leverage: 2, HoldBucket: 1}
	groups := map[domain.PatternKey][]domain.TradeOutcome{
		a: fromWins("XBTUSD", seq),
		b: fromWins("ETHUSD", seq),
	}
	patterns := []domain.PatternMetrics{
		{Key: a, HasEdge: true},
		{Key: b, HasEdge: true},
	}

	got := Correlate(patterns, groups, DefaultOptions())

	if len(got) != 1 {
		t.Fatalf("expected one unordered pair, got %d", len(got))
	}
	if math.Abs(got[0].Correlation-1.0) > 1e-12 {
		t.Errorf("expected 1.0, got %f", got[0].Correlation)
	}
	// ordered by key string
	if got[0].A != b || got[0].B != a {
		t.Errorf("unexpected pair order %s <-> %s", got[0].A, got[0].B)
	}
}

func TestCorrelate_SkipsZeroVarianceAndNonEdge(t *testing.T) {
	mixed := domain.PatternKey{Instrument: "A", Leverage: 1}
	allWin := domain.PatternKey{Instrument: "B", Leverage: 1}
	noEdge := domain.PatternKey{Instrument: "C", Leverage: 1}
	seq := []bool{true, false, true, false, true}

	groups := map[domain.PatternKey][]domain.TradeOutcome{
		mixed:  fromWins("A", seq),
		allWin: fromWins("B", []bool{true, true, true, true, true}),
		noEdge: fromWins("C", seq),
	}
	patterns := []domain.PatternMetrics{
		{Key: mixed, HasEdge: true},
		{Key: allWin, HasEdge: true},
		{Key: noEdge, HasEdge: false},
	}

	got := Correlate(patterns, groups, DefaultOptions())
	if len(got) != 0 {
		t.Errorf("expected no reportable pairs, got %+v", got)
	}
	for _, c := range got {
		if math.IsNaN(c.Correlation) {
			t.Error("NaN leaked into results")
		}
	}
}

func TestCorrelate_ThresholdAndTopN(t *testing.T) {
	base := []bool{true, false, true, false, true, false, true, false}
	keys := []domain.PatternKey{
		{Instrument: "A", Leverage: 1},
		{Instrument: "B", Leverage: 1},
		{Instrument: "C", Leverage: 1},
		{Instrument: "D", Leverage: 1},
	}
	groups := make(map[domain.PatternKey][]domain.TradeOutcome)
	var patterns []domain.PatternMetrics
	for _, k := range keys {
		groups[k] = fromWins(k.Instrument, base)
		patterns = append(patterns, domain.PatternMetrics{Key: k, HasEdge: true})
	}

	// 4 identical sequences -> 6 pairs at r=1, only 3 reported
	got := Correlate(patterns, groups, DefaultOptions())
	if len(got) != 3 {
		t.Fatalf("expected top 3, got %d", len(got))
	}
}

func TestCorrelate_WeakPairFilteredByThreshold(t *testing.T) {
	a := domain.PatternKey{Instrument: "A", Leverage: 1}
	b := domain.PatternKey{Instrument: "B", Leverage: 1}
	groups := map[domain.PatternKey][]domain.TradeOutcome{
		a: fromWins("A", []bool{true, false, true, false, true, false}),
		b: fromWins("B", []bool{true, false, false, true, true, false}),
	}
	patterns := []domain.PatternMetrics{{Key: a, HasEdge: true}, {Key: b, HasEdge: true}}

	// r = 0.5 / 1.5 = 1/3
	got := Correlate(patterns, groups, DefaultOptions())
	if len(got) != 1 || math.Abs(got[0].Correlation-1.0/3.0) > 1e-12 {
		t.Fatalf("expected r=1/3, got %+v", got)
	}

	opts := DefaultOptions()
	opts.CorrelationThreshold = 0.5
	if got := Correlate(patterns, groups, opts); len(got) != 0 {
		t.Errorf("expected pair below threshold to be dropped, got %+v", got)
	}
}
