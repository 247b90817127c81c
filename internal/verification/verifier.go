// Package verification checks stored trades and the live pattern database
// against a replay of the stored ledger.
package verification

import (
	"math"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/idhash"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// TradeResult is the verification result of one stored trade.
type TradeResult struct {
	TradeID     string            `json:"trade_id"`
	Match       bool              `json:"match"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// PatternResult is a pattern whose live record differs from the replay.
type PatternResult struct {
	Pattern     string            `json:"pattern"`
	Divergences []FieldDivergence `json:"divergences"`
}

// Report contains the results of a full verification.
type Report struct {
	TotalTrades     int             `json:"total_trades"`
	MatchedTrades   int             `json:"matched_trades"`
	DivergentTrades int             `json:"divergent_trades"`
	Trades          []TradeResult   `json:"trades,omitempty"` // divergent trades only
	ReplayedTrades  int             `json:"replayed_trades"`
	Patterns        []PatternResult `json:"patterns,omitempty"`
}

// OK reports whether nothing diverged.
func (r *Report) OK() bool {
	return r.DivergentTrades == 0 && len(r.Patterns) == 0
}

// CheckTrade recomputes what can be derived from a stored trade and returns
// the fields that disagree: the content-derived id and the net = gross - fees
// accounting identity.
func CheckTrade(stored domain.TradeOutcome) []FieldDivergence {
	var divergences []FieldDivergence

	if id := idhash.ComputeTradeID(stored); id != stored.TradeID {
		divergences = append(divergences, FieldDivergence{
			Field:    "TradeID",
			Expected: id,
			Actual:   stored.TradeID,
		})
	}

	if net := stored.GrossPnL - stored.FeesPaid; !floatEquals(net, stored.NetPnL) {
		divergences = append(divergences, FieldDivergence{
			Field:    "NetPnL",
			Expected: net,
			Actual:   stored.NetPnL,
		})
	}

	return divergences
}

// ComparePatterns compares the replayed pattern database with the live one.
// Patterns present on one side only are reported with a "Present" field.
func ComparePatterns(replayed, live []domain.PatternMetrics) []PatternResult {
	liveByKey := make(map[domain.PatternKey]domain.PatternMetrics, len(live))
	for _, p := range live {
		liveByKey[p.Key] = p
	}

	var out []PatternResult
	seen := make(map[domain.PatternKey]bool, len(replayed))
	for _, want := range replayed {
		seen[want.Key] = true
		got, ok := liveByKey[want.Key]
		if !ok {
			out = append(out, PatternResult{
				Pattern:     want.Key.String(),
				Divergences: []FieldDivergence{{Field: "Present", Expected: true, Actual: false}},
			})
			continue
		}
		if d := comparePattern(want, got); len(d) > 0 {
			out = append(out, PatternResult{Pattern: want.Key.String(), Divergences: d})
		}
	}
	for _, p := range live {
		if !seen[p.Key] {
			out = append(out, PatternResult{
				Pattern:     p.Key.String(),
				Divergences: []FieldDivergence{{Field: "Present", Expected: false, Actual: true}},
			})
		}
	}
	return out
}

func comparePattern(want, got domain.PatternMetrics) []FieldDivergence {
	var divergences []FieldDivergence

	ints := []struct {
		field     string
		want, got int
	}{
		{"TotalTrades", want.TotalTrades, got.TotalTrades},
		{"WinningTrades", want.WinningTrades, got.WinningTrades},
		{"LosingTrades", want.LosingTrades, got.LosingTrades},
	}
	for _, c := range ints {
		if c.want != c.got {
			divergences = append(divergences, FieldDivergence{Field: c.field, Expected: c.want, Actual: c.got})
		}
	}

	floats := []struct {
		field     string
		want, got float64
	}{
		{"TotalPnL", want.TotalPnL, got.TotalPnL},
		{"TotalFees", want.TotalFees, got.TotalFees},
		{"AvgWin", want.AvgWin, got.AvgWin},
		{"AvgLoss", want.AvgLoss, got.AvgLoss},
		{"WinRate", want.WinRate, got.WinRate},
		{"ProfitFactor", want.ProfitFactor, got.ProfitFactor},
		{"MaxDrawdown", want.MaxDrawdown, got.MaxDrawdown},
		{"SharpeRatio", want.SharpeRatio, got.SharpeRatio},
		{"SortinoRatio", want.SortinoRatio, got.SortinoRatio},
		{"ConfidenceScore", want.ConfidenceScore, got.ConfidenceScore},
		{"EdgePercentage", want.EdgePercentage, got.EdgePercentage},
	}
	for _, c := range floats {
		if !floatEquals(c.want, c.got) {
			divergences = append(divergences, FieldDivergence{Field: c.field, Expected: c.want, Actual: c.got})
		}
	}

	if want.HasEdge != got.HasEdge {
		divergences = append(divergences, FieldDivergence{Field: "HasEdge", Expected: want.HasEdge, Actual: got.HasEdge})
	}
	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// Equal infinities match.
func floatEquals(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}
