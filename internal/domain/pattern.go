package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Hold-time buckets. Upper bounds are exclusive.
const (
	BucketUnder30s  = 0 // < 30s
	Bucket30To60s   = 1 // 30-60s
	Bucket60To120s  = 2 // 60-120s
	BucketOver120s  = 3 // >= 120s
	BucketWidthSecs = 30
)

// PatternKey identifies a behavioral bucket of trades.
// It is comparable and used directly as a map key.
type PatternKey struct {
	Instrument string
	Leverage   int
	HoldBucket int
}

// HoldBucket maps a hold duration in seconds to its bucket.
func HoldBucket(holdSeconds int) int {
	switch {
	case holdSeconds < 30:
		return BucketUnder30s
	case holdSeconds < 60:
		return Bucket30To60s
	case holdSeconds < 120:
		return Bucket60To120s
	default:
		return BucketOver120s
	}
}

// KeyFor derives the pattern key of a trade.
// Leverage is truncated toward zero to an integer multiplier.
func KeyFor(t TradeOutcome) PatternKey {
	return PatternKey{
		Instrument: t.Instrument,
		Leverage:   int(t.Leverage),
		HoldBucket: HoldBucket(t.HoldSeconds),
	}
}

// String renders the key as INSTRUMENT_<lev>x_<bucket>.
func (k PatternKey) String() string {
	return fmt.Sprintf("%s_%dx_%d", k.Instrument, k.Leverage, k.HoldBucket)
}

// ParsePatternKey parses the INSTRUMENT_<lev>x_<bucket> form produced by String.
// The instrument may itself contain underscores.
func ParsePatternKey(s string) (PatternKey, error) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 {
		return PatternKey{}, fmt.Errorf("parse pattern key %q: missing bucket", s)
	}
	bucket, err := strconv.Atoi(s[i+1:])
	if err != nil || bucket < BucketUnder30s || bucket > BucketOver120s {
		return PatternKey{}, fmt.Errorf("parse pattern key %q: bad bucket", s)
	}

	rest := s[:i]
	j := strings.LastIndexByte(rest, '_')
	if j <= 0 || !strings.HasSuffix(rest, "x") {
		return PatternKey{}, fmt.Errorf("parse pattern key %q: missing leverage", s)
	}
	lev, err := strconv.Atoi(rest[j+1 : len(rest)-1])
	if err != nil {
		return PatternKey{}, fmt.Errorf("parse pattern key %q: bad leverage", s)
	}

	return PatternKey{Instrument: rest[:j], Leverage: lev, HoldBucket: bucket}, nil
}

// BucketMidpointSeconds returns the representative hold time of the key's bucket.
func (k PatternKey) BucketMidpointSeconds() int {
	return k.HoldBucket*BucketWidthSecs + BucketWidthSecs/2
}

// PatternMetrics holds per-pattern performance and risk statistics.
// Recomputed wholesale on every analysis pass.
type PatternMetrics struct {
	Key PatternKey

	// Performance
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	TotalFees     float64
	AvgWin        float64 // mean gross P&L of winners
	AvgLoss       float64 // mean |gross P&L| of losers
	WinRate       float64
	ProfitFactor  float64 // gross wins / gross losses, or gross wins if no losses

	// Risk (ROI-percentage units)
	MaxDrawdown  float64
	SharpeRatio  float64
	SortinoRatio float64

	// Confidence and edge
	ConfidenceScore float64 // [0,1]
	HasEdge         bool
	EdgePercentage  float64
}

// Trustworthy reports whether the pattern has an edge and meets the confidence threshold.
func (m PatternMetrics) Trustworthy(threshold float64) bool {
	return m.HasEdge && m.ConfidenceScore >= threshold
}
